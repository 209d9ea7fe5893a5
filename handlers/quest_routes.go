// handlers/quest_routes.go
package handlers

import (
	"log"
	"strconv"

	"quest-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// submitProofRequest is the typed request body for proof submission.
// validate() returns a reason string instead of panicking or throwing —
// empty means the shape is fine.
type submitProofRequest struct {
	TransactionHash string `json:"transactionHash"`
	Participant     string `json:"participant,omitempty"`
}

func (r *submitProofRequest) validate() string {
	if r.TransactionHash == "" {
		return "transactionHash is required"
	}
	if !services.ValidTxHash(r.TransactionHash) {
		return "Invalid transaction hash format. Expected 0x followed by 64 hex characters."
	}
	if r.Participant != "" && !services.ValidAddress(r.Participant) {
		return "Invalid participant address"
	}
	return ""
}

func SetupQuestRoutes(app *fiber.App, questService *services.QuestService, completionService *services.CompletionService, statsService *services.UserStatsService) {
	api := app.Group("/api/quests")

	api.Get("/", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		quests, err := questService.ListQuests(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to list quests",
			})
		}
		return c.JSON(fiber.Map{"quests": quests})
	})

	// Registered before /:id so "leaderboard" is never parsed as a quest id.
	api.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		leaderboard, err := statsService.GetLeaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to load leaderboard",
			})
		}
		return c.JSON(fiber.Map{"leaderboard": leaderboard})
	})

	api.Get("/:id", func(c *fiber.Ctx) error {
		questID, ok := parseQuestID(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid quest id"})
		}
		quest, err := questService.GetQuest(c.Context(), questID)
		if err != nil {
			return questErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{"quest": quest})
	})

	api.Get("/:id/progress/:participant", func(c *fiber.Ctx) error {
		questID, ok := parseQuestID(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid quest id"})
		}
		participant := c.Params("participant")
		if !services.ValidAddress(participant) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid participant address"})
		}

		progress, err := completionService.Chain.GetParticipantProgress(c.Context(), questID, participant)
		if err != nil {
			return questErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"questId":     questID,
			"participant": participant,
			"progress":    progress,
		})
	})

	api.Post("/:id/submit-proof", func(c *fiber.Ctx) error {
		questID, ok := parseQuestID(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid quest id"})
		}

		var req submitProofRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
		}
		if reason := req.validate(); reason != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": reason})
		}

		result, err := completionService.SubmitProof(c.Context(), questID, req.TransactionHash, req.Participant)
		if err != nil {
			return submitProofErrorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"message":         "Quest completed successfully",
			"questId":         strconv.FormatInt(result.QuestID, 10),
			"transactionHash": result.CompletionTxHash,
			"verification": fiber.Map{
				"transactionHash": req.TransactionHash,
				"mirrorNodeTx":    result.Verification,
			},
		})
	})

	// Manual completion path for operators; the relayer call is idempotent.
	api.Post("/:id/complete", func(c *fiber.Ctx) error {
		questID, ok := parseQuestID(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid quest id"})
		}
		var req struct {
			Participant string `json:"participant"`
			EvidenceURI string `json:"evidenceURI"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
		}
		if !services.ValidAddress(req.Participant) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid participant address"})
		}

		result, err := completionService.Chain.RecordCompletion(c.Context(), questID, req.Participant, req.EvidenceURI)
		if err != nil {
			return questErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"questId":         strconv.FormatInt(questID, 10),
			"transactionHash": result.TransactionHash,
		})
	})

	// Manual triggers for the generation jobs, mirroring the scheduler.
	cron := app.Group("/api/cron")

	cron.Post("/daily-quests", func(c *fiber.Ctx) error {
		result, err := questService.GenerateDailyQuests(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
		return c.JSON(result)
	})

	cron.Post("/weekly-quests", func(c *fiber.Ctx) error {
		result, err := questService.GenerateWeeklyQuests(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
		return c.JSON(result)
	})
}

func parseQuestID(c *fiber.Ctx) (int64, bool) {
	questID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || questID <= 0 {
		return 0, false
	}
	return questID, true
}

// submitProofErrorResponse maps pipeline error kinds onto the HTTP contract.
func submitProofErrorResponse(c *fiber.Ctx, err error) error {
	switch services.KindOf(err) {
	case services.ErrKindInvalidInput,
		services.ErrKindQuestNotActive,
		services.ErrKindQuestExpired,
		services.ErrKindNotAccepted,
		services.ErrKindAlreadyCompleted:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": services.ReasonOf(err)})
	case services.ErrKindVerificationFailed:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Transaction verification failed",
			"error":   services.ReasonOf(err),
		})
	case services.ErrKindParticipantMismatch:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": services.ReasonOf(err)})
	case services.ErrKindIdempotencyConflict:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": services.ReasonOf(err)})
	default:
		log.Printf("❌ submit-proof failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": services.ReasonOf(err)})
	}
}

func questErrorResponse(c *fiber.Ctx, err error) error {
	switch services.KindOf(err) {
	case services.ErrKindInvalidInput:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": services.ReasonOf(err)})
	default:
		log.Printf("❌ quest request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": services.ReasonOf(err)})
	}
}
