// handlers/user_routes.go
package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"quest-reward-system/middleware"
	"quest-reward-system/models"
	"quest-reward-system/services"
	"quest-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
)

func SetupUserRoutes(app *fiber.App, statsService *services.UserStatsService, badgeService *services.BadgeService, r2 *utils.R2Client) {
	users := app.Group("/api/quests/users", middleware.WalletContextMiddleware())

	users.Get("/:address/stats", func(c *fiber.Ctx) error {
		address := c.Params("address")
		if !services.ValidAddress(address) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid wallet address"})
		}

		user, err := statsService.GetOrCreateUser(address)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load user"})
		}

		stats, err := statsService.GetStats(address)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load stats"})
		}
		if stats == nil {
			// User exists but has earned nothing yet — defaults, unranked.
			return c.JSON(fiber.Map{
				"stats": fiber.Map{
					"wallet_address":   user.WalletAddress,
					"total_xp":         0,
					"completed_quests": 0,
					"level":            1,
					"rank":             nil,
					"rank_name":        nil,
					"name":             user.Name,
					"email":            user.Email,
					"updated_at":       time.Now().UTC().Format(time.RFC3339),
				},
			})
		}

		return c.JSON(fiber.Map{
			"stats": fiber.Map{
				"wallet_address":   stats.WalletAddress,
				"total_xp":         stats.TotalXP,
				"completed_quests": stats.CompletedQuests,
				"level":            stats.Level,
				"rank":             stats.Rank,
				"rank_name":        rankName(stats.Rank),
				"name":             user.Name,
				"email":            user.Email,
				"last_level_up_at": stats.LastLevelUpAt,
				"last_rank_up_at":  stats.LastRankUpAt,
				"updated_at":       stats.UpdatedAt,
			},
		})
	})

	users.Get("/:address/rewards", func(c *fiber.Ctx) error {
		address := c.Params("address")
		if !services.ValidAddress(address) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid wallet address"})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "50"))

		records, err := statsService.GetRewardHistory(address, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load reward history"})
		}
		return c.JSON(fiber.Map{"rewards": records})
	})

	users.Get("/:address/badges", func(c *fiber.Ctx) error {
		address := c.Params("address")
		if !services.ValidAddress(address) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid wallet address"})
		}
		badges, err := badgeService.ListUserBadges(address)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load badges"})
		}
		return c.JSON(fiber.Map{"badges": badges})
	})

	users.Post("/:address/avatar", func(c *fiber.Ctx) error {
		address := c.Params("address")
		if !services.ValidAddress(address) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid wallet address"})
		}

		// Only the wallet's owner may change its avatar.
		caller, _ := c.Locals("wallet_address").(string)
		if caller == "" || caller != strings.ToLower(address) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Wallet does not match authenticated caller"})
		}

		fileHeader, err := c.FormFile("avatar")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "avatar file is required"})
		}
		if fileHeader.Size > 5*1024*1024 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "avatar must be 5MB or smaller"})
		}
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		switch ext {
		case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unsupported avatar file type"})
		}

		key := fmt.Sprintf("avatars/%s%s", slug.Make(address), ext)
		url, err := r2.UploadFile(c.Context(), fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to upload avatar"})
		}

		user, err := statsService.GetOrCreateUser(address)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to load user"})
		}
		if err := statsService.DB.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("avatar_url", url).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save avatar"})
		}

		return c.JSON(fiber.Map{
			"message":    "Avatar updated",
			"avatar_url": url,
		})
	})
}

func rankName(rank int) string {
	switch rank {
	case 1:
		return "Rookie"
	case 2:
		return "Bronze"
	case 3:
		return "Silver"
	case 4:
		return "Gold"
	case 5:
		return "Platinum"
	default:
		if rank > 5 {
			return "Legend"
		}
		return "Rookie"
	}
}
