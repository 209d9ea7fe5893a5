package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"quest-reward-system/models"
	"quest-reward-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	routeTxHash      = "0x" + "12345678" + "90abcdef90abcdef90abcdef90abcdef90abcdef90abcdef90abcdef"
	routeParticipant = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	routeProtocol    = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	routeCompletion  = "0x" + "dd" + "345678" + "90abcdef90abcdef90abcdef90abcdef90abcdef90abcdef90abcd"
)

type stubChain struct {
	quest    *services.QuestView
	progress *services.ParticipantProgress
}

func (s *stubChain) GetQuest(ctx context.Context, questID int64) (*services.QuestView, error) {
	return s.quest, nil
}

func (s *stubChain) GetParticipantProgress(ctx context.Context, questID int64, participant string) (*services.ParticipantProgress, error) {
	return s.progress, nil
}

func (s *stubChain) RecordCompletion(ctx context.Context, questID int64, participant, evidenceURI string) (*services.CompletionResult, error) {
	return &services.CompletionResult{TransactionHash: routeCompletion}, nil
}

type stubVerifier struct {
	err error
}

func (s *stubVerifier) Verify(ctx context.Context, txHash, from, to string) (*services.VerifiedTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.VerifiedTransaction{TransactionHash: txHash, Status: "SUCCESS", EntityID: to}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *stubChain, *stubVerifier) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Quest{},
		&models.QuestSubmission{},
		&models.User{},
		&models.UserStats{},
		&models.XPRecord{},
		&models.BadgeType{},
		&models.UserBadge{},
	))

	chain := &stubChain{
		quest: &services.QuestView{
			ID:                  7,
			StatusValue:         models.QuestStatusValueActive,
			AssignedParticipant: routeParticipant,
			Protocol:            routeProtocol,
		},
		progress: &services.ParticipantProgress{Accepted: true},
	}
	verifier := &stubVerifier{}

	store := services.NewSubmissionStore(db)
	stats := services.NewUserStatsService(db)
	completion := services.NewCompletionService(db, chain, verifier, store, stats)
	quest := services.NewQuestService(db, chain, nil, nil, nil)

	app := fiber.New()
	SetupQuestRoutes(app, quest, completion, stats)
	return app, chain, verifier
}

func submitProof(t *testing.T, app *fiber.App, questID string, body map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/quests/%s/submit-proof", questID), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	resp.Body.Close()
	return resp, decoded
}

func TestSubmitProofRoute(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := submitProof(t, app, "7", map[string]string{
		"transactionHash": routeTxHash,
		"participant":     routeParticipant,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Quest completed successfully", body["message"])
	require.Equal(t, "7", body["questId"])
	require.Equal(t, routeCompletion, body["transactionHash"])

	verification, ok := body["verification"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, routeTxHash, verification["transactionHash"])
}

func TestSubmitProofRouteDuplicateConflict(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := submitProof(t, app, "7", map[string]string{"transactionHash": routeTxHash})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := submitProof(t, app, "7", map[string]string{"transactionHash": routeTxHash})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "This transaction hash has already been verified for this quest", body["message"])
}

func TestSubmitProofRouteVerificationFailed(t *testing.T) {
	app, _, verifier := newTestApp(t)
	verifier.err = &services.PipelineError{
		Kind:   services.ErrKindVerificationFailed,
		Reason: "Transaction was reverted",
	}

	resp, body := submitProof(t, app, "7", map[string]string{"transactionHash": routeTxHash})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Transaction verification failed", body["message"])
	require.Equal(t, "Transaction was reverted", body["error"])
}

func TestSubmitProofRouteParticipantMismatch(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := submitProof(t, app, "7", map[string]string{
		"transactionHash": routeTxHash,
		"participant":     "0xcccccccccccccccccccccccccccccccccccccccc",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Participant address does not match quest assignment", body["message"])
}

func TestSubmitProofRouteBadInput(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, body := submitProof(t, app, "7", map[string]string{"transactionHash": "0xnothex"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["message"], "Invalid transaction hash format")

	resp, _ = submitProof(t, app, "7", map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = submitProof(t, app, "abc", map[string]string{"transactionHash": routeTxHash})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid quest id", body["message"])
}

func TestProgressRoute(t *testing.T) {
	app, chain, _ := newTestApp(t)
	chain.progress = &services.ParticipantProgress{Accepted: true, Completed: true}

	req := httptest.NewRequest(http.MethodGet, "/api/quests/7/progress/"+routeParticipant, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		QuestID  int64 `json:"questId"`
		Progress struct {
			Accepted  bool `json:"accepted"`
			Completed bool `json:"completed"`
		} `json:"progress"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, int64(7), body.QuestID)
	require.True(t, body.Progress.Accepted)
	require.True(t, body.Progress.Completed)
}

func TestLeaderboardRoute(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, _ := submitProof(t, app, "7", map[string]string{"transactionHash": routeTxHash})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/quests/leaderboard", nil)
	lbResp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer lbResp.Body.Close()
	require.Equal(t, http.StatusOK, lbResp.StatusCode)

	var body struct {
		Leaderboard []struct {
			WalletAddress string `json:"wallet_address"`
			TotalXP       int64  `json:"total_xp"`
		} `json:"leaderboard"`
	}
	require.NoError(t, json.NewDecoder(lbResp.Body).Decode(&body))
	require.Len(t, body.Leaderboard, 1)
	require.Equal(t, routeParticipant, body.Leaderboard[0].WalletAddress)
	require.Positive(t, body.Leaderboard[0].TotalXP)
}
