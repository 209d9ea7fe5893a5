package services

import (
	"context"
	"testing"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUploader struct {
	calls int
}

func (f *fakeUploader) UploadJSON(ctx context.Context, payload interface{}, name string) (string, error) {
	f.calls++
	return "ipfs://QmGeneratedMeta", nil
}

type fakeIssuer struct {
	nextID int64
	issued []QuestIssueRequest
}

func (f *fakeIssuer) IssueQuest(ctx context.Context, issue QuestIssueRequest) (int64, error) {
	f.nextID++
	f.issued = append(f.issued, issue)
	return f.nextID, nil
}

func seedUser(t *testing.T, db *gorm.DB, wallet, name, email string) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		Name:          name,
		Email:         email,
	}).Error)
}

func TestGenerateDailyQuests(t *testing.T) {
	db := openTestDB(t)
	uploader := &fakeUploader{}
	issuer := &fakeIssuer{}
	svc := NewQuestService(db, nil, issuer, uploader, []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	})

	seedUser(t, db, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "alice", "alice@example.com")
	seedUser(t, db, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "bob", "bob@example.com")
	// Incomplete profile — not eligible for generated quests.
	seedUser(t, db, "0xcccccccccccccccccccccccccccccccccccccccc", "", "")

	result, err := svc.GenerateDailyQuests(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalUsers)
	require.Equal(t, 2, result.Generated)
	require.Zero(t, result.Skipped)
	require.Empty(t, result.Errors)
	require.Equal(t, 2, uploader.calls)

	// Protocols rotate across users.
	require.Len(t, issuer.issued, 2)
	require.NotEqual(t, issuer.issued[0].Protocol, issuer.issued[1].Protocol)
	require.Equal(t, models.QuestTypeDaily, issuer.issued[0].QuestType)
	require.Equal(t, 1, issuer.issued[0].BadgeLevel)

	var quests []models.Quest
	require.NoError(t, db.Find(&quests).Error)
	require.Len(t, quests, 2)
	for _, q := range quests {
		require.Equal(t, models.QuestStatusActive, q.Status)
		require.Equal(t, models.QuestTypeDaily, q.QuestType)
		require.Equal(t, "ipfs://QmGeneratedMeta", q.MetadataURI)
		require.Greater(t, q.Expiry, time.Now().Unix())
	}

	// A second run finds everyone already holding an active daily quest.
	result, err = svc.GenerateDailyQuests(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.Generated)
	require.Equal(t, 2, result.Skipped)
}

func TestGenerateWeeklyQuestsIndependentOfDaily(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestService(db, nil, &fakeIssuer{}, &fakeUploader{}, []string{
		"0x1111111111111111111111111111111111111111",
	})
	seedUser(t, db, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "alice", "alice@example.com")

	result, err := svc.GenerateDailyQuests(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Generated)

	// The daily quest does not count as an active weekly quest.
	result, err = svc.GenerateWeeklyQuests(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Generated)

	var quest models.Quest
	require.NoError(t, db.Where("quest_type = ?", models.QuestTypeWeekly).First(&quest).Error)
	require.Equal(t, 2, quest.BadgeLevel)
}

func TestGenerateQuestsNoProtocols(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestService(db, nil, &fakeIssuer{}, &fakeUploader{}, nil)
	seedUser(t, db, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "alice", "alice@example.com")

	result, err := svc.GenerateDailyQuests(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.Generated)
	require.Len(t, result.Errors, 1)
}

func TestRefreshMirrorCreatesAndUpdates(t *testing.T) {
	db := openTestDB(t)
	svc := NewQuestService(db, nil, nil, nil, nil)

	view := &QuestView{
		ID:                  9,
		StatusValue:         models.QuestStatusValueActive,
		AssignedParticipant: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Protocol:            "0x1111111111111111111111111111111111111111",
	}
	svc.refreshMirror(view)

	var quest models.Quest
	require.NoError(t, db.Where("quest_id_on_chain = ?", int64(9)).First(&quest).Error)
	require.Equal(t, models.QuestStatusActive, quest.Status)
	require.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", quest.AssignedParticipant)

	view.StatusValue = models.QuestStatusValueCompleted
	svc.refreshMirror(view)
	require.NoError(t, db.Where("quest_id_on_chain = ?", int64(9)).First(&quest).Error)
	require.Equal(t, models.QuestStatusCompleted, quest.Status)
}
