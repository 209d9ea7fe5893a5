package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetadataUploader pins a JSON payload to durable storage and returns its
// content URI. Implemented by utils.PinataClient.
type MetadataUploader interface {
	UploadJSON(ctx context.Context, payload interface{}, name string) (string, error)
}

// QuestIssueRequest describes a quest to be created on-chain by the relayer.
type QuestIssueRequest struct {
	Title                string `json:"title"`
	Participant          string `json:"participant"`
	Protocol             string `json:"protocol"`
	QuestType            string `json:"quest_type"`
	Expiry               int64  `json:"expiry"`
	BadgeLevel           int    `json:"badge_level"`
	RewardPerParticipant string `json:"reward_per_participant,omitempty"`
	MetadataURI          string `json:"metadata_uri"`
}

// QuestIssuer is the relayer's quest-creation surface, separate from the
// read/completion surface so the orchestrator never sees it.
type QuestIssuer interface {
	IssueQuest(ctx context.Context, issue QuestIssueRequest) (int64, error)
}

type QuestService struct {
	DB       *gorm.DB
	Chain    QuestChain
	Issuer   QuestIssuer
	Uploader MetadataUploader

	// Protocol addresses generated quests rotate through. Loaded from env in
	// main; the registry itself lives outside this service.
	Protocols []string
}

func NewQuestService(db *gorm.DB, chain QuestChain, issuer QuestIssuer, uploader MetadataUploader, protocols []string) *QuestService {
	return &QuestService{
		DB:        db,
		Chain:     chain,
		Issuer:    issuer,
		Uploader:  uploader,
		Protocols: protocols,
	}
}

// GetQuest returns the on-chain view and refreshes the local mirror row.
func (s *QuestService) GetQuest(ctx context.Context, questID int64) (*QuestView, error) {
	quest, err := s.Chain.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	s.refreshMirror(quest)
	return quest, nil
}

// ListQuests returns mirror rows, newest first.
func (s *QuestService) ListQuests(limit int) ([]models.Quest, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var quests []models.Quest
	err := s.DB.Order("created_at DESC").Limit(limit).Find(&quests).Error
	return quests, err
}

// GenerationResult summarizes one cron run.
type GenerationResult struct {
	TotalUsers int      `json:"total_users"`
	Generated  int      `json:"generated"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// GenerateDailyQuests issues a daily quest for every active user who does not
// already hold one. Run by the scheduler at 00:00 UTC.
func (s *QuestService) GenerateDailyQuests(ctx context.Context) (*GenerationResult, error) {
	return s.generateForAllUsers(ctx, models.QuestTypeDaily, 24*time.Hour, 1)
}

// GenerateWeeklyQuests issues a weekly quest for every active user who does
// not already hold one. Run by the scheduler on Monday 00:00 UTC.
func (s *QuestService) GenerateWeeklyQuests(ctx context.Context) (*GenerationResult, error) {
	return s.generateForAllUsers(ctx, models.QuestTypeWeekly, 7*24*time.Hour, 2)
}

func (s *QuestService) generateForAllUsers(ctx context.Context, questType string, lifetime time.Duration, badgeLevel int) (*GenerationResult, error) {
	log.Printf("[CRON] Running %s quest generation...", questType)
	result := &GenerationResult{}

	// Active users = completed their profile.
	var users []models.User
	if err := s.DB.Where("name <> '' AND email <> ''").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load active users: %w", err)
	}
	result.TotalUsers = len(users)

	for i, user := range users {
		hasActive, err := s.hasActiveQuest(user.WalletAddress, questType)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.WalletAddress, err))
			continue
		}
		if hasActive {
			result.Skipped++
			continue
		}

		if err := s.generateQuest(ctx, &user, questType, lifetime, badgeLevel, i); err != nil {
			log.Printf("[CRON] ✗ Failed %s quest for %s: %v", questType, user.WalletAddress, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.WalletAddress, err))
			continue
		}
		result.Generated++
	}

	log.Printf("[CRON] %s quest generation completed: %d generated, %d skipped, %d errors",
		questType, result.Generated, result.Skipped, len(result.Errors))
	return result, nil
}

func (s *QuestService) hasActiveQuest(wallet, questType string) (bool, error) {
	now := time.Now().Unix()
	var count int64
	err := s.DB.Model(&models.Quest{}).
		Where("assigned_participant = ? AND quest_type = ? AND status = ? AND (expiry = 0 OR expiry > ?)",
			wallet, questType, models.QuestStatusActive, now).
		Count(&count).Error
	return count > 0, err
}

func (s *QuestService) generateQuest(ctx context.Context, user *models.User, questType string, lifetime time.Duration, badgeLevel int, seed int) error {
	if len(s.Protocols) == 0 {
		return fmt.Errorf("no quest protocols configured")
	}
	protocol := s.Protocols[seed%len(s.Protocols)]
	expiry := time.Now().Add(lifetime).Unix()
	title := fmt.Sprintf("Interact with %s (%s quest)", protocol, questType)

	metadata := map[string]interface{}{
		"title":        title,
		"quest_type":   questType,
		"participant":  user.WalletAddress,
		"protocol":     protocol,
		"expiry":       expiry,
		"badge_level":  badgeLevel,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}
	metadataURI, err := s.Uploader.UploadJSON(ctx, metadata, slug.Make(fmt.Sprintf("quest-%s-%s", questType, user.WalletAddress)))
	if err != nil {
		return fmt.Errorf("metadata upload failed: %w", err)
	}

	questID, err := s.Issuer.IssueQuest(ctx, QuestIssueRequest{
		Title:       title,
		Participant: user.WalletAddress,
		Protocol:    protocol,
		QuestType:   questType,
		Expiry:      expiry,
		BadgeLevel:  badgeLevel,
		MetadataURI: metadataURI,
	})
	if err != nil {
		return fmt.Errorf("on-chain issue failed: %w", err)
	}

	quest := models.Quest{
		ID:                  uuid.NewString(),
		QuestIDOnChain:      questID,
		Title:               title,
		Protocol:            protocol,
		AssignedParticipant: NormalizeAddress(user.WalletAddress),
		Status:              models.QuestStatusActive,
		Expiry:              expiry,
		QuestType:           questType,
		BadgeLevel:          badgeLevel,
		MetadataURI:         metadataURI,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quest_id_on_chain"}},
		UpdateAll: true,
	}).Create(&quest).Error; err != nil {
		return fmt.Errorf("failed to save quest mirror: %w", err)
	}
	return nil
}

// refreshMirror folds the latest on-chain view into the mirror row without
// touching reward metadata columns the chain does not carry.
func (s *QuestService) refreshMirror(view *QuestView) {
	updates := map[string]interface{}{
		"status":               models.QuestStatusFromValue(view.StatusValue),
		"assigned_participant": NormalizeAddress(view.AssignedParticipant),
		"protocol":             view.Protocol,
		"expiry":               view.Expiry,
		"updated_at":           time.Now(),
	}
	res := s.DB.Model(&models.Quest{}).Where("quest_id_on_chain = ?", view.ID).Updates(updates)
	if res.Error != nil {
		log.Printf("⚠️ failed to refresh quest mirror %d: %v", view.ID, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		quest := models.Quest{
			ID:                  uuid.NewString(),
			QuestIDOnChain:      view.ID,
			Protocol:            view.Protocol,
			AssignedParticipant: NormalizeAddress(view.AssignedParticipant),
			Status:              models.QuestStatusFromValue(view.StatusValue),
			Expiry:              view.Expiry,
			QuestType:           view.QuestType,
		}
		if quest.QuestType == "" {
			quest.QuestType = models.QuestTypeOther
		}
		if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&quest).Error; err != nil {
			log.Printf("⚠️ failed to create quest mirror %d: %v", view.ID, err)
		}
	}
}
