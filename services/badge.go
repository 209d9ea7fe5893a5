package services

import (
	"errors"
	"fmt"
	"log"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedBadgeTypes inserts the static trigger table into badge_types, skipping
// codes that already exist. Called once on startup.
func (s *BadgeService) SeedBadgeTypes() error {
	for _, trigger := range models.BadgeTriggers {
		threshold := make(map[string]interface{}, len(trigger.Threshold))
		for k, v := range trigger.Threshold {
			threshold[k] = v
		}
		bt := models.BadgeType{
			ID:          uuid.NewString(),
			Code:        trigger.Code,
			Name:        trigger.Name,
			Description: trigger.Description,
			Rarity:      trigger.Rarity,
			Threshold:   threshold,
		}
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&bt).Error; err != nil {
			return fmt.Errorf("failed to seed badge %s: %w", trigger.Code, err)
		}
	}
	return nil
}

// AutoAwardBadges checks all badge triggers for a wallet after a stats update
func (s *BadgeService) AutoAwardBadges(wallet string, stats *models.UserStats) error {
	for _, trigger := range models.BadgeTriggers {
		if !meetsThreshold(stats, trigger.Threshold) {
			continue
		}

		var badgeType models.BadgeType
		err := s.DB.Where("code = ?", trigger.Code).First(&badgeType).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // not seeded yet
		}
		if err != nil {
			return err
		}

		var count int64
		s.DB.Model(&models.UserBadge{}).
			Where("wallet_address = ? AND badge_type_id = ?", wallet, badgeType.ID).
			Count(&count)
		if count == 0 {
			userBadge := models.UserBadge{
				ID:            uuid.NewString(),
				WalletAddress: wallet,
				BadgeTypeID:   badgeType.ID,
			}
			if err := s.DB.Create(&userBadge).Error; err != nil {
				return err
			}
			log.Printf("🎖️ Badge awarded: %s → %s", trigger.Name, wallet)
		}
	}
	return nil
}

// ListUserBadges returns badge instances joined with their static config.
func (s *BadgeService) ListUserBadges(wallet string) ([]map[string]interface{}, error) {
	type row struct {
		ID          string `json:"id"`
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
		IconURL     string `json:"icon_url"`
		Rarity      string `json:"rarity"`
	}
	var rows []row
	err := s.DB.Raw(`
		SELECT ub.id, bt.code, bt.name, bt.description, bt.icon_url, bt.rarity
		FROM user_badges ub
		INNER JOIN badge_types bt ON bt.id = ub.badge_type_id
		WHERE ub.wallet_address = ?
		ORDER BY ub.awarded_at DESC
	`, NormalizeAddress(wallet)).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}{
			"id":          r.ID,
			"code":        r.Code,
			"name":        r.Name,
			"description": r.Description,
			"icon_url":    r.IconURL,
			"rarity":      r.Rarity,
		})
	}
	return out, nil
}

func meetsThreshold(stats *models.UserStats, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "completed_quests":
			if stats.CompletedQuests < required {
				return false
			}
		case "daily_completed":
			if stats.DailyCompleted < required {
				return false
			}
		case "weekly_completed":
			if stats.WeeklyCompleted < required {
				return false
			}
		case "level":
			if int64(stats.Level) < required {
				return false
			}
		case "rank":
			if int64(stats.Rank) < required {
				return false
			}
		}
	}
	return true
}
