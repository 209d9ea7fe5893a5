package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// RankThresholds: levels required before rank-up
var RankThresholds = map[int]int{ // rank → min level
	1: 1,  // Rookie (start)
	2: 5,  // Bronze
	3: 15, // Silver
	4: 30, // Gold
	5: 60, // Platinum
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

// UserStatsService owns the reward ledger and the denormalized per-wallet
// aggregates derived from it.
type UserStatsService struct {
	DB *gorm.DB
}

func NewUserStatsService(db *gorm.DB) *UserStatsService {
	return &UserStatsService{DB: db}
}

// WithTx returns a service bound to tx; CreditQuestReward then joins the
// caller's transaction instead of opening its own.
func (s *UserStatsService) WithTx(tx *gorm.DB) *UserStatsService {
	return &UserStatsService{DB: tx}
}

// GetOrCreateUser ensures a user row exists for the wallet (idempotent).
func (s *UserStatsService) GetOrCreateUser(wallet string) (*models.User, error) {
	wallet = NormalizeAddress(wallet)
	var user models.User
	err := s.DB.Where("wallet_address = ?", wallet).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
		}
		if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureStatsRecord ensures a UserStats row exists (idempotent). The read
// takes a row lock so concurrent credits to the same wallet serialize their
// aggregate updates instead of losing one.
func (s *UserStatsService) EnsureStatsRecord(tx *gorm.DB, wallet string) (*models.UserStats, error) {
	var stats models.UserStats
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wallet_address = ?", wallet).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserStats{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
			TotalXP:       0,
			Level:         1,
			Rank:          1,
		}
		if err := tx.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreditQuestReward appends one reward-ledger entry and folds it into the
// wallet's aggregates, all in one transaction. The (wallet, quest) unique
// index makes the append idempotent: a replay reports credited=false and
// changes nothing.
func (s *UserStatsService) CreditQuestReward(wallet string, questID int64, xp int64, questType, rewardAmount, completionTx string) (bool, error) {
	wallet = NormalizeAddress(wallet)
	credited := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		record := models.XPRecord{
			ID:               uuid.NewString(),
			WalletAddress:    wallet,
			QuestIDOnChain:   questID,
			XPAmount:         xp,
			RewardAmount:     rewardAmount,
			CompletionTxHash: completionTx,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "quest_id_on_chain"}},
			DoNothing: true,
		}).Create(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already credited for this quest — leave the ledger untouched.
			return nil
		}
		credited = true

		stats, err := s.EnsureStatsRecord(tx, wallet)
		if err != nil {
			return fmt.Errorf("stats record not found for %s: %w", wallet, err)
		}

		oldRank := stats.Rank
		stats.TotalXP += xp
		stats.CompletedQuests++
		switch questType {
		case models.QuestTypeDaily:
			stats.DailyCompleted++
		case models.QuestTypeWeekly:
			stats.WeeklyCompleted++
		}

		// Level-up logic: accumulate until enough for next level
		for stats.TotalXP >= int64(BaseXPPerLevel)*int64(stats.Level)+xpForNextLevel(stats.Level) {
			stats.Level++
			now := time.Now()
			stats.LastLevelUpAt = &now
		}

		// Rank-up logic
		newRank := determineRank(stats.Level)
		if newRank > oldRank {
			now := time.Now()
			stats.Rank = newRank
			stats.LastRankUpAt = &now
		}

		if err := tx.Save(stats).Error; err != nil {
			return err
		}

		// Auto-award badges
		badgeSvc := NewBadgeService(s.DB)
		_ = badgeSvc.AutoAwardBadges(wallet, stats) // fire-and-forget

		log.Printf("🎮 XP Credited: %s → +%d XP (quest %d), total=%d, lvl=%d, rank=%d",
			wallet, xp, questID, stats.TotalXP, stats.Level, stats.Rank)
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}

// GetStats returns the aggregates for a wallet, nil when none exist yet.
func (s *UserStatsService) GetStats(wallet string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.DB.Where("wallet_address = ?", NormalizeAddress(wallet)).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetRewardHistory returns the wallet's ledger entries, newest first.
func (s *UserStatsService) GetRewardHistory(wallet string, limit int) ([]models.XPRecord, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var records []models.XPRecord
	err := s.DB.Where("wallet_address = ?", NormalizeAddress(wallet)).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// LeaderboardEntry is one row of the XP leaderboard, enriched with profile
// fields when the user row exists.
type LeaderboardEntry struct {
	WalletAddress   string `json:"wallet_address"`
	TotalXP         int64  `json:"total_xp"`
	CompletedQuests int64  `json:"completed_quests"`
	Level           int    `json:"level"`
	Rank            int    `json:"rank"`
	Name            string `json:"name,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
}

// GetLeaderboard returns the top wallets by XP.
func (s *UserStatsService) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var entries []LeaderboardEntry
	err := s.DB.Raw(`
		SELECT us.wallet_address, us.total_xp, us.completed_quests, us.level, us.rank,
		       COALESCE(u.name, '') AS name, COALESCE(u.avatar_url, '') AS avatar_url
		FROM user_stats us
		LEFT JOIN users u ON u.wallet_address = us.wallet_address
		WHERE us.deleted_at IS NULL
		ORDER BY us.total_xp DESC
		LIMIT ?
	`, limit).Scan(&entries).Error
	return entries, err
}
