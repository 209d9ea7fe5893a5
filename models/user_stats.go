package models

import "time"

// UserStats tracks gamified progression per wallet (denormalized for performance)
type UserStats struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"uniqueIndex;not null" json:"wallet_address"`

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Rank    int   `json:"rank" gorm:"default:1"` // Rookie(1)→Bronze(2)→Silver(3)→Gold(4)→Platinum(5)

	// Activity counters
	CompletedQuests int64 `json:"completed_quests" gorm:"default:0"`
	DailyCompleted  int64 `json:"daily_completed" gorm:"default:0"`
	WeeklyCompleted int64 `json:"weekly_completed" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}
