package models

import (
	"time"

	"gorm.io/datatypes"
)

// BadgeType: static config (seeded from BadgeTriggers on startup)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_QUEST", "QUEST_STREAK_10"
	Name        string `gorm:"not null"`
	Description string
	IconURL     string            `gorm:"type:text"`
	Rarity      string            `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	Threshold   datatypes.JSONMap `gorm:"type:jsonb"`                        // e.g., {"completed_quests": 10}
	CreatedAt   time.Time         `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance
type UserBadge struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	WalletAddress string    `gorm:"index;not null"`
	BadgeTypeID   string    `gorm:"index;not null"`
	AwardedAt     time.Time `gorm:"autoCreateTime"`
}

// BadgeTrigger pairs a badge code with the stats thresholds that unlock it.
type BadgeTrigger struct {
	Code        string
	Name        string
	Description string
	Rarity      string
	Threshold   map[string]int64
}

var BadgeTriggers = []BadgeTrigger{
	{
		Code:        "FIRST_QUEST",
		Name:        "First Steps",
		Description: "Completed your first quest",
		Rarity:      "common",
		Threshold:   map[string]int64{"completed_quests": 1},
	},
	{
		Code:        "QUEST_10",
		Name:        "Adventurer",
		Description: "Completed 10 quests",
		Rarity:      "rare",
		Threshold:   map[string]int64{"completed_quests": 10},
	},
	{
		Code:        "DAILY_GRIND",
		Name:        "Daily Grind",
		Description: "Completed 7 daily quests",
		Rarity:      "rare",
		Threshold:   map[string]int64{"daily_completed": 7},
	},
	{
		Code:        "WEEKLY_WARRIOR",
		Name:        "Weekly Warrior",
		Description: "Completed 4 weekly quests",
		Rarity:      "epic",
		Threshold:   map[string]int64{"weekly_completed": 4},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Seasoned",
		Description: "Reached Level 10",
		Rarity:      "epic",
		Threshold:   map[string]int64{"level": 10},
	},
}
