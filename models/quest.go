package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	QuestStatusActive    = "active"
	QuestStatusCompleted = "completed"
	QuestStatusCancelled = "cancelled"
	QuestStatusExpired   = "expired"
)

const (
	QuestTypeDaily  = "daily"
	QuestTypeWeekly = "weekly"
	QuestTypeOther  = "other"
)

// Numeric status codes as stored on-chain.
const (
	QuestStatusValueActive    = 1
	QuestStatusValueCompleted = 2
	QuestStatusValueCancelled = 3
	QuestStatusValueExpired   = 4
)

// QuestStatusFromValue maps the on-chain numeric code to its string form.
func QuestStatusFromValue(v int) string {
	switch v {
	case QuestStatusValueActive:
		return QuestStatusActive
	case QuestStatusValueCompleted:
		return QuestStatusCompleted
	case QuestStatusValueCancelled:
		return QuestStatusCancelled
	case QuestStatusValueExpired:
		return QuestStatusExpired
	default:
		return "unknown"
	}
}

// Quest mirrors an on-chain quest for fast reads and reward metadata lookups.
// The chain remains the source of truth for status and assignment; the mirror
// is refreshed whenever the quest is fetched through QuestChainClient.
type Quest struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	QuestIDOnChain int64  `gorm:"uniqueIndex;not null" json:"quest_id_on_chain"`

	Title       string `json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// 🔗 On-chain fields
	Protocol            string `gorm:"not null" json:"protocol"` // protocol/contract address the proof must touch
	AssignedParticipant string `gorm:"index" json:"assigned_participant"`
	Status              string `gorm:"default:'active'" json:"status"` // active | completed | cancelled | expired
	Expiry              int64  `gorm:"default:0" json:"expiry"`        // unix seconds, 0 = no expiry

	// 🎁 Reward metadata
	QuestType            string `gorm:"default:'other'" json:"quest_type"` // daily | weekly | other
	BadgeLevel           int    `gorm:"default:0" json:"badge_level"`
	RewardPerParticipant string `json:"reward_per_participant,omitempty"` // decimal string, optional

	MetadataURI string `json:"metadata_uri,omitempty"` // ipfs:// reference pinned at creation

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
