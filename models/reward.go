package models

import "time"

// XPRecord is one append-only reward-ledger entry. Exactly one row exists per
// verified submission — the (wallet_address, quest_id_on_chain) unique index
// plus an ON CONFLICT DO NOTHING insert enforces it even under retries.
type XPRecord struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress  string `gorm:"uniqueIndex:idx_xp_wallet_quest;not null" json:"wallet_address"`
	QuestIDOnChain int64  `gorm:"uniqueIndex:idx_xp_wallet_quest;not null" json:"quest_id_on_chain"`

	XPAmount     int64  `gorm:"not null" json:"xp_amount"`
	RewardAmount string `json:"reward_amount,omitempty"` // decimal string from the quest, informational

	CompletionTxHash string `json:"completion_tx_hash,omitempty"`
	BadgeTokenID     *int64 `json:"badge_token_id,omitempty"` // set later once the badge NFT is minted

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
