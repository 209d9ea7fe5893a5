package models

import (
	"gorm.io/datatypes"
)

const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusVerified = "verified" // terminal — never overwritten
	SubmissionStatusFailed   = "failed"   // retryable via resubmission
)

// QuestSubmission is the durable record of one proof attempt against one
// quest. Identity is the (quest_id_on_chain, transaction_hash) pair — the
// composite unique index is what makes resubmission idempotent.
type QuestSubmission struct {
	ID              string `gorm:"primaryKey;type:uuid" json:"id"`
	QuestIDOnChain  int64  `gorm:"uniqueIndex:idx_quest_tx;not null" json:"quest_id_on_chain"`
	TransactionHash string `gorm:"uniqueIndex:idx_quest_tx;not null" json:"transaction_hash"`

	ParticipantAddress string `gorm:"index;not null" json:"participant_address"`

	VerificationStatus string         `gorm:"default:'pending';not null" json:"verification_status"` // pending | verified | failed
	VerifiedPayload    datatypes.JSON `gorm:"type:jsonb" json:"verified_payload,omitempty"`           // normalized receipt snapshot

	// Set only after the on-chain completion recorder succeeds. A row that is
	// verified with an empty completion hash is the recoverable intermediate
	// state the sweeper picks up.
	CompletionTxHash string `json:"completion_tx_hash,omitempty"`

	Timestamps
}
