package services

import (
	"errors"
	"fmt"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionStore owns the durable submission records keyed by
// (quest_id_on_chain, transaction_hash). Writes for one key are linearized
// through a single INSERT ... ON CONFLICT DO UPDATE whose WHERE clause guards
// the terminal `verified` status, so two racing requests can never both win.
type SubmissionStore struct {
	DB *gorm.DB
}

func NewSubmissionStore(db *gorm.DB) *SubmissionStore {
	return &SubmissionStore{DB: db}
}

// WithTx returns a store bound to tx so callers can compose the completion
// commit with other writes in one transaction.
func (s *SubmissionStore) WithTx(tx *gorm.DB) *SubmissionStore {
	return &SubmissionStore{DB: tx}
}

// Get returns the existing submission for the key, or nil when none exists.
func (s *SubmissionStore) Get(questID int64, txHash string) (*models.QuestSubmission, error) {
	var sub models.QuestSubmission
	err := s.DB.Where("quest_id_on_chain = ? AND transaction_hash = ?", questID, txHash).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return &sub, nil
}

// MarkVerified records the verified outcome for the key. Returns true when
// this call won the status transition (fresh insert or pending/failed row
// updated), false when another request already committed `verified` — the
// caller must then stop without crediting.
func (s *SubmissionStore) MarkVerified(questID int64, txHash, participant string, payload datatypes.JSON) (bool, error) {
	return s.upsert(questID, txHash, participant, models.SubmissionStatusVerified, payload)
}

// RecordFailure persists a failed verification attempt. A row already in
// `verified` is never downgraded; the guarded update just no-ops.
func (s *SubmissionStore) RecordFailure(questID int64, txHash, participant string, payload datatypes.JSON) error {
	_, err := s.upsert(questID, txHash, participant, models.SubmissionStatusFailed, payload)
	return err
}

func (s *SubmissionStore) upsert(questID int64, txHash, participant, status string, payload datatypes.JSON) (bool, error) {
	sub := models.QuestSubmission{
		ID:                 uuid.NewString(),
		QuestIDOnChain:     questID,
		TransactionHash:    txHash,
		ParticipantAddress: participant,
		VerificationStatus: status,
		VerifiedPayload:    payload,
	}

	res := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "quest_id_on_chain"}, {Name: "transaction_hash"}},
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{
				Column: clause.Column{Table: "quest_submissions", Name: "verification_status"},
				Value:  models.SubmissionStatusVerified,
			},
		}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"participant_address": participant,
			"verification_status": status,
			"verified_payload":    payload,
			"updated_at":          time.Now(),
		}),
	}).Create(&sub)
	if res.Error != nil {
		return false, fmt.Errorf("failed to upsert submission: %w", res.Error)
	}

	// RowsAffected is 0 exactly when the conflict target existed and the
	// guard filtered the update out, i.e. the row is already verified.
	return res.RowsAffected > 0, nil
}

// SetCompletionTx persists the completion reference — the pipeline's commit
// point. Only a verified row that has no completion hash yet is touched, so
// the sweeper and a resubmission cannot both claim the same row.
func (s *SubmissionStore) SetCompletionTx(questID int64, txHash, completionTx string) (bool, error) {
	res := s.DB.Model(&models.QuestSubmission{}).
		Where("quest_id_on_chain = ? AND transaction_hash = ? AND verification_status = ? AND completion_tx_hash = ''",
			questID, txHash, models.SubmissionStatusVerified).
		Update("completion_tx_hash", completionTx)
	if res.Error != nil {
		return false, fmt.Errorf("failed to set completion hash: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PendingCompletion lists verified submissions still missing their completion
// reference — the recoverable intermediate state the sweeper drains.
func (s *SubmissionStore) PendingCompletion(limit int) ([]models.QuestSubmission, error) {
	var subs []models.QuestSubmission
	err := s.DB.Where("verification_status = ? AND completion_tx_hash = ''", models.SubmissionStatusVerified).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending completions: %w", err)
	}
	return subs, nil
}
