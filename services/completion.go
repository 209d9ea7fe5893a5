package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"quest-reward-system/models"

	"gorm.io/gorm"
)

// ProofVerifier is the ledger-query collaborator the orchestrator depends on.
type ProofVerifier interface {
	Verify(ctx context.Context, txHash, expectedFrom, expectedTo string) (*VerifiedTransaction, error)
}

// SubmitProofResult is returned on a fully committed pipeline run.
type SubmitProofResult struct {
	QuestID          int64                `json:"quest_id"`
	CompletionTxHash string               `json:"completion_tx_hash"`
	Verification     *VerifiedTransaction `json:"verification"`
}

// CompletionService drives a proof submission from precondition checks
// through verification, the on-chain completion recorder, and the reward
// credit. Collaborators are injected at composition time; each request runs
// as one sequential pipeline holding no process-wide lock.
type CompletionService struct {
	DB       *gorm.DB
	Chain    QuestChain
	Verifier ProofVerifier
	Store    *SubmissionStore
	Stats    *UserStatsService
}

func NewCompletionService(db *gorm.DB, chain QuestChain, verifier ProofVerifier, store *SubmissionStore, stats *UserStatsService) *CompletionService {
	return &CompletionService{
		DB:       db,
		Chain:    chain,
		Verifier: verifier,
		Store:    store,
		Stats:    stats,
	}
}

// SubmitProof runs the full pipeline for one claim. Precondition failures,
// verification failures and idempotency conflicts come back as PipelineError;
// anything else is an upstream problem.
func (s *CompletionService) SubmitProof(ctx context.Context, questID int64, txHash, participant string) (*SubmitProofResult, error) {
	// Input shape first — nothing downstream runs on malformed input.
	if questID <= 0 {
		return nil, pipelineErr(ErrKindInvalidInput, "Invalid quest id")
	}
	if !ValidTxHash(txHash) {
		return nil, pipelineErr(ErrKindInvalidInput,
			"Invalid transaction hash format. Expected 0x followed by 64 hex characters.")
	}
	if participant != "" && !ValidAddress(participant) {
		return nil, pipelineErr(ErrKindInvalidInput, "Invalid participant address")
	}

	quest, err := s.Chain.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}

	if quest.StatusValue != models.QuestStatusValueActive {
		return nil, pipelineErr(ErrKindQuestNotActive, fmt.Sprintf(
			"Quest status is %s. Only active quests can be completed.", models.QuestStatusFromValue(quest.StatusValue)))
	}

	now := time.Now().Unix()
	if quest.Expiry != 0 && quest.Expiry <= now {
		return nil, pipelineErr(ErrKindQuestExpired, "Quest has expired")
	}

	resolved := participant
	if resolved == "" {
		resolved = quest.AssignedParticipant
	}
	if resolved == "" {
		return nil, pipelineErr(ErrKindInvalidInput, "Quest has no assigned participant and none was supplied")
	}
	if NormalizeAddress(resolved) != NormalizeAddress(quest.AssignedParticipant) {
		return nil, pipelineErr(ErrKindParticipantMismatch, "Participant address does not match quest assignment")
	}

	progress, err := s.Chain.GetParticipantProgress(ctx, questID, resolved)
	if err != nil {
		return nil, err
	}
	if !progress.Accepted {
		return nil, pipelineErr(ErrKindNotAccepted, "Quest has not been accepted by this participant")
	}
	if progress.Completed {
		return nil, pipelineErr(ErrKindAlreadyCompleted, "Quest already marked as completed")
	}

	existing, err := s.Store.Get(questID, txHash)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.VerificationStatus == models.SubmissionStatusVerified {
		return nil, pipelineErr(ErrKindIdempotencyConflict,
			"This transaction hash has already been verified for this quest")
	}

	verification, err := s.Verifier.Verify(ctx, txHash, resolved, quest.Protocol)
	if err != nil {
		if KindOf(err) == ErrKindVerificationFailed {
			if storeErr := s.Store.RecordFailure(questID, txHash, NormalizeAddress(resolved), nil); storeErr != nil {
				log.Printf("❌ failed to record failed submission for quest %d: %v", questID, storeErr)
			}
		}
		return nil, err
	}

	payload, err := json.Marshal(verification)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification payload: %w", err)
	}
	won, err := s.Store.MarkVerified(questID, txHash, NormalizeAddress(resolved), payload)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent request committed `verified` between our read and the
		// conditional write. It owns the completion steps.
		return nil, pipelineErr(ErrKindIdempotencyConflict,
			"This transaction hash has already been verified for this quest")
	}

	completionTx, err := s.finishCompletion(ctx, questID, txHash, resolved, quest.QuestType)
	if err != nil {
		// Submission stays verified without a completion hash; the sweeper
		// (or the next resubmission) retries from here.
		return nil, err
	}

	return &SubmitProofResult{
		QuestID:          questID,
		CompletionTxHash: completionTx,
		Verification:     verification,
	}, nil
}

// finishCompletion runs steps shared by the foreground pipeline and the
// sweeper: record completion on-chain, persist the completion hash (the
// commit point), then credit the reward exactly once.
func (s *CompletionService) finishCompletion(ctx context.Context, questID int64, txHash, participant, chainQuestType string) (string, error) {
	evidenceURI := EvidenceURI(questID, txHash)

	completion, err := s.Chain.RecordCompletion(ctx, questID, participant, evidenceURI)
	if err != nil {
		return "", err
	}

	mirror := s.questMirror(questID)
	xp := CalculateXPReward(mirror)
	questType := chainQuestType
	rewardAmount := ""
	if mirror != nil {
		questType = mirror.QuestType
		rewardAmount = mirror.RewardPerParticipant
	}

	if _, err := s.Stats.GetOrCreateUser(participant); err != nil {
		return "", err
	}

	// The completion hash and the ledger entry commit together. On failure
	// both roll back and the row stays in the sweeper's queue; a hash without
	// its reward entry can never be observed.
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.Store.WithTx(tx).SetCompletionTx(questID, txHash, completion.TransactionHash); err != nil {
			return err
		}
		_, err := s.Stats.WithTx(tx).CreditQuestReward(participant, questID, xp, questType, rewardAmount, completion.TransactionHash)
		return err
	})
	if err != nil {
		return "", err
	}

	return completion.TransactionHash, nil
}

// RetryCompletion finishes the pipeline for a verified submission that lost
// its completion call — invoked by the background sweeper. Safe to race with
// a foreground resubmission: the recorder is idempotent and both the
// completion-hash write and the ledger append are conditional.
func (s *CompletionService) RetryCompletion(ctx context.Context, sub *models.QuestSubmission) error {
	_, err := s.finishCompletion(ctx, sub.QuestIDOnChain, sub.TransactionHash, sub.ParticipantAddress, "")
	return err
}

// EvidenceURI derives the deterministic evidence reference stored on-chain
// with the completion.
func EvidenceURI(questID int64, txHash string) string {
	prefix := txHash
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("ipfs://proof_%d_%s", questID, prefix)
}

func (s *CompletionService) questMirror(questID int64) *models.Quest {
	var quest models.Quest
	err := s.DB.Where("quest_id_on_chain = ?", questID).First(&quest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		// Enrichment read only — reward falls back to defaults rather than
		// failing a verified submission.
		log.Printf("⚠️ quest mirror lookup failed for %d: %v", questID, err)
		return nil
	}
	return &quest
}
