package workers

import (
	"context"
	"log"
	"time"

	"quest-reward-system/services"
)

// CompletionSweeper drains the recoverable intermediate state: submissions
// committed `verified` whose completion-recorder call never landed. Each
// sweep replays the completion steps; the recorder is idempotent and the
// completion-hash write is conditional, so racing a foreground resubmission
// is safe.
type CompletionSweeper struct {
	Store      *services.SubmissionStore
	Completion *services.CompletionService
	Interval   time.Duration
	BatchSize  int
}

func NewCompletionSweeper(store *services.SubmissionStore, completion *services.CompletionService) *CompletionSweeper {
	return &CompletionSweeper{
		Store:      store,
		Completion: completion,
		Interval:   time.Minute,
		BatchSize:  20,
	}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval.
func (s *CompletionSweeper) Run(ctx context.Context) {
	log.Println("Starting completion sweeper...")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Completion sweeper stopped.")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *CompletionSweeper) sweep(ctx context.Context) {
	subs, err := s.Store.PendingCompletion(s.BatchSize)
	if err != nil {
		log.Printf("❌ [SWEEPER] failed to list pending completions: %v", err)
		return
	}
	if len(subs) == 0 {
		return
	}
	log.Printf("📥 [SWEEPER] Retrying %d stalled completion(s)", len(subs))

	for i := range subs {
		sub := &subs[i]
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := s.Completion.RetryCompletion(callCtx, sub)
		cancel()
		if err != nil {
			log.Printf("❌ [SWEEPER] quest %d tx %s still stalled: %v",
				sub.QuestIDOnChain, sub.TransactionHash, err)
			continue
		}
		log.Printf("✅ [SWEEPER] completed quest %d tx %s", sub.QuestIDOnChain, sub.TransactionHash)
	}
}
