// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartQuestScheduler wires the cron jobs for quest generation: daily at
// 00:00 UTC, weekly on Monday 00:00 UTC.
func (s *QuestService) StartQuestScheduler() {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		log.Printf("[Scheduler] failed to create scheduler: %v", err)
		return
	}

	_, err = sched.NewJob(
		gocron.CronJob("0 0 * * *", false),
		gocron.NewTask(func() {
			if _, err := s.GenerateDailyQuests(context.Background()); err != nil {
				log.Printf("[Scheduler] daily quest generation failed: %v", err)
			}
		}),
	)
	if err != nil {
		log.Printf("[Scheduler] failed to schedule daily job: %v", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob("0 0 * * 1", false),
		gocron.NewTask(func() {
			if _, err := s.GenerateWeeklyQuests(context.Background()); err != nil {
				log.Printf("[Scheduler] weekly quest generation failed: %v", err)
			}
		}),
	)
	if err != nil {
		log.Printf("[Scheduler] failed to schedule weekly job: %v", err)
	}

	sched.Start()
}
