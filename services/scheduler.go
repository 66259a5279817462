// services/scheduler.go
package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// StartSweepScheduler runs the periodic sweeps in-process. Each job calls the
// same idempotent service method the matching admin endpoint exposes, so an
// external cron firing the endpoints alongside this scheduler is harmless.
func StartSweepScheduler(reward *RewardService, tier *TierService, sweep *SweepService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every hour: expire stale rewards
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			count, err := reward.ExpireSweep()
			if err != nil {
				log.Errorf("[Scheduler] reward expiry sweep failed: %v", err)
				return
			}
			if count > 0 {
				log.Infof("[Scheduler] expired %d reward(s)", count)
			}
		}),
	)

	// Daily: birthday bonuses, monthly reset, tier recompute
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if count, err := sweep.BirthdaySweep(); err != nil {
				log.Errorf("[Scheduler] birthday sweep failed: %v", err)
			} else if count > 0 {
				log.Infof("[Scheduler] granted %d birthday bonus(es)", count)
			}

			if count, err := sweep.MonthlyResetSweep(); err != nil {
				log.Errorf("[Scheduler] monthly reset sweep failed: %v", err)
			} else if count > 0 {
				log.Infof("[Scheduler] reset free shipping for %d member(s)", count)
			}

			if checked, updated, err := tier.RecomputeAll(); err != nil {
				log.Errorf("[Scheduler] tier recompute failed: %v", err)
			} else {
				log.Infof("[Scheduler] tier recompute: %d checked, %d updated", checked, updated)
			}
		}),
	)
}
