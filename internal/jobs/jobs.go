package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/vrsandeep/techmail/internal/logger"
)

// Job ids.
const (
	ReleaseCheckJob = "release-check"
	ConfigSyncJob   = "config-sync"
)

var errReleaseUnavailable = errors.New("release descriptor unavailable")

// RegisterDefaultJobs registers the built-in jobs on jm.
func RegisterDefaultJobs(jm *JobManager) {
	jm.Register(ReleaseCheckJob, "Check for plugin update", runReleaseCheck)
	jm.Register(ConfigSyncJob, "Rewrite recovery mode address", runConfigSync)
}

// runReleaseCheck drops the cached descriptor and fetches a fresh one.
func runReleaseCheck(ctx context.Context, jc JobContext) error {
	log := logger.Component(jc.Logger(), "jobs")
	if err := jc.ReleaseCache().Invalidate(); err != nil {
		log.WithError(err).Warn("Could not clear cached release descriptor")
	}
	d, ok := jc.ReleaseCache().Get(ctx)
	if !ok {
		return errReleaseUnavailable
	}

	installed := jc.Config().Plugin.Version
	if adv, ok := jc.Reconciler().CheckForUpdate(ctx, installed); ok {
		log.WithField("available", adv.NewVersion).Info("A newer plugin release is available")
		return nil
	}
	log.WithField("remote", d.Version).Info("Plugin is up to date")
	return nil
}

func runConfigSync(ctx context.Context, jc JobContext) error {
	jc.Resolver().Install()
	return nil
}

// StartJobs starts the background job scheduler. It returns nil when
// scheduled update checks are disabled.
func StartJobs(jc JobContext, jm *JobManager) *gocron.Scheduler {
	log := logger.Component(jc.Logger(), "jobs")
	interval := jc.Config().Update.CheckIntervalHours
	if interval <= 0 {
		log.Info("Update check interval is 0, scheduled checks are disabled.")
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	log.WithField("hours", interval).Infof("Scheduling job '%s'", ReleaseCheckJob)
	_, err := s.Every(interval).Hours().Do(func() {
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		if err := jm.RunJob(ReleaseCheckJob); err != nil {
			log.WithError(err).Warnf("Scheduled job '%s' could not start", ReleaseCheckJob)
		}
	})
	if err != nil {
		log.WithError(err).Errorf("Error scheduling '%s' job", ReleaseCheckJob)
		return nil
	}

	log.Info("Starting background job scheduler...")
	s.StartAsync()
	return s
}
