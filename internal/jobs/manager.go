package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vrsandeep/techmail/internal/config"
	"github.com/vrsandeep/techmail/internal/logger"
	"github.com/vrsandeep/techmail/internal/recipient"
	"github.com/vrsandeep/techmail/internal/release"
	"github.com/vrsandeep/techmail/internal/updates"
)

// JobContext is an interface that provides the necessary dependencies for a job to run.
// The core.App struct implements this interface.
type JobContext interface {
	Config() *config.Config
	Logger() *logrus.Logger
	Resolver() *recipient.Resolver
	ReleaseCache() *release.Cache
	Reconciler() *updates.Reconciler
}

type jobTask func(ctx context.Context, jc JobContext) error

// JobStatus is the last known state of a registered job.
type JobStatus struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager runs registered jobs one at a time.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running bool
	appCtx  JobContext
	log     *logrus.Entry
}

// NewManager creates a manager whose jobs run against appCtx.
func NewManager(appCtx JobContext) *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
		appCtx: appCtx,
		log:    logger.Component(appCtx.Logger(), "jobs"),
	}
}

// Register adds a job under id with a display name.
func (jm *JobManager) Register(id, name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[id] = task
	jm.status[id] = &JobStatus{ID: id, Name: name, Status: "idle"}
}

// RunJob starts the job in the background. It fails if the job is
// unknown or if any job is already running.
func (jm *JobManager) RunJob(id string) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return fmt.Errorf("a job is already running")
	}

	task, ok := jm.jobs[id]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", id)
	}

	jm.running = true
	status := jm.status[id]
	status.Status = "running"
	status.RunID = uuid.NewString()
	runID := status.RunID
	status.StartTime = time.Now()
	status.EndTime = time.Time{}
	status.Message = "Job started..."
	jm.mu.Unlock()

	jm.log.WithFields(logrus.Fields{"job": id, "run_id": runID}).Info("Starting job")
	go func() {
		var err error
		defer func() {
			r := recover()

			jm.mu.Lock()
			status.EndTime = time.Now()
			switch {
			case r != nil:
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			case err != nil:
				status.Status = "failed"
				status.Message = err.Error()
			default:
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			final := *status
			jm.mu.Unlock()

			jm.log.WithFields(logrus.Fields{"job": id, "run_id": runID, "status": final.Status}).Info("Finished job")
		}()

		err = task(context.Background(), jm.appCtx)
	}()
	return nil
}

// GetStatus returns a snapshot of every job's status, ordered by id.
func (jm *JobManager) GetStatus() []JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jm.status))
	for _, s := range jm.status {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}
