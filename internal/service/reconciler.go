package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"buildwatch/internal/store"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

const (
	// progress is a display heuristic only: it creeps up while a build
	// runs, holds below completion, and snaps to 100 on a terminal status
	progressStep    = 10
	progressCeiling = 90
	progressDone    = 100
)

// Reconciler owns one polling job per active build and merges every
// observation into the history store through its field-scoped updates.
// A failed poll is skipped; only a terminal status from the source ends
// a build's polling loop.
type Reconciler struct {
	api       BuildManagerAPI
	history   store.HistoryStore
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	interval  time.Duration

	jobs *JobMap[string]

	m        sync.Mutex
	progress map[string]int
}

func NewReconciler(
	api BuildManagerAPI,
	history store.HistoryStore,
	scheduler gocron.Scheduler,
	clock clockwork.Clock,
	interval time.Duration,
) *Reconciler {
	return &Reconciler{
		api:       api,
		history:   history,
		scheduler: scheduler,
		clock:     clock,
		interval:  interval,
		jobs:      NewJobMap[string](),
		progress:  make(map[string]int),
	}
}

// StartPolling schedules the recurring status poll for a build. Starting
// an already-polled build is a no-op.
func (r *Reconciler) StartPolling(buildID, jobName string) error {
	if r.jobs.Has(buildID) {
		return nil
	}
	j, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			r.pollOnce(context.Background(), buildID, jobName)
		}),
	)
	if err != nil {
		return err
	}
	r.jobs.Add(buildID, j.ID())
	r.setProgress(buildID, 0)
	return nil
}

// StopPolling removes a build's polling job, e.g. when the consuming view
// is torn down. Unknown build ids are a benign no-op. Results of a poll
// already in flight are discarded by the store's terminal guard.
func (r *Reconciler) StopPolling(buildID string) {
	jobID, ok := r.jobs.Remove(buildID)
	if !ok {
		return
	}
	if err := r.scheduler.RemoveJob(jobID); err != nil {
		log.Println("err removing polling job:", err)
	}
}

// ResumeActive restarts polling for every build that has not reached a
// terminal status, used after a process restart.
func (r *Reconciler) ResumeActive(ctx context.Context) error {
	builds, err := r.history.ListActiveBuilds(ctx)
	if err != nil {
		return err
	}
	for i := range builds {
		if err := r.StartPolling(builds[i].BuildID, builds[i].JobName); err != nil {
			return err
		}
	}
	return nil
}

// ActivePolls reports how many builds currently have a polling loop.
func (r *Reconciler) ActivePolls() int {
	return r.jobs.Len()
}

// Progress returns the visual progress estimate for a build. It increases
// monotonically, stays below 100 while the build runs and carries no
// guarantee of correlation with real completion.
func (r *Reconciler) Progress(buildID string) int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.progress[buildID]
}

func (r *Reconciler) setProgress(buildID string, value int) {
	r.m.Lock()
	defer r.m.Unlock()
	if value > r.progress[buildID] {
		r.progress[buildID] = value
	}
}

func (r *Reconciler) advanceProgress(buildID string) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.progress[buildID] < progressCeiling {
		r.progress[buildID] += progressStep
	}
}

// pollOnce is a single tick of a build's polling loop. Source errors skip
// the tick without touching the record: a failed poll is never a failed
// build.
func (r *Reconciler) pollOnce(ctx context.Context, buildID, jobName string) {
	observed, err := r.api.GetBuildStatus(ctx, jobName)
	if err != nil {
		log.Printf("err polling status for job %s: %+v\n", jobName, err)
		return
	}

	rec, err := r.history.ReadBuildByID(ctx, buildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.StopPolling(buildID)
			return
		}
		log.Println("err reading tracked build:", err)
		return
	}
	if rec.Status.Terminal() {
		// a tick raced the terminal write, nothing left to do
		r.StopPolling(buildID)
		return
	}

	if observed.BuildNumber > 0 {
		if err := r.history.UpdateBuildNumber(ctx, buildID, observed.BuildNumber); err != nil {
			log.Println("err recording build number:", err)
		}
	}

	status := store.BuildStatus(observed.Status)
	switch {
	case status.Terminal():
		duration := rec.Duration
		if rec.StartTime > 0 {
			duration = r.clock.Now().UnixMilli() - rec.StartTime
		}
		if err := r.history.UpdateStatus(ctx, buildID, status, duration); err != nil {
			log.Println("err recording terminal status:", err)
			return
		}
		r.setProgress(buildID, progressDone)
		r.StopPolling(buildID)
	case status == store.StatusRunning:
		duration := rec.Duration
		if rec.StartTime > 0 {
			duration = r.clock.Now().UnixMilli() - rec.StartTime
		}
		if err := r.history.UpdateStatus(ctx, buildID, store.StatusRunning, duration); err != nil {
			log.Println("err recording running status:", err)
			return
		}
		r.advanceProgress(buildID)
	default:
		// queued, or a status this engine does not recognize: store it
		// verbatim and keep polling
		if status != rec.Status {
			if err := r.history.UpdateStatus(ctx, buildID, status, rec.Duration); err != nil {
				log.Println("err recording status:", err)
			}
		}
	}
}
