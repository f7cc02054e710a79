// Package scheduler maintains the three daily proactive triggers per
// subscribed user. Triggers are cron entries anchored to the user's own
// timezone (CRON_TZ), so a DST transition keeps the local fire time; the job
// set is persisted in SQLite and reloaded on start.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

// Engine builds the proactive message for a fire. ok == false means nothing
// should be sent (unsubscribed user, generation failure).
type Engine interface {
	HandleScheduledFire(ctx context.Context, userID int64, reason string) (text string, ok bool)
}

// Sender delivers one text message to one user.
type Sender interface {
	SendText(chatID int64, text string) error
}

const fireTimeout = 2 * time.Minute

// Scheduler owns the cron runner and the job_id → cron entry mapping.
type Scheduler struct {
	cron   *cron.Cron
	repo   store.Repo
	engine Engine
	sender Sender
	log    *zap.Logger

	mu  sync.Mutex
	ids map[string]cron.EntryID
}

// New creates a Scheduler. Call Start to load persisted jobs and begin firing.
func New(repo store.Repo, engine Engine, sender Sender, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		repo:   repo,
		engine: engine,
		sender: sender,
		log:    log,
		ids:    make(map[string]cron.EntryID),
	}
}

// Start reloads the persisted job set and starts the cron runner, so triggers
// installed before a restart keep firing without re-registration.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	s.mu.Lock()
	for _, j := range jobs {
		if err := s.registerLocked(j); err != nil {
			// A bad persisted spec must not keep the rest from loading.
			s.log.Error("register job failed", zap.String("job", j.ID), zap.Error(err))
		}
	}
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop halts the cron runner and waits for in-flight fires to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// InstallDailyTriggers idempotently (re)creates the three daily jobs for a
// user, replacing any existing ones with the same derived ids. This is how
// both a re-subscribe and a timezone change are applied.
func (s *Scheduler) InstallDailyTriggers(ctx context.Context, userID int64, tz string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tr := range domain.DailyTriggers() {
		j := domain.Job{
			ID:     domain.JobID(tr.Kind, userID),
			UserID: userID,
			Kind:   tr.Kind,
			Hour:   tr.Hour,
			Minute: tr.Minute,
			TZ:     tz,
			Reason: tr.Reason,
		}
		if err := s.repo.PutJob(ctx, &j); err != nil {
			return fmt.Errorf("persist job %s: %w", j.ID, err)
		}
		if err := s.registerLocked(j); err != nil {
			return fmt.Errorf("register job %s: %w", j.ID, err)
		}
	}
	return nil
}

// RemoveDailyTriggers removes all of a user's jobs from both the cron runner
// and durable storage; a no-op when none exist.
func (s *Scheduler) RemoveDailyTriggers(ctx context.Context, userID int64) error {
	s.mu.Lock()
	for _, tr := range domain.DailyTriggers() {
		jobID := domain.JobID(tr.Kind, userID)
		if entryID, ok := s.ids[jobID]; ok {
			s.cron.Remove(entryID)
			delete(s.ids, jobID)
		}
	}
	s.mu.Unlock()

	return s.repo.DeleteJobsForUser(ctx, userID)
}

// JobStatus is one live trigger as shown on the admin dashboard.
type JobStatus struct {
	ID     string
	UserID int64
	Next   time.Time
}

// Entries returns the live trigger set with next-fire times.
func (s *Scheduler) Entries() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]JobStatus, 0, len(s.ids))
	for jobID, entryID := range s.ids {
		e := s.cron.Entry(entryID)
		if e.ID == 0 {
			continue
		}
		res = append(res, JobStatus{ID: jobID, UserID: userIDFromJob(jobID), Next: e.Next})
	}
	return res
}

// cronSpec renders a job as a standard cron line. CRON_TZ anchors the entry
// to the user's zone, so the fire time stays at local wall clock across DST.
func cronSpec(j domain.Job) string {
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", j.TZ, j.Minute, j.Hour)
}

// registerLocked adds (or replaces) the cron entry for a job. Caller holds mu.
func (s *Scheduler) registerLocked(j domain.Job) error {
	entryID, err := s.cron.AddFunc(cronSpec(j), func() { s.fire(j) })
	if err != nil {
		return err
	}
	if old, ok := s.ids[j.ID]; ok {
		s.cron.Remove(old)
	}
	s.ids[j.ID] = entryID
	return nil
}

// fire runs one trigger: build the proactive message, send it, done.
// Failures are logged and dropped; the slot recurs the next day.
func (s *Scheduler) fire(j domain.Job) {
	log := s.log.With(
		zap.String("job", j.ID),
		zap.String("fire_id", uuid.NewString()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	text, ok := s.engine.HandleScheduledFire(ctx, j.UserID, j.Reason)
	if !ok {
		log.Debug("fire skipped")
		return
	}
	if err := s.sender.SendText(j.UserID, text); err != nil {
		log.Error("proactive send failed", zap.Error(err))
		return
	}
	log.Info("proactive message sent", zap.String("reason", j.Reason))
}

// userIDFromJob recovers the numeric user id from a "<kind>:<id>" job id.
func userIDFromJob(jobID string) int64 {
	_, idStr, ok := strings.Cut(jobID, ":")
	if !ok {
		return 0
	}
	id, _ := strconv.ParseInt(idStr, 10, 64)
	return id
}
