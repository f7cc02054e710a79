package store

import (
	"context"
	"errors"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("not found")

// Patch is a partial profile update. Nil fields are left untouched; the whole
// patch is applied as one atomic merge so concurrent writers (chat turn vs.
// scheduler fire) cannot lose each other's fields.
type Patch struct {
	DisplayName *string
	Persona     *domain.Persona
	ReplyLength *domain.ReplyLength
	EmojiUsage  *domain.EmojiUsage
	Subscribed  *bool
	TZ          *string
	LastSummary *string
}

// Counts is the aggregate used by the admin status dashboard.
type Counts struct {
	Total      int
	Subscribed int
}

// Repo defines storage operations for profiles, flow sessions and scheduler jobs.
type Repo interface {
	GetProfile(ctx context.Context, id int64) (*domain.Profile, error)
	// UpsertProfile merges the patch into the profile, creating it with
	// defaults first if absent.
	UpsertProfile(ctx context.Context, id int64, p Patch) error
	DeleteProfile(ctx context.Context, id int64) error
	ListSubscribed(ctx context.Context) ([]domain.Profile, error)
	CountProfiles(ctx context.Context) (Counts, error)

	GetSession(ctx context.Context, userID int64) (*domain.FlowSession, error)
	PutSession(ctx context.Context, s *domain.FlowSession) error
	ClearSession(ctx context.Context, userID int64) error

	PutJob(ctx context.Context, j *domain.Job) error
	DeleteJobsForUser(ctx context.Context, userID int64) error
	ListJobs(ctx context.Context) ([]domain.Job, error)

	Close() error
}
