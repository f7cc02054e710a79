package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Profiles ---

const profileColumns = `id, display_name, persona, reply_length, emoji_usage,
       subscribed, tz, last_summary, created_at, updated_at`

// GetProfile returns a profile by id, or ErrNotFound.
func (r *SQLiteRepo) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertProfile merges the patch into the stored profile. A missing row is
// first created with defaults, then patched; both steps run in one
// transaction so the merge is atomic from the caller's perspective.
func (r *SQLiteRepo) UpsertProfile(ctx context.Context, id int64, p Patch) error {
	now := time.Now().UTC().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO profiles (id, persona, reply_length, emoji_usage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(domain.DefaultPersona), string(domain.DefaultReplyLength),
		string(domain.DefaultEmojiUsage), now, now,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles SET
			display_name = COALESCE(?, display_name),
			persona      = COALESCE(?, persona),
			reply_length = COALESCE(?, reply_length),
			emoji_usage  = COALESCE(?, emoji_usage),
			subscribed   = COALESCE(?, subscribed),
			tz           = COALESCE(?, tz),
			last_summary = COALESCE(?, last_summary),
			updated_at   = ?
		WHERE id = ?`,
		nullText(p.DisplayName),
		nullText((*string)(p.Persona)),
		nullText((*string)(p.ReplyLength)),
		nullText((*string)(p.EmojiUsage)),
		nullBool(p.Subscribed),
		nullText(p.TZ),
		nullText(p.LastSummary),
		now, id,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteProfile removes a profile row (admin use).
func (r *SQLiteRepo) DeleteProfile(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	return err
}

// ListSubscribed returns every profile with subscribed = 1, ordered by id.
func (r *SQLiteRepo) ListSubscribed(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE subscribed = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

// CountProfiles returns total and subscribed profile counts.
func (r *SQLiteRepo) CountProfiles(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(subscribed), 0) FROM profiles`).
		Scan(&c.Total, &c.Subscribed)
	return c, err
}

// --- Flow sessions ---

// GetSession returns the open flow session for a user, or nil when none.
func (r *SQLiteRepo) GetSession(ctx context.Context, userID int64) (*domain.FlowSession, error) {
	var (
		s         domain.FlowSession
		kind      string
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, kind, payload, updated_at
		FROM flow_sessions WHERE user_id = ?`, userID).
		Scan(&s.UserID, &kind, &s.Payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Kind = domain.FlowKind(kind)
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

// PutSession stores (or replaces) a user's flow session.
func (r *SQLiteRepo) PutSession(ctx context.Context, s *domain.FlowSession) error {
	if s == nil {
		return errors.New("nil session")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO flow_sessions (user_id, kind, payload, updated_at)
		VALUES (?, ?, ?, ?)`,
		s.UserID, string(s.Kind), s.Payload, time.Now().UTC().Unix())
	return err
}

// ClearSession removes a user's flow session; a no-op when none exists.
func (r *SQLiteRepo) ClearSession(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM flow_sessions WHERE user_id = ?`, userID)
	return err
}

// --- Scheduler jobs ---

// PutJob stores a scheduler job, replacing any job with the same derived id.
func (r *SQLiteRepo) PutJob(ctx context.Context, j *domain.Job) error {
	if j == nil {
		return errors.New("nil job")
	}
	created := j.CreatedAt.UTC().Unix()
	if j.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scheduler_jobs
			(job_id, user_id, kind, fire_hour, fire_minute, tz, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.UserID, string(j.Kind), j.Hour, j.Minute, j.TZ, j.Reason, created)
	return err
}

// DeleteJobsForUser removes all scheduler jobs for a user.
func (r *SQLiteRepo) DeleteJobsForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduler_jobs WHERE user_id = ?`, userID)
	return err
}

// ListJobs returns every persisted scheduler job, ordered by job id.
func (r *SQLiteRepo) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_id, user_id, kind, fire_hour, fire_minute, tz, reason, created_at
		FROM scheduler_jobs ORDER BY job_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Job
	for rows.Next() {
		var (
			j         domain.Job
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&j.ID, &j.UserID, &kind, &j.Hour, &j.Minute,
			&j.TZ, &j.Reason, &createdAt); err != nil {
			return nil, err
		}
		j.Kind = domain.TriggerKind(kind)
		j.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, j)
	}
	return res, rows.Err()
}
