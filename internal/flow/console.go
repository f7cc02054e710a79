package flow

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/scheduler"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

// JobLister exposes the live trigger set for the status dashboard.
type JobLister interface {
	Entries() []scheduler.JobStatus
}

// Console implements the authorization-gated admin operations. Every entry
// point checks the caller against the single configured admin id; a mismatch
// never mutates state.
type Console struct {
	repo           store.Repo
	sender         Sender
	jobs           JobLister
	adminID        int64
	broadcastDelay time.Duration
	startedAt      time.Time
	log            *zap.Logger
}

// NewConsole wires the admin console. broadcastDelay is the pause between
// consecutive broadcast sends, respecting transport rate limits.
func NewConsole(repo store.Repo, sender Sender, jobs JobLister, adminID int64, broadcastDelay time.Duration, log *zap.Logger) *Console {
	return &Console{
		repo:           repo,
		sender:         sender,
		jobs:           jobs,
		adminID:        adminID,
		broadcastDelay: broadcastDelay,
		startedAt:      time.Now(),
		log:            log,
	}
}

// Authorized reports whether the caller is the configured admin.
func (a *Console) Authorized(userID int64) bool {
	return userID == a.adminID
}

// guard returns the refusal reply for non-admins and logs the attempt.
func (a *Console) guard(userID int64, op string) (string, bool) {
	if a.Authorized(userID) {
		return "", true
	}
	a.log.Warn("unauthorized admin access",
		zap.Int64("user", userID), zap.String("op", op))
	return refusalText, false
}

// Status renders the admin dashboard: uptime, memory, user counts, and the
// live scheduled jobs with next-fire times.
func (a *Console) Status(ctx context.Context, callerID int64) string {
	if refusal, ok := a.guard(callerID, "status"); !ok {
		return refusal
	}

	counts, err := a.repo.CountProfiles(ctx)
	if err != nil {
		a.log.Error("count profiles failed", zap.Error(err))
		return errorText
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	entries := a.jobs.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Status\n")
	fmt.Fprintf(&b, "Uptime: %s\n", time.Since(a.startedAt).Round(time.Second))
	fmt.Fprintf(&b, "Memory: %.1f MB alloc\n", float64(ms.Alloc)/(1<<20))
	fmt.Fprintf(&b, "Users: %d total, %d subscribed\n", counts.Total, counts.Subscribed)
	fmt.Fprintf(&b, "Scheduled jobs: %d\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "• %s → %s\n", e.ID, e.Next.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

// UserInfo dumps the stored profile fields for one user.
func (a *Console) UserInfo(ctx context.Context, callerID, targetID int64) string {
	if refusal, ok := a.guard(callerID, "userinfo"); !ok {
		return refusal
	}

	prof, err := a.repo.GetProfile(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("No profile for user %d.", targetID)
	}
	if err != nil {
		a.log.Error("userinfo failed", zap.Int64("target", targetID), zap.Error(err))
		return errorText
	}

	tz := prof.TZ
	if tz == "" {
		tz = "—"
	}
	summary := prof.LastSummary
	if summary == "" {
		summary = "—"
	}
	return fmt.Sprintf(
		"User %d\nName: %s\nPersona: %s\nReply length: %s\nEmoji usage: %s\nSubscribed: %t\nTimezone: %s\nLast summary: %s",
		prof.ID, prof.DisplayName, prof.Persona, prof.ReplyLength, prof.EmojiUsage,
		prof.Subscribed, tz, summary,
	)
}

// ResetSummary clears a user's rolling memory back to the first-conversation
// state.
func (a *Console) ResetSummary(ctx context.Context, callerID, targetID int64) string {
	if refusal, ok := a.guard(callerID, "resetmemory"); !ok {
		return refusal
	}

	empty := ""
	if err := a.repo.UpsertProfile(ctx, targetID, store.Patch{LastSummary: &empty}); err != nil {
		a.log.Error("reset summary failed", zap.Int64("target", targetID), zap.Error(err))
		return errorText
	}
	return fmt.Sprintf("Memory reset for user %d.", targetID)
}

// Broadcast sends text to every subscribed profile, serialized with a small
// delay between sends. A failing recipient is counted and skipped, never
// aborting the batch. Targeting subscribed users only is a deliberate choice:
// users who never opted into proactive contact are left alone.
func (a *Console) Broadcast(ctx context.Context, callerID int64, text string) (sent, failed int) {
	if _, ok := a.guard(callerID, "broadcast"); !ok {
		return 0, 0
	}

	targets, err := a.repo.ListSubscribed(ctx)
	if err != nil {
		a.log.Error("broadcast target query failed", zap.Error(err))
		return 0, 0
	}

	runID := uuid.NewString()
	log := a.log.With(zap.String("broadcast_id", runID))
	log.Info("broadcast starting", zap.Int("targets", len(targets)))

	_ = a.sender.SendText(callerID,
		fmt.Sprintf("Starting broadcast to %d users. This may take a moment...", len(targets)))

	for i, p := range targets {
		if err := a.sender.SendText(p.ID, text); err != nil {
			failed++
			log.Error("broadcast send failed", zap.Int64("user", p.ID), zap.Error(err))
		} else {
			sent++
		}
		if a.broadcastDelay > 0 && i < len(targets)-1 {
			select {
			case <-ctx.Done():
				log.Warn("broadcast interrupted", zap.Int("sent", sent), zap.Int("failed", failed))
				return sent, failed
			case <-time.After(a.broadcastDelay):
			}
		}
	}

	log.Info("broadcast complete", zap.Int("sent", sent), zap.Int("failed", failed))
	return sent, failed
}
