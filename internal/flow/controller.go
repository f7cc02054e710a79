// Package flow drives the multi-turn command sequences (subscribe
// onboarding, admin broadcast) and the admin console. Session state is
// durable: a user mid-flow when the process restarts resumes where they
// were instead of silently dropping into ordinary chat.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

// Sched is the scheduler surface the flow controller needs.
type Sched interface {
	InstallDailyTriggers(ctx context.Context, userID int64, tz string) error
	RemoveDailyTriggers(ctx context.Context, userID int64) error
}

// Sender delivers one text message to one user.
type Sender interface {
	SendText(chatID int64, text string) error
}

// Reply texts owned by the flows.
const (
	askTimezoneText = "To send messages at the right time, please tell me your timezone " +
		"in Continent/City format (e.g. Europe/London or Asia/Kolkata)."
	badTimezoneText       = "I don't recognize that timezone. Please try again."
	alreadySubscribedText = "You are already subscribed!"
	notSubscribedText     = "You aren't subscribed."
	unsubscribedText      = "You have been unsubscribed from all daily messages."
	cancelledText         = "Operation cancelled."
	refusalText           = "This is an admin-only command."
	askBroadcastText      = "Enter the message you want to broadcast to all subscribed users:"
	broadcastAbortedText  = "Broadcast aborted."
	errorText             = "Something went wrong, please try again later."
)

// Controller is the per-user state machine over durable FlowSession records.
type Controller struct {
	repo    store.Repo
	sched   Sched
	console *Console
	log     *zap.Logger
}

// NewController wires the flow state machine.
func NewController(repo store.Repo, sched Sched, console *Console, log *zap.Logger) *Controller {
	return &Controller{repo: repo, sched: sched, console: console, log: log}
}

// StartSubscribe enters the subscribe flow, or refuses when already subscribed.
func (c *Controller) StartSubscribe(ctx context.Context, userID int64) string {
	prof, err := c.repo.GetProfile(ctx, userID)
	if err == nil && prof.Subscribed {
		return alreadySubscribedText
	}
	if err := c.repo.PutSession(ctx, &domain.FlowSession{
		UserID: userID,
		Kind:   domain.FlowAwaitingTimezone,
	}); err != nil {
		c.log.Error("open subscribe session failed", zap.Int64("user", userID), zap.Error(err))
		return errorText
	}
	return askTimezoneText
}

// Unsubscribe is a direct command, not a stateful flow: it drops the flag and
// the three scheduler jobs.
func (c *Controller) Unsubscribe(ctx context.Context, userID int64) string {
	prof, err := c.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.log.Error("unsubscribe lookup failed", zap.Int64("user", userID), zap.Error(err))
		return errorText
	}
	if err != nil || !prof.Subscribed {
		return notSubscribedText
	}

	// Flag first, jobs second: if the removal fails, the fire-time guard in
	// the engine keeps stale jobs silent until the next unsubscribe attempt.
	unsub := false
	if err := c.repo.UpsertProfile(ctx, userID, store.Patch{Subscribed: &unsub}); err != nil {
		c.log.Error("unsubscribe persist failed", zap.Int64("user", userID), zap.Error(err))
		return errorText
	}
	if err := c.sched.RemoveDailyTriggers(ctx, userID); err != nil {
		c.log.Error("trigger removal failed", zap.Int64("user", userID), zap.Error(err))
	}
	return unsubscribedText
}

// Cancel aborts any open flow, discarding staged payload.
func (c *Controller) Cancel(ctx context.Context, userID int64) string {
	if err := c.repo.ClearSession(ctx, userID); err != nil {
		c.log.Error("cancel failed", zap.Int64("user", userID), zap.Error(err))
		return errorText
	}
	return cancelledText
}

// StartBroadcast enters the broadcast flow. Admin only; unauthorized callers
// get the standard refusal and the attempt is logged.
func (c *Controller) StartBroadcast(ctx context.Context, userID int64) string {
	if !c.console.Authorized(userID) {
		c.log.Warn("unauthorized broadcast attempt", zap.Int64("user", userID))
		return refusalText
	}
	if err := c.repo.PutSession(ctx, &domain.FlowSession{
		UserID: userID,
		Kind:   domain.FlowAwaitingBroadcastBody,
	}); err != nil {
		c.log.Error("open broadcast session failed", zap.Int64("user", userID), zap.Error(err))
		return errorText
	}
	return askBroadcastText
}

// HandleText feeds a plain-text message into the user's open flow, if any.
// handled == false means no flow is open and the text belongs to ordinary chat.
func (c *Controller) HandleText(ctx context.Context, userID int64, text string) (reply string, handled bool) {
	sess, err := c.repo.GetSession(ctx, userID)
	if err != nil {
		c.log.Error("session load failed", zap.Int64("user", userID), zap.Error(err))
		return errorText, true
	}
	if sess == nil {
		return "", false
	}

	switch sess.Kind {
	case domain.FlowAwaitingTimezone:
		return c.finishSubscribe(ctx, userID, text), true
	case domain.FlowAwaitingBroadcastBody:
		return c.stageBroadcast(ctx, userID, text), true
	case domain.FlowAwaitingBroadcastConfirm:
		return c.confirmBroadcast(ctx, userID, sess.Payload, text), true
	default:
		// Unknown persisted state (e.g. from a newer build); drop it.
		c.log.Warn("unknown flow kind, clearing", zap.String("kind", string(sess.Kind)))
		_ = c.repo.ClearSession(ctx, userID)
		return "", false
	}
}

// finishSubscribe validates the timezone, installs the daily triggers and
// flips the subscribed flag. An invalid name keeps the flow open.
func (c *Controller) finishSubscribe(ctx context.Context, userID int64, text string) string {
	tz, err := domain.ValidateTZ(text)
	if err != nil {
		return badTimezoneText
	}

	if err := c.sched.InstallDailyTriggers(ctx, userID, tz); err != nil {
		// A partial install leaves jobs behind for a user whose subscribed
		// flag never flipped; sweep them out before reporting failure.
		c.log.Error("trigger install failed", zap.Int64("user", userID), zap.Error(err))
		if rbErr := c.sched.RemoveDailyTriggers(ctx, userID); rbErr != nil {
			c.log.Error("trigger rollback failed", zap.Int64("user", userID), zap.Error(rbErr))
		}
		return errorText
	}
	sub := true
	if err := c.repo.UpsertProfile(ctx, userID, store.Patch{Subscribed: &sub, TZ: &tz}); err != nil {
		// Roll the triggers back so the store and scheduler do not drift.
		c.log.Error("subscribe persist failed", zap.Int64("user", userID), zap.Error(err))
		if rbErr := c.sched.RemoveDailyTriggers(ctx, userID); rbErr != nil {
			c.log.Error("trigger rollback failed", zap.Int64("user", userID), zap.Error(rbErr))
		}
		return errorText
	}
	if err := c.repo.ClearSession(ctx, userID); err != nil {
		c.log.Error("close subscribe session failed", zap.Int64("user", userID), zap.Error(err))
	}
	return fmt.Sprintf("Perfect! I've set your timezone to %s and subscribed you to daily messages. Talk to you soon! 🥰", tz)
}

// stageBroadcast stores the composed text and asks for confirmation.
func (c *Controller) stageBroadcast(ctx context.Context, userID int64, text string) string {
	if err := c.repo.PutSession(ctx, &domain.FlowSession{
		UserID:  userID,
		Kind:    domain.FlowAwaitingBroadcastConfirm,
		Payload: text,
	}); err != nil {
		c.log.Error("stage broadcast failed", zap.Int64("user", userID), zap.Error(err))
		return errorText
	}
	return fmt.Sprintf("About to send this to every subscribed user:\n\n%s\n\nReply YES to confirm, or /cancel to abort.", text)
}

// confirmBroadcast runs the broadcast on an exact "YES" (case-insensitive);
// any other input aborts. Either way the flow closes.
func (c *Controller) confirmBroadcast(ctx context.Context, userID int64, staged, text string) string {
	if err := c.repo.ClearSession(ctx, userID); err != nil {
		c.log.Error("close broadcast session failed", zap.Int64("user", userID), zap.Error(err))
	}
	if !strings.EqualFold(strings.TrimSpace(text), "YES") {
		return broadcastAbortedText
	}
	sent, failed := c.console.Broadcast(ctx, userID, staged)
	return fmt.Sprintf("Broadcast complete! Sent: %d, failed: %d.", sent, failed)
}
