// Package chat implements the conversation engine: one chat turn or one
// proactive fire in, one outgoing text out. All side effects are confined to
// the profile's last_summary field.
package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
	"github.com/kdsystummm/girlffriend-bot/internal/llm"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

// FallbackReply is sent whenever generation or storage fails mid-turn.
const FallbackReply = "I'm sorry, my love, I'm feeling a little overwhelmed right now. Can we talk again in a moment? 😔"

// Engine orchestrates profile → prompt → generation → parse → persist.
type Engine struct {
	repo       store.Repo
	gen        llm.Generator
	log        *zap.Logger
	genTimeout time.Duration
}

// NewEngine creates a conversation engine. genTimeout bounds each
// collaborator call; zero disables the extra deadline.
func NewEngine(repo store.Repo, gen llm.Generator, genTimeout time.Duration, log *zap.Logger) *Engine {
	return &Engine{repo: repo, gen: gen, genTimeout: genTimeout, log: log}
}

// HandleUserMessage processes one ordinary chat turn and returns the text to
// send back. It never returns an empty reply: failures collapse into
// FallbackReply, and a malformed completion is passed through raw with the
// stored summary left untouched.
func (e *Engine) HandleUserMessage(ctx context.Context, id int64, displayName, text string) string {
	prof, err := e.ensureProfile(ctx, id, displayName)
	if err != nil {
		e.log.Error("profile load failed", zap.Int64("user", id), zap.Error(err))
		return FallbackReply
	}

	prompt := domain.BuildChatPrompt(prof.Persona, prof.ReplyLength, prof.EmojiUsage, prof.LastSummary, text)
	raw, err := e.generate(ctx, prompt)
	if err != nil {
		e.log.Warn("generation failed", zap.Int64("user", id), zap.Error(err))
		return FallbackReply
	}

	parsed, err := domain.ParseStructuredReply(raw)
	if errors.Is(err, domain.ErrMalformedReply) {
		// Pass the raw text through; do not fabricate a summary.
		e.log.Warn("unstructured completion, summary kept", zap.Int64("user", id))
		return raw
	}

	if err := e.repo.UpsertProfile(ctx, id, store.Patch{LastSummary: &parsed.Summary}); err != nil {
		// The reply is still worth delivering; only memory is lost.
		e.log.Error("summary persist failed", zap.Int64("user", id), zap.Error(err))
	}
	return parsed.Response
}

// HandleScheduledFire builds the proactive message for one trigger. The
// second return is false when nothing should be sent: unknown or
// unsubscribed profiles are silent no-ops (the job should already be gone;
// this guards against a missed removal), and generation failures are dropped
// since the slot recurs tomorrow.
func (e *Engine) HandleScheduledFire(ctx context.Context, id int64, reason string) (string, bool) {
	prof, err := e.repo.GetProfile(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		e.log.Error("profile load failed", zap.Int64("user", id), zap.Error(err))
		return "", false
	}
	if !prof.Subscribed {
		return "", false
	}

	prompt := domain.BuildProactivePrompt(prof.Persona, reason, prof.LastSummary)
	raw, err := e.generate(ctx, prompt)
	if err != nil {
		e.log.Warn("proactive generation failed",
			zap.Int64("user", id), zap.String("reason", reason), zap.Error(err))
		return "", false
	}
	return raw, true
}

// ensureProfile loads the profile, creating it with defaults on first
// contact. The display name is recorded only while still unset.
func (e *Engine) ensureProfile(ctx context.Context, id int64, displayName string) (*domain.Profile, error) {
	prof, err := e.repo.GetProfile(ctx, id)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	patch := store.Patch{}
	if displayName != "" {
		patch.DisplayName = &displayName
	}
	if err := e.repo.UpsertProfile(ctx, id, patch); err != nil {
		return nil, err
	}
	return e.repo.GetProfile(ctx, id)
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.genTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.genTimeout)
		defer cancel()
	}
	return e.gen.Generate(ctx, prompt)
}
