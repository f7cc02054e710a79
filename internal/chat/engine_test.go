package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

type stubGen struct {
	reply string
	err   error
	// last prompt seen, for assertions
	prompt string
	calls  int
}

func (g *stubGen) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	return g.reply, g.err
}

func newTestEngine(t *testing.T, gen *stubGen) (*Engine, store.Repo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return NewEngine(repo, gen, 0, zap.NewNop()), repo
}

func TestHandleUserMessage_PersistsSummary(t *testing.T) {
	gen := &stubGen{reply: "RESPONSE: Hi Sam! How was work?\nSUMMARY: User greeted me after work."}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	out := e.HandleUserMessage(ctx, 10, "Sam", "hey, I'm back from work")
	require.Equal(t, "Hi Sam! How was work?", out)

	p, err := repo.GetProfile(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "User greeted me after work.", p.LastSummary)
	require.Equal(t, "Sam", p.DisplayName)
}

func TestHandleUserMessage_InjectsPriorSummary(t *testing.T) {
	gen := &stubGen{reply: "RESPONSE: ok\nSUMMARY: next"}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	prev := "we argued about pizza toppings"
	require.NoError(t, repo.UpsertProfile(ctx, 11, store.Patch{LastSummary: &prev}))

	e.HandleUserMessage(ctx, 11, "", "pineapple though")
	require.True(t, strings.Contains(gen.prompt, prev), "prompt should carry prior summary")
}

func TestHandleUserMessage_GenerationFailure(t *testing.T) {
	gen := &stubGen{err: errors.New("upstream timeout")}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	prev := "old memory"
	require.NoError(t, repo.UpsertProfile(ctx, 12, store.Patch{LastSummary: &prev}))

	out := e.HandleUserMessage(ctx, 12, "", "hello?")
	require.Equal(t, FallbackReply, out)

	p, err := repo.GetProfile(ctx, 12)
	require.NoError(t, err)
	require.Equal(t, prev, p.LastSummary, "summary must not change on failure")
}

func TestHandleUserMessage_MalformedPassthrough(t *testing.T) {
	gen := &stubGen{reply: "just some freeform text without markers"}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	prev := "old memory"
	require.NoError(t, repo.UpsertProfile(ctx, 13, store.Patch{LastSummary: &prev}))

	out := e.HandleUserMessage(ctx, 13, "", "hi")
	require.Equal(t, gen.reply, out, "raw text is passed through")

	p, err := repo.GetProfile(ctx, 13)
	require.NoError(t, err)
	require.Equal(t, prev, p.LastSummary, "no summary fabricated")
}

func TestHandleUserMessage_FirstContactCreatesProfile(t *testing.T) {
	gen := &stubGen{reply: "RESPONSE: hello\nSUMMARY: said hi"}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	e.HandleUserMessage(ctx, 14, "Riva", "hi")
	p, err := repo.GetProfile(ctx, 14)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultPersona, p.Persona)
	require.Equal(t, "Riva", p.DisplayName)
}

func TestHandleScheduledFire(t *testing.T) {
	gen := &stubGen{reply: "Good morning, thinking of you!"}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	// Unknown profile: silent no-op.
	text, ok := e.HandleScheduledFire(ctx, 20, "Good Morning")
	require.False(t, ok)
	require.Empty(t, text)
	require.Zero(t, gen.calls)

	// Known but unsubscribed: silent no-op.
	require.NoError(t, repo.UpsertProfile(ctx, 20, store.Patch{}))
	_, ok = e.HandleScheduledFire(ctx, 20, "Good Morning")
	require.False(t, ok)
	require.Zero(t, gen.calls)

	// Subscribed: generates and returns the raw text.
	sub := true
	require.NoError(t, repo.UpsertProfile(ctx, 20, store.Patch{Subscribed: &sub}))
	text, ok = e.HandleScheduledFire(ctx, 20, "Good Morning")
	require.True(t, ok)
	require.Equal(t, gen.reply, text)
	require.Contains(t, gen.prompt, "'Good Morning'")
}

func TestHandleScheduledFire_GenerationFailureDropped(t *testing.T) {
	gen := &stubGen{err: errors.New("boom")}
	e, repo := newTestEngine(t, gen)
	ctx := context.Background()

	sub := true
	require.NoError(t, repo.UpsertProfile(ctx, 21, store.Patch{Subscribed: &sub}))
	_, ok := e.HandleScheduledFire(ctx, 21, "Missing You")
	require.False(t, ok, "failed proactive fires are logged and dropped")
}
