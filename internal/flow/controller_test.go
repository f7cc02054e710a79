package flow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
	"github.com/kdsystummm/girlffriend-bot/internal/scheduler"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

const adminID int64 = 99

type stubSched struct {
	installs   []string // "<userID>/<tz>"
	removes    []int64
	installErr error
}

func (s *stubSched) InstallDailyTriggers(_ context.Context, userID int64, tz string) error {
	if s.installErr != nil {
		return s.installErr
	}
	s.installs = append(s.installs, fmt.Sprintf("%d/%s", userID, tz))
	return nil
}

func (s *stubSched) RemoveDailyTriggers(_ context.Context, userID int64) error {
	s.removes = append(s.removes, userID)
	return nil
}

type stubSender struct {
	sent    map[int64][]string
	failFor map[int64]error
}

func newStubSender() *stubSender {
	return &stubSender{sent: make(map[int64][]string), failFor: make(map[int64]error)}
}

func (s *stubSender) SendText(chatID int64, text string) error {
	if err := s.failFor[chatID]; err != nil {
		return err
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

type noJobs struct{}

func (noJobs) Entries() []scheduler.JobStatus { return nil }

func newTestController(t *testing.T) (*Controller, *Console, store.Repo, *stubSched, *stubSender) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	sched := &stubSched{}
	sender := newStubSender()
	console := NewConsole(repo, sender, noJobs{}, adminID, time.Millisecond, zap.NewNop())
	ctrl := NewController(repo, sched, console, zap.NewNop())
	return ctrl, console, repo, sched, sender
}

func subscribe(t *testing.T, ctrl *Controller, repo store.Repo, userID int64, tz string) {
	t.Helper()
	// Subscribed users must exist as profiles for broadcast targeting.
	require.NoError(t, repo.UpsertProfile(context.Background(), userID, store.Patch{}))
	ctrl.StartSubscribe(context.Background(), userID)
	reply, handled := ctrl.HandleText(context.Background(), userID, tz)
	require.True(t, handled)
	require.Contains(t, reply, tz)
}

func TestSubscribeFlow(t *testing.T) {
	ctrl, _, repo, sched, _ := newTestController(t)
	ctx := context.Background()

	reply := ctrl.StartSubscribe(ctx, 1)
	require.Equal(t, askTimezoneText, reply)

	// Invalid timezone: stay in the flow, nothing installed.
	reply, handled := ctrl.HandleText(ctx, 1, "Middle/Earth")
	require.True(t, handled)
	require.Equal(t, badTimezoneText, reply)
	require.Empty(t, sched.installs)

	sess, err := repo.GetSession(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, domain.FlowAwaitingTimezone, sess.Kind)

	p, err := repo.GetProfile(ctx, 1)
	if err == nil {
		require.False(t, p.Subscribed)
	}

	// Valid timezone completes the flow.
	reply, handled = ctrl.HandleText(ctx, 1, "Asia/Kolkata")
	require.True(t, handled)
	require.Contains(t, reply, "Asia/Kolkata")
	require.Equal(t, []string{"1/Asia/Kolkata"}, sched.installs)

	p, err = repo.GetProfile(ctx, 1)
	require.NoError(t, err)
	require.True(t, p.Subscribed)
	require.Equal(t, "Asia/Kolkata", p.TZ)

	sess, err = repo.GetSession(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, sess, "flow must close on completion")

	// Second /subscribe refuses without opening a flow.
	require.Equal(t, alreadySubscribedText, ctrl.StartSubscribe(ctx, 1))
	sess, err = repo.GetSession(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestSubscribeFlow_InstallFailureRollsTriggersBack(t *testing.T) {
	ctrl, _, repo, sched, _ := newTestController(t)
	ctx := context.Background()

	sched.installErr = errors.New("disk full")

	require.Equal(t, askTimezoneText, ctrl.StartSubscribe(ctx, 3))
	reply, handled := ctrl.HandleText(ctx, 3, "Asia/Kolkata")
	require.True(t, handled)
	require.Equal(t, errorText, reply)

	// A half-installed job set must not survive for an unsubscribed user.
	require.Equal(t, []int64{3}, sched.removes)
	p, err := repo.GetProfile(ctx, 3)
	if err == nil {
		require.False(t, p.Subscribed)
	}

	// The flow stays open so the user can retry.
	sess, err := repo.GetSession(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, sess)
}

func TestUnsubscribe(t *testing.T) {
	ctrl, _, repo, sched, _ := newTestController(t)
	ctx := context.Background()

	require.Equal(t, notSubscribedText, ctrl.Unsubscribe(ctx, 2))

	subscribe(t, ctrl, repo, 2, "Europe/London")
	require.Equal(t, unsubscribedText, ctrl.Unsubscribe(ctx, 2))
	require.Equal(t, []int64{2}, sched.removes)

	p, err := repo.GetProfile(ctx, 2)
	require.NoError(t, err)
	require.False(t, p.Subscribed)
	require.Equal(t, "Europe/London", p.TZ, "timezone survives unsubscribe")
}

func TestUnsubscribe_StorageErrorIsNotAStateClaim(t *testing.T) {
	ctrl, _, repo, _, _ := newTestController(t)

	// With the database gone, the lookup fails for reasons other than a
	// missing profile; the user gets the generic apology, not a state claim.
	require.NoError(t, repo.Close())
	require.Equal(t, errorText, ctrl.Unsubscribe(context.Background(), 2))
}

func TestCancelDiscardsStagedPayload(t *testing.T) {
	ctrl, _, repo, _, _ := newTestController(t)
	ctx := context.Background()

	ctrl.StartBroadcast(ctx, adminID)
	_, handled := ctrl.HandleText(ctx, adminID, "draft text")
	require.True(t, handled)

	require.Equal(t, cancelledText, ctrl.Cancel(ctx, adminID))
	sess, err := repo.GetSession(ctx, adminID)
	require.NoError(t, err)
	require.Nil(t, sess)

	// With no open flow, plain text falls through to ordinary chat.
	_, handled = ctrl.HandleText(ctx, adminID, "YES")
	require.False(t, handled)
}

func TestBroadcast_NonAdminRefused(t *testing.T) {
	ctrl, _, repo, _, _ := newTestController(t)
	ctx := context.Background()

	require.Equal(t, refusalText, ctrl.StartBroadcast(ctx, 5))
	sess, err := repo.GetSession(ctx, 5)
	require.NoError(t, err)
	require.Nil(t, sess, "refusal must not open a flow")
}

func TestBroadcast_CountsAndIsolatesFailures(t *testing.T) {
	ctrl, _, repo, _, sender := newTestController(t)
	ctx := context.Background()

	subscribe(t, ctrl, repo, 11, "UTC")
	subscribe(t, ctrl, repo, 12, "UTC")
	subscribe(t, ctrl, repo, 13, "UTC")
	sender.failFor[12] = errors.New("blocked the bot")

	require.Equal(t, askBroadcastText, ctrl.StartBroadcast(ctx, adminID))

	reply, handled := ctrl.HandleText(ctx, adminID, "hello everyone")
	require.True(t, handled)
	require.Contains(t, reply, "hello everyone")
	require.Contains(t, reply, "YES")

	reply, handled = ctrl.HandleText(ctx, adminID, "yes")
	require.True(t, handled)
	require.Equal(t, "Broadcast complete! Sent: 2, failed: 1.", reply)

	// The failing recipient did not abort the rest.
	require.Equal(t, []string{"hello everyone"}, sender.sent[11])
	require.Empty(t, sender.sent[12])
	require.Equal(t, []string{"hello everyone"}, sender.sent[13])

	sess, err := repo.GetSession(ctx, adminID)
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestBroadcast_AnyOtherInputAborts(t *testing.T) {
	ctrl, _, repo, _, sender := newTestController(t)
	ctx := context.Background()

	subscribe(t, ctrl, repo, 21, "UTC")
	ctrl.StartBroadcast(ctx, adminID)
	_, _ = ctrl.HandleText(ctx, adminID, "dangerous text")

	reply, handled := ctrl.HandleText(ctx, adminID, "hmm no")
	require.True(t, handled)
	require.Equal(t, broadcastAbortedText, reply)
	require.Empty(t, sender.sent[21])
}

func TestBroadcast_TargetsSubscribedOnly(t *testing.T) {
	ctrl, console, repo, _, sender := newTestController(t)
	ctx := context.Background()

	subscribe(t, ctrl, repo, 31, "UTC")
	require.NoError(t, repo.UpsertProfile(ctx, 32, store.Patch{})) // known, not subscribed

	sent, failed := console.Broadcast(ctx, adminID, "ping")
	require.Equal(t, 1, sent)
	require.Zero(t, failed)
	require.Empty(t, sender.sent[32])
}

func TestAdminConsole_Gate(t *testing.T) {
	_, console, repo, _, _ := newTestController(t)
	ctx := context.Background()

	prev := "something"
	require.NoError(t, repo.UpsertProfile(ctx, 40, store.Patch{LastSummary: &prev}))

	require.Equal(t, refusalText, console.Status(ctx, 40))
	require.Equal(t, refusalText, console.UserInfo(ctx, 40, 40))
	require.Equal(t, refusalText, console.ResetSummary(ctx, 40, 40))
	sent, failed := console.Broadcast(ctx, 40, "hijack")
	require.Zero(t, sent)
	require.Zero(t, failed)

	// Nothing mutated.
	p, err := repo.GetProfile(ctx, 40)
	require.NoError(t, err)
	require.Equal(t, prev, p.LastSummary)
}

func TestAdminConsole_Operations(t *testing.T) {
	_, console, repo, _, _ := newTestController(t)
	ctx := context.Background()

	prev := "planned a picnic"
	name := "Lena"
	require.NoError(t, repo.UpsertProfile(ctx, 41, store.Patch{LastSummary: &prev, DisplayName: &name}))

	info := console.UserInfo(ctx, adminID, 41)
	require.Contains(t, info, "Lena")
	require.Contains(t, info, "planned a picnic")

	require.Equal(t, "Memory reset for user 41.", console.ResetSummary(ctx, adminID, 41))
	p, err := repo.GetProfile(ctx, 41)
	require.NoError(t, err)
	require.Empty(t, p.LastSummary)

	status := console.Status(ctx, adminID)
	require.Contains(t, status, "Users: 1 total")
	require.Contains(t, status, "Uptime:")

	require.Contains(t, console.UserInfo(ctx, adminID, 404), "No profile")
}
