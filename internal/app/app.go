package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/chat"
	"github.com/kdsystummm/girlffriend-bot/internal/config"
	"github.com/kdsystummm/girlffriend-bot/internal/flow"
	"github.com/kdsystummm/girlffriend-bot/internal/llm"
	"github.com/kdsystummm/girlffriend-bot/internal/scheduler"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
	"github.com/kdsystummm/girlffriend-bot/internal/telegram"
)

// App owns the process lifecycle: storage, scheduler, HTTP health endpoint
// and the Telegram polling loop.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	sched   *scheduler.Scheduler
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting companion bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("model", a.cfg.GenModel),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	gen := llm.NewClient(a.cfg.GenAPIKey, a.cfg.GenBaseURL, a.cfg.GenModel, a.log)
	engine := chat.NewEngine(repo, gen, a.cfg.GenTimeout, a.log)

	// The router is the Sender for both the scheduler and the flows, so wiring
	// happens in two steps: scheduler and flows first, router last.
	var router *telegram.Router
	sender := senderFunc(func(chatID int64, text string) error {
		return router.SendText(chatID, text)
	})

	a.sched = scheduler.New(repo, engine, sender, a.log)
	console := flow.NewConsole(repo, sender, a.sched, a.cfg.AdminID, a.cfg.BroadcastDelay, a.log)
	ctrl := flow.NewController(repo, a.sched, console, a.log)
	router = telegram.NewRouter(a.bot, a.log, repo, engine, ctrl, console)
	a.router = router

	// Reload persisted triggers so subscriptions survive the restart.
	if err := a.sched.Start(ctx); err != nil {
		a.log.Error("scheduler start failed", zap.Error(err))
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pumpUpdates(ctx, updCh, a.router.HandleUpdate)

	a.log.Info("shutdown signal received")

	a.sched.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.httpSrv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	cancel()

	if a.repo != nil {
		_ = a.repo.Close()
	}
	return nil
}

// pumpUpdates dispatches each inbound update on its own goroutine until the
// context is cancelled. A chat turn can block on the generation collaborator
// for its whole timeout, so updates must not queue behind each other; the
// store's atomic profile merge is the only synchronization the handlers need.
func pumpUpdates(ctx context.Context, updCh tgbotapi.UpdatesChannel, handle func(context.Context, tgbotapi.Update)) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-updCh:
			go handle(ctx, upd)
		}
	}
}

// senderFunc adapts a closure to the Sender interfaces.
type senderFunc func(chatID int64, text string) error

func (f senderFunc) SendText(chatID int64, text string) error { return f(chatID, text) }
