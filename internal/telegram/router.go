package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/chat"
	"github.com/kdsystummm/girlffriend-bot/internal/flow"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

// Router wires Telegram updates to the flow controller, admin console and
// conversation engine. It holds no per-user state: open flows live in the
// store and survive restarts.
type Router struct {
	bot     *tgbotapi.BotAPI
	log     *zap.Logger
	repo    store.Repo
	engine  *chat.Engine
	ctrl    *flow.Controller
	console *flow.Console
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, engine *chat.Engine, ctrl *flow.Controller, console *flow.Console) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		repo:    repo,
		engine:  engine,
		ctrl:    ctrl,
		console: console,
	}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch cmd(text) {
		case "/start":
			r.handleStart(ctx, chatID, msg.From)
		case "/help":
			r.handleHelp(chatID)
		case "/settings":
			r.handleSettings(chatID)
		case "/status":
			r.handleStatus(ctx, chatID)
		case "/subscribe":
			r.sendText(chatID, r.ctrl.StartSubscribe(ctx, chatID))
		case "/unsubscribe":
			r.sendText(chatID, r.ctrl.Unsubscribe(ctx, chatID))
		case "/cancel":
			r.sendText(chatID, r.ctrl.Cancel(ctx, chatID))
		case "/broadcast":
			r.sendText(chatID, r.ctrl.StartBroadcast(ctx, chatID))
		case "/admin":
			r.sendText(chatID, r.console.Status(ctx, chatID))
		case "/userinfo":
			r.handleUserInfo(ctx, chatID, text)
		case "/resetmemory":
			r.handleResetMemory(ctx, chatID, text)
		default:
			r.handleFreeForm(ctx, chatID, msg.From, text)
		}
		return
	}

	// Callback queries (inline settings pickers)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		r.handleCallback(ctx, cb.Message.Chat.ID, cb.Data, cb.ID)
	}
}

// handleFreeForm feeds text into an open flow first; with no flow open it is
// an ordinary chat turn.
func (r *Router) handleFreeForm(ctx context.Context, chatID int64, from *tgbotapi.User, text string) {
	if text == "" {
		return
	}
	if reply, handled := r.ctrl.HandleText(ctx, chatID, text); handled {
		r.sendText(chatID, reply)
		return
	}

	r.sendTyping(chatID)
	r.sendText(chatID, r.engine.HandleUserMessage(ctx, chatID, firstName(from), text))
}

// SendText sends a plain text message. This makes Router satisfy the
// scheduler's and flow package's Sender.
func (r *Router) SendText(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// --- helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if text == "" {
		return
	}
	if err := r.SendText(chatID, text); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) sendTyping(chatID int64) {
	_, _ = r.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

func (r *Router) answerCallback(id string) {
	_, _ = r.bot.Request(tgbotapi.NewCallback(id, ""))
}

// cmd extracts the leading command token, stripping a @botname suffix.
func cmd(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	c := strings.Fields(text)[0]
	if i := strings.Index(c, "@"); i > 0 {
		c = c[:i]
	}
	return c
}

// commandArg returns the first argument after the command, or "".
func commandArg(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func firstName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.FirstName
}
