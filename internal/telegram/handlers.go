package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
	"github.com/kdsystummm/girlffriend-bot/internal/store"
)

func (r *Router) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	patch := store.Patch{}
	if name := firstName(from); name != "" {
		patch.DisplayName = &name
	}
	if err := r.repo.UpsertProfile(ctx, chatID, patch); err != nil {
		r.log.Error("start upsert failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, "Profile initialization error. Please try again later.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(startFmt, firstName(from)))
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleHelp(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, helpText)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) handleSettings(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "What would you like to change?")
	msg.ReplyMarkup = settingsInlineKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// handleStatus shows the user's own subscription state, not the admin dashboard.
func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	prof, err := r.repo.GetProfile(ctx, chatID)
	if err != nil || !prof.Subscribed {
		r.sendText(chatID, "You are NOT SUBSCRIBED.")
		return
	}
	tz := prof.TZ
	if tz == "" {
		tz = "Not set"
	}
	r.sendText(chatID, fmt.Sprintf("You are SUBSCRIBED.\nTimezone: %s", tz))
}

// --- admin commands with an id argument ---

func (r *Router) handleUserInfo(ctx context.Context, chatID int64, text string) {
	target, ok := parseIDArg(text)
	if !ok {
		r.sendText(chatID, "Usage: /userinfo <user id>")
		return
	}
	r.sendText(chatID, r.console.UserInfo(ctx, chatID, target))
}

func (r *Router) handleResetMemory(ctx context.Context, chatID int64, text string) {
	target, ok := parseIDArg(text)
	if !ok {
		r.sendText(chatID, "Usage: /resetmemory <user id>")
		return
	}
	r.sendText(chatID, r.console.ResetSummary(ctx, chatID, target))
}

func parseIDArg(text string) (int64, bool) {
	arg := commandArg(text)
	if arg == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// --- settings callbacks (select-and-store) ---

func (r *Router) handleCallback(ctx context.Context, chatID int64, data, cbID string) {
	r.answerCallback(cbID)

	switch {
	case data == "settings_persona":
		r.sendKeyboard(chatID, "Choose my new personality:", personaKeyboard())
	case data == "settings_length":
		r.sendKeyboard(chatID, "How long should my replies be?", lengthKeyboard())
	case data == "settings_emoji":
		r.sendKeyboard(chatID, "How many emojis should I use?", emojiKeyboard())

	case strings.HasPrefix(data, "persona:"):
		p, ok := domain.ParsePersona(strings.TrimPrefix(data, "persona:"))
		if !ok {
			return
		}
		r.storeSetting(ctx, chatID, store.Patch{Persona: &p},
			fmt.Sprintf("✅ My personality is now: %s", title(string(p))))

	case strings.HasPrefix(data, "length:"):
		l, ok := domain.ParseReplyLength(strings.TrimPrefix(data, "length:"))
		if !ok {
			return
		}
		r.storeSetting(ctx, chatID, store.Patch{ReplyLength: &l},
			fmt.Sprintf("✅ My replies will now be: %s", title(string(l))))

	case strings.HasPrefix(data, "emoji:"):
		e, ok := domain.ParseEmojiUsage(strings.TrimPrefix(data, "emoji:"))
		if !ok {
			return
		}
		r.storeSetting(ctx, chatID, store.Patch{EmojiUsage: &e},
			fmt.Sprintf("✅ I will now use %s emojis.", e))

	default:
		// Unknown callback — ignore silently
	}
}

func (r *Router) storeSetting(ctx context.Context, chatID int64, patch store.Patch, confirmation string) {
	if err := r.repo.UpsertProfile(ctx, chatID, patch); err != nil {
		r.log.Error("setting save failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save that, please try again.")
		return
	}
	r.sendText(chatID, confirmation)
}

func (r *Router) sendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// title renders enum values like "caring_partner" as "Caring Partner".
func title(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
