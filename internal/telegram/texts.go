package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kdsystummm/girlffriend-bot/internal/domain"
)

// UI texts
const (
	startFmt = "Hello, %s! I am your personal AI Companion. ❤️\n\n" +
		"I'm ready to chat! You can customize my personality and how I talk to you " +
		"using the /settings button below."

	helpText = "Here's everything I can do:\n\n" +
		"/settings — Customize my personality, reply style, and emoji usage.\n\n" +
		"/subscribe — Turn on daily automated messages.\n\n" +
		"/unsubscribe — Turn off all daily messages.\n\n" +
		"/status — Check your current subscription and timezone settings.\n\n" +
		"Just start chatting with me anytime!"
)

// mainMenuKeyboard is the persistent reply keyboard under the input field.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/settings"),
			tgbotapi.NewKeyboardButton("/status"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/subscribe"),
			tgbotapi.NewKeyboardButton("/unsubscribe"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// Inline keyboards
func settingsInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Change Personality", "settings_persona"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Change Reply Length", "settings_length"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Change Emoji Usage", "settings_emoji"),
		),
	)
}

func personaKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Caring Partner", "persona:"+string(domain.PersonaCaringPartner)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Playful Friend", "persona:"+string(domain.PersonaPlayfulFriend)),
		),
	)
}

func lengthKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Short", "length:"+string(domain.LengthShort)),
			tgbotapi.NewInlineKeyboardButtonData("Medium", "length:"+string(domain.LengthMedium)),
			tgbotapi.NewInlineKeyboardButtonData("Long", "length:"+string(domain.LengthLong)),
		),
	)
}

func emojiKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("None", "emoji:"+string(domain.EmojiNone)),
			tgbotapi.NewInlineKeyboardButtonData("Some", "emoji:"+string(domain.EmojiSome)),
			tgbotapi.NewInlineKeyboardButtonData("Lots", "emoji:"+string(domain.EmojiLots)),
		),
	)
}
