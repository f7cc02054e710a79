package domain

import "time"

// Persona selects the system-prompt template the companion speaks with.
type Persona string

const (
	PersonaCaringPartner Persona = "caring_partner"
	PersonaPlayfulFriend Persona = "playful_friend"
)

// ReplyLength constrains how long generated replies should be.
type ReplyLength string

const (
	LengthShort  ReplyLength = "short"
	LengthMedium ReplyLength = "medium"
	LengthLong   ReplyLength = "long"
)

// EmojiUsage constrains emoji density in generated replies.
type EmojiUsage string

const (
	EmojiNone EmojiUsage = "none"
	EmojiSome EmojiUsage = "some"
	EmojiLots EmojiUsage = "lots"
)

// Profile holds per-user settings and rolling conversation memory.
// LastSummary == "" means no prior context.
type Profile struct {
	ID          int64
	DisplayName string
	Persona     Persona
	ReplyLength ReplyLength
	EmojiUsage  EmojiUsage
	Subscribed  bool
	TZ          string // IANA zone name; set once the user subscribes
	LastSummary string
	CreatedAt   time.Time // UTC
	UpdatedAt   time.Time // UTC
}

// Defaults applied when a profile is created on first contact.
const (
	DefaultPersona     = PersonaCaringPartner
	DefaultReplyLength = LengthMedium
	DefaultEmojiUsage  = EmojiSome
)

// ParsePersona validates a persona value coming from a callback payload.
func ParsePersona(s string) (Persona, bool) {
	switch Persona(s) {
	case PersonaCaringPartner, PersonaPlayfulFriend:
		return Persona(s), true
	}
	return "", false
}

// ParseReplyLength validates a reply-length value coming from a callback payload.
func ParseReplyLength(s string) (ReplyLength, bool) {
	switch ReplyLength(s) {
	case LengthShort, LengthMedium, LengthLong:
		return ReplyLength(s), true
	}
	return "", false
}

// ParseEmojiUsage validates an emoji-usage value coming from a callback payload.
func ParseEmojiUsage(s string) (EmojiUsage, bool) {
	switch EmojiUsage(s) {
	case EmojiNone, EmojiSome, EmojiLots:
		return EmojiUsage(s), true
	}
	return "", false
}
