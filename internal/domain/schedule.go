package domain

import (
	"fmt"
	"time"
)

// TriggerKind names one of the three daily proactive slots.
type TriggerKind string

const (
	TriggerMorning   TriggerKind = "morning"
	TriggerAfternoon TriggerKind = "afternoon"
	TriggerEvening   TriggerKind = "evening"
)

// DailyTrigger describes one recurring slot in the user's local civil time.
type DailyTrigger struct {
	Kind   TriggerKind
	Hour   int
	Minute int
	Reason string // fed to BuildProactivePrompt
}

// DailyTriggers returns the three slots installed for every subscriber.
// Times are local to the user's timezone; a DST shift moves the absolute
// instant, not the local clock time.
func DailyTriggers() []DailyTrigger {
	return []DailyTrigger{
		{Kind: TriggerMorning, Hour: 8, Minute: 30, Reason: "Good Morning"},
		{Kind: TriggerAfternoon, Hour: 14, Minute: 0, Reason: "Thinking of you this afternoon"},
		{Kind: TriggerEvening, Hour: 20, Minute: 0, Reason: "Missing You"},
	}
}

// JobID derives the deterministic scheduler job identifier for a user slot.
// Re-subscribing therefore replaces jobs instead of duplicating them.
func JobID(kind TriggerKind, userID int64) string {
	return fmt.Sprintf("%s:%d", kind, userID)
}

// Job is one persisted scheduler entry.
type Job struct {
	ID        string
	UserID    int64
	Kind      TriggerKind
	Hour      int
	Minute    int
	TZ        string
	Reason    string
	CreatedAt time.Time // UTC
}
