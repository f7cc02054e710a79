package domain

import "time"

// FlowKind identifies which multi-turn command a session belongs to.
type FlowKind string

const (
	FlowAwaitingTimezone         FlowKind = "awaiting_timezone"
	FlowAwaitingBroadcastBody    FlowKind = "awaiting_broadcast_body"
	FlowAwaitingBroadcastConfirm FlowKind = "awaiting_broadcast_confirm"
)

// FlowSession is the durable record of an in-progress multi-turn command.
// It survives restarts so a user mid-flow resumes instead of silently
// dropping into ordinary chat. Payload carries staged input, e.g. the
// composed broadcast text awaiting confirmation.
type FlowSession struct {
	UserID    int64
	Kind      FlowKind
	Payload   string
	UpdatedAt time.Time // UTC
}
