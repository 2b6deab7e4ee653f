package scheduling

import (
	"context"
	"time"

	"schedbot/pkg/slackui"
)

// Platform is the part of the chat API the coordinators call.
type Platform interface {
	// ScheduleMessage returns the platform-issued schedule id.
	ScheduleMessage(ctx context.Context, channelID string, postAt time.Time, text string) (string, error)
	DeleteScheduledMessage(ctx context.Context, channelID, scheduledID string) error
	PostEphemeral(ctx context.Context, channelID, userID string, msg slackui.Message) error
	ReplaceOriginal(ctx context.Context, responseURL string, msg slackui.Message) error
}

// State is a step in the life of one scheduling attempt.
type State string

const (
	StateDrafting   State = "drafting"
	StateValidating State = "validating"
	StateScheduling State = "scheduling"
	StateScheduled  State = "scheduled"
	StateFailed     State = "failed"
	StateCancelling State = "cancelling"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateCancelled
}

// ScheduledMessage exists once the platform accepted a schedule. ID is the
// only handle for cancelling it; nothing keeps it server side.
type ScheduledMessage struct {
	ID        string
	ChannelID string
	PostAt    time.Time
	Text      string
}

// Outcome is how a coordinator run ended.
type Outcome struct {
	State     State
	Scheduled *ScheduledMessage
	// Code is the failure code for StateFailed.
	Code string
	// Notice is the text shown to the user.
	Notice string
}
