package scheduling

import (
	"context"
	"fmt"

	logx "schedbot/pkg/logx"
	"schedbot/pkg/slackui"
)

// CancelRequest comes from a Cancel button: the schedule id is the button
// value, the channel and response_url come from the message it sits on.
type CancelRequest struct {
	ScheduledID string
	ChannelID   string
	ResponseURL string
}

type Canceller struct {
	platform Platform
	log      logx.Logger
}

func NewCanceller(p Platform, log logx.Logger) *Canceller {
	return &Canceller{platform: p, log: log}
}

// Cancel deletes the scheduled message and replaces the confirmation with
// the deleted notice. The notice is shown whether or not the delete
// succeeds; a delete error is only logged.
func (c *Canceller) Cancel(ctx context.Context, req CancelRequest) (Outcome, error) {
	log := c.log.With(
		logx.String("channel", req.ChannelID),
		logx.String("scheduled_id", req.ScheduledID),
	)

	if err := c.platform.DeleteScheduledMessage(ctx, req.ChannelID, req.ScheduledID); err != nil {
		log.Warn("delete scheduled message failed", logx.Err(err))
	} else {
		log.Info("scheduled message deleted")
	}

	out := Outcome{State: StateCancelled, Notice: slackui.DeletedText}
	if err := c.platform.ReplaceOriginal(ctx, req.ResponseURL, slackui.Deleted()); err != nil {
		return out, fmt.Errorf("replace confirmation: %w", err)
	}
	return out, nil
}
