package scheduling

import (
	"context"
	"fmt"
	"strings"

	"schedbot/internal/schedule"
	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
	"schedbot/pkg/slackui"
)

const (
	CodeTimeInPast  = "time_in_past"
	CodeTimeTooFar  = "time_too_far"
	CodeInvalidTime = "invalid_time"
)

const (
	NoticeTimeInPast = "*Oops!* You may not select a schedule date in the past."
	NoticeTimeTooFar = "*Oops!* You will only be able to schedule a message up to 120 days into the future."
)

// FailureNotice maps a failure code to the diagnostic shown to the user.
// Unknown codes name the code and point at the escalation contact.
func FailureNotice(code, escalationUserID string) string {
	switch code {
	case CodeTimeInPast:
		return NoticeTimeInPast
	case CodeTimeTooFar:
		return NoticeTimeTooFar
	}
	contact := "an administrator"
	if id := strings.TrimSpace(escalationUserID); id != "" {
		contact = "<@" + id + ">"
	}
	return fmt.Sprintf("Failed because of `%s`. please contact %s.", code, contact)
}

// Scheduler resolves a validated request, schedules it, and tells the
// requester how it went.
type Scheduler struct {
	platform   Platform
	resolver   *schedule.Resolver
	escalation func() string
	log        logx.Logger
}

// NewScheduler wires a Scheduler. escalation is read on every failure so a
// config reload takes effect without a restart; it may be nil.
func NewScheduler(p Platform, r *schedule.Resolver, escalation func() string, log logx.Logger) *Scheduler {
	if r == nil {
		r = schedule.NewResolver()
	}
	if escalation == nil {
		escalation = func() string { return "" }
	}
	return &Scheduler{platform: p, resolver: r, escalation: escalation, log: log}
}

// Schedule runs one attempt to completion. The attempt is never retried:
// a rejection is reported to the requester and ends in StateFailed. The
// returned error is only set when the requester could not be told.
func (s *Scheduler) Schedule(ctx context.Context, req schedule.Request) (Outcome, error) {
	log := s.log.With(
		logx.String("channel", req.ChannelID),
		logx.String("user", req.UserID),
		logx.String("tz", req.Timezone),
	)

	postAt, err := s.resolver.ResolveInput(req.Date, req.RawTime, req.Timezone)
	if err != nil {
		log.Warn("schedule input did not resolve", logx.Err(err))
		return s.fail(ctx, req, CodeInvalidTime)
	}

	id, err := s.platform.ScheduleMessage(ctx, req.ChannelID, postAt, req.Message)
	if err != nil {
		code := transport.ErrorCode(err)
		log.Info("schedule rejected", logx.String("code", code), logx.Err(err))
		return s.fail(ctx, req, code)
	}

	sm := &ScheduledMessage{ID: id, ChannelID: req.ChannelID, PostAt: postAt, Text: req.Message}
	out := Outcome{State: StateScheduled, Scheduled: sm, Notice: slackui.ScheduledText}
	log.Info("message scheduled",
		logx.String("scheduled_id", id),
		logx.Int64("post_at", postAt.Unix()),
	)

	confirm := slackui.ScheduledConfirmation(slackui.Confirmation{
		Timezone:    req.Timezone,
		When:        schedule.FormatInstant(postAt),
		Text:        req.Message,
		ScheduledID: id,
	})
	if err := s.platform.PostEphemeral(ctx, req.ChannelID, req.UserID, confirm); err != nil {
		return out, fmt.Errorf("post confirmation: %w", err)
	}
	return out, nil
}

func (s *Scheduler) fail(ctx context.Context, req schedule.Request, code string) (Outcome, error) {
	notice := FailureNotice(code, s.escalation())
	out := Outcome{State: StateFailed, Code: code, Notice: notice}
	if err := s.platform.PostEphemeral(ctx, req.ChannelID, req.UserID, slackui.Diagnostic(notice)); err != nil {
		return out, fmt.Errorf("post diagnostic %s: %w", code, err)
	}
	return out, nil
}
