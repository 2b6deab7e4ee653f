package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedbot/internal/schedule"
	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
	"schedbot/pkg/slackui"
)

func validRequest() schedule.Request {
	return schedule.Request{
		ChannelID: "C1",
		UserID:    "U1",
		Date:      "2025-06-15",
		RawTime:   "9:11am",
		Timezone:  "Asia/Tokyo",
		Message:   "standup in 5",
	}
}

func newScheduler(p Platform) *Scheduler {
	return NewScheduler(p, schedule.NewResolver(), func() string { return "UOPS" }, logx.Nop())
}

func diagnosticText(t *testing.T, msg slackui.Message) string {
	t.Helper()
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, slackui.ColorError, msg.Attachments[0].Color)
	require.Len(t, msg.Attachments[0].Blocks.BlockSet, 1)
	sec, ok := msg.Attachments[0].Blocks.BlockSet[0].(*slack.SectionBlock)
	require.True(t, ok)
	return sec.Text.Text
}

func TestScheduleSuccess(t *testing.T) {
	t.Parallel()
	p := &fakePlatform{scheduleID: "Q1298393284"}
	out, err := newScheduler(p).Schedule(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, StateScheduled, out.State)
	require.NotNil(t, out.Scheduled)
	assert.Equal(t, "Q1298393284", out.Scheduled.ID)

	require.Len(t, p.scheduled, 1)
	call := p.scheduled[0]
	assert.Equal(t, "C1", call.ChannelID)
	assert.Equal(t, "standup in 5", call.Text)
	assert.Equal(t, "2025-06-15T09:11:00+09:00", call.PostAt.Format("2006-01-02T15:04:05Z07:00"))

	require.Len(t, p.ephemerals, 1)
	eph := p.ephemerals[0]
	assert.Equal(t, "C1", eph.ChannelID)
	assert.Equal(t, "U1", eph.UserID)
	assert.Equal(t, slackui.ScheduledText, eph.Msg.Text)

	actions, ok := eph.Msg.Blocks[len(eph.Msg.Blocks)-1].(*slack.ActionBlock)
	require.True(t, ok)
	assert.Equal(t, slackui.BlockCancel, actions.BlockID)
	btn, ok := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, "Q1298393284", btn.Value)
	assert.NotNil(t, btn.Confirm)

	fields, ok := eph.Msg.Blocks[1].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "🗓 *Date Time:*\n2025/6/15 9:11", fields.Fields[1].Text)
}

func TestScheduleRemoteRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    error
		code   string
		notice string
	}{
		{
			name:   "time in past",
			err:    &transport.APIError{Op: "chat.scheduleMessage", Code: "time_in_past"},
			code:   CodeTimeInPast,
			notice: "*Oops!* You may not select a schedule date in the past.",
		},
		{
			name:   "time too far",
			err:    &transport.APIError{Op: "chat.scheduleMessage", Code: "time_too_far"},
			code:   CodeTimeTooFar,
			notice: "*Oops!* You will only be able to schedule a message up to 120 days into the future.",
		},
		{
			name:   "other platform code",
			err:    &transport.APIError{Op: "chat.scheduleMessage", Code: "not_in_channel"},
			code:   "not_in_channel",
			notice: "Failed because of `not_in_channel`. please contact <@UOPS>.",
		},
		{
			name:   "transport failure",
			err:    errors.New("dial tcp: connection refused"),
			code:   "request_failed",
			notice: "Failed because of `request_failed`. please contact <@UOPS>.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlatform{scheduleErr: tt.err}
			out, err := newScheduler(p).Schedule(context.Background(), validRequest())
			require.NoError(t, err)
			assert.Equal(t, StateFailed, out.State)
			assert.Nil(t, out.Scheduled)
			assert.Equal(t, tt.code, out.Code)
			assert.Equal(t, tt.notice, out.Notice)

			require.Len(t, p.scheduled, 1, "no retry")
			require.Len(t, p.ephemerals, 1)
			assert.Equal(t, "U1", p.ephemerals[0].UserID)
			assert.Equal(t, tt.notice, diagnosticText(t, p.ephemerals[0].Msg))
		})
	}
}

func TestScheduleInvalidInstantIsGeneric(t *testing.T) {
	t.Parallel()
	p := &fakePlatform{scheduleID: "Q1"}
	req := validRequest()
	req.RawTime = "25:99am"

	out, err := newScheduler(p).Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, CodeInvalidTime, out.Code)
	assert.Empty(t, p.scheduled, "nothing sent to the platform")
	require.Len(t, p.ephemerals, 1)
	assert.Equal(t, "Failed because of `invalid_time`. please contact <@UOPS>.", diagnosticText(t, p.ephemerals[0].Msg))
}

func TestScheduleReportsUndeliverableConfirmation(t *testing.T) {
	t.Parallel()
	p := &fakePlatform{scheduleID: "Q1", postErr: errors.New("channel_not_found")}
	out, err := newScheduler(p).Schedule(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, StateScheduled, out.State)
}

func TestFailureNoticeWithoutEscalation(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Failed because of `x`. please contact an administrator.", FailureNotice("x", " "))
}

func TestCancelReplacesOriginal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		deleteErr error
	}{
		{name: "delete ok"},
		{name: "delete fails", deleteErr: &transport.APIError{Op: "chat.deleteScheduledMessage", Code: "invalid_scheduled_message_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlatform{deleteErr: tt.deleteErr}
			out, err := NewCanceller(p, logx.Nop()).Cancel(context.Background(), CancelRequest{
				ScheduledID: "Q1",
				ChannelID:   "C1",
				ResponseURL: "https://hooks.slack.test/actions/1",
			})
			require.NoError(t, err)
			assert.Equal(t, StateCancelled, out.State)
			assert.True(t, out.State.Terminal())
			assert.Equal(t, [][2]string{{"C1", "Q1"}}, p.deleted)
			assert.Equal(t, slackui.DeletedText, p.replaced["https://hooks.slack.test/actions/1"].Text)
		})
	}
}

func TestCancelReplaceFailureIsReturned(t *testing.T) {
	t.Parallel()
	p := &fakePlatform{replaceErr: errors.New("expired_url")}
	out, err := NewCanceller(p, logx.Nop()).Cancel(context.Background(), CancelRequest{ScheduledID: "Q1", ChannelID: "C1"})
	require.Error(t, err)
	assert.Equal(t, StateCancelled, out.State)
}
