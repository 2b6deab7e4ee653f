package scheduling

import (
	"context"
	"sync"
	"time"

	"schedbot/pkg/slackui"
)

type scheduleCall struct {
	ChannelID string
	PostAt    time.Time
	Text      string
}

type ephemeral struct {
	ChannelID string
	UserID    string
	Msg       slackui.Message
}

// fakePlatform records calls and returns canned results.
type fakePlatform struct {
	mu sync.Mutex

	scheduleID  string
	scheduleErr error
	deleteErr   error
	postErr     error
	replaceErr  error

	scheduled  []scheduleCall
	deleted    [][2]string
	ephemerals []ephemeral
	replaced   map[string]slackui.Message
}

func (f *fakePlatform) ScheduleMessage(_ context.Context, channelID string, postAt time.Time, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduleCall{ChannelID: channelID, PostAt: postAt, Text: text})
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	return f.scheduleID, nil
}

func (f *fakePlatform) DeleteScheduledMessage(_ context.Context, channelID, scheduledID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, [2]string{channelID, scheduledID})
	return f.deleteErr
}

func (f *fakePlatform) PostEphemeral(_ context.Context, channelID, userID string, msg slackui.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemerals = append(f.ephemerals, ephemeral{ChannelID: channelID, UserID: userID, Msg: msg})
	return f.postErr
}

func (f *fakePlatform) ReplaceOriginal(_ context.Context, responseURL string, msg slackui.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaced == nil {
		f.replaced = map[string]slackui.Message{}
	}
	f.replaced[responseURL] = msg
	return f.replaceErr
}
