package adapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"schedbot/internal/transport"
	"schedbot/pkg/slackui"
)

type ClientConfig struct {
	Token string
	// APIURL overrides https://slack.com/api/. Tests point it at httptest.
	APIURL  string
	Timeout time.Duration
}

// Client is the outbound side: Web API calls and response_url posts.
type Client struct {
	api  *slack.Client
	http *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("slack bot token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	opts := []slack.Option{slack.OptionHTTPClient(hc)}
	if u := strings.TrimSpace(cfg.APIURL); u != "" {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		opts = append(opts, slack.OptionAPIURL(u))
	}
	return &Client{api: slack.New(cfg.Token, opts...), http: hc}, nil
}

// UserTimezone returns the IANA zone from the user's profile.
func (c *Client) UserTimezone(ctx context.Context, userID string) (string, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", apiError("users.info", err)
	}
	return u.TZ, nil
}

func (c *Client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return apiError("views.open", err)
	}
	return nil
}

// ScheduleMessage asks the platform to post text to channelID at postAt and
// returns the scheduled message id.
func (c *Client) ScheduleMessage(ctx context.Context, channelID string, postAt time.Time, text string) (string, error) {
	_, id, err := c.api.ScheduleMessageContext(ctx, channelID,
		strconv.FormatInt(postAt.Unix(), 10),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", apiError("chat.scheduleMessage", err)
	}
	return id, nil
}

func (c *Client) DeleteScheduledMessage(ctx context.Context, channelID, scheduledID string) error {
	_, err := c.api.DeleteScheduledMessageContext(ctx, &slack.DeleteScheduledMessageParameters{
		Channel:            channelID,
		ScheduledMessageID: scheduledID,
	})
	if err != nil {
		return apiError("chat.deleteScheduledMessage", err)
	}
	return nil
}

func (c *Client) PostEphemeral(ctx context.Context, channelID, userID string, msg slackui.Message) error {
	if _, err := c.api.PostEphemeralContext(ctx, channelID, userID, msg.Options()...); err != nil {
		return apiError("chat.postEphemeral", err)
	}
	return nil
}

// ReplaceOriginal overwrites the message an interaction came from.
func (c *Client) ReplaceOriginal(ctx context.Context, responseURL string, msg slackui.Message) error {
	if strings.TrimSpace(responseURL) == "" {
		return &transport.APIError{Op: "response_url", Code: "missing_response_url"}
	}
	wm := &slack.WebhookMessage{
		Text:            msg.Text,
		Attachments:     msg.Attachments,
		ReplaceOriginal: true,
	}
	if len(msg.Blocks) > 0 {
		wm.Blocks = &slack.Blocks{BlockSet: msg.Blocks}
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, c.http, wm); err != nil {
		return apiError("response_url", err)
	}
	return nil
}

// PostText posts a plain message. The log sink uses it.
func (c *Client) PostText(ctx context.Context, channelID, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return apiError("chat.postMessage", err)
	}
	return nil
}

// apiError keeps the platform error code when there is one.
func apiError(op string, err error) error {
	var se slack.SlackErrorResponse
	if errors.As(err, &se) && se.Err != "" {
		return &transport.APIError{Op: op, Code: se.Err, Err: err}
	}
	if msg := err.Error(); isErrorCode(msg) {
		return &transport.APIError{Op: op, Code: msg, Err: err}
	}
	return &transport.APIError{Op: op, Code: transport.ErrRequestFailed.Error(), Err: err}
}

// isErrorCode reports whether s looks like a platform code ("time_in_past").
func isErrorCode(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
