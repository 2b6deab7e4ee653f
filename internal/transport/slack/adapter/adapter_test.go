package adapter

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
	"schedbot/pkg/slackui"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type recordingDispatcher struct {
	mu     sync.Mutex
	events []transport.Event
	resp   *transport.Response
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev transport.Event) *transport.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.resp
}

func signedRequest(t *testing.T, secret string, form url.Values) *http.Request {
	t.Helper()
	body := form.Encode()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newTestHandler(d Dispatcher) *Handler {
	return NewHandler(func() string { return testSecret }, d, logx.Nop())
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestHandler(d)

	form := url.Values{"command": {"/schedule"}}
	rec := serve(h, signedRequest(t, "wrong-secret", form))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(form.Encode()))
	rec = serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, d.events)
}

func TestHandlerRejectsWithoutSecret(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHandler(func() string { return "" }, d, logx.Nop())
	rec := serve(h, signedRequest(t, "", url.Values{"command": {"/schedule"}}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	rec := serve(newTestHandler(&recordingDispatcher{}), httptest.NewRequest(http.MethodGet, "/slack/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlerSlashCommand(t *testing.T) {
	d := &recordingDispatcher{}
	rec := serve(newTestHandler(d), signedRequest(t, testSecret, url.Values{
		"command":      {"/schedule"},
		"text":         {""},
		"team_id":      {"T1"},
		"user_id":      {"U1"},
		"channel_id":   {"C1"},
		"trigger_id":   {"tr.1"},
		"response_url": {"https://hooks.slack.test/commands/1"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.Len(t, d.events, 1)
	ev := d.events[0]
	assert.Equal(t, transport.EventCommand, ev.Kind)
	assert.Equal(t, "/schedule", ev.Command)
	assert.Equal(t, "U1", ev.UserID)
	assert.Equal(t, "C1", ev.ChannelID)
	assert.Equal(t, "tr.1", ev.TriggerID)
}

const viewSubmission = `{
  "type": "view_submission",
  "team": {"id": "T1"},
  "user": {"id": "U1"},
  "trigger_id": "tr.2",
  "view": {
    "callback_id": "schedule",
    "private_metadata": "C1",
    "state": {"values": {
      "timezone": {"timezone": {"type": "static_select", "selected_option": {"value": "Asia/Tokyo", "text": {"type": "plain_text", "text": "Tokyo"}}}},
      "date": {"date": {"type": "datepicker", "selected_date": "2025-06-15"}},
      "time": {"time": {"type": "plain_text_input", "value": "9:11am"}},
      "message": {"message": {"type": "plain_text_input", "value": " standup in 5 "}}
    }}
  }
}`

func TestHandlerViewSubmission(t *testing.T) {
	d := &recordingDispatcher{resp: transport.FieldErrors(map[string]string{"time": "bad"})}
	rec := serve(newTestHandler(d), signedRequest(t, testSecret, url.Values{"payload": {viewSubmission}}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"response_action":"errors","errors":{"time":"bad"}}`, rec.Body.String())

	require.Len(t, d.events, 1)
	ev := d.events[0]
	assert.Equal(t, transport.EventViewSubmission, ev.Kind)
	assert.Equal(t, "schedule", ev.CallbackID)
	assert.Equal(t, "C1", ev.PrivateMetadata)
	assert.Equal(t, map[string]string{
		"timezone": "Asia/Tokyo",
		"date":     "2025-06-15",
		"time":     "9:11am",
		"message":  " standup in 5 ",
	}, ev.Values)
}

func TestHandlerBlockAction(t *testing.T) {
	payload := `{
	  "type": "block_actions",
	  "user": {"id": "U1"},
	  "container": {"type": "message", "channel_id": "C9"},
	  "response_url": "https://hooks.slack.test/actions/1",
	  "actions": [{"type": "button", "block_id": "cancel", "action_id": "yes", "value": "Q1298393284"}]
	}`
	d := &recordingDispatcher{}
	rec := serve(newTestHandler(d), signedRequest(t, testSecret, url.Values{"payload": {payload}}))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, d.events, 1)
	ev := d.events[0]
	assert.Equal(t, transport.EventBlockAction, ev.Kind)
	assert.Equal(t, "C9", ev.ChannelID)
	assert.Equal(t, "https://hooks.slack.test/actions/1", ev.ResponseURL)
	require.NotNil(t, ev.Action)
	assert.Equal(t, transport.Action{BlockID: "cancel", ActionID: "yes", Value: "Q1298393284"}, *ev.Action)
}

func TestHandlerRejectsUnknownPayloads(t *testing.T) {
	tests := map[string]url.Values{
		"no fields":        {"foo": {"bar"}},
		"bad json":         {"payload": {"{"}},
		"unsupported type": {"payload": {`{"type":"shortcut"}`}},
	}
	for name, form := range tests {
		t.Run(name, func(t *testing.T) {
			d := &recordingDispatcher{}
			rec := serve(newTestHandler(d), signedRequest(t, testSecret, form))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, d.events)
		})
	}
}

// fakeAPI answers Web API methods from a table of canned JSON bodies.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]url.Values
	reply map[string]string
}

func newFakeAPI(t *testing.T, reply map[string]string) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{calls: map[string]url.Values{}, reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		method := strings.TrimPrefix(r.URL.Path, "/api/")
		f.mu.Lock()
		f.calls[method] = r.PostForm
		body, ok := f.reply[method]
		f.mu.Unlock()
		if !ok {
			body = `{"ok":false,"error":"unknown_method"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) call(method string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{Token: "xoxb-test", APIURL: srv.URL + "/api"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(ClientConfig{Token: " "})
	assert.Error(t, err)
}

func TestClientScheduleMessage(t *testing.T) {
	f, srv := newFakeAPI(t, map[string]string{
		"chat.scheduleMessage": `{"ok":true,"channel":"C1","scheduled_message_id":"Q1298393284","post_at":1749946260}`,
	})
	c := newTestClient(t, srv)

	postAt := time.Date(2025, 6, 15, 9, 11, 0, 0, time.FixedZone("JST", 9*3600))
	id, err := c.ScheduleMessage(context.Background(), "C1", postAt, "standup in 5")
	require.NoError(t, err)
	assert.Equal(t, "Q1298393284", id)

	form := f.call("chat.scheduleMessage")
	assert.Equal(t, "C1", form.Get("channel"))
	assert.Equal(t, "1749946260", form.Get("post_at"))
	assert.Equal(t, "standup in 5", form.Get("text"))
}

func TestClientScheduleMessageErrorCode(t *testing.T) {
	_, srv := newFakeAPI(t, map[string]string{
		"chat.scheduleMessage": `{"ok":false,"error":"time_in_past"}`,
	})
	c := newTestClient(t, srv)

	_, err := c.ScheduleMessage(context.Background(), "C1", time.Unix(1, 0), "late")
	require.Error(t, err)
	assert.Equal(t, "time_in_past", transport.ErrorCode(err))
}

func TestClientTransportFailure(t *testing.T) {
	_, srv := newFakeAPI(t, nil)
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.ScheduleMessage(context.Background(), "C1", time.Now().Add(time.Hour), "x")
	require.Error(t, err)
	assert.Equal(t, "request_failed", transport.ErrorCode(err))
}

func TestClientUserTimezone(t *testing.T) {
	_, srv := newFakeAPI(t, map[string]string{
		"users.info": `{"ok":true,"user":{"id":"U1","tz":"Asia/Tokyo"}}`,
	})
	tz, err := newTestClient(t, srv).UserTimezone(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", tz)
}

func TestClientDeleteScheduledMessage(t *testing.T) {
	f, srv := newFakeAPI(t, map[string]string{
		"chat.deleteScheduledMessage": `{"ok":true}`,
	})
	require.NoError(t, newTestClient(t, srv).DeleteScheduledMessage(context.Background(), "C1", "Q1"))
	form := f.call("chat.deleteScheduledMessage")
	assert.Equal(t, "C1", form.Get("channel"))
	assert.Equal(t, "Q1", form.Get("scheduled_message_id"))
}

func TestClientReplaceOriginal(t *testing.T) {
	var got map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()
	_, srv := newFakeAPI(t, nil)
	c := newTestClient(t, srv)

	require.NoError(t, c.ReplaceOriginal(context.Background(), hook.URL, slackui.Deleted()))
	assert.Equal(t, slackui.DeletedText, got["text"])
	assert.Equal(t, true, got["replace_original"])

	err := c.ReplaceOriginal(context.Background(), "", slackui.Deleted())
	var apiErr *transport.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "missing_response_url", apiErr.Code)
}

func TestIsErrorCode(t *testing.T) {
	for s, want := range map[string]bool{
		"time_in_past":              true,
		"channel_not_found":         true,
		"":                          false,
		"context deadline exceeded": false,
		"_x":                        true,
		"9lives":                    false,
	} {
		assert.Equal(t, want, isErrorCode(s), s)
	}
}
