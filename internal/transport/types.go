package transport

import (
	"errors"
	"fmt"
)

type EventKind string

const (
	EventCommand        EventKind = "command"
	EventViewSubmission EventKind = "view_submission"
	EventBlockAction    EventKind = "block_action"
)

// Event is one inbound platform event, reduced to what handlers read.
type Event struct {
	Kind EventKind

	TeamID    string
	UserID    string
	ChannelID string
	TriggerID string

	// ResponseURL answers or replaces the message an action came from.
	ResponseURL string

	// Command events.
	Command string
	Text    string

	// View submissions, and block actions fired inside a view.
	CallbackID      string
	PrivateMetadata string
	// Values holds submitted input values keyed by block id. Selects give
	// the option value, date pickers the date, text inputs the text.
	Values map[string]string

	// Block actions.
	Action *Action
}

type Action struct {
	BlockID  string
	ActionID string
	Value    string
}

// Value returns the submitted value for blockID.
func (e Event) Value(blockID string) string {
	if e.Values == nil {
		return ""
	}
	return e.Values[blockID]
}

// Response is the synchronous answer to an event. A nil *Response
// acknowledges with an empty 200.
type Response struct {
	ResponseAction string            `json:"response_action,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// FieldErrors keeps the modal open and shows errs under the given blocks.
func FieldErrors(errs map[string]string) *Response {
	return &Response{ResponseAction: "errors", Errors: errs}
}

// ErrRequestFailed marks an API call that never got a platform answer.
var ErrRequestFailed = errors.New("request_failed")

// APIError is a failed platform API call. Code is the platform error code
// ("time_in_past", "channel_not_found", ...) or "request_failed" when the
// call did not complete.
type APIError struct {
	Op   string
	Code string
	Err  error
}

func (e *APIError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Code {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *APIError) Unwrap() error { return e.Err }

// ErrorCode extracts the platform error code from err. Errors that carry no
// code report "request_failed".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}
	return ErrRequestFailed.Error()
}
