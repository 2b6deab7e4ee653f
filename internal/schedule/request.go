package schedule

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Block ids of the schedule modal. Each input's action id equals its block id.
const (
	BlockTimezone = "timezone"
	BlockDate     = "date"
	BlockTime     = "time"
	BlockMessage  = "message"
)

// TimeFieldError is shown under the time input when the grammar rejects it.
const TimeFieldError = "This field is not in a correct format. Ex: 9:11am, 08.23 PM, 23:03, 10pm"

// Request is one modal submission. It lives only while that submission is
// being handled.
type Request struct {
	ChannelID string `json:"channel"`
	UserID    string `json:"user"`
	Date      string `json:"date"`
	RawTime   string `json:"time"`
	Timezone  string `json:"timezone"`
	Message   string `json:"message"`
}

func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ChannelID, validation.Required),
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.RawTime,
			validation.Required.Error(TimeFieldError),
			validation.By(func(any) error {
				if !MatchTime(r.RawTime) {
					return errors.New(TimeFieldError)
				}
				return nil
			}),
		),
		validation.Field(&r.Date, validation.Required, validation.Date(DateLayout).Error("must be a date like 2025-06-15")),
		validation.Field(&r.Timezone, validation.Required),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 4000)),
	)
}

// ValidateTimeField is the synchronous grammar gate. It returns the field
// error to attach to the modal, or nil when raw is acceptable.
func ValidateTimeField(raw string) map[string]string {
	if MatchTime(raw) {
		return nil
	}
	return map[string]string{BlockTime: TimeFieldError}
}

// ValidateSubmission checks the grammar first and then the rest of the
// form. The result is keyed by modal block id; nil means accept.
func ValidateSubmission(r Request) map[string]string {
	if errs := ValidateTimeField(r.RawTime); errs != nil {
		return errs
	}
	return FieldErrors(r.Validate())
}

// FieldErrors flattens an ozzo error into block-id keyed messages. Errors
// on fields the modal does not show are attached to the message block,
// since Slack only accepts keys of blocks in the view.
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return map[string]string{BlockMessage: err.Error()}
	}

	out := make(map[string]string, len(verrs))
	var hidden []string
	for field, ferr := range verrs {
		switch field {
		case BlockTimezone, BlockDate, BlockTime, BlockMessage:
			out[field] = ferr.Error()
		default:
			hidden = append(hidden, field+": "+ferr.Error())
		}
	}
	if len(hidden) > 0 {
		sort.Strings(hidden)
		msg := strings.Join(hidden, "; ")
		if prev, ok := out[BlockMessage]; ok {
			msg = prev + "; " + msg
		}
		out[BlockMessage] = msg
	}
	return out
}
