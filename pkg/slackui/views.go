package slackui

import (
	"fmt"

	"github.com/slack-go/slack"
)

// Identifiers the router matches interactions on.
const (
	CallbackSchedule = "schedule"
	BlockCancel      = "cancel"
	ActionCancel     = "yes"
)

const (
	ColorError    = "#e61b42"
	TimeHint      = "ex. 9:11am, 08.23 PM, 23:03, 10pm"
	ScheduledText = "*Great!* Your message has been scheduled."
	DeletedText   = ":relieved: This message has been deleted successfully."
)

// Modal input ids. They match the block ids the form parser reads.
const (
	InputTimezone = "timezone"
	InputDate     = "date"
	InputTime     = "time"
	InputMessage  = "message"
)

type ZoneOption struct {
	Value string
	Label string
}

type ModalParams struct {
	ChannelID       string
	Zones           []ZoneOption
	InitialTimezone string // preselected when it is one of Zones
	InitialDate     string // YYYY-MM-DD
}

// ScheduleModal builds the "Schedule a Message" view. The origin channel
// travels in private_metadata.
func ScheduleModal(p ModalParams) slack.ModalViewRequest {
	options := make([]*slack.OptionBlockObject, 0, len(p.Zones))
	var initial *slack.OptionBlockObject
	for _, z := range p.Zones {
		opt := slack.NewOptionBlockObject(z.Value, Plain(z.Label), nil)
		options = append(options, opt)
		if z.Value == p.InitialTimezone {
			initial = opt
		}
	}
	zone := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, Plain("Select time zone"), InputTimezone, options...)
	zone.InitialOption = initial

	date := slack.NewDatePickerBlockElement(InputDate)
	date.Placeholder = Plain("Select a date")
	date.InitialDate = p.InitialDate

	clock := slack.NewPlainTextInputBlockElement(Plain(TimeHint), InputTime)

	body := slack.NewPlainTextInputBlockElement(Plain("Your message"), InputMessage)
	body.Multiline = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      CallbackSchedule,
		PrivateMetadata: p.ChannelID,
		Title:           Plain("Schedule a Message"),
		Submit:          Plain("Schedule"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			Input(InputTimezone, "🌏 Time Zone:", zone),
			Input(InputDate, "🗓 Schedule Date:", date),
			Input(InputTime, "⏰ Schedule Time:", clock),
			Input(InputMessage, "💬 Message:", body),
		}},
	}
}

type Confirmation struct {
	Timezone    string
	When        string // already formatted
	Text        string
	ScheduledID string
}

// ScheduledConfirmation is the ephemeral reply after a successful schedule.
// Its Cancel button carries the schedule id and asks before firing.
func ScheduledConfirmation(c Confirmation) Message {
	cancel := DangerButton(ActionCancel, c.ScheduledID, "Cancel",
		Confirm("Are you sure?", "This message will be canceled.", "Yes", "No"))

	return Message{
		Text: ScheduledText,
		Blocks: []slack.Block{
			Section(ScheduledText),
			Fields(
				fmt.Sprintf("🌏 *Time Zone:*\n%s", c.Timezone),
				fmt.Sprintf("🗓 *Date Time:*\n%s", c.When),
			),
			Fields(fmt.Sprintf("💬 *Message*:\n%s", c.Text)),
			slack.NewActionBlock(BlockCancel, cancel),
		},
	}
}

// Diagnostic is an ephemeral failure notice: one red attachment with a
// single mrkdwn section.
func Diagnostic(text string) Message {
	return Message{
		Attachments: []slack.Attachment{{
			Color:    ColorError,
			Fallback: text,
			Blocks:   slack.Blocks{BlockSet: []slack.Block{Section(text)}},
		}},
	}
}

// Deleted replaces a confirmation once its schedule is cancelled.
func Deleted() Message { return Message{Text: DeletedText} }
