package slackui

import (
	"github.com/slack-go/slack"
)

// Message is the content of a chat message: fallback text, top-level
// blocks and attachments. Any part may be empty.
type Message struct {
	Text        string
	Blocks      []slack.Block
	Attachments []slack.Attachment
}

// Options converts m into slack-go message options.
func (m Message) Options() []slack.MsgOption {
	opts := make([]slack.MsgOption, 0, 3)
	if m.Text != "" {
		opts = append(opts, slack.MsgOptionText(m.Text, false))
	}
	if len(m.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(m.Blocks...))
	}
	if len(m.Attachments) > 0 {
		opts = append(opts, slack.MsgOptionAttachments(m.Attachments...))
	}
	return opts
}

func Plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func Markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// Section is a section block with a single mrkdwn text.
func Section(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(Markdown(text), nil, nil)
}

// Fields is a section block made only of mrkdwn fields.
func Fields(texts ...string) *slack.SectionBlock {
	fields := make([]*slack.TextBlockObject, 0, len(texts))
	for _, t := range texts {
		fields = append(fields, Markdown(t))
	}
	return slack.NewSectionBlock(nil, fields, nil)
}

// Confirm builds a confirm dialog for an interactive element.
func Confirm(title, text, yes, no string) *slack.ConfirmationBlockObject {
	return slack.NewConfirmationBlockObject(Plain(title), Plain(text), Plain(yes), Plain(no))
}

// DangerButton is a red button that asks for confirmation before firing.
func DangerButton(actionID, value, text string, confirm *slack.ConfirmationBlockObject) *slack.ButtonBlockElement {
	btn := slack.NewButtonBlockElement(actionID, value, Plain(text))
	btn.Style = slack.StyleDanger
	btn.Confirm = confirm
	return btn
}

// Input wraps element in an input block whose block id is id.
func Input(id, label string, element slack.BlockElement) *slack.InputBlock {
	return &slack.InputBlock{
		Type:    slack.MBTInput,
		BlockID: id,
		Label:   Plain(label),
		Element: element,
	}
}
