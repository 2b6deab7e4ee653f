package slackui

import (
	"encoding/json"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestScheduleModal(t *testing.T) {
	t.Parallel()
	view := ScheduleModal(ModalParams{
		ChannelID: "C42",
		Zones: []ZoneOption{
			{Value: "Asia/Bangkok", Label: "Bangkok"},
			{Value: "Asia/Tokyo", Label: "Tokyo"},
		},
		InitialTimezone: "Asia/Tokyo",
		InitialDate:     "2025-06-15",
	})

	m := toMap(t, view)
	assert.Equal(t, "modal", m["type"])
	assert.Equal(t, CallbackSchedule, m["callback_id"])
	assert.Equal(t, "C42", m["private_metadata"])
	assert.Equal(t, "Schedule a Message", m["title"].(map[string]any)["text"])
	assert.Equal(t, "Schedule", m["submit"].(map[string]any)["text"])

	blocks := m["blocks"].([]any)
	require.Len(t, blocks, 4)
	ids := make([]string, 0, 4)
	for _, b := range blocks {
		bm := b.(map[string]any)
		assert.Equal(t, "input", bm["type"])
		ids = append(ids, bm["block_id"].(string))
		el := bm["element"].(map[string]any)
		assert.Equal(t, bm["block_id"], el["action_id"])
	}
	assert.Equal(t, []string{InputTimezone, InputDate, InputTime, InputMessage}, ids)

	zone := blocks[0].(map[string]any)["element"].(map[string]any)
	assert.Equal(t, "static_select", zone["type"])
	assert.Equal(t, "Asia/Tokyo", zone["initial_option"].(map[string]any)["value"])
	assert.Len(t, zone["options"], 2)

	date := blocks[1].(map[string]any)["element"].(map[string]any)
	assert.Equal(t, "datepicker", date["type"])
	assert.Equal(t, "2025-06-15", date["initial_date"])

	clock := blocks[2].(map[string]any)["element"].(map[string]any)
	assert.Equal(t, TimeHint, clock["placeholder"].(map[string]any)["text"])

	body := blocks[3].(map[string]any)["element"].(map[string]any)
	assert.Equal(t, true, body["multiline"])
}

func TestScheduleModalWithoutKnownZone(t *testing.T) {
	t.Parallel()
	view := ScheduleModal(ModalParams{
		ChannelID:       "C1",
		Zones:           []ZoneOption{{Value: "Asia/Tokyo", Label: "Tokyo"}},
		InitialTimezone: "Europe/Paris",
	})
	zone := toMap(t, view)["blocks"].([]any)[0].(map[string]any)["element"].(map[string]any)
	assert.NotContains(t, zone, "initial_option")
}

func TestScheduledConfirmation(t *testing.T) {
	t.Parallel()
	msg := ScheduledConfirmation(Confirmation{
		Timezone:    "Asia/Tokyo",
		When:        "2025/6/15 9:11",
		Text:        "standup!",
		ScheduledID: "Q123",
	})
	assert.Equal(t, ScheduledText, msg.Text)
	require.Len(t, msg.Blocks, 4)

	fields := toMap(t, msg.Blocks[1])["fields"].([]any)
	assert.Equal(t, "🌏 *Time Zone:*\nAsia/Tokyo", fields[0].(map[string]any)["text"])
	assert.Equal(t, "🗓 *Date Time:*\n2025/6/15 9:11", fields[1].(map[string]any)["text"])
	assert.Equal(t, "💬 *Message*:\nstandup!", toMap(t, msg.Blocks[2])["fields"].([]any)[0].(map[string]any)["text"])

	actions := toMap(t, msg.Blocks[3])
	assert.Equal(t, BlockCancel, actions["block_id"])
	btn := actions["elements"].([]any)[0].(map[string]any)
	assert.Equal(t, ActionCancel, btn["action_id"])
	assert.Equal(t, "Q123", btn["value"])
	assert.Equal(t, "danger", btn["style"])
	confirm := btn["confirm"].(map[string]any)
	assert.Equal(t, "Are you sure?", confirm["title"].(map[string]any)["text"])
	assert.Equal(t, "This message will be canceled.", confirm["text"].(map[string]any)["text"])
	assert.Equal(t, "Yes", confirm["confirm"].(map[string]any)["text"])
	assert.Equal(t, "No", confirm["deny"].(map[string]any)["text"])
}

func TestDiagnostic(t *testing.T) {
	t.Parallel()
	msg := Diagnostic("*Oops!* nope")
	assert.Empty(t, msg.Text)
	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, ColorError, att.Color)
	require.Len(t, att.Blocks.BlockSet, 1)
	sec, ok := att.Blocks.BlockSet[0].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "*Oops!* nope", sec.Text.Text)
	assert.Equal(t, slack.MarkdownType, sec.Text.Type)
}

func TestMessageOptions(t *testing.T) {
	t.Parallel()
	assert.Len(t, Deleted().Options(), 1)
	assert.Len(t, ScheduledConfirmation(Confirmation{ScheduledID: "Q"}).Options(), 2)
	assert.Len(t, Diagnostic("x").Options(), 1)
}
