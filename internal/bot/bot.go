package bot

import (
	"context"
	"errors"
	"time"

	"github.com/slack-go/slack"

	"schedbot/internal/config"
	"schedbot/internal/schedule"
	"schedbot/internal/scheduling"
	"schedbot/internal/transport"
	"schedbot/internal/transport/slack/router"
	logx "schedbot/pkg/logx"
	"schedbot/pkg/slackui"
)

// Platform is everything the bot calls on Slack.
type Platform interface {
	scheduling.Platform
	UserTimezone(ctx context.Context, userID string) (string, error)
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
}

type Deps struct {
	Platform Platform
	Resolver *schedule.Resolver
	// Settings returns the live schedule section; it is read per event.
	Settings func() config.ScheduleConfig
	Logger   logx.Logger
	Now      func() time.Time
}

// Bot owns the schedule command, the modal and the cancel button.
type Bot struct {
	platform  Platform
	resolver  *schedule.Resolver
	settings  func() config.ScheduleConfig
	log       logx.Logger
	now       func() time.Time
	scheduler *scheduling.Scheduler
	canceller *scheduling.Canceller
}

func New(d Deps) (*Bot, error) {
	if d.Platform == nil {
		return nil, errors.New("bot: platform is nil")
	}
	if d.Settings == nil {
		return nil, errors.New("bot: settings is nil")
	}
	if d.Resolver == nil {
		d.Resolver = schedule.NewResolver()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Logger.With(logx.String("comp", "bot"))
	b := &Bot{
		platform: d.Platform,
		resolver: d.Resolver,
		settings: d.Settings,
		log:      log,
		now:      d.Now,
	}
	b.scheduler = scheduling.NewScheduler(d.Platform, d.Resolver,
		func() string { return b.settings().EscalationUserID }, log)
	b.canceller = scheduling.NewCanceller(d.Platform, log)
	return b, nil
}

// Routes lists the bot's handlers. The command name is taken from the
// settings at call time; changing it needs a restart.
func (b *Bot) Routes() []router.Route {
	return []router.Route{
		{
			Kind:        transport.EventCommand,
			ID:          b.settings().Command,
			Description: "open the schedule a message modal",
			Handle:      b.openModal,
		},
		{
			Kind:        transport.EventViewSubmission,
			ID:          slackui.CallbackSchedule,
			Description: "validate and schedule a message",
			Ack:         b.validate,
			Handle:      b.schedule,
		},
		{
			// Selecting a zone or date inside the modal fires block actions
			// that need no answer beyond the ack.
			Kind:        transport.EventBlockAction,
			ID:          slackui.CallbackSchedule,
			Description: "modal input changes",
			Ack:         func(context.Context, *router.Request) *transport.Response { return nil },
		},
		{
			Kind:        transport.EventBlockAction,
			ID:          router.ActionKey(slackui.BlockCancel, slackui.ActionCancel),
			Description: "cancel a scheduled message",
			Handle:      b.cancel,
		},
	}
}

// Register adds the bot's routes to r.
func (b *Bot) Register(r *router.Router) error {
	return r.Register(b.Routes()...)
}

func (b *Bot) openModal(ctx context.Context, req *router.Request) error {
	ev := req.Event
	cfg := b.settings()

	tz, err := b.platform.UserTimezone(ctx, ev.UserID)
	if err != nil {
		req.Logger.Warn("user timezone lookup failed", logx.Err(err))
	}

	zones := make([]slackui.ZoneOption, 0, len(cfg.Timezones))
	for _, z := range cfg.Timezones {
		zones = append(zones, slackui.ZoneOption{Value: z.Value, Label: z.Label})
	}
	view := slackui.ScheduleModal(slackui.ModalParams{
		ChannelID:       ev.ChannelID,
		Zones:           zones,
		InitialTimezone: tz,
		InitialDate:     b.resolver.Today(b.now(), tz, cfg.DefaultTimezone),
	})
	if err := b.platform.OpenView(ctx, ev.TriggerID, view); err != nil {
		return err
	}
	return nil
}

func submission(ev transport.Event) schedule.Request {
	return schedule.Request{
		ChannelID: ev.PrivateMetadata,
		UserID:    ev.UserID,
		Date:      ev.Value(schedule.BlockDate),
		RawTime:   ev.Value(schedule.BlockTime),
		Timezone:  ev.Value(schedule.BlockTimezone),
		Message:   ev.Value(schedule.BlockMessage),
	}
}

// validate answers the submission inline: field errors keep the modal open,
// nil closes it and lets schedule run.
func (b *Bot) validate(_ context.Context, req *router.Request) *transport.Response {
	errs := schedule.ValidateSubmission(submission(req.Event))
	if len(errs) == 0 {
		return nil
	}
	req.Logger.Debug("submission rejected", logx.Any("errors", errs))
	return transport.FieldErrors(errs)
}

func (b *Bot) schedule(ctx context.Context, req *router.Request) error {
	_, err := b.scheduler.Schedule(ctx, submission(req.Event))
	return err
}

func (b *Bot) cancel(ctx context.Context, req *router.Request) error {
	ev := req.Event
	if ev.Action == nil {
		return errors.New("cancel without action")
	}
	_, err := b.canceller.Cancel(ctx, scheduling.CancelRequest{
		ScheduledID: ev.Action.Value,
		ChannelID:   ev.ChannelID,
		ResponseURL: ev.ResponseURL,
	})
	return err
}
