package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"schedbot/internal/bot"
	"schedbot/internal/config"
	"schedbot/internal/observability/admin"
	"schedbot/internal/runtime/supervisor"
	"schedbot/internal/schedule"
	"schedbot/internal/transport/slack/adapter"
	"schedbot/internal/transport/slack/router"
	logx "schedbot/pkg/logx"
	"schedbot/pkg/systemd"
)

type Options struct {
	// ConfigPath is a YAML or JSON file. Empty runs on defaults and env.
	ConfigPath string
	// EnvFile is loaded before the config; empty means an optional ./.env.
	EnvFile string
}

type App struct {
	cfgm *config.ConfigManager

	// sup runs the long-lived loops; events runs one goroutine per
	// accepted event so shutdown can drain them separately.
	sup    *supervisor.Supervisor
	events *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	client *adapter.Client
	router *router.Router
	admin  *admin.Service

	handler http.Handler
	srv     *http.Server
	addr    string
}

func NewApp(opts Options) (*App, error) {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}
	cfgm := config.NewConfigManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	client, err := adapter.NewClient(adapter.ClientConfig{
		Token:   cfg.Slack.BotToken,
		APIURL:  cfg.Slack.APIURL,
		Timeout: cfg.Slack.RequestTimeoutOrDefault(),
	})
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logConfig(cfg.Logging), client)
	appLog := log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgm:   cfgm,
		log:    appLog,
		logs:   logSvc,
		client: client,
	}
	// The event supervisor outlives the app context so in-flight events
	// can finish during shutdown.
	a.events = supervisor.New(context.Background(),
		supervisor.WithLogger(log.With(logx.String("comp", "events"))),
		supervisor.WithCancelOnError(false),
	)

	a.router = router.New(a.events, log.With(logx.String("comp", "router")),
		router.WithDefaultTimeout(func() time.Duration {
			return a.cfgm.Get().Schedule.HandlerTimeoutOrDefault()
		}),
	)
	b, err := bot.New(bot.Deps{
		Platform: client,
		Resolver: schedule.NewResolver(),
		Settings: func() config.ScheduleConfig { return a.cfgm.Get().Schedule },
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Register(a.router); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.HTTP.Path, adapter.NewHandler(
		func() string { return a.cfgm.Get().Slack.SigningSecret },
		a.router, log,
	))
	a.handler = mux
	a.admin = admin.New(a.health, log)
	return a, nil
}

func logConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
		Slack: logx.SlackConfig{
			Enabled:    c.Slack.Enabled,
			ChannelID:  c.Slack.ChannelID,
			MinLevel:   c.Slack.MinLevel,
			RatePerSec: c.Slack.RatePerSec,
		},
	}
}

func adminConfig(c config.AdminConfig) admin.Config {
	return admin.Config{Enabled: c.Enabled, Addr: c.Addr, Pprof: c.Pprof}
}

// Done is closed when the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Addr is the bound address of the event listener once started.
func (a *App) Addr() string { return a.addr }

func (a *App) health() any {
	out := map[string]any{
		"events":      a.events.Snapshot(),
		"log_dropped": a.logs.Dropped(),
	}
	if a.sup != nil {
		out["app"] = a.sup.Snapshot()
	}
	return out
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	to := cfg.HTTP.Timeouts()
	a.srv = &http.Server{
		Handler:      a.handler,
		ReadTimeout:  to.Read,
		WriteTimeout: to.Write,
		IdleTimeout:  to.Idle,
	}
	a.addr = ln.Addr().String()
	srv := a.srv
	a.sup.Go("http.serve", func(context.Context) error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	a.admin.Apply(a.sup.Context(), adminConfig(cfg.Admin))

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub, cfg)
	})
	a.sup.GoRestart("config.watch", 500*time.Millisecond, 10*time.Second, a.cfgm.Watch)
	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		if err := systemd.Watchdog(c, func() bool { return a.sup.Err() == nil }); err != nil {
			a.log.Warn("systemd watchdog stopped", logx.Err(err))
		}
	})

	routes := a.router.Routes()
	ids := make([]string, 0, len(routes))
	for _, rt := range routes {
		ids = append(ids, string(rt.Kind)+":"+rt.ID)
	}
	a.log.Info("app started",
		logx.String("addr", a.addr),
		logx.String("path", cfg.HTTP.Path),
		logx.String("routes", strings.Join(ids, ",")),
		logx.String("config", a.cfgm.Path()),
	)
	if sent, err := systemd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}
	return nil
}

// reloadLoop applies each published config. Bursts are coalesced so only
// the newest one is applied.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config, last *config.Config) {
	for {
		var next *config.Config
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub:
			if !ok {
				return
			}
			next = c
		}
	drain:
		for {
			select {
			case newer := <-sub:
				if newer != nil {
					next = newer
				}
			default:
				break drain
			}
		}

		a.logs.Apply(logConfig(next.Logging))
		a.admin.Apply(ctx, adminConfig(next.Admin))

		changed, attrs := config.SummarizeConfigChange(last, next)
		if restart := config.RestartRequired(last, next); len(restart) > 0 {
			a.log.Warn("config changed; restart required for these sections",
				logx.String("sections", strings.Join(restart, ",")))
		}
		if len(changed) > 0 {
			fields := append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		} else {
			a.log.Info("config reloaded (no changes)")
		}
		last = next
	}
}

// Stop shuts down in order: stop taking events, let accepted ones finish,
// then stop the background loops. Every step is time bounded.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := systemd.Stopping(); err != nil {
		a.log.Debug("systemd notify failed", logx.Err(err))
	}

	grace := a.cfgm.Get().HTTP.Timeouts().Shutdown
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < grace {
		grace = time.Until(dl)
	}
	stepCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	var errs []error
	if a.srv != nil {
		if err := a.srv.Shutdown(stepCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := a.events.Wait(stepCtx); err != nil {
		a.log.Warn("events still running at shutdown; cancelling", logx.Err(err))
		ectx, ecancel := context.WithTimeout(context.Background(), time.Second)
		_ = a.events.Stop(ectx)
		ecancel()
	}

	bctx, bcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer bcancel()
	a.admin.Stop(bctx)
	if err := a.sup.Stop(bctx); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

