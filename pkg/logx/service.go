package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	Slack   SlackConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// SlackConfig ships log lines at or above MinLevel to a Slack channel.
type SlackConfig struct {
	Enabled    bool
	ChannelID  string
	MinLevel   string
	RatePerSec int
}

// Poster delivers a plain text message to a channel.
type Poster interface {
	PostText(ctx context.Context, channelID, text string) error
}

// Service owns the log outputs and can swap them at runtime.
type Service struct {
	mu  sync.Mutex
	cfg Config

	root atomic.Value // zerolog.Logger

	file *os.File

	poster    Poster
	queue     chan slackItem
	sinkOnce  sync.Once
	sinkStop  context.CancelFunc
	sinkWG    sync.WaitGroup
	channelID string
	limiter   *rate.Limiter
	minLevel  zerolog.Level

	dropped atomic.Uint64
}

type slackItem struct {
	channelID string
	text      string
}

// New creates the service, applies cfg, and returns the root logger.
// poster may be nil, in which case the Slack sink stays silent.
func New(cfg Config, poster Poster) (*Service, Logger) {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = consoleTimeFormat

	s := &Service{
		poster: poster,
		queue:  make(chan slackItem, 128),
	}
	s.root.Store(zerolog.New(newConsoleWriter(Stdout())).
		Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger())
	s.Apply(cfg)
	return s, Logger{svc: s}
}

func (s *Service) current() zerolog.Logger {
	zl, ok := s.root.Load().(zerolog.Logger)
	if !ok {
		return zerolog.Nop()
	}
	return zl
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

// Dropped is the number of Slack log lines discarded because the queue was full.
func (s *Service) Dropped() uint64 { return s.dropped.Load() }

// Apply rebuilds the outputs from cfg. Safe for concurrent use.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.channelID = strings.TrimSpace(cfg.Slack.ChannelID)
	s.minLevel = ParseLevel(cfg.Slack.MinLevel, zerolog.WarnLevel)
	rps := max(1, cfg.Slack.RatePerSec)
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	writers := make([]io.Writer, 0, 3)
	if cfg.Console {
		writers = append(writers, newConsoleWriter(Stdout()))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = "./schedbot.log"
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(Stderr(), "logx: open log file %q: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}
	if cfg.Slack.Enabled {
		s.sinkOnce.Do(s.startSink)
		writers = append(writers, &slackWriter{svc: s})
		if s.channelID == "" {
			fmt.Fprintln(Stderr(), "logx: slack logging enabled but logging.slack.channel_id is empty")
		}
	}
	if len(writers) == 0 {
		writers = append(writers, newConsoleWriter(Stdout()))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()
	s.root.Store(zl)
}

func (s *Service) startSink() {
	ctx, cancel := context.WithCancel(context.Background())
	s.sinkStop = cancel
	s.sinkWG.Add(1)
	go func() {
		defer s.sinkWG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case it := <-s.queue:
				if s.poster == nil {
					continue
				}
				_ = s.poster.PostText(ctx, it.channelID, it.text)
			}
		}
	}()
}

func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	stop := s.sinkStop
	s.sinkStop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
		s.sinkWG.Wait()
	}
	if f != nil {
		return f.Close()
	}
	return nil
}

type slackWriter struct{ svc *Service }

func (w *slackWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *slackWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	s.mu.Lock()
	channelID, lim, minLevel := s.channelID, s.limiter, s.minLevel
	s.mu.Unlock()

	if channelID == "" || s.poster == nil || level < minLevel || !lim.Allow() {
		return len(p), nil
	}
	text := formatSlackLine(p)
	if text == "" {
		return len(p), nil
	}
	// Never block the caller.
	select {
	case s.queue <- slackItem{channelID: channelID, text: text}:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

// formatSlackLine turns a zerolog JSON line into a short mrkdwn message.
func formatSlackLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), 3000)
	}
	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("*[")
		b.WriteString(strings.ToUpper(lvl))
		b.WriteString("]* ")
	}
	b.WriteString(msg)
	for _, k := range keys {
		limit := 500
		if k == "stack" {
			limit = 900
		}
		b.WriteString("\n• `")
		b.WriteString(k)
		b.WriteString("` ")
		b.WriteString(truncate(fmt.Sprint(m[k]), limit))
	}
	return truncate(b.String(), 3000)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}

func newConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
}

// Stdout returns the stdout sink.
func Stdout() io.Writer { return os.Stdout }

// Stderr returns the stderr sink.
func Stderr() io.Writer { return os.Stderr }
