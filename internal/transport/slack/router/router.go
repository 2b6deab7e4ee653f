package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
)

// AckFunc runs before the platform gets its answer. A non-nil response is
// sent back as the acknowledgment and ends handling of the event.
type AckFunc func(ctx context.Context, req *Request) *transport.Response

// Route binds one (kind, id) pair to its handlers.
//
// The id is the command name for commands ("/schedule"), the view callback
// id for view submissions, and either ActionKey(block, action) or the
// enclosing view's callback id for block actions.
type Route struct {
	Kind        transport.EventKind
	ID          string
	Description string

	// Timeout overrides the router default for Handle.
	Timeout time.Duration

	Ack    AckFunc
	Handle HandlerFunc
}

// ActionKey is the route id of a block action.
func ActionKey(blockID, actionID string) string { return blockID + "/" + actionID }

type Request struct {
	Event  transport.Event
	Route  string
	ReqID  string
	Logger logx.Logger
}

func (r *Request) logger(fallback logx.Logger) logx.Logger {
	if r != nil && !r.Logger.IsZero() {
		return r.Logger
	}
	return fallback
}

// Spawner starts the deferred half of an event. The app supervisor
// satisfies it; tests run the function inline.
type Spawner interface {
	Go0(name string, fn func(ctx context.Context))
}

type Router struct {
	mu     sync.RWMutex
	routes map[transport.EventKind]map[string]Route

	spawner Spawner
	log     logx.Logger
	timeout func() time.Duration
}

type Option func(*Router)

// WithDefaultTimeout sets the Handle timeout for routes without their own.
// fn is read per event so reloads apply to new events.
func WithDefaultTimeout(fn func() time.Duration) Option {
	return func(r *Router) { r.timeout = fn }
}

func New(sp Spawner, log logx.Logger, opts ...Option) *Router {
	r := &Router{
		routes:  map[transport.EventKind]map[string]Route{},
		spawner: sp,
		log:     log,
		timeout: func() time.Duration { return 10 * time.Second },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func normalizeID(kind transport.EventKind, id string) string {
	id = strings.TrimSpace(id)
	if kind == transport.EventCommand {
		id = strings.ToLower(id)
	}
	return id
}

// Register adds routes. A duplicate (kind, id) is an error.
func (r *Router) Register(routes ...Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range routes {
		id := normalizeID(rt.Kind, rt.ID)
		if id == "" {
			return fmt.Errorf("route %s: empty id", rt.Kind)
		}
		if rt.Ack == nil && rt.Handle == nil {
			return fmt.Errorf("route %s %q: no handler", rt.Kind, id)
		}
		byID := r.routes[rt.Kind]
		if byID == nil {
			byID = map[string]Route{}
			r.routes[rt.Kind] = byID
		}
		if _, dup := byID[id]; dup {
			return fmt.Errorf("route %s %q already registered", rt.Kind, id)
		}
		rt.ID = id
		byID[id] = rt
	}
	return nil
}

// Routes lists the registered routes, for startup logging.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Route
	for _, byID := range r.routes {
		for _, rt := range byID {
			out = append(out, rt)
		}
	}
	return out
}

func (r *Router) match(ev transport.Event) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byID := r.routes[ev.Kind]
	if byID == nil {
		return Route{}, false
	}
	var keys []string
	switch ev.Kind {
	case transport.EventCommand:
		keys = []string{normalizeID(ev.Kind, ev.Command)}
	case transport.EventViewSubmission:
		keys = []string{ev.CallbackID}
	case transport.EventBlockAction:
		if ev.Action != nil {
			keys = append(keys, ActionKey(ev.Action.BlockID, ev.Action.ActionID))
		}
		if ev.CallbackID != "" {
			keys = append(keys, ev.CallbackID)
		}
	}
	for _, k := range keys {
		if rt, ok := byID[k]; ok {
			return rt, true
		}
	}
	return Route{}, false
}

// Dispatch routes ev. Ack runs inline; Handle is started on the spawner
// and outlives ctx, which only covers the inbound HTTP request.
func (r *Router) Dispatch(ctx context.Context, ev transport.Event) *transport.Response {
	rt, ok := r.match(ev)
	if !ok {
		r.log.Debug("no route for event",
			logx.String("kind", string(ev.Kind)),
			logx.String("command", ev.Command),
			logx.String("callback_id", ev.CallbackID),
		)
		return nil
	}

	req := &Request{Event: ev, Route: rt.ID, ReqID: uuid.NewString()}
	req.Logger = r.log.With(
		logx.String("req_id", req.ReqID),
		logx.String("kind", string(ev.Kind)),
		logx.String("route", rt.ID),
		logx.String("user", ev.UserID),
	)

	if rt.Ack != nil {
		resp, ok := r.ack(ctx, rt, req)
		if !ok {
			return nil
		}
		if resp != nil {
			req.Logger.Debug("event answered inline", logx.String("response_action", resp.ResponseAction))
			return resp
		}
	}
	if rt.Handle == nil {
		return nil
	}

	timeout := rt.Timeout
	if timeout <= 0 {
		timeout = r.timeout()
	}
	h := Chain(rt.Handle,
		MWRequestLog(r.log),
		MWPanicRecover(r.log),
		MWTimeout(timeout),
	)
	r.spawner.Go0("event."+string(ev.Kind)+":"+rt.ID, func(ctx context.Context) {
		_ = h(ctx, req)
	})
	return nil
}

// ack runs rt.Ack. ok is false when it panicked; the event is then
// acknowledged empty and Handle does not run.
func (r *Router) ack(ctx context.Context, rt Route, req *Request) (resp *transport.Response, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			req.Logger.Error("panic in ack",
				logx.Any("panic", p),
				logx.Stack(string(debug.Stack())),
			)
			resp, ok = nil, false
		}
	}()
	return rt.Ack(ctx, req), true
}
