package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/slack-go/slack"

	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
)

const maxBody = 1 << 20

// Dispatcher receives decoded events. The router implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev transport.Event) *transport.Response
}

// Handler is the inbound endpoint for slash commands and interactivity.
// Every request is checked against the signing secret before decoding.
type Handler struct {
	secret func() string
	disp   Dispatcher
	log    logx.Logger
}

// NewHandler takes the signing secret as a func so a reload applies to the
// next request.
func NewHandler(secret func() string, disp Dispatcher, log logx.Logger) *Handler {
	return &Handler{secret: secret, disp: disp, log: log.With(logx.String("comp", "slack.http"))}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := verify(r.Header, body, h.secret()); err != nil {
		h.log.Warn("rejected unsigned request", logx.String("remote", r.RemoteAddr), logx.Err(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	ev, err := decode(r)
	if err != nil {
		h.log.Warn("undecodable request", logx.Err(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp := h.disp.Dispatch(r.Context(), ev)
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Warn("write response failed", logx.Err(err))
	}
}

func verify(header http.Header, body []byte, secret string) error {
	if secret == "" {
		return errors.New("signing secret not configured")
	}
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// decode turns a form-encoded request into an Event. Interactions carry a
// JSON "payload" field; slash commands carry "command".
func decode(r *http.Request) (transport.Event, error) {
	if err := r.ParseForm(); err != nil {
		return transport.Event{}, err
	}
	if payload := r.PostForm.Get("payload"); payload != "" {
		var ic slack.InteractionCallback
		if err := json.Unmarshal([]byte(payload), &ic); err != nil {
			return transport.Event{}, fmt.Errorf("payload: %w", err)
		}
		return fromInteraction(ic)
	}
	if r.PostForm.Get("command") != "" {
		sc, err := slack.SlashCommandParse(r)
		if err != nil {
			return transport.Event{}, err
		}
		return transport.Event{
			Kind:        transport.EventCommand,
			TeamID:      sc.TeamID,
			UserID:      sc.UserID,
			ChannelID:   sc.ChannelID,
			TriggerID:   sc.TriggerID,
			ResponseURL: sc.ResponseURL,
			Command:     sc.Command,
			Text:        sc.Text,
		}, nil
	}
	return transport.Event{}, errors.New("neither command nor payload")
}

func fromInteraction(ic slack.InteractionCallback) (transport.Event, error) {
	ev := transport.Event{
		TeamID:          ic.Team.ID,
		UserID:          ic.User.ID,
		TriggerID:       ic.TriggerID,
		ResponseURL:     ic.ResponseURL,
		CallbackID:      ic.View.CallbackID,
		PrivateMetadata: ic.View.PrivateMetadata,
	}
	switch ic.Type {
	case slack.InteractionTypeViewSubmission:
		ev.Kind = transport.EventViewSubmission
		ev.Values = viewValues(ic.View.State)
	case slack.InteractionTypeBlockActions:
		ev.Kind = transport.EventBlockAction
		ev.ChannelID = ic.Channel.ID
		if ev.ChannelID == "" {
			ev.ChannelID = ic.Container.ChannelID
		}
		if len(ic.ActionCallback.BlockActions) > 0 {
			a := ic.ActionCallback.BlockActions[0]
			ev.Action = &transport.Action{BlockID: a.BlockID, ActionID: a.ActionID, Value: actionValue(*a)}
		}
	default:
		return transport.Event{}, fmt.Errorf("unsupported interaction %q", ic.Type)
	}
	return ev, nil
}

// viewValues flattens view state to one value per block. Every input block
// in the modal holds a single element. Values are passed through untrimmed.
func viewValues(st *slack.ViewState) map[string]string {
	out := map[string]string{}
	if st == nil {
		return out
	}
	for blockID, byAction := range st.Values {
		for _, a := range byAction {
			out[blockID] = actionValue(a)
			break
		}
	}
	return out
}

func actionValue(a slack.BlockAction) string {
	switch {
	case a.SelectedOption.Value != "":
		return a.SelectedOption.Value
	case a.SelectedDate != "":
		return a.SelectedDate
	default:
		return a.Value
	}
}
