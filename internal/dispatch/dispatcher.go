package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/instrumentation"
	"github.com/voicecal/voicecal/internal/intent"
	"github.com/voicecal/voicecal/internal/logging"
)

// Gateway is the mutating calendar surface the dispatcher drives. Satisfied
// by *calendar.Client.
type Gateway interface {
	Create(ctx context.Context, calendarID string, draft calendar.Draft) (*calendar.Event, error)
	Update(ctx context.Context, calendarID, eventID string, patch calendar.Patch, expectedVersion string) (*calendar.Event, error)
	Delete(ctx context.Context, calendarID, eventID, expectedVersion string) error
	ListEvents(ctx context.Context, calendarID string, q calendar.Query) ([]calendar.Event, error)
}

// Status is the terminal state of a dispatched action.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
)

// Result reports what happened to a dispatched action. Summary is the
// user-facing description of the outcome; Reason explains a rejection.
type Result struct {
	Status  Status
	EventID string
	Summary string
	Reason  string
}

func (r *Result) Applied() bool { return r.Status == StatusApplied }

// Dispatcher is the single writer against the calendar. It enforces the
// safety gates in order: the action must be resolved, confident enough, and
// confirmed when destructive, before any gateway call is made.
type Dispatcher struct {
	gateway       Gateway
	calendarID    string
	minConfidence float64
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

func New(gateway Gateway, calendarID string, minConfidence float64) *Dispatcher {
	return &Dispatcher{
		gateway:       gateway,
		calendarID:    calendarID,
		minConfidence: minConfidence,
		logger:        logging.WithComponent(slog.Default(), "dispatch"),
	}
}

// SetMetrics enables dispatch outcome metrics. A nil recorder disables them.
func (d *Dispatcher) SetMetrics(m *instrumentation.Metrics) {
	d.metrics = m
}

// Dispatch executes a resolved action against the calendar. A version
// conflict rejects the action; the caller re-resolves against fresh state
// instead of retrying blindly. The error return is reserved for gateway
// failures that are neither conflicts nor the action's own fault.
func (d *Dispatcher) Dispatch(ctx context.Context, action *intent.Action) (*Result, error) {
	if !action.Resolved() {
		return reject("I don't have enough detail to do that yet."), nil
	}
	if action.Confidence < d.minConfidence {
		return reject("I'm not sure I understood that correctly. Could you rephrase?"), nil
	}
	if action.Destructive() && !action.Confirmed {
		return reject("This change needs your confirmation first."), nil
	}

	var (
		result *Result
		err    error
	)
	switch action.Kind {
	case intent.KindCreate:
		result, err = d.create(ctx, action)
	case intent.KindUpdate:
		result, err = d.update(ctx, action)
	case intent.KindDelete:
		result, err = d.delete(ctx, action)
	case intent.KindQuery:
		result, err = d.query(ctx, action)
	default:
		return nil, fmt.Errorf("unknown action kind %q", action.Kind)
	}
	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordDispatch(ctx, string(action.Kind), instrumentation.StatusError)
		}
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(ctx, string(action.Kind), string(result.Status))
	}
	d.logger.Info("action dispatched",
		logging.Operation("dispatch"),
		logging.Action(string(action.Kind)),
		logging.Status(string(result.Status)))
	return result, nil
}

func (d *Dispatcher) create(ctx context.Context, action *intent.Action) (*Result, error) {
	draft := calendar.Draft{
		Summary:        action.Title,
		Description:    action.Description,
		Start:          action.Start,
		End:            action.End,
		TimeZone:       action.TimeZone,
		Attendees:      action.Attendees,
		IdempotencyKey: action.IdempotencyKey,
	}
	ev, err := d.gateway.Create(ctx, d.calendarID, draft)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return &Result{
		Status:  StatusApplied,
		EventID: ev.ID,
		Summary: fmt.Sprintf("Created %q, %s.", ev.Summary, formatWhen(ev.Start)),
	}, nil
}

func (d *Dispatcher) update(ctx context.Context, action *intent.Action) (*Result, error) {
	patch := calendar.Patch{
		Summary:   action.Title,
		Start:     action.Start,
		End:       action.End,
		TimeZone:  action.TimeZone,
		Attendees: action.Attendees,
	}
	ev, err := d.gateway.Update(ctx, d.calendarID, action.EventID, patch, action.EventVersion)
	if err != nil {
		if errors.Is(err, calendar.ErrConflict) {
			return reject("That event changed since I looked at it. Please try again."), nil
		}
		if errors.Is(err, calendar.ErrNotFound) {
			return reject("That event no longer exists."), nil
		}
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return &Result{
		Status:  StatusApplied,
		EventID: ev.ID,
		Summary: fmt.Sprintf("Updated %q, now %s.", ev.Summary, formatWhen(ev.Start)),
	}, nil
}

func (d *Dispatcher) delete(ctx context.Context, action *intent.Action) (*Result, error) {
	err := d.gateway.Delete(ctx, d.calendarID, action.EventID, action.EventVersion)
	if err != nil {
		if errors.Is(err, calendar.ErrConflict) {
			return reject("That event changed since I looked at it. Please try again."), nil
		}
		if errors.Is(err, calendar.ErrNotFound) {
			return reject("That event no longer exists."), nil
		}
		return nil, fmt.Errorf("deleting event: %w", err)
	}
	return &Result{
		Status:  StatusApplied,
		EventID: action.EventID,
		Summary: "Deleted the event.",
	}, nil
}

func (d *Dispatcher) query(ctx context.Context, action *intent.Action) (*Result, error) {
	events, err := d.gateway.ListEvents(ctx, d.calendarID, calendar.Query{
		TimeMin: action.Start,
		TimeMax: action.End,
	})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return &Result{Status: StatusApplied, Summary: renderEvents(events)}, nil
}

func reject(reason string) *Result {
	return &Result{Status: StatusRejected, Reason: reason}
}

func formatWhen(t time.Time) string {
	return t.Format("Jan 2 3:04 PM")
}

func renderEvents(events []calendar.Event) string {
	if len(events) == 0 {
		return "Nothing on the calendar for that period."
	}
	var b strings.Builder
	if len(events) == 1 {
		b.WriteString("You have 1 event:\n")
	} else {
		fmt.Fprintf(&b, "You have %d events:\n", len(events))
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "- %s, %s\n", ev.Summary, formatWhen(ev.Start))
	}
	return strings.TrimRight(b.String(), "\n")
}
