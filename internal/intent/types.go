package intent

import (
	"time"
)

// Kind tags the calendar action variant.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindQuery  Kind = "query"
)

// Utterance is one user input turn: immutable text plus the moment it was
// spoken and an optional reference timezone for resolving relative dates.
type Utterance struct {
	Text      string
	Timestamp time.Time
	TimeZone  string
}

// Action is the structured representation of what the user wants done. The
// extractor produces a draft whose time and target fields may still be
// relative or free-text; the resolver converts them to absolute values. The
// dispatcher accepts only resolved actions.
type Action struct {
	Kind Kind

	// TargetText is the free-text description of the event an update/delete
	// refers to ("my 3pm meeting", "the standup"). TargetTimeText optionally
	// narrows it to a stated time ("3pm", "tomorrow at 10").
	TargetText     string
	TargetTimeText string

	// EventID and EventVersion are set by the resolver once the target has
	// been pinned to a concrete remote event.
	EventID      string
	EventVersion string

	// Title is the event summary for creates, or the new summary for updates.
	Title       string
	Description string

	// StartText/EndText hold unresolved time expressions ("tomorrow 2pm");
	// Start/End hold the absolute values once resolved. For updates these are
	// the new times.
	StartText string
	Start     time.Time
	EndText   string
	End       time.Time

	// DurationMinutes sizes an event when no explicit end was given.
	DurationMinutes int

	// DaysAhead is the query window length in days.
	DaysAhead int

	Attendees []string
	TimeZone  string

	// Confidence in [0,1] is assigned by the extractor. Low confidence forces
	// clarification even when the action is structurally complete.
	Confidence float64

	// Confirmed is set by the conversation loop after echoing a destructive
	// action back to the user. The dispatcher refuses destructive actions
	// without it.
	Confirmed bool

	// IdempotencyKey deduplicates retried creates; derived from the utterance
	// hash and turn timestamp.
	IdempotencyKey string
}

// Destructive reports whether dispatching the action requires prior explicit
// user confirmation: deletes always, updates when they move the event or
// change its attendees.
func (a *Action) Destructive() bool {
	switch a.Kind {
	case KindDelete:
		return true
	case KindUpdate:
		return !a.Start.IsZero() || !a.End.IsZero() || a.StartText != "" || a.EndText != "" || a.Attendees != nil
	default:
		return false
	}
}

// Resolved reports whether every ambiguous field has been converted to an
// absolute value for the action's kind.
func (a *Action) Resolved() bool {
	switch a.Kind {
	case KindCreate:
		return a.Title != "" && !a.Start.IsZero() && !a.End.IsZero()
	case KindUpdate:
		if a.EventID == "" {
			return false
		}
		// A pending new time must have been resolved.
		return a.StartText == "" || !a.Start.IsZero()
	case KindDelete:
		return a.EventID != ""
	case KindQuery:
		return !a.Start.IsZero() && !a.End.IsZero()
	default:
		return false
	}
}
