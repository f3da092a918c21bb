package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// idempotencyProperty is the private extended property key that carries a
// client-generated idempotency key on created events.
const idempotencyProperty = "voicecalIdemKey"

// Draft describes a new event to create.
type Draft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string

	// IdempotencyKey deduplicates retried creates. When set, Create first
	// looks for an existing event carrying the same key and returns it
	// instead of inserting a duplicate.
	IdempotencyKey string
}

// Patch describes changes to an existing event. Zero values leave the
// corresponding field unchanged; a nil Attendees slice leaves attendees as
// they are.
type Patch struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Attendees   []string
}

// ChangesTime reports whether the patch moves the event.
func (p Patch) ChangesTime() bool {
	return !p.Start.IsZero() || !p.End.IsZero()
}

// ChangesAttendees reports whether the patch rewrites the attendee list.
func (p Patch) ChangesAttendees() bool {
	return p.Attendees != nil
}

// Event is the gateway's view of a remote calendar event. The Version field
// is the event's etag, used as the optimistic-concurrency token on mutation.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []Attendee
	Version     string
}

// Attendee identifies one event participant.
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
}

// Query selects events within a time range, optionally filtered by free text.
type Query struct {
	TimeMin time.Time
	TimeMax time.Time
	Text    string
}

// toEvent converts a Google Calendar event to the gateway representation.
func toEvent(event *calendar.Event) Event {
	if event == nil {
		return Event{}
	}

	e := Event{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Version:     event.Etag,
	}

	if event.Start != nil {
		if event.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
				e.Start = t
			}
		} else if event.Start.Date != "" {
			if t, err := time.Parse("2006-01-02", event.Start.Date); err == nil {
				e.Start = t
			}
		}
	}
	if event.End != nil {
		if event.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
				e.End = t
			}
		} else if event.End.Date != "" {
			if t, err := time.Parse("2006-01-02", event.End.Date); err == nil {
				e.End = t
			}
		}
	}

	for _, att := range event.Attendees {
		e.Attendees = append(e.Attendees, Attendee{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
		})
	}

	return e
}

// fromDraft builds the wire representation of a new event.
func fromDraft(draft Draft) *calendar.Event {
	tz := draft.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	event := &calendar.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start: &calendar.EventDateTime{
			DateTime: draft.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: draft.End.Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	for _, email := range draft.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	if draft.IdempotencyKey != "" {
		event.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{idempotencyProperty: draft.IdempotencyKey},
		}
	}

	return event
}

// applyPatch overlays patch fields onto the wire representation of an
// existing event. A patch that moves the start without stating a new end
// keeps the event's original length.
func applyPatch(existing *calendar.Event, patch Patch) {
	if !patch.Start.IsZero() && patch.End.IsZero() {
		if d, ok := eventDuration(existing); ok {
			patch.End = patch.Start.Add(d)
		}
	}

	if patch.Summary != "" {
		existing.Summary = patch.Summary
	}
	if patch.Description != "" {
		existing.Description = patch.Description
	}

	tz := patch.TimeZone
	if tz == "" && existing.Start != nil {
		tz = existing.Start.TimeZone
	}
	if tz == "" {
		tz = "UTC"
	}

	if !patch.Start.IsZero() {
		existing.Start = &calendar.EventDateTime{
			DateTime: patch.Start.Format(time.RFC3339),
			TimeZone: tz,
		}
	}
	if !patch.End.IsZero() {
		existing.End = &calendar.EventDateTime{
			DateTime: patch.End.Format(time.RFC3339),
			TimeZone: tz,
		}
	}

	if patch.Attendees != nil {
		var attendees []*calendar.EventAttendee
		for _, email := range patch.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{Email: email})
		}
		existing.Attendees = attendees
	}
}

// eventDuration derives the event's length from its wire start and end.
func eventDuration(event *calendar.Event) (time.Duration, bool) {
	if event.Start == nil || event.End == nil ||
		event.Start.DateTime == "" || event.End.DateTime == "" {
		return 0, false
	}
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil || !end.After(start) {
		return 0, false
	}
	return end.Sub(start), true
}
