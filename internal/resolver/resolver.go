package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/intent"
	"github.com/voicecal/voicecal/internal/logging"
)

const (
	// targetWindow is how far ahead free-text target matching looks when the
	// user gave no time hint.
	targetWindow = 14 * 24 * time.Hour

	// targetSlack widens a stated target time to tolerate imprecise recall
	// ("my 3pm" matching a 2:55 event).
	targetSlack = 15 * time.Minute

	maxCandidates = 5
)

// Gateway is the calendar surface the resolver needs: event enumeration for
// target matching and the account timezone as the last fallback for relative
// time resolution. Satisfied by *calendar.Client.
type Gateway interface {
	ForeachEvent(ctx context.Context, calendarID string, q calendar.Query, fn func(calendar.Event) error) error
	PrimaryTimeZone(ctx context.Context) (string, error)
}

// Clarification is a question back to the user instead of a resolved action.
// Candidates carries the ambiguous matches, when any, so the conversation
// loop can list them.
type Clarification struct {
	Question   string
	Candidates []calendar.Event
}

// Resolver converts an extracted action draft into a dispatchable action:
// relative times become absolute instants and free-text targets become event
// IDs with version tokens. Ambiguity is never guessed away; it comes back as
// a Clarification.
type Resolver struct {
	gateway    Gateway
	calendarID string
	logger     *slog.Logger
}

func New(gateway Gateway, calendarID string) *Resolver {
	return &Resolver{
		gateway:    gateway,
		calendarID: calendarID,
		logger:     logging.WithComponent(slog.Default(), "resolver"),
	}
}

// Resolve mutates action in place. A nil, nil return means the action is
// fully resolved; a non-nil Clarification means the user must answer before
// the action can proceed. The error return is reserved for gateway failures.
func (r *Resolver) Resolve(ctx context.Context, action *intent.Action, utt intent.Utterance) (*Clarification, error) {
	loc, err := r.location(ctx, action, utt)
	if err != nil {
		return nil, err
	}

	switch action.Kind {
	case intent.KindCreate:
		return r.resolveCreate(action, utt, loc)
	case intent.KindQuery:
		return r.resolveQuery(action, utt, loc)
	case intent.KindUpdate, intent.KindDelete:
		return r.resolveTargeted(ctx, action, utt, loc)
	default:
		return nil, fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

func (r *Resolver) resolveCreate(action *intent.Action, utt intent.Utterance, loc *time.Location) (*Clarification, error) {
	if action.Title == "" {
		return &Clarification{Question: "What should the event be called?"}, nil
	}
	if action.Start.IsZero() {
		if action.StartText == "" {
			return &Clarification{Question: "When should the event start?"}, nil
		}
		start, err := ParseTime(action.StartText, utt.Timestamp, loc)
		if err != nil {
			return &Clarification{Question: fmt.Sprintf("I couldn't understand the time %q. When should the event start?", action.StartText)}, nil
		}
		action.Start = start
	}
	if action.End.IsZero() {
		if action.EndText != "" {
			end, err := ParseTime(action.EndText, utt.Timestamp, loc)
			if err == nil && end.After(action.Start) {
				action.End = end
			} else {
				r.logger.Warn("end time not understood, falling back to duration",
					logging.Operation("resolve"),
					slog.String("end", action.EndText), logging.Err(err))
			}
		}
		if action.End.IsZero() {
			minutes := action.DurationMinutes
			if minutes <= 0 {
				minutes = 60
			}
			action.End = action.Start.Add(time.Duration(minutes) * time.Minute)
		}
	}
	if action.TimeZone == "" {
		action.TimeZone = loc.String()
	}
	return nil, nil
}

func (r *Resolver) resolveQuery(action *intent.Action, utt intent.Utterance, loc *time.Location) (*Clarification, error) {
	day := utt.Timestamp.In(loc)
	if action.StartText != "" {
		t, err := ParseTime(action.StartText, utt.Timestamp, loc)
		if err != nil {
			return &Clarification{Question: fmt.Sprintf("I couldn't understand the date %q. Which day do you mean?", action.StartText)}, nil
		}
		day = t
	}
	days := action.DaysAhead
	if days <= 0 {
		days = 1
	}
	action.Start = dayStart(day, loc)
	action.End = action.Start.AddDate(0, 0, days)
	return nil, nil
}

func (r *Resolver) resolveTargeted(ctx context.Context, action *intent.Action, utt intent.Utterance, loc *time.Location) (*Clarification, error) {
	var matched *calendar.Event
	if action.EventID == "" {
		if action.TargetText == "" {
			return &Clarification{Question: "Which event do you mean?"}, nil
		}

		matches, err := r.findCandidates(ctx, action, utt, loc)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return &Clarification{Question: fmt.Sprintf("I couldn't find an event matching %q. Which event do you mean?", action.TargetText)}, nil
		case 1:
			action.EventID = matches[0].ID
			action.EventVersion = matches[0].Version
			matched = &matches[0]
		default:
			if len(matches) > maxCandidates {
				matches = matches[:maxCandidates]
			}
			return &Clarification{
				Question:   fmt.Sprintf("I found %d events matching %q. Which one do you mean?", len(matches), action.TargetText),
				Candidates: matches,
			}, nil
		}
	}

	if action.Kind == intent.KindUpdate {
		if action.StartText != "" && action.Start.IsZero() {
			start, err := ParseTime(action.StartText, utt.Timestamp, loc)
			if err != nil {
				return &Clarification{Question: fmt.Sprintf("I couldn't understand the new time %q. When should it be?", action.StartText)}, nil
			}
			action.Start = start
		}
		if action.EndText != "" && action.End.IsZero() {
			end, err := ParseTime(action.EndText, utt.Timestamp, loc)
			if err == nil {
				action.End = end
			} else {
				r.logger.Warn("end time not understood, keeping computed end",
					logging.Operation("resolve"),
					slog.String("end", action.EndText), logging.Err(err))
			}
		}
		if !action.Start.IsZero() && action.End.IsZero() {
			switch {
			case action.DurationMinutes > 0:
				action.End = action.Start.Add(time.Duration(action.DurationMinutes) * time.Minute)
			case matched != nil && matched.End.After(matched.Start):
				// Moving only the start keeps the event's original length.
				action.End = action.Start.Add(matched.End.Sub(matched.Start))
			}
		}
		if action.Start.IsZero() && action.End.IsZero() && action.DurationMinutes > 0 && matched != nil {
			// A duration-only change shortens or extends the event in place.
			action.End = matched.Start.Add(time.Duration(action.DurationMinutes) * time.Minute)
		}
	}
	return nil, nil
}

// findCandidates enumerates upcoming events and keeps those whose summary
// matches the spoken target. A stated target time ("my 3pm") narrows the
// window to that instant plus slack on both sides.
func (r *Resolver) findCandidates(ctx context.Context, action *intent.Action, utt intent.Utterance, loc *time.Location) ([]calendar.Event, error) {
	q := calendar.Query{
		TimeMin: utt.Timestamp,
		TimeMax: utt.Timestamp.Add(targetWindow),
	}
	if action.TargetTimeText != "" {
		if t, err := ParseTime(action.TargetTimeText, utt.Timestamp, loc); err == nil {
			q.TimeMin = t.Add(-targetSlack)
			q.TimeMax = t.Add(targetSlack)
		}
	}

	toks := targetTokens(action.TargetText)
	var matches []calendar.Event
	err := r.gateway.ForeachEvent(ctx, r.calendarID, q, func(ev calendar.Event) error {
		if summaryMatches(toks, ev.Summary) {
			matches = append(matches, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing events for target match: %w", err)
	}
	r.logger.Debug("target matched",
		logging.Operation("resolve"),
		slog.String("target", action.TargetText),
		slog.Int("matches", len(matches)))
	return matches, nil
}

// location picks the timezone for relative time resolution: the action's
// stated zone, then the utterance's, then the primary calendar's, then UTC.
func (r *Resolver) location(ctx context.Context, action *intent.Action, utt intent.Utterance) (*time.Location, error) {
	for _, name := range []string{action.TimeZone, utt.TimeZone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, nil
		}
		r.logger.Warn("unknown timezone, falling back", slog.String("timezone", name))
	}
	if name, err := r.gateway.PrimaryTimeZone(ctx); err == nil && name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, nil
		}
	}
	return time.UTC, nil
}

// targetStopwords are filler words that carry no matching signal.
var targetStopwords = map[string]bool{
	"the": true, "my": true, "a": true, "an": true, "that": true,
	"meeting": true, "event": true, "appointment": true,
	"with": true, "on": true, "at": true, "for": true,
}

func targetTokens(target string) []string {
	var toks []string
	for _, tok := range strings.Fields(strings.ToLower(target)) {
		tok = strings.Trim(tok, ".,!?'\"")
		if tok == "" || targetStopwords[tok] {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

// summaryMatches reports whether every meaningful target token appears in the
// event summary. An empty token list matches anything; the time window is
// then the only filter.
func summaryMatches(targetToks []string, summary string) bool {
	s := strings.ToLower(summary)
	for _, tok := range targetToks {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}
