package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/dispatch"
	"github.com/voicecal/voicecal/internal/intent"
	"github.com/voicecal/voicecal/internal/logging"
	"github.com/voicecal/voicecal/internal/resolver"
)

// contextWindow is how far ahead the session looks when gathering events as
// extraction context.
const contextWindow = 14 * 24 * time.Hour

// Extractor derives an action draft from an utterance.
type Extractor interface {
	Extract(ctx context.Context, utt intent.Utterance, recentEvents []calendar.Event) (*intent.Action, error)
}

// ActionResolver converts a draft into a dispatchable action or a question.
type ActionResolver interface {
	Resolve(ctx context.Context, action *intent.Action, utt intent.Utterance) (*resolver.Clarification, error)
}

// Dispatcher executes resolved actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, action *intent.Action) (*dispatch.Result, error)
}

// EventLister supplies upcoming events for extraction context.
type EventLister interface {
	ListEvents(ctx context.Context, calendarID string, q calendar.Query) ([]calendar.Event, error)
}

// OutcomeKind classifies how a turn ended.
type OutcomeKind string

const (
	OutcomeApplied  OutcomeKind = "applied"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeClarify  OutcomeKind = "clarify"
	OutcomeConfirm  OutcomeKind = "confirm"
)

// Outcome is a finished turn: the reply to speak back plus how the turn
// ended.
type Outcome struct {
	TurnID  string
	Kind    OutcomeKind
	Reply   string
	EventID string
	// ActionKind is the extracted action kind, empty when the turn never got
	// past extraction.
	ActionKind string
}

// Session is one user's conversation with the assistant. Turns are processed
// strictly one at a time; pending confirmations and clarifications carry over
// to the next turn.
type Session struct {
	mu sync.Mutex

	extractor  Extractor
	resolver   ActionResolver
	dispatcher Dispatcher
	lister     EventLister

	calendarID    string
	timeZone      string
	minConfidence float64
	now           func() time.Time
	logger        *slog.Logger

	// pendingConfirm is a resolved destructive action awaiting a yes or no.
	pendingConfirm *intent.Action
	// pendingClarify is the original utterance text of a turn that ended in a
	// question; the next turn's text is appended to it before re-extraction.
	pendingClarify string
}

func NewSession(extractor Extractor, res ActionResolver, dispatcher Dispatcher, lister EventLister, calendarID, timeZone string) *Session {
	return &Session{
		extractor:  extractor,
		resolver:   res,
		dispatcher: dispatcher,
		lister:     lister,
		calendarID: calendarID,
		timeZone:   timeZone,
		now:        time.Now,
		logger:     logging.WithComponent(slog.Default(), "assistant"),
	}
}

// SetMinConfidence sets the extraction confidence below which a turn asks for
// clarification instead of proceeding. The same floor is enforced again at
// dispatch; checking it here keeps an uncertain extraction from ever reaching
// a confirmation prompt.
func (s *Session) SetMinConfidence(min float64) {
	s.minConfidence = min
}

// Process runs one conversation turn. It never returns an error for problems
// the user can fix by rephrasing; those come back as clarify outcomes.
func (s *Session) Process(ctx context.Context, text string) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turnID := uuid.NewString()
	logger := s.logger.With(logging.Turn(turnID))
	text = strings.TrimSpace(text)
	if text == "" {
		return &Outcome{TurnID: turnID, Kind: OutcomeClarify, Reply: "I didn't catch that."}, nil
	}

	if s.pendingConfirm != nil {
		if outcome := s.handleConfirmation(ctx, turnID, text, logger); outcome != nil {
			return outcome, nil
		}
		// Anything that is not a yes or no abandons the pending action.
		logger.Info("pending confirmation abandoned", logging.Operation("confirm"))
		s.pendingConfirm = nil
	}

	if s.pendingClarify != "" {
		text = s.pendingClarify + ". " + text
		s.pendingClarify = ""
	}

	utt := intent.Utterance{Text: text, Timestamp: s.now(), TimeZone: s.timeZone}
	return s.runTurn(ctx, turnID, utt, logger)
}

// handleConfirmation consumes a yes or no for the pending destructive action.
// A nil return means the reply was neither, and the turn should proceed as a
// fresh utterance.
func (s *Session) handleConfirmation(ctx context.Context, turnID, text string, logger *slog.Logger) *Outcome {
	switch strings.ToLower(text) {
	case "yes", "y", "yeah", "yep", "confirm", "ok", "okay", "sure", "do it":
		action := s.pendingConfirm
		s.pendingConfirm = nil
		action.Confirmed = true
		return s.dispatchAction(ctx, turnID, action, logger)
	case "no", "n", "nope", "cancel", "never mind", "nevermind", "stop":
		s.pendingConfirm = nil
		logger.Info("pending action cancelled", logging.Operation("confirm"))
		return &Outcome{TurnID: turnID, Kind: OutcomeRejected, Reply: "Okay, I won't do that."}
	default:
		return nil
	}
}

func (s *Session) runTurn(ctx context.Context, turnID string, utt intent.Utterance, logger *slog.Logger) (*Outcome, error) {
	recent, err := s.contextEvents(ctx, utt.Timestamp)
	if err != nil {
		// Extraction still works without context; log and continue.
		logger.Warn("context events unavailable", logging.Err(err))
	}

	action, err := s.extractor.Extract(ctx, utt, recent)
	if err != nil {
		if intent.IsExtractionError(err) {
			logger.Info("utterance not understood",
				logging.Operation("extract"), logging.Utterance(utt.Text))
			return &Outcome{
				TurnID: turnID,
				Kind:   OutcomeClarify,
				Reply:  "Sorry, I couldn't work out what you'd like me to do with your calendar. Could you rephrase?",
			}, nil
		}
		return nil, fmt.Errorf("extracting intent: %w", err)
	}
	action.IdempotencyKey = idempotencyKey(utt)

	if action.Confidence < s.minConfidence {
		logger.Info("low confidence extraction, asking instead of guessing",
			logging.Operation("extract"),
			logging.Action(string(action.Kind)),
			slog.Float64("confidence", action.Confidence))
		s.pendingClarify = utt.Text
		return &Outcome{
			TurnID:     turnID,
			Kind:       OutcomeClarify,
			Reply:      "I'm not sure I understood that correctly. Could you say it again with a bit more detail?",
			ActionKind: string(action.Kind),
		}, nil
	}

	clar, err := s.resolver.Resolve(ctx, action, utt)
	if err != nil {
		return nil, fmt.Errorf("resolving action: %w", err)
	}
	if clar != nil {
		s.pendingClarify = utt.Text
		return &Outcome{
			TurnID:     turnID,
			Kind:       OutcomeClarify,
			Reply:      renderClarification(clar),
			ActionKind: string(action.Kind),
		}, nil
	}

	if action.Destructive() && !action.Confirmed {
		s.pendingConfirm = action
		return &Outcome{
			TurnID:     turnID,
			Kind:       OutcomeConfirm,
			Reply:      confirmPrompt(action),
			ActionKind: string(action.Kind),
		}, nil
	}

	return s.dispatchAction(ctx, turnID, action, logger), nil
}

// dispatchAction executes the action and maps the result to an outcome.
// Gateway failures become rejected outcomes so the conversation can continue.
func (s *Session) dispatchAction(ctx context.Context, turnID string, action *intent.Action, logger *slog.Logger) *Outcome {
	result, err := s.dispatcher.Dispatch(ctx, action)
	if err != nil {
		logger.Error("dispatch failed",
			logging.Operation("dispatch"), logging.Action(string(action.Kind)), logging.Err(err))
		return &Outcome{
			TurnID:     turnID,
			Kind:       OutcomeRejected,
			Reply:      "Something went wrong talking to your calendar. Please try again in a moment.",
			ActionKind: string(action.Kind),
		}
	}
	if result.Status == dispatch.StatusRejected {
		return &Outcome{
			TurnID:     turnID,
			Kind:       OutcomeRejected,
			Reply:      result.Reason,
			ActionKind: string(action.Kind),
		}
	}
	return &Outcome{
		TurnID:     turnID,
		Kind:       OutcomeApplied,
		Reply:      result.Summary,
		EventID:    result.EventID,
		ActionKind: string(action.Kind),
	}
}

func (s *Session) contextEvents(ctx context.Context, now time.Time) ([]calendar.Event, error) {
	return s.lister.ListEvents(ctx, s.calendarID, calendar.Query{
		TimeMin: now,
		TimeMax: now.Add(contextWindow),
	})
}

// idempotencyKey derives a stable key from the utterance text and timestamp,
// so a retried turn creates at most one event.
func idempotencyKey(utt intent.Utterance) string {
	sum := sha256.Sum256([]byte(utt.Text + "|" + utt.Timestamp.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:16])
}

func confirmPrompt(action *intent.Action) string {
	switch action.Kind {
	case intent.KindDelete:
		return fmt.Sprintf("Delete %q? (yes/no)", targetLabel(action))
	case intent.KindUpdate:
		if !action.Start.IsZero() {
			return fmt.Sprintf("Move %q to %s? (yes/no)", targetLabel(action), action.Start.Format("Jan 2 3:04 PM"))
		}
		return fmt.Sprintf("Change %q? (yes/no)", targetLabel(action))
	default:
		return "Should I go ahead? (yes/no)"
	}
}

func targetLabel(action *intent.Action) string {
	if action.TargetText != "" {
		return action.TargetText
	}
	if action.Title != "" {
		return action.Title
	}
	return "that event"
}

func renderClarification(clar *resolver.Clarification) string {
	if len(clar.Candidates) == 0 {
		return clar.Question
	}
	var b strings.Builder
	b.WriteString(clar.Question)
	for _, ev := range clar.Candidates {
		fmt.Fprintf(&b, "\n- %s, %s", ev.Summary, ev.Start.Format("Jan 2 3:04 PM"))
	}
	return b.String()
}
