package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/instrumentation"
	"github.com/voicecal/voicecal/internal/logging"
)

// maxContextEvents bounds the number of recent events included in the prompt.
const maxContextEvents = 20

// ChatCompleter is the model boundary: a single request/response call per
// extraction. Satisfied by *openai.Client; tests inject fakes.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor turns an utterance into a CalendarAction draft by asking the
// model to pick one of the calendar tools and filling its arguments.
type Extractor struct {
	client  ChatCompleter
	model   string
	retry   calendar.RetryPolicy
	logger  *slog.Logger
	maxCtx  int
	metrics *instrumentation.Metrics
}

// NewExtractor creates an extractor using the given model client. The retry
// policy applies to transport failures only; semantic failures (unparseable
// model output) are never retried.
func NewExtractor(client ChatCompleter, model string, retry calendar.RetryPolicy) *Extractor {
	return &Extractor{
		client: client,
		model:  model,
		retry:  retry,
		logger: logging.WithComponent(slog.Default(), "intent"),
		maxCtx: maxContextEvents,
	}
}

// SetMetrics enables model request metrics. A nil recorder disables them.
func (e *Extractor) SetMetrics(m *instrumentation.Metrics) {
	e.metrics = m
}

// SetContextEvents overrides how many recent events the prompt may carry.
// Non-positive values leave the default in place.
func (e *Extractor) SetContextEvents(n int) {
	if n > 0 {
		e.maxCtx = n
	}
}

// Extract derives a structured action draft from the utterance. recentEvents
// provides disambiguation context and is capped to bound prompt size. The
// returned action may carry unresolved relative times and free-text targets.
func (e *Extractor) Extract(ctx context.Context, utt Utterance, recentEvents []calendar.Event) (*Action, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.systemPrompt(utt, recentEvents)},
			{Role: openai.ChatMessageRoleUser, Content: utt.Text},
		},
		Tools:      calendarTools(),
		ToolChoice: "required",
	}

	var resp openai.ChatCompletionResponse
	operation := func() error {
		attemptCtx := ctx
		if e.retry.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.retry.Timeout)
			defer cancel()
		}

		var err error
		resp, err = e.client.CreateChatCompletion(attemptCtx, req)
		if err == nil {
			return nil
		}
		if isTransientModelErr(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	if e.retry.InitialInterval > 0 {
		bo.InitialInterval = e.retry.InitialInterval
	}
	start := time.Now()
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, e.retry.MaxRetries), ctx))
	if e.metrics != nil {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		e.metrics.RecordModelRequest(ctx, e.model, status, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	action, err := parseResponse(resp)
	if err != nil {
		e.logger.Warn("model output rejected",
			logging.Operation("extract"), logging.Utterance(utt.Text), logging.Err(err))
		return nil, err
	}

	if action.TimeZone == "" {
		action.TimeZone = utt.TimeZone
	}

	e.logger.Debug("action extracted",
		logging.Operation("extract"),
		logging.Action(string(action.Kind)),
		slog.Float64("confidence", action.Confidence))
	return action, nil
}

// systemPrompt carries the current timestamp (for relative date resolution)
// and a bounded window of recent events as disambiguation context.
func (e *Extractor) systemPrompt(utt Utterance, recentEvents []calendar.Event) string {
	var b strings.Builder
	b.WriteString("You are a calendar assistant. Extract exactly one calendar action from the user's request by calling one tool.\n")
	fmt.Fprintf(&b, "Current time: %s\n", utt.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Current weekday: %s\n", utt.Timestamp.Weekday())
	if utt.TimeZone != "" {
		fmt.Fprintf(&b, "User timezone: %s\n", utt.TimeZone)
	}
	b.WriteString("Pass time expressions through as the user said them ('tomorrow at 2pm'); do not invent absolute dates.\n")

	if len(recentEvents) > 0 {
		n := len(recentEvents)
		if n > e.maxCtx {
			n = e.maxCtx
		}
		b.WriteString("Upcoming events on the user's calendar:\n")
		for _, ev := range recentEvents[:n] {
			fmt.Fprintf(&b, "- %q at %s\n", ev.Summary, ev.Start.Format("Mon Jan 2 15:04"))
		}
	}
	return b.String()
}

// parseResponse validates the model's tool call against the action schema.
// Anything that does not match a known tool with its required fields is an
// ExtractionError.
func parseResponse(resp openai.ChatCompletionResponse) (*Action, error) {
	if len(resp.Choices) == 0 {
		return nil, &ExtractionError{Reason: "model returned no choices"}
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, &ExtractionError{Reason: "model did not select a calendar action"}
	}
	call := calls[0]

	switch call.Function.Name {
	case toolCreateEvent:
		return parseCreate(call.Function.Arguments)
	case toolUpdateEvent:
		return parseUpdate(call.Function.Arguments)
	case toolDeleteEvent:
		return parseDelete(call.Function.Arguments)
	case toolListEvents:
		return parseList(call.Function.Arguments)
	default:
		return nil, &ExtractionError{Reason: fmt.Sprintf("unknown action %q", call.Function.Name)}
	}
}

type createArgs struct {
	Title           string   `json:"title"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	DurationMinutes int      `json:"duration_minutes"`
	Description     string   `json:"description"`
	Attendees       []string `json:"attendees"`
	TimeZone        string   `json:"timezone"`
	Confidence      *float64 `json:"confidence"`
}

func parseCreate(raw string) (*Action, error) {
	var args createArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &ExtractionError{Reason: "malformed create_event arguments", Err: err}
	}
	if args.Title == "" {
		return nil, &ExtractionError{Reason: "create_event missing title"}
	}
	if args.Start == "" {
		return nil, &ExtractionError{Reason: "create_event missing start"}
	}
	conf, err := validConfidence(args.Confidence)
	if err != nil {
		return nil, err
	}

	duration := args.DurationMinutes
	if duration <= 0 {
		duration = 60
	}

	return &Action{
		Kind:            KindCreate,
		Title:           args.Title,
		StartText:       args.Start,
		EndText:         args.End,
		DurationMinutes: duration,
		Description:     args.Description,
		Attendees:       args.Attendees,
		TimeZone:        args.TimeZone,
		Confidence:      conf,
	}, nil
}

type updateArgs struct {
	Target          string   `json:"target"`
	TargetTime      string   `json:"target_time"`
	NewTitle        string   `json:"new_title"`
	NewStart        string   `json:"new_start"`
	NewEnd          string   `json:"new_end"`
	DurationMinutes int      `json:"duration_minutes"`
	Attendees       []string `json:"attendees"`
	TimeZone        string   `json:"timezone"`
	Confidence      *float64 `json:"confidence"`
}

func parseUpdate(raw string) (*Action, error) {
	var args updateArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &ExtractionError{Reason: "malformed update_event arguments", Err: err}
	}
	if args.Target == "" {
		return nil, &ExtractionError{Reason: "update_event missing target"}
	}
	if args.NewTitle == "" && args.NewStart == "" && args.NewEnd == "" &&
		args.DurationMinutes == 0 && args.Attendees == nil {
		return nil, &ExtractionError{Reason: "update_event changes nothing"}
	}
	conf, err := validConfidence(args.Confidence)
	if err != nil {
		return nil, err
	}

	return &Action{
		Kind:            KindUpdate,
		TargetText:      args.Target,
		TargetTimeText:  args.TargetTime,
		Title:           args.NewTitle,
		StartText:       args.NewStart,
		EndText:         args.NewEnd,
		DurationMinutes: args.DurationMinutes,
		Attendees:       args.Attendees,
		TimeZone:        args.TimeZone,
		Confidence:      conf,
	}, nil
}

type deleteArgs struct {
	Target     string   `json:"target"`
	TargetTime string   `json:"target_time"`
	TimeZone   string   `json:"timezone"`
	Confidence *float64 `json:"confidence"`
}

func parseDelete(raw string) (*Action, error) {
	var args deleteArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &ExtractionError{Reason: "malformed delete_event arguments", Err: err}
	}
	if args.Target == "" {
		return nil, &ExtractionError{Reason: "delete_event missing target"}
	}
	conf, err := validConfidence(args.Confidence)
	if err != nil {
		return nil, err
	}

	return &Action{
		Kind:           KindDelete,
		TargetText:     args.Target,
		TargetTimeText: args.TargetTime,
		TimeZone:       args.TimeZone,
		Confidence:     conf,
	}, nil
}

type listArgs struct {
	Date       string   `json:"date"`
	DaysAhead  int      `json:"days_ahead"`
	Confidence *float64 `json:"confidence"`
}

func parseList(raw string) (*Action, error) {
	var args listArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &ExtractionError{Reason: "malformed list_events arguments", Err: err}
	}
	if args.Date == "" {
		return nil, &ExtractionError{Reason: "list_events missing date"}
	}
	conf, err := validConfidence(args.Confidence)
	if err != nil {
		return nil, err
	}

	days := args.DaysAhead
	if days <= 0 {
		days = 1
	}

	return &Action{
		Kind:       KindQuery,
		StartText:  args.Date,
		DaysAhead:  days,
		Confidence: conf,
	}, nil
}

func validConfidence(c *float64) (float64, error) {
	if c == nil {
		return 0, &ExtractionError{Reason: "missing confidence"}
	}
	if *c < 0 || *c > 1 {
		return 0, &ExtractionError{Reason: fmt.Sprintf("confidence %f out of range", *c)}
	}
	return *c, nil
}

// isTransientModelErr reports whether a model request failure is a transport
// problem worth retrying. Semantic/auth failures are not.
func isTransientModelErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 408, apiErr.HTTPStatusCode == 429:
			return true
		case apiErr.HTTPStatusCode >= 500:
			return true
		default:
			return false
		}
	}

	// Transport-level failures (connection errors) arrive untyped.
	return true
}
