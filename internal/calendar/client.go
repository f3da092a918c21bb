package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/voicecal/voicecal/internal/google"
	"github.com/voicecal/voicecal/internal/instrumentation"
	"github.com/voicecal/voicecal/internal/logging"
)

// Client is the calendar gateway: a thin, retrying adapter over the Google
// Calendar API. All mutating calls take an expected version token and fail
// with ErrConflict if the remote event changed since it was last read.
type Client struct {
	svc     *calendar.Service
	account string
	retry   RetryPolicy
	logger  *slog.Logger
}

// HasTokenForAccount checks if a valid OAuth token exists for the account.
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// GetAuthURLForAccount returns the OAuth URL for user authorization.
func GetAuthURLForAccount(account string) string {
	return google.GetAuthURLForAccount(account)
}

// NewClientForAccount creates a new calendar gateway authenticated as the
// given account, using the stored OAuth token.
func NewClientForAccount(ctx context.Context, account string, retry RetryPolicy) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:     svc,
		account: account,
		retry:   retry,
		logger:  logging.WithComponent(slog.Default(), "calendar"),
	}, nil
}

// NewClient creates a gateway for the default account.
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default", DefaultRetryPolicy())
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// Create inserts a new event. If the draft carries an idempotency key and an
// event with that key already exists, the existing event is returned instead
// of creating a duplicate; a retried create after a transport timeout is
// therefore safe.
func (c *Client) Create(ctx context.Context, calendarID string, draft Draft) (*Event, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, "create")
	defer span.End()

	if draft.IdempotencyKey != "" {
		existing, err := c.findByIdempotencyKey(ctx, calendarID, draft.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			c.logger.Info("create deduplicated by idempotency key",
				logging.Operation("create"), logging.EventID(existing.ID))
			return existing, nil
		}
	}

	var created *calendar.Event
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(calendarID, fromDraft(draft)).Context(ctx).Do()
		return err
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	span.SetAttributes(attribute.String(instrumentation.SpanAttrEventID, created.Id))
	instrumentation.SetSpanSuccess(span)
	c.logger.Info("event created", logging.Operation("create"), logging.EventID(created.Id))
	event := toEvent(created)
	return &event, nil
}

// Update applies patch to an event. expectedVersion is the event's last-known
// version token; if the remote version differs the update fails with
// ErrConflict and nothing is written.
func (c *Client) Update(ctx context.Context, calendarID, eventID string, patch Patch, expectedVersion string) (*Event, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, "update",
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	defer span.End()

	existing, err := c.getRaw(ctx, calendarID, eventID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	if expectedVersion != "" && existing.Etag != expectedVersion {
		err := fmt.Errorf("%w: event %s", ErrConflict, eventID)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	applyPatch(existing, patch)

	var updated *calendar.Event
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		updated, err = c.svc.Events.Update(calendarID, eventID, existing).Context(ctx).Do()
		return err
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	c.logger.Info("event updated", logging.Operation("update"), logging.EventID(eventID))
	event := toEvent(updated)
	return &event, nil
}

// Delete removes an event after verifying its version token.
func (c *Client) Delete(ctx context.Context, calendarID, eventID, expectedVersion string) error {
	ctx, span := instrumentation.StartCalendarSpan(ctx, "delete",
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	defer span.End()

	if expectedVersion != "" {
		existing, err := c.getRaw(ctx, calendarID, eventID)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return err
		}
		if existing.Etag != expectedVersion {
			err := fmt.Errorf("%w: event %s", ErrConflict, eventID)
			instrumentation.SetSpanError(span, err)
			return err
		}
	}

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return fmt.Errorf("failed to delete event: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	c.logger.Info("event deleted", logging.Operation("delete"), logging.EventID(eventID))
	return nil
}

// Get retrieves a single event by ID.
func (c *Client) Get(ctx context.Context, calendarID, eventID string) (*Event, error) {
	raw, err := c.getRaw(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}
	event := toEvent(raw)
	return &event, nil
}

// ForeachEvent iterates events matching the query in start-time order,
// fetching pages lazily. fn may return ErrStopIteration to stop early without
// error; remaining pages are never fetched.
func (c *Client) ForeachEvent(ctx context.Context, calendarID string, q Query, fn func(Event) error) error {
	ctx, span := instrumentation.StartCalendarSpan(ctx, "list")
	defer span.End()

	pageToken := ""
	for {
		call := c.svc.Events.List(calendarID).
			SingleEvents(true).
			OrderBy("startTime")
		if !q.TimeMin.IsZero() {
			call = call.TimeMin(q.TimeMin.Format(time.RFC3339))
		}
		if !q.TimeMax.IsZero() {
			call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
		}
		if q.Text != "" {
			call = call.Q(q.Text)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var page *calendar.Events
		err := c.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return fmt.Errorf("failed to list events: %w", err)
		}

		for _, item := range page.Items {
			if err := fn(toEvent(item)); err != nil {
				if err == ErrStopIteration {
					return nil
				}
				return err
			}
		}

		if page.NextPageToken == "" {
			instrumentation.SetSpanSuccess(span)
			return nil
		}
		pageToken = page.NextPageToken
	}
}

// ListEvents collects all events matching the query. Callers that only need
// the first match should prefer ForeachEvent.
func (c *Client) ListEvents(ctx context.Context, calendarID string, q Query) ([]Event, error) {
	var events []Event
	err := c.ForeachEvent(ctx, calendarID, q, func(e Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// PrimaryTimeZone returns the timezone of the account's primary calendar.
// Used as the fallback reference zone when an utterance neither states nor
// implies one.
func (c *Client) PrimaryTimeZone(ctx context.Context) (string, error) {
	var entry *calendar.CalendarListEntry
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		entry, err = c.svc.CalendarList.Get("primary").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get primary calendar: %w", err)
	}
	return entry.TimeZone, nil
}

func (c *Client) getRaw(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	var event *calendar.Event
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		event, err = c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return event, nil
}

// findByIdempotencyKey looks for an event carrying the given idempotency key
// in its private extended properties.
func (c *Client) findByIdempotencyKey(ctx context.Context, calendarID, key string) (*Event, error) {
	call := c.svc.Events.List(calendarID).
		PrivateExtendedProperty(idempotencyProperty + "=" + key).
		MaxResults(1)

	var page *calendar.Events
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		page, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	if len(page.Items) == 0 {
		return nil, nil
	}
	event := toEvent(page.Items[0])
	return &event, nil
}
