package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/intent"
)

type fakeGateway struct {
	events    []calendar.Event
	timeZone  string
	err       error
	lastQuery calendar.Query
}

func (f *fakeGateway) ForeachEvent(ctx context.Context, calendarID string, q calendar.Query, fn func(calendar.Event) error) error {
	f.lastQuery = q
	if f.err != nil {
		return f.err
	}
	for _, ev := range f.events {
		if !q.TimeMin.IsZero() && ev.Start.Before(q.TimeMin) {
			continue
		}
		if !q.TimeMax.IsZero() && ev.Start.After(q.TimeMax) {
			continue
		}
		if err := fn(ev); err != nil {
			if errors.Is(err, calendar.ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (f *fakeGateway) PrimaryTimeZone(ctx context.Context) (string, error) {
	if f.timeZone == "" {
		return "UTC", nil
	}
	return f.timeZone, nil
}

func nyUtterance(t *testing.T, text string) intent.Utterance {
	t.Helper()
	return intent.Utterance{
		Text:      text,
		Timestamp: mustTime(t, "2024-06-10T09:00:00-04:00"),
		TimeZone:  "America/New_York",
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestResolve_CreateRelativeTime(t *testing.T) {
	r := New(&fakeGateway{}, "primary")
	action := &intent.Action{
		Kind:            intent.KindCreate,
		Title:           "Call with Maria",
		StartText:       "tomorrow at 2pm",
		DurationMinutes: 60,
	}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "schedule a call with Maria tomorrow at 2pm"))
	require.NoError(t, err)
	require.Nil(t, clar)

	ny, _ := time.LoadLocation("America/New_York")
	assert.True(t, action.Start.Equal(time.Date(2024, 6, 11, 14, 0, 0, 0, ny)), "got %s", action.Start)
	assert.True(t, action.End.Equal(time.Date(2024, 6, 11, 15, 0, 0, 0, ny)))
	assert.True(t, action.Resolved())
}

func TestResolve_CreateDefaultDuration(t *testing.T) {
	r := New(&fakeGateway{}, "primary")
	action := &intent.Action{Kind: intent.KindCreate, Title: "Dentist", StartText: "friday at 3pm"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "dentist friday at 3pm"))
	require.NoError(t, err)
	require.Nil(t, clar)
	assert.Equal(t, time.Hour, action.End.Sub(action.Start))
}

func TestResolve_CreateMissingFields(t *testing.T) {
	r := New(&fakeGateway{}, "primary")

	clar, err := r.Resolve(context.Background(),
		&intent.Action{Kind: intent.KindCreate, StartText: "tomorrow"}, nyUtterance(t, "schedule something"))
	require.NoError(t, err)
	require.NotNil(t, clar)
	assert.Contains(t, clar.Question, "called")

	clar, err = r.Resolve(context.Background(),
		&intent.Action{Kind: intent.KindCreate, Title: "Standup"}, nyUtterance(t, "schedule standup"))
	require.NoError(t, err)
	require.NotNil(t, clar)
	assert.Contains(t, clar.Question, "start")
}

func TestResolve_CreateUnparseableTime(t *testing.T) {
	r := New(&fakeGateway{}, "primary")
	action := &intent.Action{Kind: intent.KindCreate, Title: "Sync", StartText: "whenever works"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "sync whenever works"))
	require.NoError(t, err)
	require.NotNil(t, clar)
	assert.Contains(t, clar.Question, "whenever works")
}

func TestResolve_QueryWindow(t *testing.T) {
	r := New(&fakeGateway{}, "primary")
	action := &intent.Action{Kind: intent.KindQuery, StartText: "tomorrow", DaysAhead: 1}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "what's on tomorrow?"))
	require.NoError(t, err)
	require.Nil(t, clar)

	ny, _ := time.LoadLocation("America/New_York")
	assert.True(t, action.Start.Equal(time.Date(2024, 6, 11, 0, 0, 0, 0, ny)))
	assert.True(t, action.End.Equal(time.Date(2024, 6, 12, 0, 0, 0, 0, ny)))
}

func TestResolve_DeleteSingleMatch(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	gw := &fakeGateway{events: []calendar.Event{
		{ID: "ev1", Summary: "Dentist", Start: time.Date(2024, 6, 12, 15, 0, 0, 0, ny), Version: "\"etag1\""},
		{ID: "ev2", Summary: "Standup", Start: time.Date(2024, 6, 11, 9, 30, 0, 0, ny), Version: "\"etag2\""},
	}}
	r := New(gw, "primary")
	action := &intent.Action{Kind: intent.KindDelete, TargetText: "the dentist appointment"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "cancel the dentist appointment"))
	require.NoError(t, err)
	require.Nil(t, clar)
	assert.Equal(t, "ev1", action.EventID)
	assert.Equal(t, "\"etag1\"", action.EventVersion)
	assert.True(t, action.Resolved())
}

func TestResolve_AmbiguousTargetListsCandidates(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	gw := &fakeGateway{events: []calendar.Event{
		{ID: "ev1", Summary: "Standup", Start: time.Date(2024, 6, 11, 9, 30, 0, 0, ny)},
		{ID: "ev2", Summary: "Standup", Start: time.Date(2024, 6, 12, 9, 30, 0, 0, ny)},
	}}
	r := New(gw, "primary")
	action := &intent.Action{Kind: intent.KindDelete, TargetText: "standup"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "cancel the standup"))
	require.NoError(t, err)
	require.NotNil(t, clar, "two matches must not be guessed between")
	assert.Len(t, clar.Candidates, 2)
	assert.Empty(t, action.EventID)
}

func TestResolve_NoMatch(t *testing.T) {
	gw := &fakeGateway{}
	r := New(gw, "primary")
	action := &intent.Action{Kind: intent.KindDelete, TargetText: "budget review"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "cancel the budget review"))
	require.NoError(t, err)
	require.NotNil(t, clar)
	assert.Contains(t, clar.Question, "budget review")
	assert.Empty(t, clar.Candidates)
}

func TestResolve_TargetTimeNarrowsWindow(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	gw := &fakeGateway{events: []calendar.Event{
		{ID: "morning", Summary: "Standup", Start: time.Date(2024, 6, 10, 9, 30, 0, 0, ny)},
		{ID: "afternoon", Summary: "Standup", Start: time.Date(2024, 6, 10, 15, 0, 0, 0, ny)},
	}}
	r := New(gw, "primary")
	action := &intent.Action{Kind: intent.KindDelete, TargetText: "standup", TargetTimeText: "3pm"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "cancel my 3pm standup"))
	require.NoError(t, err)
	require.Nil(t, clar)
	assert.Equal(t, "afternoon", action.EventID)
	assert.Equal(t, 30*time.Minute, gw.lastQuery.TimeMax.Sub(gw.lastQuery.TimeMin))
}

func TestResolve_UpdateNewTime(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	gw := &fakeGateway{events: []calendar.Event{
		{ID: "ev1", Summary: "Design review", Start: time.Date(2024, 6, 11, 10, 0, 0, 0, ny), Version: "\"v7\""},
	}}
	r := New(gw, "primary")
	action := &intent.Action{
		Kind:            intent.KindUpdate,
		TargetText:      "design review",
		StartText:       "friday at 3pm",
		DurationMinutes: 30,
	}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "move the design review to friday at 3pm"))
	require.NoError(t, err)
	require.Nil(t, clar)
	assert.Equal(t, "ev1", action.EventID)
	assert.True(t, action.Start.Equal(time.Date(2024, 6, 14, 15, 0, 0, 0, ny)))
	assert.True(t, action.End.Equal(time.Date(2024, 6, 14, 15, 30, 0, 0, ny)))
}

func TestResolve_UpdateStartOnlyKeepsDuration(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	gw := &fakeGateway{events: []calendar.Event{
		{
			ID:      "ev1",
			Summary: "Design review",
			Start:   time.Date(2024, 6, 10, 15, 0, 0, 0, ny),
			End:     time.Date(2024, 6, 10, 16, 0, 0, 0, ny),
			Version: "\"v7\"",
		},
	}}
	r := New(gw, "primary")
	action := &intent.Action{
		Kind:       intent.KindUpdate,
		TargetText: "design review",
		StartText:  "5pm",
	}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "move the design review to 5pm"))
	require.NoError(t, err)
	require.Nil(t, clar)
	assert.True(t, action.Start.Equal(time.Date(2024, 6, 10, 17, 0, 0, 0, ny)), "got %s", action.Start)
	assert.True(t, action.End.Equal(time.Date(2024, 6, 10, 18, 0, 0, 0, ny)),
		"moving only the start must keep the one-hour length, got %s", action.End)
	assert.True(t, action.End.After(action.Start))
}

func TestResolve_UpdateDurationOnly(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	gw := &fakeGateway{events: []calendar.Event{
		{
			ID:      "ev1",
			Summary: "Design review",
			Start:   time.Date(2024, 6, 11, 10, 0, 0, 0, ny),
			End:     time.Date(2024, 6, 11, 11, 0, 0, 0, ny),
			Version: "\"v7\"",
		},
	}}
	r := New(gw, "primary")
	action := &intent.Action{
		Kind:            intent.KindUpdate,
		TargetText:      "design review",
		DurationMinutes: 30,
	}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "shorten the design review to 30 minutes"))
	require.NoError(t, err)
	require.Nil(t, clar)
	assert.True(t, action.Start.IsZero(), "start stays untouched")
	assert.True(t, action.End.Equal(time.Date(2024, 6, 11, 10, 30, 0, 0, ny)),
		"duration applies against the event's current start, got %s", action.End)
}

func TestResolve_GatewayErrorPropagates(t *testing.T) {
	gw := &fakeGateway{err: errors.New("backend down")}
	r := New(gw, "primary")
	action := &intent.Action{Kind: intent.KindDelete, TargetText: "standup"}

	clar, err := r.Resolve(context.Background(), action, nyUtterance(t, "cancel the standup"))
	require.Error(t, err)
	assert.Nil(t, clar)
}

func TestResolve_PrimaryTimeZoneFallback(t *testing.T) {
	gw := &fakeGateway{timeZone: "Europe/Berlin"}
	r := New(gw, "primary")
	action := &intent.Action{Kind: intent.KindCreate, Title: "Lunch", StartText: "tomorrow at noon"}
	utt := intent.Utterance{
		Text:      "lunch tomorrow at noon",
		Timestamp: mustTime(t, "2024-06-10T09:00:00Z"),
	}

	clar, err := r.Resolve(context.Background(), action, utt)
	require.NoError(t, err)
	require.Nil(t, clar)

	berlin, _ := time.LoadLocation("Europe/Berlin")
	assert.True(t, action.Start.Equal(time.Date(2024, 6, 11, 12, 0, 0, 0, berlin)), "got %s", action.Start)
	assert.Equal(t, "Europe/Berlin", action.TimeZone)
}

func TestSummaryMatches(t *testing.T) {
	tests := []struct {
		target  string
		summary string
		want    bool
	}{
		{"the dentist appointment", "Dentist", true},
		{"standup", "Daily Standup", true},
		{"my 1:1 with alex", "1:1 Alex / Jordan", true},
		{"budget review", "Design review", false},
		{"standup", "Dentist", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, summaryMatches(targetTokens(tt.target), tt.summary),
			"target %q vs summary %q", tt.target, tt.summary)
	}
}
