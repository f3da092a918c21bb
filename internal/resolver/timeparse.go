package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)

var inRe = regexp.MustCompile(`^in (\d+) (minute|minutes|min|mins|hour|hours|hr|hrs|day|days)$`)

// ParseTime resolves a spoken time expression to an absolute instant. now is
// the moment the expression was uttered; loc is the timezone for wall-clock
// interpretation. Accepted forms: RFC3339, YYYY-MM-DD, today / tomorrow /
// yesterday, a weekday name (optionally "next <weekday>"), "in N
// minutes/hours/days", and clock times (3pm, 3:30pm, 15:04, noon, midnight),
// alone or combined with a day expression in either order.
func ParseTime(text string, now time.Time, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", text, loc); err == nil {
		return t, nil
	}

	norm := strings.ToLower(text)
	norm = strings.ReplaceAll(norm, ",", " ")
	// "2 pm" and "2pm" are the same token.
	norm = strings.ReplaceAll(norm, " am", "am")
	norm = strings.ReplaceAll(norm, " pm", "pm")

	if m := inRe.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "min"):
			return now.In(loc).Add(time.Duration(n) * time.Minute), nil
		case strings.HasPrefix(m[2], "h"):
			return now.In(loc).Add(time.Duration(n) * time.Hour), nil
		default:
			return dayStart(now.In(loc).AddDate(0, 0, n), loc), nil
		}
	}

	var (
		dayOffset  int
		haveDay    bool
		hour, min  int
		haveClock  bool
		nextPrefix bool
	)
	local := now.In(loc)

	for _, tok := range strings.Fields(norm) {
		switch tok {
		case "at", "on", "the", "this":
			continue
		case "next":
			nextPrefix = true
			continue
		case "today":
			dayOffset, haveDay = 0, true
			continue
		case "tomorrow":
			dayOffset, haveDay = 1, true
			continue
		case "yesterday":
			dayOffset, haveDay = -1, true
			continue
		case "noon":
			hour, min, haveClock = 12, 0, true
			continue
		case "midnight":
			hour, min, haveClock = 0, 0, true
			continue
		}
		if wd, ok := weekdays[tok]; ok {
			dayOffset = int(wd-local.Weekday()+7) % 7
			if dayOffset == 0 {
				dayOffset = 7
			}
			haveDay = true
			continue
		}
		if h, m, ok := parseClock(tok); ok {
			hour, min, haveClock = h, m, true
			continue
		}
		return time.Time{}, fmt.Errorf("unrecognized time expression %q", text)
	}
	_ = nextPrefix // "next friday" resolves to the same upcoming friday

	if !haveDay && !haveClock {
		return time.Time{}, fmt.Errorf("unrecognized time expression %q", text)
	}

	base := dayStart(local.AddDate(0, 0, dayOffset), loc)
	if !haveClock {
		return base, nil
	}
	t := base.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
	if !haveDay && !t.After(local) {
		// A bare clock time that already passed means the next occurrence.
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// parseClock accepts 3pm, 3:30pm, 15:04. A bare number without am/pm or a
// colon is rejected as ambiguous.
func parseClock(tok string) (hour, min int, ok bool) {
	m := clockRe.FindStringSubmatch(tok)
	if m == nil {
		return 0, 0, false
	}
	if m[2] == "" && m[3] == "" {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	if min > 59 {
		return 0, 0, false
	}
	switch m[3] {
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}
	return hour, min, true
}

// dayStart returns midnight of t's calendar day in loc. Constructed with
// time.Date so DST transitions land on the correct wall-clock midnight.
func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
