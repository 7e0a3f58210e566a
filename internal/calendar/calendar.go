package calendar

import "time"

// Calendar computes week-ending reference dates for a lookback window.
// Dates are plain UTC calendar dates; time-of-day never enters bucketing.
type Calendar struct {
	anchor time.Weekday
}

// New creates a Calendar anchored on the given weekday. Friday is the
// conventional anchor for US/EU equity weeks.
func New(anchor time.Weekday) *Calendar {
	return &Calendar{anchor: anchor}
}

// Anchor returns the configured week-ending weekday.
func (c *Calendar) Anchor() time.Weekday {
	return c.anchor
}

// Truncate strips time-of-day and normalizes to a UTC calendar date.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// MostRecentAnchor returns the most recent occurrence of the anchor weekday
// on or before asOf.
func (c *Calendar) MostRecentAnchor(asOf time.Time) time.Time {
	d := Truncate(asOf)
	offset := (int(d.Weekday()) - int(c.anchor) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// NextAnchor returns the first occurrence of the anchor weekday on or after
// the given date. This is the week-ending label a daily observation falls
// under.
func (c *Calendar) NextAnchor(date time.Time) time.Time {
	d := Truncate(date)
	offset := (int(c.anchor) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// WeekEndingDates returns lookbackWeeks week-ending dates, oldest first.
// The newest is the most recent anchor on or before asOf; each prior date
// steps back exactly one week.
func (c *Calendar) WeekEndingDates(lookbackWeeks int, asOf time.Time) []time.Time {
	if lookbackWeeks <= 0 {
		return nil
	}

	last := c.MostRecentAnchor(asOf)
	dates := make([]time.Time, lookbackWeeks)
	for i := 0; i < lookbackWeeks; i++ {
		dates[lookbackWeeks-1-i] = last.AddDate(0, 0, -7*i)
	}
	return dates
}

// CurrentPeriodBounds returns the still-open trailing partial period: from
// the last completed anchor up to asOf.
func (c *Calendar) CurrentPeriodBounds(asOf time.Time) (start, end time.Time) {
	return c.MostRecentAnchor(asOf), Truncate(asOf)
}
