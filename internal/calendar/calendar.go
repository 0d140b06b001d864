// Package calendar models the date-range picker that fronts loan creation.
// It is a pure model: a month grid plus a selection state machine, with no
// rendering attached.
package calendar

import (
	"bookly/internal/domain/loan"
	"time"
)

// Day is a single selectable cell in the month grid.
type Day struct {
	Date        time.Time
	Today       bool
	Past        bool
	Unavailable bool
	Selected    bool
}

// Month is the rendered grid for one month. LeadingBlanks counts the empty
// cells before day 1 in a Sunday-first week row.
type Month struct {
	Year          int
	Month         time.Month
	LeadingBlanks int
	Days          []Day
}

// Widget holds the displayed month, the book's unavailable ranges and the
// in-progress selection. Selection runs empty → start chosen → complete;
// a click on a complete selection restarts from the clicked date.
type Widget struct {
	current     time.Time
	unavailable []loan.DateRange
	start       *time.Time
	end         *time.Time
	onSelect    func(start, end time.Time)
	now         func() time.Time
}

func NewWidget(unavailable []loan.DateRange, onSelect func(start, end time.Time)) *Widget {
	w := &Widget{
		unavailable: unavailable,
		onSelect:    onSelect,
		now:         time.Now,
	}
	today := dateOnly(w.now())
	w.current = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return w
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SetUnavailable replaces the blocked ranges, typically after refetching the
// book's loan dates.
func (w *Widget) SetUnavailable(ranges []loan.DateRange) {
	w.unavailable = ranges
}

// IsUnavailable reports whether the day falls inside any blocked range,
// bounds inclusive.
func (w *Widget) IsUnavailable(d time.Time) bool {
	d = dateOnly(d)
	for _, r := range w.unavailable {
		if !d.Before(dateOnly(r.StartDate)) && !d.After(dateOnly(r.EndDate)) {
			return true
		}
	}
	return false
}

func (w *Widget) isPast(d time.Time) bool {
	return dateOnly(d).Before(dateOnly(w.now()))
}

func (w *Widget) isSelected(d time.Time) bool {
	if w.start == nil {
		return false
	}
	d = dateOnly(d)
	if w.end == nil {
		return d.Equal(*w.start)
	}
	return !d.Before(*w.start) && !d.After(*w.end)
}

// MonthOf builds the grid for the displayed month.
func (w *Widget) MonthOf() Month {
	year, month := w.current.Year(), w.current.Month()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	today := dateOnly(w.now())

	m := Month{
		Year:          year,
		Month:         month,
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]Day, 0, daysInMonth),
	}

	for day := 1; day <= daysInMonth; day++ {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		m.Days = append(m.Days, Day{
			Date:        d,
			Today:       d.Equal(today),
			Past:        w.isPast(d),
			Unavailable: w.IsUnavailable(d),
			Selected:    w.isSelected(d),
		})
	}
	return m
}

// NextMonth moves the grid forward one month and drops any selection.
func (w *Widget) NextMonth() {
	w.current = w.current.AddDate(0, 1, 0)
	w.Clear()
}

// PrevMonth moves the grid back one month and drops any selection.
func (w *Widget) PrevMonth() {
	w.current = w.current.AddDate(0, -1, 0)
	w.Clear()
}

// Clear resets the selection to empty.
func (w *Widget) Clear() {
	w.start = nil
	w.end = nil
}

// Selection returns the current range. complete is true once both ends are
// chosen.
func (w *Widget) Selection() (start, end time.Time, complete bool) {
	if w.start != nil {
		start = *w.start
	}
	if w.end != nil {
		end = *w.end
	}
	return start, end, w.start != nil && w.end != nil
}

// Select handles a click on a day. Past and unavailable days are rejected.
// The first accepted click anchors the range; the second completes it and
// fires the callback, with a click before the anchor swapping the two ends.
// A click on a complete selection starts a new range from that day.
func (w *Widget) Select(d time.Time) bool {
	d = dateOnly(d)
	if w.isPast(d) || w.IsUnavailable(d) {
		return false
	}

	switch {
	case w.start == nil:
		w.start = &d
	case w.end == nil:
		start := *w.start
		if d.Before(start) {
			w.start, w.end = &d, &start
		} else {
			w.end = &d
		}
		if w.onSelect != nil {
			w.onSelect(*w.start, *w.end)
		}
	default:
		w.start, w.end = &d, nil
	}
	return true
}
