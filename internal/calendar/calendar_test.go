package calendar

import (
	"bookly/internal/domain/loan"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)
}

func newTestWidget(unavailable []loan.DateRange, onSelect func(start, end time.Time)) *Widget {
	w := NewWidget(unavailable, onSelect)
	w.now = fixedNow
	w.current = date(2025, time.June, 1)
	return w
}

func TestMonthOf(t *testing.T) {
	w := newTestWidget([]loan.DateRange{
		{StartDate: date(2025, time.June, 20), EndDate: date(2025, time.June, 25)},
	}, nil)

	m := w.MonthOf()

	if m.Year != 2025 || m.Month != time.June {
		t.Fatalf("expected June 2025, got %v %d", m.Month, m.Year)
	}
	if len(m.Days) != 30 {
		t.Errorf("expected 30 days, got %d", len(m.Days))
	}
	// June 1st 2025 is a Sunday.
	if m.LeadingBlanks != 0 {
		t.Errorf("expected 0 leading blanks, got %d", m.LeadingBlanks)
	}

	if !m.Days[14].Today {
		t.Error("expected the 15th to be flagged today")
	}
	if !m.Days[13].Past || m.Days[14].Past {
		t.Error("expected days before the 15th to be past, the 15th not")
	}
	if !m.Days[19].Unavailable || !m.Days[24].Unavailable {
		t.Error("expected the 20th through 25th to be unavailable")
	}
	if m.Days[18].Unavailable || m.Days[25].Unavailable {
		t.Error("expected days outside the blocked range to be available")
	}
}

func TestMonthOfLeadingBlanks(t *testing.T) {
	w := newTestWidget(nil, nil)
	w.current = date(2025, time.July, 1)

	m := w.MonthOf()

	// July 1st 2025 is a Tuesday.
	if m.LeadingBlanks != 2 {
		t.Errorf("expected 2 leading blanks, got %d", m.LeadingBlanks)
	}
	if len(m.Days) != 31 {
		t.Errorf("expected 31 days, got %d", len(m.Days))
	}
}

func TestSelectRange(t *testing.T) {
	var gotStart, gotEnd time.Time
	var fired int
	w := newTestWidget(nil, func(start, end time.Time) {
		gotStart, gotEnd = start, end
		fired++
	})

	if !w.Select(date(2025, time.June, 20)) {
		t.Fatal("expected first click to be accepted")
	}
	if _, _, complete := w.Selection(); complete {
		t.Error("selection should not be complete after one click")
	}

	if !w.Select(date(2025, time.June, 25)) {
		t.Fatal("expected second click to be accepted")
	}

	start, end, complete := w.Selection()
	if !complete {
		t.Fatal("selection should be complete after two clicks")
	}
	if !start.Equal(date(2025, time.June, 20)) || !end.Equal(date(2025, time.June, 25)) {
		t.Errorf("unexpected range %v - %v", start, end)
	}
	if fired != 1 || !gotStart.Equal(start) || !gotEnd.Equal(end) {
		t.Errorf("callback fired %d times with %v - %v", fired, gotStart, gotEnd)
	}
}

func TestSelectEarlierDateSwapsEnds(t *testing.T) {
	var fired int
	w := newTestWidget(nil, func(start, end time.Time) { fired++ })

	w.Select(date(2025, time.June, 25))
	w.Select(date(2025, time.June, 20))

	start, end, complete := w.Selection()
	if !complete {
		t.Fatal("selection should be complete")
	}
	if !start.Equal(date(2025, time.June, 20)) || !end.Equal(date(2025, time.June, 25)) {
		t.Errorf("expected swapped range 20th-25th, got %v - %v", start, end)
	}
	if fired != 1 {
		t.Errorf("expected callback to fire once, fired %d times", fired)
	}
}

func TestThirdClickRestartsSelection(t *testing.T) {
	w := newTestWidget(nil, nil)

	w.Select(date(2025, time.June, 20))
	w.Select(date(2025, time.June, 22))
	w.Select(date(2025, time.June, 27))

	start, _, complete := w.Selection()
	if complete {
		t.Error("third click should leave an incomplete selection")
	}
	if !start.Equal(date(2025, time.June, 27)) {
		t.Errorf("expected new anchor on the 27th, got %v", start)
	}
}

func TestSelectRejectsPastAndUnavailable(t *testing.T) {
	w := newTestWidget([]loan.DateRange{
		{StartDate: date(2025, time.June, 20), EndDate: date(2025, time.June, 25)},
	}, nil)

	if w.Select(date(2025, time.June, 10)) {
		t.Error("expected past date to be rejected")
	}
	if w.Select(date(2025, time.June, 22)) {
		t.Error("expected unavailable date to be rejected")
	}
	if start, _, _ := w.Selection(); !start.IsZero() {
		t.Error("rejected clicks must not anchor a selection")
	}

	// Today itself is selectable.
	if !w.Select(date(2025, time.June, 15)) {
		t.Error("expected today to be selectable")
	}
}

func TestMonthNavigationClearsSelection(t *testing.T) {
	w := newTestWidget(nil, nil)

	w.Select(date(2025, time.June, 20))
	w.NextMonth()

	if start, _, _ := w.Selection(); !start.IsZero() {
		t.Error("expected month navigation to clear the selection")
	}

	m := w.MonthOf()
	if m.Month != time.July {
		t.Errorf("expected July after NextMonth, got %v", m.Month)
	}

	w.PrevMonth()
	if m := w.MonthOf(); m.Month != time.June {
		t.Errorf("expected June after PrevMonth, got %v", m.Month)
	}
}

func TestSelectedFlagsInGrid(t *testing.T) {
	w := newTestWidget(nil, nil)

	w.Select(date(2025, time.June, 20))
	w.Select(date(2025, time.June, 22))

	m := w.MonthOf()
	for day := 20; day <= 22; day++ {
		if !m.Days[day-1].Selected {
			t.Errorf("expected the %dth to be flagged selected", day)
		}
	}
	if m.Days[18].Selected || m.Days[22].Selected {
		t.Error("expected days outside the range to be unselected")
	}
}
