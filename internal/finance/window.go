package finance

import (
	"time"

	"github.com/dukerupert/fintrack/internal/model"
)

// MonthBounds returns the first and last day of the month.
func MonthBounds(year int, month time.Month) (first, last model.Date) {
	first = model.Date{Year: year, Month: month, Day: 1}
	last = model.DateOf(first.Time().AddDate(0, 1, -1))
	return first, last
}

// ActiveInMonth reports whether [start, end] overlaps the month at all. A nil
// bound is open. Overlap on a single day counts the whole month.
func ActiveInMonth(start, end *model.Date, year int, month time.Month) bool {
	first, last := MonthBounds(year, month)
	if start != nil && start.After(last) {
		return false
	}
	if end != nil && end.Before(first) {
		return false
	}
	return true
}

func InMonth(d model.Date, year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// AddMonths shifts (year, month) by n months, wrapping the year.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	idx := year*12 + int(month) - 1 + n
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return y, time.Month(m + 1)
}

// PreviousMonth returns the calendar month before the one containing now.
func PreviousMonth(now time.Time) (int, time.Month) {
	return AddMonths(now.Year(), now.Month(), -1)
}
