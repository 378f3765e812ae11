package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/dukerupert/fintrack/internal/apperr"
)

const (
	minYear       = 2000
	maxYear       = 2100
	maxMonthsSpan = 24
)

var hexColorRegexp = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

func validateYearMonth(year, month int) error {
	if year < minYear || year > maxYear {
		return apperr.Validation("year must be between %d and %d", minYear, maxYear)
	}
	if month < 1 || month > 12 {
		return apperr.Validation("month must be between 1 and 12")
	}
	return nil
}

func validateSpan(name string, n int) error {
	if n < 1 || n > maxMonthsSpan {
		return apperr.Validation("%s must be between 1 and %d", name, maxMonthsSpan)
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	return name, nil
}

func validateAmount(amount int64) error {
	if amount < 0 {
		return apperr.Validation("amount must not be negative")
	}
	return nil
}

func validateColor(color string) error {
	if !hexColorRegexp.MatchString(color) {
		return apperr.Validation("color must be a hex color like #1a2b3c")
	}
	return nil
}

func monthOf(year, month int) (int, time.Month) {
	return year, time.Month(month)
}
