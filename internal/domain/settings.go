package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// PublishSettings controls slot scheduling. StartTime and EndTime use HH:mm.
// A window whose end is not after its start wraps past midnight.
type PublishSettings struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	IntervalMinutes int    `json:"intervalMinutes" yaml:"intervalMinutes"`
	StartTime       string `json:"startTime" yaml:"startTime"`
	EndTime         string `json:"endTime" yaml:"endTime"`
}

// DefaultPublishSettings mirrors the out-of-the-box publishing behaviour.
func DefaultPublishSettings() PublishSettings {
	return PublishSettings{
		Enabled:         false,
		IntervalMinutes: 60,
		StartTime:       "09:00",
		EndTime:         "18:00",
	}
}

// Validate reports a non-positive interval or a start or end time that is
// not a valid HH:mm clock.
func (s PublishSettings) Validate() error {
	var errs []error
	if s.IntervalMinutes <= 0 {
		errs = append(errs, errors.New("publish interval must be positive"))
	}
	if _, err := ParseClock(s.StartTime); err != nil {
		errs = append(errs, fmt.Errorf("publish start time: %w", err))
	}
	if _, err := ParseClock(s.EndTime); err != nil {
		errs = append(errs, fmt.Errorf("publish end time: %w", err))
	}
	return errors.Join(errs...)
}

// ParseClock converts "HH:mm" (or "HH") into minutes since midnight. "24:00"
// is accepted as midnight.
func ParseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty time")
	}

	hourPart, minutePart, hasMinutes := strings.Cut(value, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}

	minute := 0
	if hasMinutes {
		minute, err = strconv.Atoi(minutePart)
		if err != nil || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("invalid minute in %q", value)
		}
	}

	total := hour*60 + minute
	if total > minutesPerDay {
		return 0, fmt.Errorf("time %q is past midnight", value)
	}
	return total % minutesPerDay, nil
}
