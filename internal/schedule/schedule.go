// Package schedule computes publish slots inside a daily time window.
package schedule

import (
	"time"

	"ReviewPublisher/internal/domain"
)

const (
	minutesPerDay          = 24 * 60
	defaultIntervalMinutes = 60
)

// Window is a daily publishing window in minutes since local midnight.
// End <= Start means the window wraps past midnight.
type Window struct {
	Start int
	End   int
}

// ParseClock converts "HH:mm" (or "HH") into minutes since midnight.
func ParseClock(value string) (int, error) {
	return domain.ParseClock(value)
}

// WindowOf derives the publishing window from settings. Unparseable clock
// values fall back to midnight; callers validate settings first with
// PublishSettings.Validate.
func WindowOf(settings domain.PublishSettings) Window {
	start, err := ParseClock(settings.StartTime)
	if err != nil {
		start = 0
	}
	end, err := ParseClock(settings.EndTime)
	if err != nil {
		end = 0
	}
	return Window{Start: start, End: end}
}

// Minutes is the length of the window.
func (w Window) Minutes() int {
	if w.End > w.Start {
		return w.End - w.Start
	}
	return w.End - w.Start + minutesPerDay
}

// Contains reports whether the minute-of-day m falls inside the window.
func (w Window) Contains(m int) bool {
	if w.End > w.Start {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func atMinute(t time.Time, dayOffset, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+dayOffset, minute/60, minute%60, 0, 0, t.Location())
}

// IsWithinWindow reports whether t lies inside the window derived from settings.
func IsWithinWindow(t time.Time, settings domain.PublishSettings) bool {
	return WindowOf(settings).Contains(minuteOfDay(t))
}

// NextAvailableTime returns t itself when it lies inside the window, otherwise
// the next window start (today if still ahead, tomorrow otherwise).
func NextAvailableTime(t time.Time, w Window) time.Time {
	m := minuteOfDay(t)
	if w.Contains(m) {
		return t
	}
	if m < w.Start {
		return atMinute(t, 0, w.Start)
	}
	return atMinute(t, 1, w.Start)
}

// GenerateSlots computes count strictly increasing publish slots starting at
// from (snapped into the window) and spaced by the configured interval. A slot
// that lands outside the window rolls to the next window start.
func GenerateSlots(count int, settings domain.PublishSettings, from time.Time) []domain.ScheduleSlot {
	if count <= 0 {
		return []domain.ScheduleSlot{}
	}

	interval := time.Duration(intervalOf(settings)) * time.Minute
	w := WindowOf(settings)

	slots := make([]domain.ScheduleSlot, 0, count)
	current := from
	for i := 0; i < count; i++ {
		current = NextAvailableTime(current, w)
		slots = append(slots, domain.ScheduleSlot{Date: current, Index: i})
		current = current.Add(interval)
	}
	return slots
}

// DailyCapacity is how many posts fit into one window at the configured interval.
func DailyCapacity(settings domain.PublishSettings) int {
	interval := settings.IntervalMinutes
	if interval <= 0 {
		return 0
	}
	return WindowOf(settings).Minutes() / interval
}

// RequiredDays is how many windows are needed to publish postCount posts.
// It is 0 when no post fits into a window.
func RequiredDays(postCount int, settings domain.PublishSettings) int {
	capacity := DailyCapacity(settings)
	if capacity == 0 || postCount <= 0 {
		return 0
	}
	return (postCount + capacity - 1) / capacity
}

// Summary describes a computed slot sequence.
type Summary struct {
	TotalPosts       int       `json:"totalPosts"`
	DailyCapacity    int       `json:"dailyCapacity"`
	RequiredDays     int       `json:"requiredDays"`
	FirstPublishTime time.Time `json:"firstPublishTime"`
	LastPublishTime  time.Time `json:"lastPublishTime"`
}

// Summarize builds a Summary for slots, or nil when there are none.
func Summarize(slots []domain.ScheduleSlot, settings domain.PublishSettings) *Summary {
	if len(slots) == 0 {
		return nil
	}
	return &Summary{
		TotalPosts:       len(slots),
		DailyCapacity:    DailyCapacity(settings),
		RequiredDays:     RequiredDays(len(slots), settings),
		FirstPublishTime: slots[0].Date,
		LastPublishTime:  slots[len(slots)-1].Date,
	}
}

func intervalOf(settings domain.PublishSettings) int {
	if settings.IntervalMinutes <= 0 {
		return defaultIntervalMinutes
	}
	return settings.IntervalMinutes
}
