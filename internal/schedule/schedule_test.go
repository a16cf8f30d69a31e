package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewPublisher/internal/domain"
)

var seoul = time.FixedZone("KST", 9*60*60)

func settings(start, end string, interval int) domain.PublishSettings {
	return domain.PublishSettings{Enabled: true, IntervalMinutes: interval, StartTime: start, EndTime: end}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, seoul)
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	cases := map[string]int{"09:00": 540, "18:30": 1110, "0:05": 5, "24:00": 0, "7": 420}
	for in, want := range cases {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "ab:00", "25:00", "10:75", "24:30"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextAvailableTime(t *testing.T) {
	t.Parallel()

	w := Window{Start: 9 * 60, End: 18 * 60}

	assert.Equal(t, at(2, 9, 0), NextAvailableTime(at(2, 7, 30), w), "before start snaps to today")
	assert.Equal(t, at(2, 10, 15), NextAvailableTime(at(2, 10, 15), w), "inside is immediate")
	assert.Equal(t, at(3, 9, 0), NextAvailableTime(at(2, 18, 0), w), "at end rolls to tomorrow")
	assert.Equal(t, at(3, 9, 0), NextAvailableTime(at(2, 23, 59), w))
}

func TestNextAvailableTimeWrappingWindow(t *testing.T) {
	t.Parallel()

	w := Window{Start: 22 * 60, End: 2 * 60}

	assert.Equal(t, at(2, 23, 0), NextAvailableTime(at(2, 23, 0), w))
	assert.Equal(t, at(2, 1, 0), NextAvailableTime(at(2, 1, 0), w))
	assert.Equal(t, at(2, 22, 0), NextAvailableTime(at(2, 12, 0), w))
	assert.Equal(t, at(2, 22, 0), NextAvailableTime(at(2, 2, 0), w))
}

func TestGenerateSlotsRollsOverDays(t *testing.T) {
	t.Parallel()

	s := settings("09:00", "12:00", 60)
	slots := GenerateSlots(5, s, at(2, 10, 30))

	require.Len(t, slots, 5)
	assert.Equal(t, at(2, 10, 30), slots[0].Date)
	assert.Equal(t, at(2, 11, 30), slots[1].Date)
	assert.Equal(t, at(3, 9, 0), slots[2].Date)
	assert.Equal(t, at(3, 10, 0), slots[3].Date)
	assert.Equal(t, at(3, 11, 0), slots[4].Date)
	for i, slot := range slots {
		assert.Equal(t, i, slot.Index)
	}
}

func TestGenerateSlotsInvariants(t *testing.T) {
	t.Parallel()

	cases := []domain.PublishSettings{
		settings("09:00", "18:00", 60),
		settings("09:00", "18:00", 45),
		settings("08:00", "09:00", 240),
		settings("22:00", "02:00", 50),
		settings("00:00", "00:00", 30),
	}
	starts := []time.Time{at(2, 0, 0), at(2, 8, 59), at(2, 13, 17), at(2, 17, 59), at(2, 23, 30)}

	for _, s := range cases {
		w := WindowOf(s)
		for _, start := range starts {
			slots := GenerateSlots(25, s, start)
			require.Len(t, slots, 25)
			for i, slot := range slots {
				assert.True(t, w.Contains(minuteOfDay(slot.Date)), "%v outside %s-%s", slot.Date, s.StartTime, s.EndTime)
				assert.False(t, slot.Date.Before(start))
				if i > 0 {
					assert.True(t, slot.Date.After(slots[i-1].Date), "slots must strictly increase")
				}
			}
		}
	}
}

func TestGenerateSlotsZeroCount(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GenerateSlots(0, settings("09:00", "18:00", 60), at(2, 9, 0)))
}

func TestCapacityAndRequiredDays(t *testing.T) {
	t.Parallel()

	s := settings("09:00", "18:00", 60)
	assert.Equal(t, 9, DailyCapacity(s))
	assert.Equal(t, 2, RequiredDays(10, s))
	assert.Equal(t, 1, RequiredDays(9, s))

	wide := settings("09:00", "10:00", 90)
	assert.Equal(t, 0, DailyCapacity(wide))
	assert.Equal(t, 0, RequiredDays(5, wide))

	wrap := settings("22:00", "02:00", 60)
	assert.Equal(t, 4, DailyCapacity(wrap))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := settings("09:00", "18:00", 120)
	slots := GenerateSlots(6, s, at(2, 9, 0))

	sum := Summarize(slots, s)
	require.NotNil(t, sum)
	assert.Equal(t, 6, sum.TotalPosts)
	assert.Equal(t, 4, sum.DailyCapacity)
	assert.Equal(t, 2, sum.RequiredDays)
	assert.Equal(t, slots[0].Date, sum.FirstPublishTime)
	assert.Equal(t, slots[5].Date, sum.LastPublishTime)
	assert.Nil(t, Summarize(nil, s))
}

func TestIsWithinWindow(t *testing.T) {
	t.Parallel()

	s := settings("09:00", "18:00", 60)
	assert.True(t, IsWithinWindow(at(2, 9, 0), s))
	assert.True(t, IsWithinWindow(at(2, 17, 59), s))
	assert.False(t, IsWithinWindow(at(2, 18, 0), s))
}
