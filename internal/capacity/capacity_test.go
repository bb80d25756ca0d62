package capacity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-timeline/internal/domain"
)

func at(hour, minute int) *time.Time {
	t := time.Date(2024, 3, 12, hour, minute, 0, 0, time.UTC)
	return &t
}

func job(status domain.JobStatus, when *time.Time) domain.Job {
	return domain.Job{ID: fmt.Sprintf("job-%s-%v", status, when), Status: status, ScheduledFor: when}
}

var (
	day       = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	yesterday = time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	rate2per15 = domain.RateLimitConfig{EmailsPerWindow: 2, WindowMinutes: 15}
)

func findSlot(t *testing.T, slots []domain.Slot, hour, minute int) domain.Slot {
	t.Helper()
	for _, s := range slots {
		if s.Time.Hour() == hour && s.Time.Minute() == minute {
			return s
		}
	}
	t.Fatalf("no slot at %02d:%02d", hour, minute)
	return domain.Slot{}
}

func TestComputeSlots_OneActiveJobLimitsWindow(t *testing.T) {
	slots := ComputeSlots(Request{
		Day:                 day,
		RateLimit:           rate2per15,
		Jobs:                []domain.Job{job(domain.StatusScheduled, at(9, 5))},
		SlotIntervalMinutes: 15,
		Now:                 yesterday,
	})

	s := findSlot(t, slots, 9, 0)
	assert.Equal(t, 1, s.Scheduled)
	assert.Equal(t, 1, s.Available)
	assert.True(t, s.IsLimited)
	assert.False(t, s.IsFull)

	next := findSlot(t, slots, 9, 15)
	assert.Equal(t, 0, next.Scheduled)
	assert.Equal(t, 2, next.Available)
	assert.False(t, next.IsLimited)
}

func TestComputeSlots_DefaultBusinessHoursPartition(t *testing.T) {
	slots := ComputeSlots(Request{Day: day, RateLimit: rate2per15, SlotIntervalMinutes: 15, Now: yesterday})

	// 06:00 → 24:00 in 15 minute windows
	require.Len(t, slots, 18*4)
	assert.Equal(t, *at(6, 0), slots[0].Time)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), slots[len(slots)-1].End)
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, slots[i-1].End, slots[i].Time, "windows must neither overlap nor gap")
	}
}

func TestComputeSlots_BoundaryBelongsToStartingWindow(t *testing.T) {
	slots := ComputeSlots(Request{
		Day:                 day,
		RateLimit:           rate2per15,
		Jobs:                []domain.Job{job(domain.StatusQueued, at(9, 15))},
		SlotIntervalMinutes: 15,
		Now:                 yesterday,
	})
	assert.Equal(t, 0, findSlot(t, slots, 9, 0).Scheduled)
	assert.Equal(t, 1, findSlot(t, slots, 9, 15).Scheduled)
}

func TestComputeSlots_OnlyActiveJobsOnTheDayCount(t *testing.T) {
	otherDay := time.Date(2024, 3, 13, 9, 5, 0, 0, time.UTC)
	slots := ComputeSlots(Request{
		Day:       day,
		RateLimit: rate2per15,
		Jobs: []domain.Job{
			job(domain.StatusSent, at(9, 1)),
			job(domain.StatusCancelled, at(9, 2)),
			job(domain.StatusPaused, at(9, 3)),
			job(domain.StatusRescheduled, at(9, 4)),
			job(domain.StatusPending, &otherDay),
			{ID: "unscheduled", Status: domain.StatusPending},
		},
		SlotIntervalMinutes: 15,
		Now:                 yesterday,
	})
	assert.Equal(t, 1, findSlot(t, slots, 9, 0).Scheduled)
}

func TestComputeSlots_OverbookedWindowIsFull(t *testing.T) {
	jobs := []domain.Job{
		job(domain.StatusScheduled, at(10, 0)),
		job(domain.StatusScheduled, at(10, 1)),
		job(domain.StatusScheduled, at(10, 14)),
	}
	slots := ComputeSlots(Request{Day: day, RateLimit: rate2per15, Jobs: jobs, SlotIntervalMinutes: 15, Now: yesterday})

	s := findSlot(t, slots, 10, 0)
	assert.Equal(t, 3, s.Scheduled)
	assert.Equal(t, 0, s.Available)
	assert.True(t, s.IsFull)
	assert.False(t, s.IsLimited)
}

func TestComputeSlots_AvailablePlusScheduledInvariant(t *testing.T) {
	for limit := 1; limit <= 4; limit++ {
		for n := 0; n <= 6; n++ {
			jobs := make([]domain.Job, 0, n)
			for i := 0; i < n; i++ {
				jobs = append(jobs, job(domain.StatusPending, at(12, i)))
			}
			rl := domain.RateLimitConfig{EmailsPerWindow: limit, WindowMinutes: 15}
			s := findSlot(t, ComputeSlots(Request{Day: day, RateLimit: rl, Jobs: jobs, SlotIntervalMinutes: 15, Now: yesterday}), 12, 0)
			if s.Scheduled <= limit {
				assert.Equal(t, limit, s.Available+s.Scheduled, "limit=%d n=%d", limit, n)
			} else {
				assert.Equal(t, 0, s.Available, "limit=%d n=%d", limit, n)
			}
		}
	}
}

func TestComputeSlots_TodaySkipsElapsedWindows(t *testing.T) {
	now := time.Date(2024, 3, 12, 9, 5, 0, 0, time.UTC)
	slots := ComputeSlots(Request{Day: day, RateLimit: rate2per15, SlotIntervalMinutes: 15, Now: now})

	require.NotEmpty(t, slots)
	// 09:00 started before now, so the first remaining window is 09:15
	assert.Equal(t, *at(9, 15), slots[0].Time)

	exact := time.Date(2024, 3, 12, 9, 15, 0, 0, time.UTC)
	slots = ComputeSlots(Request{Day: day, RateLimit: rate2per15, SlotIntervalMinutes: 15, Now: exact})
	assert.Equal(t, *at(9, 15), slots[0].Time, "a window starting exactly now is not elapsed")
}

func TestComputeSlots_CustomHoursAndRemainder(t *testing.T) {
	slots := ComputeSlots(Request{
		Day:                 day,
		RateLimit:           domain.RateLimitConfig{EmailsPerWindow: 5, WindowMinutes: 45},
		BusinessHours:       domain.BusinessHours{Start: 9, End: 11},
		SlotIntervalMinutes: 0, // falls back to the rate window
		Now:                 yesterday,
	})
	// 120 minutes hold two whole 45 minute windows; the 30 minute tail is dropped
	require.Len(t, slots, 2)
	assert.Equal(t, *at(9, 0), slots[0].Time)
	assert.Equal(t, *at(9, 45), slots[1].Time)
}

func TestComputeSlots_UsesDayLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	localDay := time.Date(2024, 3, 12, 0, 0, 0, 0, ny)
	// 13:05 UTC is 09:05 in New York (EDT)
	when := time.Date(2024, 3, 12, 13, 5, 0, 0, time.UTC)

	slots := ComputeSlots(Request{
		Day:                 localDay,
		RateLimit:           rate2per15,
		Jobs:                []domain.Job{job(domain.StatusScheduled, &when)},
		SlotIntervalMinutes: 15,
		Now:                 yesterday,
	})
	assert.Equal(t, 1, findSlot(t, slots, 9, 0).Scheduled)
}

func TestDayCapacity(t *testing.T) {
	assert.Equal(t, 72*2, DayCapacity(domain.BusinessHours{}, rate2per15, 15))
	assert.Equal(t, 2*5, DayCapacity(domain.BusinessHours{Start: 9, End: 11}, domain.RateLimitConfig{EmailsPerWindow: 5, WindowMinutes: 45}, 0))
	assert.Equal(t, 0, DayCapacity(domain.BusinessHours{}, domain.RateLimitConfig{EmailsPerWindow: 5}, 0))
}

func TestMonthLoad(t *testing.T) {
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	march := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		job(domain.StatusScheduled, &d3),
		job(domain.StatusPending, &d3),
		job(domain.StatusSent, &d3),
		job(domain.StatusScheduled, &march),
	}
	rl := domain.RateLimitConfig{EmailsPerWindow: 1, WindowMinutes: 60}

	cells := MonthLoad(feb, domain.BusinessHours{Start: 8, End: 12}, rl, 60, jobs)
	require.Len(t, cells, 29)
	assert.Equal(t, 2, cells[2].Scheduled)
	assert.Equal(t, 4, cells[2].Capacity)
	assert.InDelta(t, 50.0, cells[2].LoadPercent, 0.001)
	assert.Equal(t, 0, cells[28].Scheduled)
}
