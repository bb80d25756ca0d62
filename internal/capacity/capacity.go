// Package capacity computes per-window send capacity for calendar days under
// a rate limit.
package capacity

import (
	"time"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// Request describes one day's slot computation. Day's location is the
// calendar's time zone; Now decides which of today's windows have elapsed.
type Request struct {
	Day                 time.Time
	RateLimit           domain.RateLimitConfig
	BusinessHours       domain.BusinessHours
	Jobs                []domain.Job
	SlotIntervalMinutes int
	Now                 time.Time
}

func (r Request) interval() time.Duration {
	minutes := r.SlotIntervalMinutes
	if minutes <= 0 {
		minutes = r.RateLimit.WindowMinutes
	}
	if minutes <= 0 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}

// dayBounds returns the start and end instants of the business day.
// An end hour of 24 normalizes to the next midnight.
func dayBounds(day time.Time, bh domain.BusinessHours) (time.Time, time.Time) {
	loc := day.Location()
	y, m, d := day.Date()
	return time.Date(y, m, d, bh.Start, 0, 0, 0, loc), time.Date(y, m, d, bh.End, 0, 0, 0, loc)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ComputeSlots partitions the business day into whole windows and reports
// how many active jobs each already holds. Windows of today that started
// before Now are left out. A trailing remainder shorter than the interval
// is not emitted.
func ComputeSlots(req Request) []domain.Slot {
	bh := req.BusinessHours.OrDefault()
	interval := req.interval()
	loc := req.Day.Location()
	start, end := dayBounds(req.Day, bh)
	isToday := sameDate(req.Day, req.Now.In(loc))

	// Bucket active jobs of this calendar date by window index.
	counts := make(map[int]int)
	for i := range req.Jobs {
		j := &req.Jobs[i]
		if j.ScheduledFor == nil || !j.Status.IsActive() {
			continue
		}
		at := j.ScheduledFor.In(loc)
		if !sameDate(at, req.Day) || at.Before(start) || !at.Before(end) {
			continue
		}
		counts[int(at.Sub(start)/interval)]++
	}

	limit := req.RateLimit.EmailsPerWindow
	var slots []domain.Slot
	for idx, ws := 0, start; !ws.Add(interval).After(end); idx, ws = idx+1, ws.Add(interval) {
		if isToday && ws.Before(req.Now) {
			continue
		}
		scheduled := counts[idx]
		available := limit - scheduled
		if available < 0 {
			available = 0
		}
		slots = append(slots, domain.Slot{
			Time:      ws,
			End:       ws.Add(interval),
			Scheduled: scheduled,
			Available: available,
			IsFull:    available == 0,
			IsLimited: available > 0 && available < limit,
		})
	}
	return slots
}

// DayCapacity is the nominal number of sends a business day can hold. It
// is only used for relative load, never as a hard cap.
func DayCapacity(bh domain.BusinessHours, rl domain.RateLimitConfig, slotIntervalMinutes int) int {
	bh = bh.OrDefault()
	if slotIntervalMinutes <= 0 {
		slotIntervalMinutes = rl.WindowMinutes
	}
	if slotIntervalMinutes <= 0 {
		return 0
	}
	return (bh.Minutes() / slotIntervalMinutes) * rl.EmailsPerWindow
}

// MonthLoad returns one heat-map cell per calendar day of month's month,
// counting active jobs scheduled on each day. LoadPercent may exceed 100.
func MonthLoad(month time.Time, bh domain.BusinessHours, rl domain.RateLimitConfig, slotIntervalMinutes int, jobs []domain.Job) []domain.DayLoad {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()
	capacity := DayCapacity(bh, rl, slotIntervalMinutes)

	perDay := make([]int, days+1)
	for i := range jobs {
		j := &jobs[i]
		if j.ScheduledFor == nil || !j.Status.IsActive() {
			continue
		}
		at := j.ScheduledFor.In(loc)
		if at.Year() != first.Year() || at.Month() != first.Month() {
			continue
		}
		perDay[at.Day()]++
	}

	out := make([]domain.DayLoad, 0, days)
	for d := 1; d <= days; d++ {
		cell := domain.DayLoad{
			Date:      time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, loc),
			Scheduled: perDay[d],
			Capacity:  capacity,
		}
		if capacity > 0 {
			cell.LoadPercent = float64(perDay[d]) / float64(capacity) * 100
		}
		out = append(out, cell)
	}
	return out
}
