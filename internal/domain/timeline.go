package domain

import "time"

// ItemCategory groups timeline items for display.
type ItemCategory string

const (
	CategoryAutomated   ItemCategory = "automated"
	CategoryManual      ItemCategory = "manual"
	CategoryConditional ItemCategory = "conditional"
)

// TimelineItem is the reconciled view of one email in a lead's timeline.
type TimelineItem struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	Category       ItemCategory       `json:"category"`
	Name           string             `json:"name"`
	Status         JobStatus          `json:"status"`
	ScheduledFor   *time.Time         `json:"scheduledFor"`
	SentAt         *time.Time         `json:"sentAt"`
	IsProjected    bool               `json:"isProjected"`
	Reason         string             `json:"reason,omitempty"`
	Condition      *FollowupCondition `json:"condition,omitempty"`
	AllowedActions map[Action]bool    `json:"allowedActions,omitempty"`
	RawData        any                `json:"rawData"`
}

// EffectiveDate returns sentAt, else scheduledFor, else false.
func (t TimelineItem) EffectiveDate() (time.Time, bool) {
	if t.SentAt != nil {
		return *t.SentAt, true
	}
	if t.ScheduledFor != nil {
		return *t.ScheduledFor, true
	}
	return time.Time{}, false
}

// Slot is one rate-limit window of a calendar day.
type Slot struct {
	Time      time.Time `json:"time"`
	End       time.Time `json:"end"`
	Scheduled int       `json:"scheduled"`
	Available int       `json:"available"`
	IsFull    bool      `json:"isFull"`
	IsLimited bool      `json:"isLimited"`
}

// DayLoad is one heat-map cell of the calendar.
type DayLoad struct {
	Date        time.Time `json:"date"`
	Scheduled   int       `json:"scheduled"`
	Capacity    int       `json:"capacity"`
	LoadPercent float64   `json:"loadPercent"`
}
