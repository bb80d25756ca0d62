package domain

import (
	"strings"
	"time"
)

// Lead is a single outreach recipient together with the schedule snapshot
// the sequence runner keeps on it.
type Lead struct {
	ID               string        `json:"id" db:"id"`
	OrganizationID   string        `json:"organization_id" db:"organization_id"`
	Email            string        `json:"email" db:"email"`
	Name             string        `json:"name" db:"name"`
	EmailSchedule    EmailSchedule `json:"email_schedule" db:"email_schedule"`
	SkippedFollowups []string      `json:"skipped_followups" db:"skipped_followups"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// EmailSchedule is the legacy per-lead schedule snapshot. Jobs are the
// authoritative record; these fields are only used when no job exists.
type EmailSchedule struct {
	InitialEmail *ScheduledEmail  `json:"initialEmail,omitempty"`
	Followups    []ScheduledEmail `json:"followups,omitempty"`
}

// ScheduledEmail is one entry of the legacy schedule snapshot.
type ScheduledEmail struct {
	Name         string     `json:"name"`
	Status       JobStatus  `json:"status"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
}

// FindFollowup returns the legacy schedule record for the named step.
// Names match case-insensitively, ignoring surrounding whitespace.
func (s EmailSchedule) FindFollowup(name string) *ScheduledEmail {
	name = strings.TrimSpace(name)
	for i := range s.Followups {
		if strings.EqualFold(strings.TrimSpace(s.Followups[i].Name), name) {
			return &s.Followups[i]
		}
	}
	return nil
}
