package domain

import (
	"strings"
	"time"
)

// JobStatus enumerates the lifecycle states reported for an email job.
type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusQueued      JobStatus = "queued"
	StatusScheduled   JobStatus = "scheduled"
	StatusRescheduled JobStatus = "rescheduled"
	StatusProcessing  JobStatus = "processing"
	StatusSent        JobStatus = "sent"
	StatusDelivered   JobStatus = "delivered"
	StatusOpened      JobStatus = "opened"
	StatusClicked     JobStatus = "clicked"
	StatusSkipped     JobStatus = "skipped"
	StatusPaused      JobStatus = "paused"
	StatusCancelled   JobStatus = "cancelled"
	StatusFailed      JobStatus = "failed"
	StatusBlocked     JobStatus = "blocked"
	StatusBounced     JobStatus = "bounced"
	StatusHardBounce  JobStatus = "hard_bounce"
	StatusSoftBounce  JobStatus = "soft_bounce"
	StatusSpam        JobStatus = "spam"
	StatusError       JobStatus = "error"
	StatusDeferred    JobStatus = "deferred"
	StatusUpcoming    JobStatus = "upcoming"
)

// Normalize lower-cases and trims a status so comparisons are case-insensitive.
func (s JobStatus) Normalize() JobStatus {
	return JobStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// IsActive reports whether the job is still waiting to be sent.
func (s JobStatus) IsActive() bool {
	switch s.Normalize() {
	case StatusPending, StatusQueued, StatusScheduled, StatusRescheduled:
		return true
	}
	return false
}

// IsSent reports whether the job reached the recipient's server at least once.
func (s JobStatus) IsSent() bool {
	switch s.Normalize() {
	case StatusSent, StatusDelivered, StatusOpened, StatusClicked:
		return true
	}
	return false
}

// IsFailure reports whether the job ended without being delivered.
func (s JobStatus) IsFailure() bool {
	switch s.Normalize() {
	case StatusCancelled, StatusFailed, StatusBlocked, StatusBounced,
		StatusHardBounce, StatusSoftBounce, StatusSpam, StatusError:
		return true
	}
	return false
}

// Job type markers used by the send pipeline.
const (
	JobTypeInitial           = "initial"
	JobTypeManual            = "manual"
	JobTypeConditionalPrefix = "conditional:"
)

// JobMetadata is the typed view of a job's free-form metadata column.
type JobMetadata struct {
	ManualMailID  string         `json:"manualMailId,omitempty"`
	TriggerEvent  string         `json:"triggerEvent,omitempty"`
	ChangedByUser bool           `json:"changedByUser,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Job is one concrete attempt to send a single email to a lead. Several jobs
// may exist for the same Type (retries, reschedules, cancellations).
type Job struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	LeadID         string      `json:"lead_id" db:"lead_id"`
	Type           string      `json:"type" db:"type"`
	Status         JobStatus   `json:"status" db:"status"`
	ScheduledFor   *time.Time  `json:"scheduled_for" db:"scheduled_for"`
	SentAt         *time.Time  `json:"sent_at" db:"sent_at"`
	ProcessedAt    *time.Time  `json:"processed_at" db:"processed_at"`
	RetryCount     int         `json:"retry_count" db:"retry_count"`
	Metadata       JobMetadata `json:"metadata" db:"metadata"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// IsConditional reports whether the job was created by a trigger rather than
// by elapsed time. The prefix is matched case-insensitively.
func (j *Job) IsConditional() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(j.Type)), JobTypeConditionalPrefix)
}

// ManualMail is an operator-authored one-off email tied to a lead.
type ManualMail struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	LeadID         string     `json:"lead_id" db:"lead_id"`
	Title          string     `json:"title" db:"title"`
	ScheduledFor   *time.Time `json:"scheduled_for" db:"scheduled_for"`
	Status         JobStatus  `json:"status" db:"status"`
	EmailJobID     *string    `json:"email_job_id" db:"email_job_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// EventHistoryEntry is an immutable audit log entry for a lead.
type EventHistoryEntry struct {
	Event     string       `json:"event" db:"event"`
	EmailType string       `json:"email_type" db:"email_type"`
	Timestamp time.Time    `json:"timestamp" db:"timestamp"`
	Details   EventDetails `json:"details" db:"details"`
}

// EventDetails carries optional context attached to a history entry.
type EventDetails struct {
	Reason string `json:"reason,omitempty"`
}
