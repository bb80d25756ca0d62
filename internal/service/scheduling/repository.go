package scheduling

import (
	"context"
	"time"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// Repository reads the per-lead records the timeline is built from.
type Repository interface {
	// GetLead returns ErrLeadNotFound if the lead does not exist in the org.
	GetLead(ctx context.Context, orgID, leadID string) (*domain.Lead, error)

	// ListJobsForLead returns every job ever created for the lead, including
	// superseded retries and cancellations.
	ListJobsForLead(ctx context.Context, orgID, leadID string) ([]domain.Job, error)

	// ListJobsScheduledBetween returns jobs with scheduled_for in [from, to).
	ListJobsScheduledBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.Job, error)

	ListManualMails(ctx context.Context, orgID, leadID string) ([]domain.ManualMail, error)
}

// HistoryRepository reads a lead's audit log.
type HistoryRepository interface {
	ListEventHistory(ctx context.Context, orgID, leadID string) ([]domain.EventHistoryEntry, error)
}

// SettingsProvider returns an organization's settings snapshot.
type SettingsProvider interface {
	Get(ctx context.Context, orgID string) (*domain.Settings, error)
}
