package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/service/scheduling"
)

// OutreachRepo implements scheduling.Repository against PostgreSQL.
type OutreachRepo struct{ db *sql.DB }

// NewOutreachRepo creates a Postgres-backed outreach repository.
func NewOutreachRepo(db *sql.DB) *OutreachRepo { return &OutreachRepo{db: db} }

func (r *OutreachRepo) GetLead(ctx context.Context, orgID, leadID string) (*domain.Lead, error) {
	var (
		l        domain.Lead
		schedule []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, email, name, email_schedule, skipped_followups, created_at
		FROM outreach_leads
		WHERE id = $1 AND organization_id = $2
	`, leadID, orgID).Scan(
		&l.ID, &l.OrganizationID, &l.Email, &l.Name, &schedule,
		pq.Array(&l.SkippedFollowups), &l.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scheduling.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if err := decodeJSON(schedule, &l.EmailSchedule); err != nil {
		return nil, fmt.Errorf("decode email schedule for lead %s: %w", leadID, err)
	}
	return &l, nil
}

func (r *OutreachRepo) ListManualMails(ctx context.Context, orgID, leadID string) ([]domain.ManualMail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_id, lead_id, title, scheduled_for, status, email_job_id, created_at
		FROM outreach_manual_mails
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY created_at
	`, orgID, leadID)
	if err != nil {
		return nil, fmt.Errorf("list manual mails: %w", err)
	}
	defer rows.Close()

	var out []domain.ManualMail
	for rows.Next() {
		var (
			m         domain.ManualMail
			scheduled sql.NullTime
			jobID     sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.LeadID, &m.Title, &scheduled, &m.Status, &jobID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan manual mail: %w", err)
		}
		m.ScheduledFor = timePtr(scheduled)
		m.EmailJobID = stringPtr(jobID)
		out = append(out, m)
	}
	return out, rows.Err()
}
