package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/outreach-timeline/internal/domain"
)

const jobColumns = `id, organization_id, lead_id, type, status, scheduled_for, sent_at,
		       processed_at, retry_count, metadata, created_at`

func (r *OutreachRepo) ListJobsForLead(ctx context.Context, orgID, leadID string) ([]domain.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM outreach_email_jobs
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY created_at
	`, orgID, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *OutreachRepo) ListJobsScheduledBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM outreach_email_jobs
		WHERE organization_id = $1 AND scheduled_for >= $2 AND scheduled_for < $3
		ORDER BY scheduled_for
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list scheduled jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]domain.Job, error) {
	var out []domain.Job
	for rows.Next() {
		var (
			j                          domain.Job
			scheduled, sent, processed sql.NullTime
			metadata                   []byte
		)
		if err := rows.Scan(
			&j.ID, &j.OrganizationID, &j.LeadID, &j.Type, &j.Status,
			&scheduled, &sent, &processed, &j.RetryCount, &metadata, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.ScheduledFor = timePtr(scheduled)
		j.SentAt = timePtr(sent)
		j.ProcessedAt = timePtr(processed)
		if err := decodeJSON(metadata, &j.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for job %s: %w", j.ID, err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
