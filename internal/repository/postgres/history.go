package postgres

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// ListEventHistory returns the lead's audit log, oldest first.
func (r *OutreachRepo) ListEventHistory(ctx context.Context, orgID, leadID string) ([]domain.EventHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event, email_type, occurred_at, details
		FROM outreach_event_history
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY occurred_at
	`, orgID, leadID)
	if err != nil {
		return nil, fmt.Errorf("list event history: %w", err)
	}
	defer rows.Close()

	var out []domain.EventHistoryEntry
	for rows.Next() {
		var (
			e       domain.EventHistoryEntry
			details []byte
		)
		if err := rows.Scan(&e.Event, &e.EmailType, &e.Timestamp, &details); err != nil {
			return nil, fmt.Errorf("scan event history: %w", err)
		}
		if err := decodeJSON(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode event details: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
