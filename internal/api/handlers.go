package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/pkg/httputil"
	"github.com/ignite/outreach-timeline/internal/service/scheduling"
	"github.com/ignite/outreach-timeline/internal/settings"
)

// SchedulingService is the facade the handlers read from.
type SchedulingService interface {
	LeadTimeline(ctx context.Context, orgID, leadID string) (*scheduling.LeadTimeline, error)
	DaySlots(ctx context.Context, orgID, date string) (*scheduling.DaySlots, error)
	MonthLoad(ctx context.Context, orgID, month string) ([]domain.DayLoad, error)
	CheckAction(ctx context.Context, orgID string, action domain.Action, mailType string, status domain.JobStatus) (bool, error)
}

// Handlers serves the scheduling endpoints.
type Handlers struct {
	svc SchedulingService
}

// NewHandlers creates the scheduling handlers.
func NewHandlers(svc SchedulingService) *Handlers {
	return &Handlers{svc: svc}
}

// GetLeadTimeline returns the reconciled timeline of one lead.
//
//	GET /api/leads/{leadID}/timeline
func (h *Handlers) GetLeadTimeline(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	tl, err := h.svc.LeadTimeline(r.Context(), OrgID(r.Context()), leadID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, tl)
}

// GetDaySlots returns the capacity windows of one day.
//
//	GET /api/calendar/slots?date=YYYY-MM-DD
func (h *Handlers) GetDaySlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		httputil.BadRequest(w, "missing_date", "date query parameter is required")
		return
	}
	slots, err := h.svc.DaySlots(r.Context(), OrgID(r.Context()), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, slots)
}

// GetMonthLoad returns the heat-map cells of one month.
//
//	GET /api/calendar/load?month=YYYY-MM
func (h *Handlers) GetMonthLoad(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		httputil.BadRequest(w, "missing_month", "month query parameter is required")
		return
	}
	days, err := h.svc.MonthLoad(r.Context(), OrgID(r.Context()), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"month": month, "days": days})
}

// actionCheck is the response of GetActionCheck.
type actionCheck struct {
	Action  domain.Action    `json:"action"`
	Type    string           `json:"type"`
	Status  domain.JobStatus `json:"status"`
	Allowed bool             `json:"allowed"`
}

// GetActionCheck reports whether an action may be offered.
//
//	GET /api/rulebook/check?action=&type=&status=
func (h *Handlers) GetActionCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := domain.Action(strings.ToLower(strings.TrimSpace(q.Get("action"))))
	mailType := q.Get("type")
	status := domain.JobStatus(q.Get("status"))
	if action == "" || mailType == "" {
		httputil.BadRequest(w, "missing_parameter", "action and type query parameters are required")
		return
	}

	ok, err := h.svc.CheckAction(r.Context(), OrgID(r.Context()), action, mailType, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, actionCheck{Action: action, Type: mailType, Status: status, Allowed: ok})
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrLeadNotFound):
		httputil.NotFound(w, "lead_not_found", "lead not found")
	case errors.Is(err, settings.ErrSettingsNotFound):
		httputil.NotFound(w, "settings_not_found", "no outreach settings for this organization")
	case errors.Is(err, scheduling.ErrInvalidDay),
		errors.Is(err, scheduling.ErrInvalidMonth),
		errors.Is(err, scheduling.ErrUnknownAction):
		httputil.BadRequest(w, "invalid_parameter", err.Error())
	default:
		httputil.InternalError(w, r, err)
	}
}
