package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/service/scheduling"
	"github.com/ignite/outreach-timeline/internal/settings"
)

type fakeService struct {
	timeline *scheduling.LeadTimeline
	slots    *scheduling.DaySlots
	load     []domain.DayLoad
	allowed  bool
	err      error

	lastOrg    string
	lastAction domain.Action
	lastStatus domain.JobStatus
}

func (f *fakeService) LeadTimeline(_ context.Context, orgID, leadID string) (*scheduling.LeadTimeline, error) {
	f.lastOrg = orgID
	if f.err != nil {
		return nil, f.err
	}
	tl := *f.timeline
	tl.LeadID = leadID
	return &tl, nil
}

func (f *fakeService) DaySlots(_ context.Context, orgID, date string) (*scheduling.DaySlots, error) {
	f.lastOrg = orgID
	if f.err != nil {
		return nil, f.err
	}
	return f.slots, nil
}

func (f *fakeService) MonthLoad(_ context.Context, orgID, month string) ([]domain.DayLoad, error) {
	f.lastOrg = orgID
	return f.load, f.err
}

func (f *fakeService) CheckAction(_ context.Context, orgID string, action domain.Action, mailType string, status domain.JobStatus) (bool, error) {
	f.lastOrg = orgID
	f.lastAction = action
	f.lastStatus = status
	return f.allowed, f.err
}

func newTestRouter(svc SchedulingService, defaultOrg string) http.Handler {
	return NewRouter(NewHandlers(svc), NewHealthChecker(nil, nil, nil, "", "test"), RouterOptions{DefaultOrgID: defaultOrg})
}

func do(t *testing.T, h http.Handler, path, org string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if org != "" {
		req.Header.Set(OrgHeader, org)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetLeadTimeline(t *testing.T) {
	sent := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := &fakeService{timeline: &scheduling.LeadTimeline{
		Items: []domain.TimelineItem{
			{ID: "a", Type: "initial", Name: "Initial Email", Status: domain.StatusSent, SentAt: &sent},
		},
	}}
	rec := do(t, newTestRouter(svc, ""), "/api/leads/lead-1/timeline", "org-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-1", svc.lastOrg)
	body := decodeBody(t, rec)
	assert.Equal(t, "lead-1", body["leadId"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Initial Email", items[0].(map[string]any)["name"])
}

func TestGetLeadTimeline_NotFound(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("get lead: %w", scheduling.ErrLeadNotFound)}
	rec := do(t, newTestRouter(svc, ""), "/api/leads/missing/timeline", "org-1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "lead_not_found", decodeBody(t, rec)["code"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"settings missing", settings.ErrSettingsNotFound, http.StatusNotFound},
		{"bad day", scheduling.ErrInvalidDay, http.StatusBadRequest},
		{"bad month", scheduling.ErrInvalidMonth, http.StatusBadRequest},
		{"unknown action", scheduling.ErrUnknownAction, http.StatusBadRequest},
		{"anything else", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := do(t, newTestRouter(svc, ""), "/api/calendar/slots?date=2024-03-01", "org-1")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	svc := &fakeService{err: errors.New("pq: password authentication failed")}
	rec := do(t, newTestRouter(svc, ""), "/api/calendar/load?month=2024-02", "org-1")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRequireOrg(t *testing.T) {
	svc := &fakeService{slots: &scheduling.DaySlots{Date: "2024-03-01"}}

	rec := do(t, newTestRouter(svc, ""), "/api/calendar/slots?date=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_organization", decodeBody(t, rec)["code"])

	rec = do(t, newTestRouter(svc, "default-org"), "/api/calendar/slots?date=2024-03-01", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default-org", svc.lastOrg)

	rec = do(t, newTestRouter(svc, "default-org"), "/api/calendar/slots?date=2024-03-01", "org-9")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-9", svc.lastOrg)
}

func TestMissingQueryParameters(t *testing.T) {
	h := newTestRouter(&fakeService{}, "org")
	for _, path := range []string{
		"/api/calendar/slots",
		"/api/calendar/load",
		"/api/rulebook/check?type=followup",
		"/api/rulebook/check?action=skip",
	} {
		rec := do(t, h, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestGetMonthLoad(t *testing.T) {
	svc := &fakeService{load: []domain.DayLoad{
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Scheduled: 3, Capacity: 6, LoadPercent: 50},
	}}
	rec := do(t, newTestRouter(svc, ""), "/api/calendar/load?month=2024-02", "org-1")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "2024-02", body["month"])
	days := body["days"].([]any)
	require.Len(t, days, 1)
	assert.Equal(t, float64(50), days[0].(map[string]any)["loadPercent"])
}

func TestGetActionCheck(t *testing.T) {
	svc := &fakeService{allowed: true}
	rec := do(t, newTestRouter(svc, ""), "/api/rulebook/check?action=SKIP&type=First%20Followup&status=pending", "org-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ActionSkip, svc.lastAction)
	assert.Equal(t, domain.JobStatus("pending"), svc.lastStatus)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, "First Followup", body["type"])
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(&fakeService{}, "")
	req := httptest.NewRequest(http.MethodOptions, "/api/calendar/slots", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", OrgHeader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealth_AllNotConfigured(t *testing.T) {
	rec := do(t, newTestRouter(&fakeService{}, ""), "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestHealth_Readiness(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hc := NewHealthChecker(fakePinger{}, rdb, nil, "", "")
	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "up", body["checks"].(map[string]any)["redis"].(map[string]any)["status"])

	hc = NewHealthChecker(fakePinger{err: errors.New("refused")}, rdb, nil, "", "")
	rec = httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDetermineOverallStatus(t *testing.T) {
	up := ComponentCheck{Status: "up"}
	down := ComponentCheck{Status: "down", Message: "check failed: x"}

	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{"database": up, "redis": notConfigured()}))
	assert.Equal(t, "unhealthy", determineOverallStatus(map[string]ComponentCheck{"database": down, "redis": up}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{"database": up, "redis": down}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{"database": {Status: "degraded"}}))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5s", formatUptime(5*time.Second))
	assert.Equal(t, "2m 5s", formatUptime(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h 0m 0s", formatUptime(time.Hour))
	assert.Equal(t, "1d 2h 0m 0s", formatUptime(26*time.Hour))
}
