package scheduling

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/pkg/logger"
)

// memRepo is an in-memory repository for testing.
type memRepo struct {
	mu      sync.RWMutex
	leads   map[string]*domain.Lead // keyed by "orgID:leadID"
	jobs    []domain.Job
	mails   []domain.ManualMail
	history []domain.EventHistoryEntry
	jobsErr error
	ranges  [][2]time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{leads: make(map[string]*domain.Lead)}
}

func (m *memRepo) addLead(l domain.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.OrganizationID+":"+l.ID] = &l
}

func (m *memRepo) GetLead(_ context.Context, orgID, leadID string) (*domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[orgID+":"+leadID]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memRepo) ListJobsForLead(_ context.Context, orgID, leadID string) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.jobsErr != nil {
		return nil, m.jobsErr
	}
	var out []domain.Job
	for _, j := range m.jobs {
		if j.OrganizationID == orgID && j.LeadID == leadID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memRepo) ListJobsScheduledBetween(_ context.Context, orgID string, from, to time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranges = append(m.ranges, [2]time.Time{from, to})
	var out []domain.Job
	for _, j := range m.jobs {
		if j.OrganizationID != orgID || j.ScheduledFor == nil {
			continue
		}
		if !j.ScheduledFor.Before(from) && j.ScheduledFor.Before(to) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memRepo) ListManualMails(_ context.Context, orgID, leadID string) ([]domain.ManualMail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ManualMail
	for _, mm := range m.mails {
		if mm.OrganizationID == orgID && mm.LeadID == leadID {
			out = append(out, mm)
		}
	}
	return out, nil
}

func (m *memRepo) ListEventHistory(_ context.Context, _, _ string) ([]domain.EventHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history, nil
}

type staticSettings map[string]domain.Settings

func (s staticSettings) Get(_ context.Context, orgID string) (*domain.Settings, error) {
	st, ok := s[orgID]
	if !ok {
		return nil, errors.New("settings not found")
	}
	return &st, nil
}

const (
	testOrgID  = "org-001"
	testLeadID = "lead-001"
)

var fixedNow = time.Date(2024, 3, 12, 9, 5, 0, 0, time.UTC)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func baseSettings() domain.Settings {
	return domain.Settings{
		RateLimit: domain.RateLimitConfig{EmailsPerWindow: 2, WindowMinutes: 15},
		Followups: []domain.FollowupDefinition{
			{Name: "First Followup", Order: 1, DelayDays: 2},
			{Name: "Second Followup", Order: 2, DelayDays: 3},
		},
	}
}

func newTestService(repo *memRepo, settings staticSettings) *Service {
	return NewService(repo, repo, settings, WithClock(func() time.Time { return fixedNow }))
}

func TestLeadTimeline_ReconcilesAndAnnotates(t *testing.T) {
	repo := newMemRepo()
	repo.addLead(domain.Lead{
		ID: testLeadID, OrganizationID: testOrgID,
		EmailSchedule: domain.EmailSchedule{
			InitialEmail: &domain.ScheduledEmail{Status: domain.StatusSent, SentAt: at("2024-03-01T10:00:00Z")},
		},
	})
	repo.jobs = []domain.Job{
		{ID: "j1", OrganizationID: testOrgID, LeadID: testLeadID, Type: "First Followup", Status: domain.StatusFailed, ScheduledFor: at("2024-03-03T10:00:00Z")},
		{ID: "other-lead", OrganizationID: testOrgID, LeadID: "lead-002", Type: "First Followup", Status: domain.StatusScheduled},
	}
	repo.history = []domain.EventHistoryEntry{
		{Event: "failed", EmailType: "First Followup", Timestamp: *at("2024-03-03T10:01:00Z"), Details: domain.EventDetails{Reason: "mailbox full"}},
	}
	svc := newTestService(repo, staticSettings{testOrgID: baseSettings()})

	got, err := svc.LeadTimeline(context.Background(), testOrgID, testLeadID)
	if err != nil {
		t.Fatalf("LeadTimeline: %v", err)
	}
	if got.Degraded {
		t.Error("expected a non-degraded timeline when definitions are configured")
	}
	if !got.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, fixedNow)
	}
	if len(got.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(got.Items))
	}

	first := got.Items[1]
	if first.ID != "j1" || first.Reason != "mailbox full" {
		t.Errorf("first followup = %+v", first)
	}
	if !first.AllowedActions[domain.ActionRetry] {
		t.Error("failed followup should allow retry")
	}
	if first.AllowedActions[domain.ActionSkip] {
		t.Error("failed followup should not allow skip")
	}

	second := got.Items[2]
	if !second.IsProjected || !second.ScheduledFor.Equal(*at("2024-03-04T10:00:00Z")) {
		t.Errorf("second followup = %+v", second)
	}
	if second.AllowedActions[domain.ActionSkip] {
		t.Error("upcoming is not an active status, skip should be denied")
	}
}

func TestLeadTimeline_DegradedIsReportedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	repo := newMemRepo()
	repo.addLead(domain.Lead{
		ID: testLeadID, OrganizationID: testOrgID,
		EmailSchedule: domain.EmailSchedule{
			Followups: []domain.ScheduledEmail{{Name: "X", Status: domain.StatusPending}},
		},
	})
	st := baseSettings()
	st.Followups = nil
	svc := newTestService(repo, staticSettings{testOrgID: st})

	got, err := svc.LeadTimeline(context.Background(), testOrgID, testLeadID)
	if err != nil {
		t.Fatalf("LeadTimeline: %v", err)
	}
	if !got.Degraded {
		t.Error("expected Degraded when no definitions are configured")
	}
	if len(got.Items) != 1 || got.Items[0].Type != "X" {
		t.Fatalf("items = %+v, want the derived step X", got.Items)
	}
	if !strings.Contains(buf.String(), `"level":"WARN"`) || !strings.Contains(buf.String(), testLeadID) {
		t.Errorf("expected a WARN entry naming the lead, got %q", buf.String())
	}
}

func TestLeadTimeline_Errors(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, staticSettings{testOrgID: baseSettings()})

	_, err := svc.LeadTimeline(context.Background(), testOrgID, "missing")
	if !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("err = %v, want ErrLeadNotFound", err)
	}

	repo.addLead(domain.Lead{ID: testLeadID, OrganizationID: testOrgID})
	boom := errors.New("connection reset")
	repo.jobsErr = boom
	_, err = svc.LeadTimeline(context.Background(), testOrgID, testLeadID)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestLeadTimeline_WithoutHistory(t *testing.T) {
	repo := newMemRepo()
	repo.addLead(domain.Lead{ID: testLeadID, OrganizationID: testOrgID})
	svc := NewService(repo, nil, staticSettings{testOrgID: baseSettings()}, WithClock(func() time.Time { return fixedNow }))

	got, err := svc.LeadTimeline(context.Background(), testOrgID, testLeadID)
	if err != nil {
		t.Fatalf("LeadTimeline: %v", err)
	}
	if len(got.Items) != 2 {
		t.Errorf("got %d items, want 2 projected steps", len(got.Items))
	}
}

func TestDaySlots(t *testing.T) {
	repo := newMemRepo()
	repo.jobs = []domain.Job{
		{ID: "a", OrganizationID: testOrgID, Status: domain.StatusScheduled, ScheduledFor: at("2024-03-12T09:20:00Z")},
		{ID: "b", OrganizationID: testOrgID, Status: domain.StatusScheduled, ScheduledFor: at("2024-03-13T09:20:00Z")},
	}
	svc := newTestService(repo, staticSettings{testOrgID: baseSettings()})

	got, err := svc.DaySlots(context.Background(), testOrgID, "2024-03-12")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	if got.Capacity != 144 {
		t.Errorf("Capacity = %d, want 144", got.Capacity)
	}
	// now is 09:05, so the first remaining window is 09:15
	if len(got.Slots) == 0 || got.Slots[0].Time.Hour() != 9 || got.Slots[0].Time.Minute() != 15 {
		t.Fatalf("first slot = %+v", got.Slots)
	}
	if got.Slots[0].Scheduled != 1 || !got.Slots[0].IsLimited {
		t.Errorf("09:15 slot = %+v, want one scheduled", got.Slots[0])
	}
	if r := repo.ranges[0]; !r[1].Equal(r[0].AddDate(0, 0, 1)) {
		t.Errorf("queried range %v, want one day", r)
	}
}

func TestDaySlots_UsesOrganizationTimezone(t *testing.T) {
	repo := newMemRepo()
	st := baseSettings()
	st.Timezone = "America/New_York"
	svc := newTestService(repo, staticSettings{testOrgID: st})

	got, err := svc.DaySlots(context.Background(), testOrgID, "2024-03-20")
	if err != nil {
		t.Fatalf("DaySlots: %v", err)
	}
	if got.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", got.Timezone)
	}
	if got.Slots[0].Time.Location().String() != "America/New_York" || got.Slots[0].Time.Hour() != 6 {
		t.Errorf("first slot %v, want 06:00 New York", got.Slots[0].Time)
	}
}

func TestDaySlots_InvalidDay(t *testing.T) {
	svc := newTestService(newMemRepo(), staticSettings{testOrgID: baseSettings()})
	_, err := svc.DaySlots(context.Background(), testOrgID, "12/03/2024")
	if !errors.Is(err, ErrInvalidDay) {
		t.Errorf("err = %v, want ErrInvalidDay", err)
	}
}

func TestMonthLoad(t *testing.T) {
	repo := newMemRepo()
	repo.jobs = []domain.Job{
		{ID: "a", OrganizationID: testOrgID, Status: domain.StatusPending, ScheduledFor: at("2024-02-29T10:00:00Z")},
	}
	svc := newTestService(repo, staticSettings{testOrgID: baseSettings()})

	cells, err := svc.MonthLoad(context.Background(), testOrgID, "2024-02")
	if err != nil {
		t.Fatalf("MonthLoad: %v", err)
	}
	if len(cells) != 29 {
		t.Fatalf("got %d cells, want 29", len(cells))
	}
	if cells[28].Scheduled != 1 {
		t.Errorf("Feb 29 scheduled = %d, want 1", cells[28].Scheduled)
	}

	if _, err := svc.MonthLoad(context.Background(), testOrgID, "2024-13"); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("err = %v, want ErrInvalidMonth", err)
	}
}

func TestCheckAction(t *testing.T) {
	st := baseSettings()
	st.Rulebook.MailTypes = map[domain.MailTypeClass]domain.RulebookPermissions{
		domain.ClassManual: {CanSkip: true},
	}
	svc := newTestService(newMemRepo(), staticSettings{testOrgID: st})
	ctx := context.Background()

	ok, err := svc.CheckAction(ctx, testOrgID, domain.ActionRetry, "First Followup", domain.StatusFailed)
	if err != nil || !ok {
		t.Errorf("retry failed followup = %v, %v; want true", ok, err)
	}
	ok, err = svc.CheckAction(ctx, testOrgID, domain.ActionSkip, "manual", domain.StatusPending)
	if err != nil || !ok {
		t.Errorf("skip manual with override = %v, %v; want true", ok, err)
	}
	if _, err := svc.CheckAction(ctx, testOrgID, "archive", "manual", domain.StatusPending); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
	if _, err := svc.CheckAction(ctx, "org-unknown", domain.ActionSkip, "manual", domain.StatusPending); err == nil {
		t.Error("expected an error for an org without settings")
	}
}
