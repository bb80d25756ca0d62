package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/outreach-timeline/internal/capacity"
	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/pkg/logger"
	"github.com/ignite/outreach-timeline/internal/rulebook"
	"github.com/ignite/outreach-timeline/internal/timeline"
)

// Defaults fill settings fields an organization left unset.
type Defaults struct {
	Timezone            string
	SlotIntervalMinutes int
	BusinessHours       domain.BusinessHours
}

// Service implements the scheduling facade. It is safe for concurrent use.
type Service struct {
	repo     Repository
	history  HistoryRepository
	settings SettingsProvider
	defaults Defaults
	namer    *timeline.Namer
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaults sets the fallbacks for unset settings fields.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// NewService creates a scheduling service. history may be nil when no audit
// log is available.
func NewService(repo Repository, history HistoryRepository, settings SettingsProvider, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		history:  history,
		settings: settings,
		defaults: Defaults{Timezone: "UTC"},
		namer:    timeline.NewNamer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LeadTimeline is the reconciled timeline of one lead.
type LeadTimeline struct {
	LeadID string                `json:"leadId"`
	Items  []domain.TimelineItem `json:"items"`
	// Degraded is set when no followup definitions were configured and the
	// steps were derived from the lead's schedule snapshot.
	Degraded    bool      `json:"degraded"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// LeadTimeline fetches every record source for the lead and reconciles them.
func (s *Service) LeadTimeline(ctx context.Context, orgID, leadID string) (*LeadTimeline, error) {
	var (
		lead     *domain.Lead
		jobs     []domain.Job
		mails    []domain.ManualMail
		history  []domain.EventHistoryEntry
		settings *domain.Settings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lead, err = s.repo.GetLead(gctx, orgID, leadID)
		return err
	})
	g.Go(func() error {
		var err error
		if jobs, err = s.repo.ListJobsForLead(gctx, orgID, leadID); err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if mails, err = s.repo.ListManualMails(gctx, orgID, leadID); err != nil {
			return fmt.Errorf("list manual mails: %w", err)
		}
		return nil
	})
	if s.history != nil {
		g.Go(func() error {
			var err error
			if history, err = s.history.ListEventHistory(gctx, orgID, leadID); err != nil {
				return fmt.Errorf("list event history: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		settings, err = s.settingsFor(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	in := timeline.Input{
		Lead:                *lead,
		Jobs:                jobs,
		ManualMails:         mails,
		Followups:           settings.Followups,
		EventHistory:        history,
		Now:                 now,
		ConditionalTemplate: settings.Naming.ConditionalTemplate,
	}

	_, degraded := timeline.StepDefinitions(in.Followups, lead.EmailSchedule)
	if degraded {
		logger.Warn("no followup definitions configured, deriving steps from lead schedule",
			"organization_id", orgID, "lead_id", leadID,
			"derived_steps", len(lead.EmailSchedule.Followups))
	}

	items := timeline.ReconcileWith(in, s.namer)
	resolver := rulebook.NewResolver(&settings.Rulebook)
	for i := range items {
		items[i].AllowedActions = resolver.AllowedActions(items[i].Type, items[i].Status)
	}

	return &LeadTimeline{
		LeadID:      leadID,
		Items:       items,
		Degraded:    degraded,
		GeneratedAt: now,
	}, nil
}

// DaySlots is the capacity calendar of one day.
type DaySlots struct {
	Date     string        `json:"date"`
	Timezone string        `json:"timezone"`
	Slots    []domain.Slot `json:"slots"`
	Capacity int           `json:"capacity"`
}

// DaySlots computes the remaining windows of date (YYYY-MM-DD) in the
// organization's time zone.
func (s *Service) DaySlots(ctx context.Context, orgID, date string) (*DaySlots, error) {
	settings, err := s.settingsFor(ctx, orgID)
	if err != nil {
		return nil, err
	}
	loc := s.location(settings)

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, date)
	}

	jobs, err := s.repo.ListJobsScheduledBetween(ctx, orgID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list day jobs: %w", err)
	}

	return &DaySlots{
		Date:     day.Format("2006-01-02"),
		Timezone: loc.String(),
		Slots: capacity.ComputeSlots(capacity.Request{
			Day:                 day,
			RateLimit:           settings.RateLimit,
			BusinessHours:       settings.BusinessHours,
			Jobs:                jobs,
			SlotIntervalMinutes: settings.SlotIntervalMinutes,
			Now:                 s.now(),
		}),
		Capacity: capacity.DayCapacity(settings.BusinessHours, settings.RateLimit, settings.SlotIntervalMinutes),
	}, nil
}

// MonthLoad returns one heat-map cell per day of month (YYYY-MM).
func (s *Service) MonthLoad(ctx context.Context, orgID, month string) ([]domain.DayLoad, error) {
	settings, err := s.settingsFor(ctx, orgID)
	if err != nil {
		return nil, err
	}
	loc := s.location(settings)

	first, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}

	jobs, err := s.repo.ListJobsScheduledBetween(ctx, orgID, first, first.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("list month jobs: %w", err)
	}
	return capacity.MonthLoad(first, settings.BusinessHours, settings.RateLimit, settings.SlotIntervalMinutes, jobs), nil
}

// CheckAction reports whether action may be offered on an item of mailType
// in status.
func (s *Service) CheckAction(ctx context.Context, orgID string, action domain.Action, mailType string, status domain.JobStatus) (bool, error) {
	if !rulebook.IsKnownAction(action) {
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	settings, err := s.settingsFor(ctx, orgID)
	if err != nil {
		return false, err
	}
	return rulebook.NewResolver(&settings.Rulebook).CanPerformAction(action, mailType, status), nil
}

// settingsFor loads the org's settings and fills unset fields from the
// service defaults. The returned value is a private copy.
func (s *Service) settingsFor(ctx context.Context, orgID string) (*domain.Settings, error) {
	loaded, err := s.settings.Get(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	st := *loaded
	if st.Timezone == "" {
		st.Timezone = s.defaults.Timezone
	}
	if st.SlotIntervalMinutes <= 0 {
		st.SlotIntervalMinutes = s.defaults.SlotIntervalMinutes
	}
	if st.BusinessHours.Start == 0 && st.BusinessHours.End == 0 {
		st.BusinessHours = s.defaults.BusinessHours
	}
	return &st, nil
}

func (s *Service) location(st *domain.Settings) *time.Location {
	if st.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "timezone", st.Timezone, "error", err)
		return time.UTC
	}
	return loc
}
