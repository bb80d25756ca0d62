package timeline

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// Input is the read snapshot for one lead.
type Input struct {
	Lead        domain.Lead
	Jobs        []domain.Job
	ManualMails []domain.ManualMail
	Followups   []domain.FollowupDefinition
	// SkippedFollowups overrides Lead.SkippedFollowups when non-nil.
	SkippedFollowups    []string
	EventHistory        []domain.EventHistoryEntry
	Now                 time.Time
	ConditionalTemplate string
}

const (
	initialName = "Initial Email"
	manualName  = "Manual Email"
)

var defaultNamer = NewNamer()

// StepDefinitions returns the followup steps to lay out, ordered by Order.
// When no definitions are configured the steps are derived from the lead's
// schedule snapshot with zero delay, and degraded is true.
func StepDefinitions(defs []domain.FollowupDefinition, schedule domain.EmailSchedule) (steps []domain.FollowupDefinition, degraded bool) {
	if len(defs) == 0 {
		for i, f := range schedule.Followups {
			if strings.TrimSpace(f.Name) == "" {
				continue
			}
			steps = append(steps, domain.FollowupDefinition{Name: f.Name, Order: i + 1})
		}
		return dedupeSteps(steps), true
	}

	steps = make([]domain.FollowupDefinition, 0, len(defs))
	for _, d := range defs {
		if d.IsInitial() || strings.TrimSpace(d.Name) == "" {
			continue
		}
		steps = append(steps, d)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return dedupeSteps(steps), false
}

func dedupeSteps(steps []domain.FollowupDefinition) []domain.FollowupDefinition {
	seen := make(map[string]bool, len(steps))
	out := steps[:0]
	for _, s := range steps {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Reconcile merges the lead's records into one ordered timeline.
func Reconcile(in Input) []domain.TimelineItem {
	return reconcile(in, defaultNamer)
}

// ReconcileWith is Reconcile with a caller-owned Namer.
func ReconcileWith(in Input, namer *Namer) []domain.TimelineItem {
	if namer == nil {
		namer = defaultNamer
	}
	return reconcile(in, namer)
}

type builder struct {
	in    Input
	namer *Namer
	items []domain.TimelineItem
}

func reconcile(in Input, namer *Namer) []domain.TimelineItem {
	b := &builder{in: in, namer: namer}
	b.addInitial()
	b.addManualMails()
	b.addFollowups()
	b.addConditionals()
	b.addSkipped()
	b.attachReasons()
	sortByEffectiveDate(b.items)
	return b.items
}

func (b *builder) stableID(name string) string {
	key := b.in.Lead.ID + "/" + strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("outreach-timeline:"+key)).String()
}

func (b *builder) skipped() []string {
	if b.in.SkippedFollowups != nil {
		return b.in.SkippedFollowups
	}
	return b.in.Lead.SkippedFollowups
}

func (b *builder) isSkipped(name string) bool {
	for _, s := range b.skipped() {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func (b *builder) hasType(t string) bool {
	for i := range b.items {
		if strings.EqualFold(strings.TrimSpace(b.items[i].Type), strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

// addInitial emits the initial email. A job of type initial overrides the
// schedule snapshot field by field.
func (b *builder) addInitial() {
	sched := b.in.Lead.EmailSchedule.InitialEmail
	job := pickBest(b.in.Jobs, typeIs(domain.JobTypeInitial))
	if sched == nil && job == nil {
		return
	}

	item := domain.TimelineItem{
		ID:       b.stableID(domain.JobTypeInitial),
		Type:     domain.JobTypeInitial,
		Category: domain.CategoryAutomated,
		Name:     initialName,
	}
	if sched != nil {
		item.Status = sched.Status
		item.ScheduledFor = sched.ScheduledFor
		item.SentAt = sched.SentAt
		item.RawData = *sched
	}
	if job != nil {
		item.ID = job.ID
		item.Status = job.Status
		if job.ScheduledFor != nil {
			item.ScheduledFor = job.ScheduledFor
		}
		if job.SentAt != nil {
			item.SentAt = job.SentAt
		}
		item.RawData = *job
	}
	if item.Status == "" {
		item.Status = domain.StatusPending
	}
	b.items = append(b.items, item)
}

// manualJob finds the job that carried a manual mail, preferring one that
// was actually attempted.
func (b *builder) manualJob(m *domain.ManualMail) *domain.Job {
	var best *domain.Job
	for i := range b.in.Jobs {
		j := &b.in.Jobs[i]
		linked := j.Metadata.ManualMailID != "" && j.Metadata.ManualMailID == m.ID
		if !linked && m.EmailJobID != nil && *m.EmailJobID != "" && j.ID == *m.EmailJobID {
			linked = true
		}
		if !linked {
			continue
		}
		switch {
		case best == nil:
			best = j
		case attempted(j) != attempted(best):
			if attempted(j) {
				best = j
			}
		case better(j, best):
			best = j
		}
	}
	return best
}

func attempted(j *domain.Job) bool {
	return j.SentAt != nil || j.ProcessedAt != nil
}

func (b *builder) addManualMails() {
	for i := range b.in.ManualMails {
		m := b.in.ManualMails[i]
		item := domain.TimelineItem{
			ID:           m.ID,
			Type:         domain.JobTypeManual,
			Category:     domain.CategoryManual,
			Name:         m.Title,
			Status:       m.Status,
			ScheduledFor: m.ScheduledFor,
			RawData:      m,
		}
		if strings.TrimSpace(item.Name) == "" {
			item.Name = manualName
		}
		if job := b.manualJob(&m); job != nil {
			if job.SentAt != nil {
				item.SentAt = job.SentAt
			} else if job.ProcessedAt != nil {
				item.SentAt = job.ProcessedAt
			}
			if item.ScheduledFor == nil {
				item.ScheduledFor = job.ScheduledFor
			}
		}
		// Sent with no job on record: creation time approximates the send.
		if item.SentAt == nil && m.Status.IsSent() && !m.CreatedAt.IsZero() {
			created := m.CreatedAt
			item.SentAt = &created
		}
		if item.Status == "" {
			item.Status = domain.StatusPending
		}
		b.items = append(b.items, item)
	}
}

// projectionAnchor is the sentAt of the latest sent item so far, else the
// initial email's scheduled date, else now.
func (b *builder) projectionAnchor() time.Time {
	var anchor *time.Time
	for i := range b.items {
		it := &b.items[i]
		if it.SentAt == nil || !it.Status.IsSent() {
			continue
		}
		if anchor == nil || it.SentAt.After(*anchor) {
			anchor = it.SentAt
		}
	}
	if anchor != nil {
		return *anchor
	}
	for i := range b.items {
		if b.items[i].Type == domain.JobTypeInitial && b.items[i].ScheduledFor != nil {
			return *b.items[i].ScheduledFor
		}
	}
	return b.in.Now
}

func (b *builder) addFollowups() {
	steps, _ := StepDefinitions(b.in.Followups, b.in.Lead.EmailSchedule)
	for _, def := range steps {
		job := pickBest(b.in.Jobs, typeIs(def.Name))
		legacy := b.in.Lead.EmailSchedule.FindFollowup(def.Name)

		item := domain.TimelineItem{
			ID:        b.stableID(def.Name),
			Type:      def.Name,
			Category:  domain.CategoryAutomated,
			Name:      def.Name,
			Condition: def.Condition,
		}

		switch {
		case job != nil:
			item.ID = job.ID
			item.Status = job.Status
			item.ScheduledFor = job.ScheduledFor
			item.SentAt = job.SentAt
			if item.ScheduledFor == nil && legacy != nil {
				item.ScheduledFor = legacy.ScheduledFor
			}
			item.RawData = *job
		case legacy != nil:
			item.Status = legacy.Status
			item.ScheduledFor = legacy.ScheduledFor
			item.SentAt = legacy.SentAt
			item.RawData = *legacy
			if item.Status == "" {
				item.Status = domain.StatusPending
			}
		case b.isSkipped(def.Name):
			// emitted as skipped below
			continue
		default:
			projected := b.projectionAnchor().AddDate(0, 0, def.EffectiveDelayDays())
			item.Status = domain.StatusUpcoming
			item.ScheduledFor = &projected
			item.IsProjected = true
		}
		b.items = append(b.items, item)
	}
}

func (b *builder) addConditionals() {
	var order []string
	groups := make(map[string]bool)
	for i := range b.in.Jobs {
		t := b.in.Jobs[i].Type
		if !b.in.Jobs[i].IsConditional() || groups[t] {
			continue
		}
		groups[t] = true
		order = append(order, t)
	}

	for _, t := range order {
		job := pickBest(b.in.Jobs, func(j *domain.Job) bool { return j.Type == t })
		trigger := triggerOf(job.Type, job.Metadata.TriggerEvent)
		b.items = append(b.items, domain.TimelineItem{
			ID:           job.ID,
			Type:         job.Type,
			Category:     domain.CategoryConditional,
			Name:         b.namer.ConditionalName(b.in.ConditionalTemplate, trigger, job.Type),
			Status:       job.Status,
			ScheduledFor: job.ScheduledFor,
			SentAt:       job.SentAt,
			RawData:      *job,
		})
	}
}

func (b *builder) addSkipped() {
	for _, name := range b.skipped() {
		name = strings.TrimSpace(name)
		if name == "" || b.hasType(name) {
			continue
		}
		item := domain.TimelineItem{
			ID:       b.stableID(name),
			Type:     name,
			Category: domain.CategoryAutomated,
			Name:     name,
			Status:   domain.StatusSkipped,
		}
		match := typeIs(name)
		job := pickBest(b.in.Jobs, func(j *domain.Job) bool {
			return match(j) && j.Status.Normalize() == domain.StatusSkipped
		})
		if job != nil {
			item.ID = job.ID
			item.ScheduledFor = job.ScheduledFor
			item.RawData = *job
		}
		b.items = append(b.items, item)
	}
}

// attachReasons copies the latest recorded reason for each item's type.
func (b *builder) attachReasons() {
	for i := range b.items {
		it := &b.items[i]
		var latest *domain.EventHistoryEntry
		for j := range b.in.EventHistory {
			e := &b.in.EventHistory[j]
			if e.Details.Reason == "" || !strings.EqualFold(e.EmailType, it.Type) {
				continue
			}
			if latest == nil || !e.Timestamp.Before(latest.Timestamp) {
				latest = e
			}
		}
		if latest != nil {
			it.Reason = latest.Details.Reason
		}
	}
}

// sortByEffectiveDate orders items by sentAt, else scheduledFor. Items with
// neither sort last. Ties keep emission order.
func sortByEffectiveDate(items []domain.TimelineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		di, oki := items[i].EffectiveDate()
		dj, okj := items[j].EffectiveDate()
		switch {
		case !oki:
			return false
		case !okj:
			return true
		default:
			return di.Before(dj)
		}
	})
}
