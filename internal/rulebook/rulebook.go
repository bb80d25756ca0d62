// Package rulebook decides which operator actions are legal for a timeline
// item, given its mail type and lifecycle status.
//
// Every function here is pure and total: unknown types fall back to the
// followup class and unknown actions resolve to false.
package rulebook

import (
	"strings"

	"github.com/ignite/outreach-timeline/internal/domain"
)

// classPattern maps a lower-case substring of a job type to its class.
type classPattern struct {
	pattern string
	class   domain.MailTypeClass
}

// classPatterns is evaluated in order. "conditional:" must precede
// "initial" so that e.g. "conditional:opened_initial" stays conditional.
var classPatterns = []classPattern{
	{"conditional:", domain.ClassConditional},
	{"manual", domain.ClassManual},
	{"initial", domain.ClassInitial},
	{"followup", domain.ClassFollowup},
	{"follow up", domain.ClassFollowup},
	{"follow-up", domain.ClassFollowup},
	{"follow_up", domain.ClassFollowup},
}

// DefaultClass is returned when no pattern matches.
const DefaultClass = domain.ClassFollowup

// ResolveMailTypeClass classifies a job type string by case-insensitive
// substring match.
func ResolveMailTypeClass(mailType string) domain.MailTypeClass {
	t := strings.ToLower(mailType)
	for _, p := range classPatterns {
		if strings.Contains(t, p.pattern) {
			return p.class
		}
	}
	return DefaultClass
}

// defaultPermissions applies when the rulebook document has no entry for a class.
var defaultPermissions = map[domain.MailTypeClass]domain.RulebookPermissions{
	domain.ClassInitial: {
		CanCancel: true, CanRetry: true, CanReschedule: true,
		DisplayName: "Initial email", Priority: 1,
	},
	domain.ClassFollowup: {
		CanSkip: true, CanPause: true, CanRetry: true, CanReschedule: true,
		DisplayName: "Follow-up", Priority: 2,
	},
	domain.ClassConditional: {
		CanCancel: true, CanRetry: true, CanReschedule: true,
		DisplayName: "Conditional email", Priority: 3,
	},
	domain.ClassManual: {
		CanCancel: true, CanRetry: true, CanReschedule: true,
		DisplayName: "Manual email", Priority: 4,
	},
}

// DefaultPermissions returns the built-in permissions for a class.
func DefaultPermissions(class domain.MailTypeClass) domain.RulebookPermissions {
	if p, ok := defaultPermissions[class]; ok {
		return p
	}
	return defaultPermissions[DefaultClass]
}

// GetPermissions looks up the permissions for a job type in the rulebook
// document, falling back to the built-in table.
func GetPermissions(mailType string, doc *domain.RulebookDocument) domain.RulebookPermissions {
	class := ResolveMailTypeClass(mailType)
	if doc != nil {
		if p, ok := doc.MailTypes[class]; ok {
			return p
		}
	}
	return DefaultPermissions(class)
}

func statusSet(statuses ...domain.JobStatus) map[domain.JobStatus]struct{} {
	m := make(map[domain.JobStatus]struct{}, len(statuses))
	for _, s := range statuses {
		m[s] = struct{}{}
	}
	return m
}

var (
	activeStatuses = statusSet(
		domain.StatusPending, domain.StatusScheduled, domain.StatusQueued, domain.StatusRescheduled,
	)
	cancellableStatuses = statusSet(
		domain.StatusPending, domain.StatusScheduled, domain.StatusQueued, domain.StatusRescheduled,
		domain.StatusPaused,
	)
	retryableStatuses = statusSet(
		domain.StatusFailed, domain.StatusBounced, domain.StatusHardBounce, domain.StatusSoftBounce,
		domain.StatusCancelled, domain.StatusBlocked, domain.StatusSpam, domain.StatusError,
	)
	reschedulableStatuses = statusSet(
		domain.StatusPending, domain.StatusScheduled, domain.StatusQueued, domain.StatusRescheduled,
		domain.StatusDeferred, domain.StatusFailed, domain.StatusSoftBounce,
	)
)

func in(set map[domain.JobStatus]struct{}, status domain.JobStatus) bool {
	_, ok := set[status.Normalize()]
	return ok
}

// Resolver answers action-legality questions against one rulebook snapshot.
type Resolver struct {
	doc *domain.RulebookDocument
}

// NewResolver creates a resolver for the given document. A nil document
// means built-in defaults only.
func NewResolver(doc *domain.RulebookDocument) *Resolver {
	return &Resolver{doc: doc}
}

// Permissions returns the permissions for a job type.
func (r *Resolver) Permissions(mailType string) domain.RulebookPermissions {
	return GetPermissions(mailType, r.doc)
}

// CanPerformAction combines the class permission with the status gate for
// the action. Resume is gated by the pause permission only; the caller
// decides whether the item is currently paused.
func (r *Resolver) CanPerformAction(action domain.Action, mailType string, status domain.JobStatus) bool {
	p := r.Permissions(mailType)
	switch action {
	case domain.ActionSkip:
		return p.CanSkip && in(activeStatuses, status)
	case domain.ActionCancel:
		return p.CanCancel && in(cancellableStatuses, status)
	case domain.ActionPause:
		return p.CanPause && in(activeStatuses, status)
	case domain.ActionResume:
		return p.CanPause
	case domain.ActionRetry:
		return p.CanRetry && in(retryableStatuses, status)
	case domain.ActionReschedule:
		return p.CanReschedule && in(reschedulableStatuses, status)
	}
	return false
}

// AllowedActions evaluates every action kind for one item.
func (r *Resolver) AllowedActions(mailType string, status domain.JobStatus) map[domain.Action]bool {
	out := make(map[domain.Action]bool, len(domain.AllActions))
	for _, a := range domain.AllActions {
		out[a] = r.CanPerformAction(a, mailType, status)
	}
	return out
}

// StatusLabel returns the display label configured for a status, or the
// status itself.
func (r *Resolver) StatusLabel(status domain.JobStatus) string {
	if r.doc != nil {
		if d, ok := r.doc.Statuses[string(status.Normalize())]; ok && d.Label != "" {
			return d.Label
		}
	}
	return string(status)
}

// IsKnownAction reports whether a is one of the defined action kinds.
func IsKnownAction(a domain.Action) bool {
	for _, known := range domain.AllActions {
		if a == known {
			return true
		}
	}
	return false
}
