package timeline

import (
	"strings"

	"github.com/ignite/outreach-timeline/internal/domain"
)

const conditionalPrefix = domain.JobTypeConditionalPrefix

// rank orders statuses when several jobs compete for one logical email.
// Higher wins.
func rank(s domain.JobStatus) int {
	switch {
	case s.IsActive():
		return 5
	case s.IsSent():
		return 4
	case s.Normalize() == domain.StatusSkipped:
		return 3
	case s.Normalize() == domain.StatusPaused:
		return 2
	case s.IsFailure():
		return 1
	default:
		return 0
	}
}

// better reports whether a should replace b as the representative job.
// Within one tier the most recently created job wins; full ties keep b,
// so input order decides.
func better(a, b *domain.Job) bool {
	ra, rb := rank(a.Status), rank(b.Status)
	if ra != rb {
		return ra > rb
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// pickBest returns the representative among the jobs accepted by match.
func pickBest(jobs []domain.Job, match func(*domain.Job) bool) *domain.Job {
	var best *domain.Job
	for i := range jobs {
		j := &jobs[i]
		if !match(j) {
			continue
		}
		if best == nil || better(j, best) {
			best = j
		}
	}
	return best
}

func typeIs(name string) func(*domain.Job) bool {
	name = strings.TrimSpace(name)
	return func(j *domain.Job) bool {
		return strings.EqualFold(strings.TrimSpace(j.Type), name)
	}
}
