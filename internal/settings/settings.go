// Package settings loads, validates and caches per-organization outreach
// settings.
//
// A Source reads the authoritative document (S3 or a YAML file). Cache wraps
// a Source with a Redis read-through copy that the settings-updated event
// invalidates.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/timeline"
)

// Sentinel errors for settings loading.
var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// Source reads an organization's settings document.
type Source interface {
	Load(ctx context.Context, orgID string) (*domain.Settings, error)
}

var (
	validate = validator.New()
	namer    = timeline.NewNamer()
)

// Normalize fills the defaults the validator cannot express: business hours
// 6–24 when both bounds are unset.
func Normalize(s *domain.Settings) {
	s.BusinessHours = s.BusinessHours.OrDefault()
	s.Timezone = strings.TrimSpace(s.Timezone)
}

// Validate checks a normalized settings document.
func Validate(s *domain.Settings) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(describe(verrs), "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidSettings, s.Timezone, err)
		}
	}
	if tpl := s.Naming.ConditionalTemplate; tpl != "" {
		if err := namer.Validate(tpl); err != nil {
			return fmt.Errorf("%w: naming.conditionalTemplate: %v", ErrInvalidSettings, err)
		}
	}
	return nil
}

func describe(verrs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "lte":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		case "gtfield":
			msgs = append(msgs, field+" must be greater than "+fe.Param())
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		default:
			msgs = append(msgs, field+" failed "+fe.Tag())
		}
	}
	return msgs
}

// prepare normalizes and validates a freshly loaded document.
func prepare(orgID string, s *domain.Settings) (*domain.Settings, error) {
	Normalize(s)
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("org %s: %w", orgID, err)
	}
	return s, nil
}

// Uncached serves settings straight from a Source. The server uses it when
// no Redis is configured.
type Uncached struct {
	Source Source
}

// Get loads orgID's settings from the source.
func (u Uncached) Get(ctx context.Context, orgID string) (*domain.Settings, error) {
	return u.Source.Load(ctx, orgID)
}
