package domain

import "strings"

// ConditionType enumerates when a conditional followup fires.
type ConditionType string

const (
	ConditionAlways       ConditionType = "always"
	ConditionIfOpened     ConditionType = "if_opened"
	ConditionIfNotOpened  ConditionType = "if_not_opened"
	ConditionIfClicked    ConditionType = "if_clicked"
	ConditionIfNotClicked ConditionType = "if_not_clicked"
)

// FollowupCondition gates a followup on engagement with an earlier step.
type FollowupCondition struct {
	Type                  ConditionType `json:"type" yaml:"type" validate:"omitempty,oneof=always if_opened if_not_opened if_clicked if_not_clicked"`
	CheckStep             string        `json:"checkStep,omitempty" yaml:"check_step"`
	AlternativeTemplateID string        `json:"alternativeTemplateId,omitempty" yaml:"alternative_template_id"`
	SkipIfNotMet          bool          `json:"skipIfNotMet,omitempty" yaml:"skip_if_not_met"`
}

// FollowupDefinition is one configured step of the automated sequence.
type FollowupDefinition struct {
	Name      string             `json:"name" yaml:"name" validate:"required"`
	Order     int                `json:"order" yaml:"order"`
	DelayDays int                `json:"delayDays" yaml:"delay_days" validate:"gte=0"`
	Delay     int                `json:"delay,omitempty" yaml:"delay" validate:"gte=0"`
	Condition *FollowupCondition `json:"condition,omitempty" yaml:"condition"`
}

// EffectiveDelayDays returns delayDays, falling back to the legacy delay field.
func (d FollowupDefinition) EffectiveDelayDays() int {
	if d.DelayDays > 0 {
		return d.DelayDays
	}
	if d.Delay > 0 {
		return d.Delay
	}
	return 0
}

// IsInitial reports whether the definition names the initial email, which is
// never treated as a followup step.
func (d FollowupDefinition) IsInitial() bool {
	return strings.EqualFold(strings.TrimSpace(d.Name), JobTypeInitial)
}

// RateLimitConfig caps the number of sends per rolling window.
type RateLimitConfig struct {
	EmailsPerWindow int `json:"emailsPerWindow" yaml:"emails_per_window" validate:"gte=1"`
	WindowMinutes   int `json:"windowMinutes" yaml:"window_minutes" validate:"gte=1"`
}

// BusinessHours bounds the sending day, in whole hours of local time.
type BusinessHours struct {
	Start int `json:"start" yaml:"start" validate:"gte=0,lte=23"`
	End   int `json:"end" yaml:"end" validate:"gte=1,lte=24,gtfield=Start"`
}

// Default business hours used when none are configured.
const (
	DefaultBusinessHoursStart = 6
	DefaultBusinessHoursEnd   = 24
)

// OrDefault returns the default 6–24 window when both bounds are unset.
func (b BusinessHours) OrDefault() BusinessHours {
	if b.Start == 0 && b.End == 0 {
		return BusinessHours{Start: DefaultBusinessHoursStart, End: DefaultBusinessHoursEnd}
	}
	return b
}

// Minutes returns the length of the business day in minutes.
func (b BusinessHours) Minutes() int {
	if b.End <= b.Start {
		return 0
	}
	return (b.End - b.Start) * 60
}

// NamingConfig holds display-name templates for derived timeline items.
type NamingConfig struct {
	ConditionalTemplate string `json:"conditionalTemplate,omitempty" yaml:"conditional_template"`
}

// Settings is one organization's read snapshot of the outreach settings.
// It is passed explicitly into every computation.
type Settings struct {
	RateLimit           RateLimitConfig      `json:"rateLimit" yaml:"rate_limit"`
	BusinessHours       BusinessHours        `json:"businessHours" yaml:"business_hours"`
	SlotIntervalMinutes int                  `json:"slotIntervalMinutes,omitempty" yaml:"slot_interval_minutes" validate:"gte=0"`
	Timezone            string               `json:"timezone,omitempty" yaml:"timezone"`
	Followups           []FollowupDefinition `json:"followups" yaml:"followups" validate:"dive"`
	Rulebook            RulebookDocument     `json:"rulebook" yaml:"rulebook"`
	Naming              NamingConfig         `json:"naming,omitempty" yaml:"naming"`
}
