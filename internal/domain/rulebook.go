package domain

// MailTypeClass groups job type strings for permission lookup.
type MailTypeClass string

const (
	ClassInitial     MailTypeClass = "initial"
	ClassFollowup    MailTypeClass = "followup"
	ClassConditional MailTypeClass = "conditional"
	ClassManual      MailTypeClass = "manual"
)

// Action is an operator action offered on a timeline item.
type Action string

const (
	ActionSkip       Action = "skip"
	ActionCancel     Action = "cancel"
	ActionPause      Action = "pause"
	ActionResume     Action = "resume"
	ActionRetry      Action = "retry"
	ActionReschedule Action = "reschedule"
)

// AllActions lists every action kind in display order.
var AllActions = []Action{
	ActionSkip, ActionCancel, ActionPause, ActionResume, ActionRetry, ActionReschedule,
}

// RulebookPermissions is the set of actions a mail-type class allows.
type RulebookPermissions struct {
	CanSkip       bool   `json:"canSkip" yaml:"can_skip"`
	CanCancel     bool   `json:"canCancel" yaml:"can_cancel"`
	CanPause      bool   `json:"canPause" yaml:"can_pause"`
	CanRetry      bool   `json:"canRetry" yaml:"can_retry"`
	CanReschedule bool   `json:"canReschedule" yaml:"can_reschedule"`
	DisplayName   string `json:"displayName,omitempty" yaml:"display_name"`
	Priority      int    `json:"priority,omitempty" yaml:"priority"`
}

// StatusDisplay is optional presentation metadata for a lifecycle status.
type StatusDisplay struct {
	Label string `json:"label" yaml:"label"`
	Color string `json:"color,omitempty" yaml:"color"`
}

// RulebookDocument maps mail-type classes to permissions. Missing classes
// fall back to the built-in defaults.
type RulebookDocument struct {
	MailTypes map[MailTypeClass]RulebookPermissions `json:"mailTypes,omitempty" yaml:"mail_types"`
	Statuses  map[string]StatusDisplay              `json:"statuses,omitempty" yaml:"statuses"`
}
