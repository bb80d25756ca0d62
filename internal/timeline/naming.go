package timeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// DefaultConditionalTemplate names conditional items when settings carry no
// template of their own.
const DefaultConditionalTemplate = "Conditional: {{ trigger }}"

// Namer renders display names for derived timeline items. Parsed templates
// are cached by source text; a Namer is safe for concurrent use.
type Namer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewNamer creates a Namer with the outreach filters registered.
func NewNamer() *Namer {
	engine := liquid.NewEngine()

	// {{ trigger | humanize }} → "email opened" for "email_opened"
	engine.RegisterFilter("humanize", func(s string) string {
		return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	})

	return &Namer{engine: engine}
}

// Validate reports whether src is a parseable template.
func (n *Namer) Validate(src string) error {
	if _, err := n.engine.ParseString(src); err != nil {
		return err
	}
	return nil
}

// ConditionalName renders the display name of a conditional email. Parse or
// render failures fall back to the default wording.
func (n *Namer) ConditionalName(src, trigger, jobType string) string {
	if strings.TrimSpace(src) == "" {
		src = DefaultConditionalTemplate
	}
	out, err := n.render(src, map[string]any{
		"trigger": trigger,
		"type":    jobType,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return fmt.Sprintf("Conditional: %s", trigger)
	}
	return out
}

func (n *Namer) render(src string, vars map[string]any) (string, error) {
	if cached, ok := n.cache.Load(src); ok {
		return cached.(*liquid.Template).RenderString(vars)
	}
	tpl, err := n.engine.ParseString(src)
	if err != nil {
		return "", err
	}
	n.cache.Store(src, tpl)
	out, rerr := tpl.RenderString(vars)
	if rerr != nil {
		return "", rerr
	}
	return out, nil
}

// triggerOf returns the event that created a conditional job: the
// triggerEvent metadata when present, else the suffix of its type.
func triggerOf(jobType string, metaTrigger string) string {
	if t := strings.TrimSpace(metaTrigger); t != "" {
		return t
	}
	if len(jobType) >= len(conditionalPrefix) && strings.EqualFold(jobType[:len(conditionalPrefix)], conditionalPrefix) {
		return strings.TrimSpace(jobType[len(conditionalPrefix):])
	}
	return jobType
}
