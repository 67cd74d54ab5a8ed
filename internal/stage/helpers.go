package stage

import (
	"encoding/json"
	"strings"

	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// ParsePlan decodes a stored composition plan and returns it.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParsePlan(raw string) (timeline.Plan, error) {
	if strings.TrimSpace(raw) == "" {
		return timeline.Plan{}, services.Wrap(
			services.ErrValidation, "stage", "parse plan",
			"Composition plan missing; rerun planning", nil)
	}
	var plan timeline.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return timeline.Plan{}, services.Wrap(
			services.ErrValidation, "stage", "parse plan",
			"Composition plan invalid; rerun planning", err)
	}
	if len(plan.Segments) == 0 {
		return timeline.Plan{}, services.Wrap(
			services.ErrValidation, "stage", "parse plan",
			"Composition plan has no segments; rerun planning", nil)
	}
	return plan, nil
}
