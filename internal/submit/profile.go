package submit

import (
	"context"
	"fmt"
	"strings"

	"applyflow-engine/internal/backend"
)

// GapResolver handles the 412 profile-gap path: it computes the full set of
// fields the user must fill and validates + saves the completed profile so
// the held submission can be replayed.
type GapResolver struct {
	Svc      Service
	Required []string // baseline fields required for any submission
}

// Missing merges the backend-reported field names with any always-required
// baseline fields that are still empty on the stored profile. Order is
// stable: reported fields first, then baseline gaps.
func (g GapResolver) Missing(ctx context.Context, reported []string) []string {
	if len(reported) == 0 {
		// older backends send the 412 without a field list
		reported = []string{"linkedin_url", "work_authorization"}
	}

	var profile backend.JobProfile
	if env, err := g.Svc.GetProfile(ctx); err == nil && env != nil && env.Exists && env.Profile != nil {
		profile = *env.Profile
	}

	seen := map[string]bool{}
	var out []string
	add := func(f string) {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}
	for _, f := range reported {
		add(f)
	}
	for _, f := range g.Required {
		if profile.FieldEmpty(f) {
			add(f)
		}
	}
	return out
}

// Save validates that every missing field is now filled and persists the
// profile. Nothing is saved on validation failure.
func (g GapResolver) Save(ctx context.Context, p backend.JobProfile, missing []string) error {
	for _, f := range g.Required {
		if p.FieldEmpty(f) {
			return fmt.Errorf("%s is required", f)
		}
	}
	for _, f := range missing {
		if p.FieldEmpty(f) {
			return fmt.Errorf("%s is required", f)
		}
	}
	return g.Svc.SaveProfile(ctx, p)
}
