package scoring

import (
	"strings"

	"github.com/Champion2005/amicooked/pkg/plans"
)

// ModelResolver picks the model for a call: an explicit per-call override
// wins, otherwise the plan tier's configured model. Selection only, no
// fallback retries.
type ModelResolver struct {
	models map[plans.ModelTier]string
}

// NewModelResolver wires the configured model names to plan tiers. Empty
// higher tiers inherit the next one down.
func NewModelResolver(basic, standard, premium string) *ModelResolver {
	if standard == "" {
		standard = basic
	}
	if premium == "" {
		premium = standard
	}
	return &ModelResolver{models: map[plans.ModelTier]string{
		plans.TierBasic:    basic,
		plans.TierStandard: standard,
		plans.TierPremium:  premium,
	}}
}

func (r *ModelResolver) Resolve(override string, plan plans.ID) string {
	if m := strings.TrimSpace(override); m != "" {
		return m
	}
	return r.models[plans.Lookup(plan).ModelTier]
}
