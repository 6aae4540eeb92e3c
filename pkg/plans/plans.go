// Package plans defines the static plan capability table. Lookup is pure:
// no I/O, no billing state, just what a plan tier is allowed to do.
package plans

// ID identifies a subscription tier.
type ID string

const (
	Free ID = "free"
	Pro  ID = "pro"
	Max  ID = "max"
)

// MetricsDetail controls how much of the metrics record is exposed to the model.
type MetricsDetail string

const (
	DetailBasic    MetricsDetail = "basic"
	DetailStandard MetricsDetail = "standard"
	DetailFull     MetricsDetail = "full"
)

// ModelTier selects which configured model serves a plan.
type ModelTier string

const (
	TierBasic    ModelTier = "basic"
	TierStandard ModelTier = "standard"
	TierPremium  ModelTier = "premium"
)

// Capability describes what a plan can do.
type Capability struct {
	MemoryPersistence bool
	CustomIdentity    bool
	MetricsDetail     MetricsDetail
	MemoryCap         int
	ModelTier         ModelTier
}

var table = map[ID]Capability{
	Free: {
		MemoryPersistence: false,
		CustomIdentity:    false,
		MetricsDetail:     DetailBasic,
		MemoryCap:         75,
		ModelTier:         TierBasic,
	},
	Pro: {
		MemoryPersistence: true,
		CustomIdentity:    false,
		MetricsDetail:     DetailStandard,
		MemoryCap:         200,
		ModelTier:         TierStandard,
	},
	Max: {
		MemoryPersistence: true,
		CustomIdentity:    true,
		MetricsDetail:     DetailFull,
		MemoryCap:         500,
		ModelTier:         TierPremium,
	},
}

// Lookup returns the capability set for a plan. Unknown or empty plan IDs
// resolve to the free tier.
func Lookup(id ID) Capability {
	if cap, ok := table[id]; ok {
		return cap
	}
	return table[Free]
}
