package scoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/Champion2005/amicooked/pkg/plans"
)

// FormatMetrics renders the opaque metrics record for prompt inclusion.
// Output is deterministic: keys sorted, one line per field. The plan's
// detail level bounds what the model sees: basic exposes numeric fields
// only, standard adds strings, full includes nested values as compact JSON.
func FormatMetrics(metrics map[string]any, detail plans.MetricsDetail) string {
	if len(metrics) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		line, ok := formatMetricValue(metrics[k], detail)
		if !ok {
			continue
		}
		out += fmt.Sprintf("- %s: %s\n", k, line)
	}
	return out
}

func formatMetricValue(v any, detail plans.MetricsDetail) (string, bool) {
	if n := coerceNumber(v); n != nil {
		return strconv.FormatFloat(*n, 'f', -1, 64), true
	}
	if detail == plans.DetailBasic {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	if detail != plans.DetailFull {
		return "", false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}
