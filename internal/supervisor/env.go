package supervisor

import (
	"sort"
	"strings"
)

// MergeEnv returns base with overlay applied: variables named in overlay
// replace their base entries, everything else is inherited. Overlay keys
// are appended in sorted order so the result is deterministic.
func MergeEnv(base []string, overlay map[string]string) []string {
	out := make([]string, 0, len(base)+len(overlay))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overlay[key]; replaced {
			continue
		}

		out = append(out, kv)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, k+"="+overlay[k])
	}

	return out
}
