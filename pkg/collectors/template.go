package collectors

import (
	"sort"
	"strings"
)

// Expand substitutes {key} placeholders in tmpl with values. Unknown
// placeholders are left as they are.
func Expand(tmpl string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	// Deterministic replacer construction; keys never overlap once braced.
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
