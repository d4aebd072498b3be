// Package tokens normalizes free text into the search terms stickers are
// stored and queried under.
package tokens

import (
	"sort"
	"strings"
)

// Extract splits text into normalized tokens: lowercased, stripped of
// everything but ASCII letters and digits, empties dropped, result sorted.
// The same function runs on both taught terms and incoming queries, so the
// two sides always agree on normalization.
func Extract(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strip(f)
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

func strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
