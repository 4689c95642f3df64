// Package keyset provides key list parsing helpers.
package keyset

import "strings"

// Parse splits a comma separated key list. "," itself may be written as
// "comma".
func Parse(list string) []string {
	parts := strings.Split(list, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		keys = append(keys, p)
	}
	return Dedupe(keys)
}

// Dedupe drops repeated keys, keeping the first occurrence.
func Dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Split separates keys accepted by known from the rest.
func Split(keys []string, known func(string) bool) (valid, unknown []string) {
	for _, k := range keys {
		if known(k) {
			valid = append(valid, k)
		} else {
			unknown = append(unknown, k)
		}
	}
	return valid, unknown
}
