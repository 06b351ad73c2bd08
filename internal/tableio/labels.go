package tableio

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// CleanLabel normalizes a header label: lowercased, runs of
// non-alphanumeric characters collapsed to a single underscore, leading
// and trailing underscores trimmed. "Region Name " becomes "region_name".
func CleanLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "col"
	}
	return s
}

// CleanLabels cleans every label and suffixes repeats so the result stays
// unique: x, x_2, x_3.
func CleanLabels(labels []string) []string {
	out := make([]string, len(labels))
	seen := make(map[string]int, len(labels))
	for i, l := range labels {
		c := CleanLabel(l)
		seen[c]++
		if n := seen[c]; n > 1 {
			c = fmt.Sprintf("%s_%d", c, n)
		}
		out[i] = c
	}
	return out
}
