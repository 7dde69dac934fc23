package sandbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"sqlbadlands/internal/dataset"
)

var unknownNamePattern = regexp.MustCompile(`no such (?:table|column): ([A-Za-z0-9_.]+)`)

func catalogNames(tables []dataset.Table) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, t := range tables {
		add(t.Name)
		for _, c := range t.Columns {
			add(c.Name)
		}
	}
	return out
}

// suggest returns a "did you mean" hint when msg names an unknown table or
// column that is close to a known one.
func suggest(msg string, names []string) string {
	m := unknownNamePattern.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	name := m[1]
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	target := strings.ToLower(name)

	best, bestDist := "", -1
	for _, cand := range names {
		d := levenshtein.ComputeDistance(target, strings.ToLower(cand))
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	if best == "" || bestDist == 0 || bestDist > max(2, len(target)/3) {
		return ""
	}
	return fmt.Sprintf("did you mean %q?", best)
}
