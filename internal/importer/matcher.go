package importer

import (
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// FindColumnValue returns the first non-empty cell whose header matches one
// of the aliases, or nil when nothing matches.
func FindColumnValue(row Row, aliases []string) Cell {
	_, v, _ := MatchColumn(row, aliases)
	return v
}

// MatchColumn runs the header matching cascade and reports which header won.
//
// The cascade, in order, stops at the first non-empty value:
//  1. exact header key for each alias
//  2. trimmed, case-folded equality
//  3. whitespace-stripped, case-folded equality or containment in either direction
func MatchColumn(row Row, aliases []string) (string, Cell, bool) {
	for _, alias := range aliases {
		if v, ok := row.Get(alias); ok && nonEmpty(v) {
			return alias, v, true
		}
	}

	headers := row.Headers()
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = foldKey(h)
	}

	for _, alias := range aliases {
		want := foldKey(alias)
		for i, h := range headers {
			if folded[i] != want {
				continue
			}
			if v, _ := row.Get(h); nonEmpty(v) {
				return h, v, true
			}
		}
	}

	compact := make([]string, len(headers))
	for i, h := range headers {
		compact[i] = compactKey(h)
	}

	for _, alias := range aliases {
		want := compactKey(alias)
		if want == "" {
			continue
		}
		for i, h := range headers {
			got := compact[i]
			if got == "" {
				continue
			}
			if got != want && !strings.Contains(got, want) && !strings.Contains(want, got) {
				continue
			}
			if v, _ := row.Get(h); nonEmpty(v) {
				return h, v, true
			}
		}
	}

	return "", nil, false
}

// foldKey trims and case-folds a header for case-insensitive comparison.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// compactKey removes every whitespace rune before folding.
func compactKey(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return cases.Fold().String(stripped)
}

// nonEmpty reports whether a cell counts as a match. Numbers, including 0,
// always count; strings count when they hold more than whitespace.
func nonEmpty(v Cell) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return !math.IsNaN(t)
	case time.Time:
		return !t.IsZero()
	default:
		return true
	}
}
