package wildcard

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/gobwas/glob"
	"k8s.io/apimachinery/pkg/util/sets"
)

// containsWildcardPattern checks if a pattern contains any wildcard symbols
// Supported patterns: *, ?, [abc], {a,b,c}
// Note: . and + are treated as literal characters (not wildcards)
func containsWildcardPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// ValidatePatterns rejects regex-only syntax, consecutive asterisks and
// malformed braces in namespace patterns.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if strings.ContainsAny(pattern, "|()") {
			return errors.New("wildcard pattern contains unsupported regex symbols: |, (, )")
		}

		if strings.Contains(pattern, "**") {
			return errors.New("wildcard pattern contains consecutive asterisks (only single * allowed)")
		}

		if err := validateBracePatterns(pattern); err != nil {
			return err
		}
	}
	return nil
}

// validateBracePatterns checks for unclosed, unmatched or empty braces.
func validateBracePatterns(pattern string) error {
	depth := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			end := strings.IndexByte(pattern[i:], '}')
			if end < 0 {
				return errors.New("wildcard pattern contains unclosed brace '{'")
			}
			content := pattern[i+1 : i+end]
			if strings.TrimFunc(content, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) == "" {
				return errors.New("wildcard pattern contains empty brace pattern '{}'")
			}
			depth++
		case '}':
			if depth == 0 {
				return errors.New("wildcard pattern contains unmatched closing brace '}'")
			}
			depth--
		}
	}
	return nil
}

// expandWildcards expands patterns into the namespaces they match. Plain
// names are passed through even when they are not in the available list.
func expandWildcards(patterns []string, available []string) (sets.Set[string], error) {
	matched := sets.New[string]()
	for _, pattern := range patterns {
		if !containsWildcardPattern(pattern) {
			matched.Insert(pattern)
			continue
		}

		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		for _, ns := range available {
			if g.Match(ns) {
				matched.Insert(ns)
			}
		}
	}
	return matched, nil
}

// SelectNamespaces returns the sorted namespaces from available that are
// selected by includes minus excludes. An empty includes list, or "*",
// selects every available namespace. Included plain names that are not
// available are dropped.
func SelectNamespaces(available, includes, excludes []string) ([]string, error) {
	if err := ValidatePatterns(includes); err != nil {
		return nil, err
	}
	if err := ValidatePatterns(excludes); err != nil {
		return nil, err
	}

	var selected sets.Set[string]
	if len(includes) == 0 || sets.New(includes...).Has("*") {
		selected = sets.New(available...)
	} else {
		expanded, err := expandWildcards(includes, available)
		if err != nil {
			return nil, err
		}
		selected = expanded.Intersection(sets.New(available...))
	}

	excluded, err := expandWildcards(excludes, available)
	if err != nil {
		return nil, err
	}

	result := sets.List(selected.Difference(excluded))
	sort.Strings(result)
	return result, nil
}
