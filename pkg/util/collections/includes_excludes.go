/*
Copyright the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package collections

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// IncludesExcludes is a type that manages lists of included
// and excluded items. The logic implemented is that everything
// in the included list except those items in the excluded list
// should be included. '*' in the includes list means "include
// everything", but it is not valid in the exclude list. Items
// may be glob patterns.
type IncludesExcludes struct {
	includes sets.Set[string]
	excludes sets.Set[string]

	// foldCase lowercases items and patterns before matching, for
	// kinds where "Deployment" and "deployment" are the same thing.
	foldCase bool
}

func NewIncludesExcludes() *IncludesExcludes {
	return &IncludesExcludes{
		includes: sets.New[string](),
		excludes: sets.New[string](),
	}
}

// NewCaseInsensitiveIncludesExcludes returns an IncludesExcludes that
// ignores case when matching.
func NewCaseInsensitiveIncludesExcludes() *IncludesExcludes {
	ie := NewIncludesExcludes()
	ie.foldCase = true
	return ie
}

func (ie *IncludesExcludes) normalize(item string) string {
	if ie.foldCase {
		return strings.ToLower(item)
	}
	return item
}

// Includes adds items to the includes list. '*' is a wildcard
// value meaning "include everything".
func (ie *IncludesExcludes) Includes(includes ...string) *IncludesExcludes {
	for _, item := range includes {
		ie.includes.Insert(ie.normalize(item))
	}
	return ie
}

// Excludes adds items to the excludes list
func (ie *IncludesExcludes) Excludes(excludes ...string) *IncludesExcludes {
	for _, item := range excludes {
		ie.excludes.Insert(ie.normalize(item))
	}
	return ie
}

// ShouldInclude returns whether the specified item should be
// included or not. Everything in the includes list except those
// items in the excludes list should be included.
func (ie *IncludesExcludes) ShouldInclude(s string) bool {
	s = ie.normalize(s)

	if matchesAny(ie.excludes, s) {
		return false
	}

	// len=0 means include everything
	return ie.includes.Len() == 0 || ie.includes.Has("*") || matchesAny(ie.includes, s)
}

func matchesAny(patterns sets.Set[string], s string) bool {
	if patterns.Has(s) {
		return true
	}
	for pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(s) {
			return true
		}
	}
	return false
}

// ValidateIncludesExcludes checks provided lists of included and excluded
// items to ensure they are a valid set of IncludesExcludes data.
func ValidateIncludesExcludes(includesList, excludesList []string) []error {
	var errs []error

	includes := sets.New(includesList...)
	excludes := sets.New(excludesList...)

	if includes.Len() > 1 && includes.Has("*") {
		errs = append(errs, errors.New("includes list must either contain '*' only, or a non-empty list of items"))
	}

	if excludes.Has("*") {
		errs = append(errs, errors.New("excludes list cannot contain '*'"))
	}

	for _, itm := range sets.List(excludes) {
		if includes.Has(itm) {
			errs = append(errs, errors.Errorf("excludes list cannot contain an item in the includes list: %v", itm))
		}
	}

	for _, pattern := range append(append([]string{}, includesList...), excludesList...) {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, errors.Wrapf(err, "invalid pattern %q", pattern))
		}
	}

	return errs
}
