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

package flag

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Map is a pflag.Value holding key=value pairs separated by commas,
// e.g. app=web,tier=frontend. Repeating the flag adds to the map.
type Map struct {
	data      map[string]string
	labelKeys bool
}

func NewMap() Map {
	return Map{data: make(map[string]string)}
}

// NewLabelMap returns a Map whose keys and values must be valid
// Kubernetes label keys and values.
func NewLabelMap() Map {
	m := NewMap()
	m.labelKeys = true
	return m
}

func (m *Map) String() string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+m.data[k])
	}
	return strings.Join(pairs, ",")
}

func (m *Map) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return errors.Errorf("error parsing %q, expected key=value", part)
		}
		if m.labelKeys {
			if errs := validation.IsQualifiedName(key); len(errs) > 0 {
				return errors.Errorf("invalid label key %q: %s", key, strings.Join(errs, "; "))
			}
			if errs := validation.IsValidLabelValue(value); len(errs) > 0 {
				return errors.Errorf("invalid label value %q: %s", value, strings.Join(errs, "; "))
			}
		}
		m.data[key] = value
	}
	return nil
}

func (m *Map) Type() string {
	return "mapStringString"
}

// Data returns the parsed pairs, or nil when none were given.
func (m *Map) Data() map[string]string {
	if len(m.data) == 0 {
		return nil
	}
	return m.data
}
