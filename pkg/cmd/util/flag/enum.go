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
	"strings"

	"github.com/pkg/errors"
)

// Enum is a Cobra-compatible wrapper for defining
// a string flag that can be one of a specified set
// of values.
type Enum struct {
	allowedValues []string
	value         string
}

// NewEnum returns a new enum flag with the specified list
// of allowed values, and the specified default value if
// none is set.
func NewEnum(defaultValue string, allowedValues ...string) *Enum {
	return &Enum{
		allowedValues: allowedValues,
		value:         defaultValue,
	}
}

// NewEnumOf is NewEnum for string-typed constants such as restore modes.
func NewEnumOf[T ~string](defaultValue T, allowedValues ...T) *Enum {
	values := make([]string, 0, len(allowedValues))
	for _, v := range allowedValues {
		values = append(values, string(v))
	}
	return NewEnum(string(defaultValue), values...)
}

func (e *Enum) String() string {
	return e.value
}

// Set assigns s to the receiver. It returns an error listing the
// allowed values if s is not one of them.
func (e *Enum) Set(s string) error {
	for _, val := range e.allowedValues {
		if val == s {
			e.value = s
			return nil
		}
	}

	return errors.Errorf("invalid value %q, valid values are %s", s, strings.Join(e.allowedValues, ", "))
}

// Type is empty so the help text only shows the usage, which lists the
// allowed values.
func (e *Enum) Type() string {
	return ""
}

// AllowedValues returns a slice of the flag's valid
// values.
func (e *Enum) AllowedValues() []string {
	return e.allowedValues
}
