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

package output

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/walbis/tkkube/pkg/cmd/util/flag"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// BindFlags defines a set of output-specific flags within the provided
// FlagSet.
func BindFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", FormatTable, "Output display format. Valid formats are 'table', 'json', and 'yaml'.")
}

// GetOutputFlagValue returns the value of the "output" flag
// in the provided command, or the zero value if not present.
func GetOutputFlagValue(cmd *cobra.Command) string {
	return flag.GetOptionalStringFlag(cmd, "output")
}

// ValidateFlags returns an error if any of the output-related flags
// were specified with invalid values, or nil otherwise.
func ValidateFlags(cmd *cobra.Command) error {
	switch output := GetOutputFlagValue(cmd); output {
	case "", FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return errors.Errorf("invalid output format %q - valid values are 'table', 'json', and 'yaml'", output)
	}
}

// PrintWithFormat prints obj to w if the command asked for json or yaml.
// It returns false when the caller should print its own human-readable
// form instead.
func PrintWithFormat(cmd *cobra.Command, w io.Writer, obj interface{}) (bool, error) {
	format := GetOutputFlagValue(cmd)
	switch format {
	case "", FormatTable:
		return false, nil
	case FormatJSON, FormatYAML:
		encoded, err := Encode(obj, format)
		if err != nil {
			return false, err
		}
		_, err = w.Write(encoded)
		return true, err
	}

	return false, errors.Errorf("unsupported output format %q; valid values are 'table', 'json', and 'yaml'", format)
}

// Encode converts obj to json or yaml.
func Encode(obj interface{}, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		encoded, err := json.MarshalIndent(obj, "", "    ")
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return append(encoded, '\n'), nil
	case FormatYAML:
		encoded, err := yaml.Marshal(obj)
		return encoded, errors.WithStack(err)
	default:
		return nil, errors.Errorf("unsupported encoding format %q", format)
	}
}
