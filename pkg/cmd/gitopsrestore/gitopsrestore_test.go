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

package gitopsrestore

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(t *testing.T, root *cobra.Command, path ...string) *cobra.Command {
	t.Helper()
	c, rest, err := root.Find(path)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, path[len(path)-1], c.Name())
	return c
}

func TestCommandTree(t *testing.T) {
	root := NewCommand("gitops-restore")

	for _, flag := range []string{"config", "env-file", "log-level", "log-format", "v"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing persistent flag %s", flag)
	}

	tests := []struct {
		path  []string
		flags []string
	}{
		{path: []string{"restore", "run"}, flags: []string{"backup", "target-cluster", "mode", "scenario", "dry-run", "confirm", "poll-interval", "output"}},
		{path: []string{"restore", "plan"}, flags: []string{"backup", "target-cluster", "output"}},
		{path: []string{"restore", "validate"}, flags: []string{"backup", "target-cluster", "output"}},
		{path: []string{"restore", "describe"}, flags: []string{"output"}},
		{path: []string{"restore", "get"}, flags: []string{"server", "api-key", "limit", "timeout", "output"}},
		{path: []string{"backup", "get"}, flags: []string{"cluster", "output"}},
		{path: []string{"backup", "describe"}, flags: []string{"output"}},
		{path: []string{"capabilities"}, flags: []string{"output"}},
		{path: []string{"server"}, flags: []string{"api-address", "metrics-address"}},
		{path: []string{"apikey", "generate"}, flags: []string{"clusters", "scenarios", "expires-in"}},
		{path: []string{"version"}, flags: []string{"server", "timeout"}},
		{path: []string{"completion"}},
	}

	for _, test := range tests {
		c := findCommand(t, root, test.path...)
		for _, flag := range test.flags {
			assert.NotNil(t, c.Flags().Lookup(flag), "command %v is missing flag %s", test.path, flag)
		}
	}
}
