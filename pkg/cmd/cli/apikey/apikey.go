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

package apikey

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/util/flag"
)

func NewCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "apikey",
		Short: "Manage restore API keys",
	}

	c.AddCommand(NewGenerateCommand())

	return c
}

func NewGenerateCommand() *cobra.Command {
	o := NewGenerateOptions()

	c := &cobra.Command{
		Use:   "generate NAME",
		Short: "Generate an API key for the restore API server",
		Long: `Generate a random API key. The key itself is printed once; only its
prefix and bcrypt hash need to be added to the server configuration.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			o.Name = args[0]
			cmd.CheckError(o.Validate())
			cmd.CheckError(o.Run(c.OutOrStdout(), time.Now()))
		},
	}

	o.BindFlags(c.Flags())

	return c
}

type GenerateOptions struct {
	Name      string
	Clusters  flag.StringArray
	Scenarios flag.StringArray
	ExpiresIn time.Duration
}

func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		Clusters:  flag.NewStringArray("*"),
		Scenarios: flag.NewStringArray("*"),
	}
}

func (o *GenerateOptions) BindFlags(flags *pflag.FlagSet) {
	flags.Var(&o.Clusters, "clusters", "Target clusters the key may restore to. '*' allows all clusters.")
	flags.Var(&o.Scenarios, "scenarios", "Disaster recovery scenarios the key may run. '*' allows all scenarios.")
	flags.DurationVar(&o.ExpiresIn, "expires-in", 0, "How long the key stays valid. Zero means it never expires.")
}

func (o *GenerateOptions) Validate() error {
	if o.Name == "" {
		return errors.New("a key name is required")
	}
	if len(o.Clusters) == 0 {
		return errors.New("at least one cluster is required")
	}

	known := sets.New("*")
	for _, s := range restorev1.DRScenarios() {
		known.Insert(string(s))
	}
	for _, s := range o.Scenarios {
		if !known.Has(s) {
			return errors.Errorf("unknown scenario %q, valid values are %v", s, sets.List(known))
		}
	}
	if len(o.Scenarios) == 0 {
		return errors.New("at least one scenario is required")
	}
	if o.ExpiresIn < 0 {
		return errors.New("--expires-in must not be negative")
	}
	return nil
}

func (o *GenerateOptions) Run(w io.Writer, now time.Time) error {
	key, raw, err := auth.GenerateKey(o.Name, o.Clusters, o.Scenarios)
	if err != nil {
		return err
	}
	if o.ExpiresIn > 0 {
		expires := now.Add(o.ExpiresIn).UTC().Truncate(time.Second)
		key.ExpiresAt = &expires
	}

	entry, err := yaml.Marshal([]auth.APIKey{key})
	if err != nil {
		return errors.WithStack(err)
	}

	fmt.Fprintf(w, "API key for %q. It is not shown again:\n\n    %s\n\n", key.Name, raw)
	fmt.Fprintf(w, "Add it to the api.keys list of the configuration file:\n\n%s\n", entry)
	if key.ExpiresAt == nil && isWildcard(o.Clusters) && isWildcard(o.Scenarios) {
		fmt.Fprintf(w, "or to the RESTORE_API_KEYS environment variable:\n\n    %s:%s:%s\n", key.Name, key.Prefix, key.Hash)
	}
	return nil
}

func isWildcard(values []string) bool {
	return len(values) == 1 && values[0] == "*"
}
