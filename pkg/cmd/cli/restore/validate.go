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

package restore

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
)

// ValidationResult is what validate prints in json and yaml.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

func NewValidateCommand(config *cli.ConfigOptions) *cobra.Command {
	o := NewRequestOptions()

	c := &cobra.Command{
		Use:   "validate [RESTORE_ID] --backup BACKUP_ID --target-cluster CLUSTER",
		Short: "Check whether a restore could run without running it",
		Args:  cobra.MaximumNArgs(1),
		Run: func(c *cobra.Command, args []string) {
			o.Complete(args)
			cmd.CheckError(output.ValidateFlags(c))
			cmd.CheckError(withEngine(c, config, func(ctx context.Context, r restorer) error {
				return runValidate(ctx, c, o, r)
			}))
		},
	}

	o.BindFlags(c.Flags())
	output.BindFlags(c.Flags())

	return c
}

func runValidate(ctx context.Context, c *cobra.Command, o *RequestOptions, r restorer) error {
	req, err := o.BuildRequest()
	if err != nil {
		return err
	}

	warnings, err := r.ValidateRestore(ctx, req)
	if err != nil {
		return err
	}

	result := ValidationResult{Valid: true, Warnings: warnings}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	if printed, err := output.PrintWithFormat(c, c.OutOrStdout(), result); printed || err != nil {
		return err
	}

	fmt.Fprintf(c.OutOrStdout(), "Restore %s is valid.\n", req.RestoreID)
	for _, w := range warnings {
		fmt.Fprintf(c.OutOrStdout(), "Warning: %s\n", w)
	}
	return nil
}
