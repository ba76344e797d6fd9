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

func NewDescribeCommand(config *cli.ConfigOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "describe RESTORE_ID [RESTORE_ID...]",
		Short: "Describe finished restores",
		Long:  "Describe restores whose results were saved to backup storage",
		Args:  cobra.MinimumNArgs(1),
		Run: func(c *cobra.Command, args []string) {
			cmd.CheckError(output.ValidateFlags(c))
			cmd.CheckError(withEngine(c, config, func(ctx context.Context, r restorer) error {
				return runDescribe(ctx, c, args, r)
			}))
		},
	}

	output.BindFlags(c.Flags())

	return c
}

func runDescribe(ctx context.Context, c *cobra.Command, restoreIDs []string, r restorer) error {
	first := true
	for _, id := range restoreIDs {
		result, err := r.GetRestoreResult(ctx, id)
		if err != nil {
			return err
		}

		printed, err := output.PrintWithFormat(c, c.OutOrStdout(), result)
		if err != nil {
			return err
		}
		if printed {
			continue
		}

		if !first {
			fmt.Fprintln(c.OutOrStdout())
		}
		fmt.Fprint(c.OutOrStdout(), output.DescribeRestoreResult(result))
		first = false
	}
	return nil
}
