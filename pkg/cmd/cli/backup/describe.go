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

package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
)

func NewDescribeCommand(config *cli.ConfigOptions, use string) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " BACKUP_ID [BACKUP_ID...]",
		Short: "Describe backups",
		Args:  cobra.MinimumNArgs(1),
		Run: func(c *cobra.Command, args []string) {
			cmd.CheckError(output.ValidateFlags(c))

			store, err := config.NewBackupStore(config.Logger(c.ErrOrStderr()))
			cmd.CheckError(err)

			backups, err := getBackups(c.Context(), store, args, "")
			cmd.CheckError(err)

			first := true
			for _, md := range backups {
				printed, err := output.PrintWithFormat(c, c.OutOrStdout(), md)
				cmd.CheckError(err)
				if printed {
					continue
				}
				if !first {
					fmt.Fprintln(c.OutOrStdout())
				}
				fmt.Fprint(c.OutOrStdout(), output.DescribeBackup(md))
				first = false
			}
		},
	}

	output.BindFlags(c.Flags())

	return c
}
