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
	"github.com/spf13/cobra"

	"github.com/walbis/tkkube/pkg/cmd/cli"
)

func NewCommand(config *cli.ConfigOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "backup",
		Short: "Browse backups in backup storage",
	}

	c.AddCommand(
		NewGetCommand(config, "get"),
		NewDescribeCommand(config, "describe"),
	)

	return c
}
