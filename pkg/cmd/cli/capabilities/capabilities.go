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

package capabilities

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
)

func NewCommand(config *cli.ConfigOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "capabilities",
		Short: "Show the restore modes, scenarios and GitOps settings the configuration supports",
		Run: func(c *cobra.Command, args []string) {
			cmd.CheckError(output.ValidateFlags(c))

			e, err := config.NewEngine(util.GetProgramName(c), config.Logger(c.ErrOrStderr()))
			cmd.CheckError(err)
			defer e.Close()

			cmd.CheckError(printCapabilities(c, c.OutOrStdout(), e.Orchestrator.GetCapabilities()))
		},
	}

	output.BindFlags(c.Flags())

	return c
}

func printCapabilities(c *cobra.Command, w io.Writer, caps restorev1.Capabilities) error {
	if printed, err := output.PrintWithFormat(c, w, caps); printed || err != nil {
		return err
	}
	_, err := fmt.Fprint(w, output.DescribeCapabilities(caps))
	return err
}
