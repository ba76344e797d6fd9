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
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/cli/apikey"
	"github.com/walbis/tkkube/pkg/cmd/cli/backup"
	"github.com/walbis/tkkube/pkg/cmd/cli/capabilities"
	"github.com/walbis/tkkube/pkg/cmd/cli/completion"
	"github.com/walbis/tkkube/pkg/cmd/cli/restore"
	"github.com/walbis/tkkube/pkg/cmd/server"
	"github.com/walbis/tkkube/pkg/cmd/version"
)

func NewCommand(name string) *cobra.Command {
	c := &cobra.Command{
		Use:   name,
		Short: "Restore Kubernetes clusters from backups through GitOps.",
		Long: `gitops-restore recovers Kubernetes resources from backups by committing them
to a GitOps repository and letting the GitOps controller apply them to the
target cluster.

Restores can be run directly with 'gitops-restore restore run', or submitted to
a long-running API server started with 'gitops-restore server'.`,
		SilenceUsage: true,
	}

	config := cli.NewConfigOptions()
	config.BindFlags(c.PersistentFlags())

	c.AddCommand(
		restore.NewCommand(config),
		backup.NewCommand(config),
		capabilities.NewCommand(config),
		server.NewCommand(config),
		apikey.NewCommand(),
		version.NewCommand(),
		completion.NewCommand(),
	)

	// init and add the klog flags
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	c.PersistentFlags().AddGoFlagSet(klogFlags)

	return c
}
