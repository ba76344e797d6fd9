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
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/wait"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util/confirm"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
)

func NewRunCommand(config *cli.ConfigOptions) *cobra.Command {
	o := NewRunOptions()

	c := &cobra.Command{
		Use:   "run [RESTORE_ID] --backup BACKUP_ID --target-cluster CLUSTER",
		Short: "Run a restore and wait for it to finish",
		Example: `  # Rebuild cluster "dr-east" from backup "prod-20240101".
  gitops-restore restore run --backup prod-20240101 --source-cluster prod --target-cluster dr-east

  # Recover the "shop" namespace into "shop-restored" without touching the repository.
  gitops-restore restore run --backup prod-20240101 --target-cluster dr-east --mode namespace \
      --scenario namespace-recovery --include-namespaces shop --target-namespace shop-restored --dry-run`,
		Args: cobra.MaximumNArgs(1),
		Run: func(c *cobra.Command, args []string) {
			o.Complete(args)
			cmd.CheckError(o.Validate(c))
			cmd.CheckError(withEngine(c, config, func(ctx context.Context, r restorer) error {
				return o.Run(ctx, c, r)
			}))
		},
	}

	o.BindFlags(c.Flags())
	output.BindFlags(c.Flags())

	return c
}

type RunOptions struct {
	*RequestOptions
	Confirm      *confirm.ConfirmOptions
	PollInterval time.Duration
}

func NewRunOptions() *RunOptions {
	return &RunOptions{
		RequestOptions: NewRequestOptions(),
		Confirm:        confirm.NewConfirmOptionsWithDescription("Run the restore without asking for confirmation."),
		PollInterval:   2 * time.Second,
	}
}

func (o *RunOptions) BindFlags(flags *pflag.FlagSet) {
	o.RequestOptions.BindFlags(flags)
	o.Confirm.BindFlags(flags)
	flags.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "How often to report progress while the restore runs.")
}

func (o *RunOptions) Validate(c *cobra.Command) error {
	if o.PollInterval <= 0 {
		return errors.New("--poll-interval must be positive")
	}
	return output.ValidateFlags(c)
}

// Run starts the restore, reports phase changes on stderr until it
// finishes and prints the result. A failed restore is returned as an error.
func (o *RunOptions) Run(ctx context.Context, c *cobra.Command, r restorer) error {
	req, err := o.BuildRequest()
	if err != nil {
		return err
	}

	if !req.DryRun {
		prompt := fmt.Sprintf("Restoring backup %q to cluster %q will push manifests to the GitOps repository.", req.BackupID, req.TargetCluster)
		if !o.Confirm.Confirmed(c.InOrStdin(), c.ErrOrStderr(), prompt) {
			fmt.Fprintln(c.ErrOrStderr(), "Restore aborted.")
			return nil
		}
	}

	id, err := r.StartRestore(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.ErrOrStderr(), "Restore %s started.\n", id)

	var lastPhase restorev1.RestorePhase
	err = wait.PollUntilContextCancel(ctx, o.PollInterval, true, func(context.Context) (bool, error) {
		progress, active := r.GetRestoreStatus(id)
		if !active {
			return true, nil
		}
		if progress.Phase != lastPhase {
			lastPhase = progress.Phase
			fmt.Fprintf(c.ErrOrStderr(), "%s: %s (%.0f%%)\n", progress.Phase, progress.CurrentStep, progress.PercentComplete)
		}
		return false, nil
	})
	if err != nil {
		fmt.Fprintf(c.ErrOrStderr(), "Canceling restore %s.\n", id)
		r.CancelRestore(id)
	}
	r.Wait()

	result, err := r.GetRestoreResult(context.WithoutCancel(ctx), id)
	if err != nil {
		return err
	}

	printed, err := output.PrintWithFormat(c, c.OutOrStdout(), result)
	if err != nil {
		return err
	}
	if !printed {
		fmt.Fprint(c.OutOrStdout(), output.DescribeRestoreResult(result))
	}

	if result.Phase == restorev1.RestorePhaseFailed {
		return errors.Errorf("restore %s failed", id)
	}
	return nil
}
