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

	"github.com/spf13/cobra"
	kubeerrs "k8s.io/apimachinery/pkg/util/errors"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util"
	"github.com/walbis/tkkube/pkg/cmd/util/signals"
)

func NewCommand(config *cli.ConfigOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "restore",
		Short: "Work with restores",
		Long:  "Plan, validate, run, describe and list restores",
	}

	c.AddCommand(
		NewRunCommand(config),
		NewPlanCommand(config),
		NewValidateCommand(config),
		NewDescribeCommand(config),
		NewGetCommand(),
	)

	return c
}

// restorer is the part of the orchestrator the restore commands use.
type restorer interface {
	StartRestore(ctx context.Context, req *restorev1.RestoreRequest) (string, error)
	GetRestoreStatus(restoreID string) (*restorev1.RestoreProgress, bool)
	CancelRestore(restoreID string) bool
	GetRestoreResult(ctx context.Context, restoreID string) (*restorev1.RestoreResult, error)
	PlanRestore(ctx context.Context, req *restorev1.RestoreRequest) (*restorev1.RestorePlan, error)
	ValidateRestore(ctx context.Context, req *restorev1.RestoreRequest) ([]string, error)
	Wait()
}

// withEngine builds an engine from the configuration, runs fn against its
// orchestrator and closes it. The context passed to fn is canceled on
// SIGINT or SIGTERM.
func withEngine(c *cobra.Command, config *cli.ConfigOptions, fn func(ctx context.Context, r restorer) error) error {
	logger := config.Logger(c.ErrOrStderr())

	e, err := config.NewEngine(util.GetProgramName(c), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context())
	defer cancel()
	signals.CancelOnShutdown(cancel, logger)

	err = fn(ctx, e.Orchestrator)
	return kubeerrs.NewAggregate([]error{err, e.Close()})
}
