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
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/apiserver"
	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
)

const (
	serverEnvVar = "GITOPS_RESTORE_SERVER"
	apiKeyEnvVar = "GITOPS_RESTORE_API_KEY"
)

// remoteRestores is the part of the API client the get command uses.
type remoteRestores interface {
	ListActiveRestores(ctx context.Context) ([]*restorev1.RestoreProgress, error)
	ListRestoreHistory(ctx context.Context, limit int) ([]restorev1.RestoreResult, error)
	GetRestore(ctx context.Context, restoreID string) (*apiserver.RestoreStatus, error)
}

type GetOptions struct {
	Server  string
	APIKey  string
	Limit   int
	Timeout time.Duration
}

func NewGetOptions() *GetOptions {
	return &GetOptions{
		Server:  os.Getenv(serverEnvVar),
		APIKey:  os.Getenv(apiKeyEnvVar),
		Limit:   20,
		Timeout: 30 * time.Second,
	}
}

func (o *GetOptions) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.Server, "server", o.Server, "Base URL of the restore API server, e.g. http://localhost:8080. Defaults to $"+serverEnvVar+".")
	flags.StringVar(&o.APIKey, "api-key", o.APIKey, "API key sent as a bearer token. Defaults to $"+apiKeyEnvVar+".")
	flags.IntVar(&o.Limit, "limit", o.Limit, "Maximum number of finished restores to list. 0 uses the server default.")
	flags.DurationVar(&o.Timeout, "timeout", o.Timeout, "Maximum time to wait for the server")
}

func (o *GetOptions) Validate(c *cobra.Command) error {
	if o.Server == "" {
		return errors.Errorf("--server or $%s is required", serverEnvVar)
	}
	if o.Limit < 0 {
		return errors.New("--limit must not be negative")
	}
	return output.ValidateFlags(c)
}

func NewGetCommand() *cobra.Command {
	o := NewGetOptions()

	c := &cobra.Command{
		Use:   "get [RESTORE_ID...]",
		Short: "Get restores from a running API server",
		Long: `Get restores from a running API server.

Without arguments, lists the restores the server is running and the most recent
finished restores. With restore IDs, describes each of them.`,
		Run: func(c *cobra.Command, args []string) {
			cmd.CheckError(o.Validate(c))

			ctx, cancel := context.WithTimeout(c.Context(), o.Timeout)
			defer cancel()

			client := apiserver.NewClient(o.Server, o.APIKey, nil)
			cmd.CheckError(runGet(ctx, c, o, args, client, time.Now()))
		},
	}

	o.BindFlags(c.Flags())
	output.BindFlags(c.Flags())

	return c
}

// RestoreList is the active and finished restores of a server.
type RestoreList struct {
	Active  []*restorev1.RestoreProgress `json:"active"`
	History []restorev1.RestoreResult    `json:"history"`
}

func runGet(ctx context.Context, c *cobra.Command, o *GetOptions, restoreIDs []string, client remoteRestores, now time.Time) error {
	if len(restoreIDs) > 0 {
		return describeRemote(ctx, c, restoreIDs, client)
	}

	active, err := client.ListActiveRestores(ctx)
	if err != nil {
		return errors.Wrap(err, "error listing active restores")
	}
	history, err := client.ListRestoreHistory(ctx, o.Limit)
	if err != nil {
		return errors.Wrap(err, "error listing restore history")
	}

	list := &RestoreList{Active: active, History: history}
	if list.Active == nil {
		list.Active = []*restorev1.RestoreProgress{}
	}
	if list.History == nil {
		list.History = []restorev1.RestoreResult{}
	}
	if printed, err := output.PrintWithFormat(c, c.OutOrStdout(), list); printed || err != nil {
		return err
	}

	w := c.OutOrStdout()
	if len(active) == 0 {
		fmt.Fprintln(w, "No active restores.")
	} else if err := output.PrintActiveRestores(w, now, active); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if len(history) == 0 {
		fmt.Fprintln(w, "No finished restores.")
		return nil
	}
	return output.PrintRestoreHistory(w, now, history)
}

func describeRemote(ctx context.Context, c *cobra.Command, restoreIDs []string, client remoteRestores) error {
	w := c.OutOrStdout()
	for i, id := range restoreIDs {
		status, err := client.GetRestore(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "error getting restore %s", id)
		}

		if printed, err := output.PrintWithFormat(c, w, status); printed || err != nil {
			if err != nil {
				return err
			}
			continue
		}

		if i > 0 {
			fmt.Fprintln(w)
		}
		switch {
		case status.Active && status.Progress != nil:
			fmt.Fprint(w, output.DescribeRestoreProgress(status.Progress))
		case status.Result != nil:
			fmt.Fprint(w, output.DescribeRestoreResult(status.Result))
		default:
			fmt.Fprintf(w, "Restore %s has no status.\n", id)
		}
	}
	return nil
}
