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
	"context"
	"sort"
	"time"

	"github.com/spf13/cobra"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
	"github.com/walbis/tkkube/pkg/persistence"
)

func NewGetCommand(config *cli.ConfigOptions, use string) *cobra.Command {
	var cluster string

	c := &cobra.Command{
		Use:   use + " [BACKUP_ID...]",
		Short: "Get backups",
		Run: func(c *cobra.Command, args []string) {
			cmd.CheckError(output.ValidateFlags(c))

			store, err := config.NewBackupStore(config.Logger(c.ErrOrStderr()))
			cmd.CheckError(err)

			backups, err := getBackups(c.Context(), store, args, cluster)
			cmd.CheckError(err)

			printed, err := output.PrintWithFormat(c, c.OutOrStdout(), backups)
			cmd.CheckError(err)
			if !printed {
				cmd.CheckError(output.PrintBackups(c.OutOrStdout(), time.Now(), backups))
			}
		},
	}

	c.Flags().StringVar(&cluster, "cluster", "", "Only show backups taken from this cluster.")
	output.BindFlags(c.Flags())

	return c
}

// getBackups returns the metadata of the named backups, or of every
// backup when ids is empty, newest first.
func getBackups(ctx context.Context, store persistence.BackupStore, ids []string, cluster string) ([]*restorev1.BackupMetadata, error) {
	if len(ids) == 0 {
		var err error
		if ids, err = store.ListBackups(ctx); err != nil {
			return nil, err
		}
	}

	backups := make([]*restorev1.BackupMetadata, 0, len(ids))
	for _, id := range ids {
		md, err := store.GetBackupMetadata(ctx, id)
		if err != nil {
			return nil, err
		}
		if cluster != "" && md.ClusterName != cluster {
			continue
		}
		backups = append(backups, md)
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}
