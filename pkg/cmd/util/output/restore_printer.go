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

package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

func newTable(w io.Writer, columns ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 8, 3, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	return tw
}

// PrintRestoreHistory prints one row per finished restore.
func PrintRestoreHistory(w io.Writer, now time.Time, results []restorev1.RestoreResult) error {
	tw := newTable(w, "NAME", "BACKUP", "TARGET", "SCENARIO", "PHASE", "RESTORED", "FAILED", "DURATION", "AGE")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RestoreID,
			r.Request.BackupID,
			r.Request.TargetCluster,
			r.Request.DRScenario,
			r.Phase,
			r.ResourcesRestored,
			r.ResourcesFailed,
			r.Duration.Duration.Round(time.Second),
			humanReadableDurationSince(now, r.EndTime, "<n/a>"),
		)
	}
	return tw.Flush()
}

// PrintActiveRestores prints one row per active restore.
func PrintActiveRestores(w io.Writer, now time.Time, active []*restorev1.RestoreProgress) error {
	tw := newTable(w, "NAME", "PHASE", "PROGRESS", "STEP", "AGE")
	for _, p := range active {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\t%s\n",
			p.RestoreID,
			p.Phase,
			p.PercentComplete,
			p.CurrentStep,
			humanReadableDurationSince(now, p.StartTime, "<n/a>"),
		)
	}
	return tw.Flush()
}

// PrintBackups prints one row per backup.
func PrintBackups(w io.Writer, now time.Time, backups []*restorev1.BackupMetadata) error {
	tw := newTable(w, "NAME", "CLUSTER", "RESOURCES", "SIZE", "AGE")
	for _, b := range backups {
		total := 0
		for _, n := range b.ResourceCounts {
			total += n
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			b.BackupID,
			b.ClusterName,
			total,
			b.SizeBytes,
			humanReadableDurationSince(now, b.Timestamp, "<unknown>"),
		)
	}
	return tw.Flush()
}
