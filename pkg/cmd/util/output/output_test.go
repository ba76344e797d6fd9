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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

func newCommand(t *testing.T, format string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	BindFlags(c.Flags())
	require.NoError(t, c.Flags().Set("output", format))
	return c
}

func TestValidateFlags(t *testing.T) {
	for _, format := range []string{"table", "json", "yaml"} {
		assert.NoError(t, ValidateFlags(newCommand(t, format)))
	}
	assert.EqualError(t, ValidateFlags(newCommand(t, "xml")), `invalid output format "xml" - valid values are 'table', 'json', and 'yaml'`)
}

func TestPrintWithFormat(t *testing.T) {
	plan := &restorev1.RestorePlan{RestoreID: "r1", BackupID: "b1", TotalResources: 3}

	tests := []struct {
		format   string
		printed  bool
		expected string
	}{
		{format: "table", printed: false},
		{format: "json", printed: true, expected: `"restore_id": "r1"`},
		{format: "yaml", printed: true, expected: "restore_id: r1\n"},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			buf := new(bytes.Buffer)
			printed, err := PrintWithFormat(newCommand(t, tc.format), buf, plan)
			require.NoError(t, err)
			assert.Equal(t, tc.printed, printed)
			assert.Contains(t, buf.String(), tc.expected)
		})
	}
}

func TestPrintRestoreHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	results := []restorev1.RestoreResult{
		{
			RestoreID:         "r1",
			Phase:             restorev1.RestorePhaseCompleted,
			EndTime:           now.Add(-2 * time.Hour),
			Duration:          metav1.Duration{Duration: 90 * time.Second},
			ResourcesRestored: 20,
			Request: restorev1.RestoreRequest{
				BackupID:      "b1",
				TargetCluster: "dr",
				DRScenario:    restorev1.DRScenarioClusterRebuild,
			},
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, PrintRestoreHistory(buf, now, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"NAME", "BACKUP", "TARGET", "SCENARIO", "PHASE", "RESTORED", "FAILED", "DURATION", "AGE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"r1", "b1", "dr", "cluster-rebuild", "Completed", "20", "0", "1m30s", "2h"}, strings.Fields(lines[1]))
}

func TestPrintBackups(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backups := []*restorev1.BackupMetadata{
		{BackupID: "b1", ClusterName: "prod", Timestamp: now.Add(-72 * time.Hour), SizeBytes: 2048, ResourceCounts: map[string]int{"app/configmaps": 3, "namespaces": 1}},
		{BackupID: "b2", ClusterName: "prod"},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, PrintBackups(buf, now, backups))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"b1", "prod", "4", "2048", "3d"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b2", "prod", "0", "0", "<unknown>"}, strings.Fields(lines[2]))
}

func TestDescribeRestoreResult(t *testing.T) {
	result := &restorev1.RestoreResult{
		RestoreID:         "r1",
		Phase:             restorev1.RestorePhaseFailed,
		ResourcesRestored: 18,
		ResourcesFailed:   2,
		GitCommits:        []string{"abc123"},
		ErrorSummary:      "verification failed: connection refused",
		Recommendations:   []string{"Check cluster connectivity"},
		ValidationReport: &restorev1.ValidationReport{
			Health: restorev1.HealthReport{
				Healthy:       18,
				Unhealthy:     2,
				OverallStatus: restorev1.HealthStatusUnhealthy,
				Details: []restorev1.ResourceHealth{
					{Kind: "Deployment", Namespace: "app", Name: "web", Status: restorev1.HealthStatusUnhealthy, Message: "0/3 replicas ready"},
					{Kind: "ConfigMap", Namespace: "app", Name: "settings", Status: restorev1.HealthStatusHealthy},
				},
			},
			FunctionalTests: []restorev1.FunctionalTestResult{{Name: "web-ready", Passed: false, Message: "expression was false"}},
		},
		Request: restorev1.RestoreRequest{BackupID: "b1", SourceCluster: "prod", TargetCluster: "dr"},
	}

	out := DescribeRestoreResult(result)
	for _, expected := range []string{
		"Restore:", "r1",
		"Failed",
		"prod -> dr",
		"Resources Restored:  18",
		"Resources Failed:    2",
		"abc123",
		"verification failed: connection refused",
		"Unhealthy",
		"Deployment app/web: Unhealthy 0/3 replicas ready",
		"web-ready: ",
		"(expression was false)",
		"Check cluster connectivity",
	} {
		assert.Contains(t, out, expected)
	}
	assert.NotContains(t, out, "app/settings")
}

func TestDescribeRestorePlan(t *testing.T) {
	out := DescribeRestorePlan(&restorev1.RestorePlan{
		RestoreID: "r1",
		Steps:     []string{"Validate clusters", "Commit manifests"},
	})
	assert.Contains(t, out, "1. Validate clusters")
	assert.Contains(t, out, "2. Commit manifests")
	assert.Contains(t, out, "<none>")
}
