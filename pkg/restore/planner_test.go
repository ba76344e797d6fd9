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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/builder"
)

func testMetadata() *restorev1.BackupMetadata {
	return &restorev1.BackupMetadata{
		BackupID:    "b1",
		ClusterName: "prod",
		Timestamp:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ResourceCounts: map[string]int{
			"app-prod/deployments":    4,
			"app-prod/configmaps":     6,
			"app-staging/deployments": 2,
			"kube-system/configmaps":  3,
			"namespaces":              5,
		},
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name               string
		req                *restorev1.RestoreRequest
		wantResources      int
		wantSteps          int
		wantDuration       time.Duration
		wantBootstrap      bool
		wantConflictPolicy restorev1.ConflictPolicy
		wantNamespaces     []string
	}{
		{
			name:               "namespace recovery of the whole backup",
			req:                builder.ForRestoreRequest("r1", "b1").Result(),
			wantResources:      20,
			wantSteps:          7,
			wantDuration:       30 * time.Minute,
			wantConflictPolicy: restorev1.ConflictPolicyFail,
			wantNamespaces:     []string{"app-prod", "app-staging", "kube-system"},
		},
		{
			name:               "cluster rebuild requires bootstrap",
			req:                builder.ForRestoreRequest("r1", "b1").Scenario(restorev1.DRScenarioClusterRebuild).Result(),
			wantResources:      20,
			wantSteps:          9,
			wantDuration:       2 * time.Hour,
			wantBootstrap:      true,
			wantConflictPolicy: restorev1.ConflictPolicyWarn,
			wantNamespaces:     []string{"app-prod", "app-staging", "kube-system"},
		},
		{
			name: "namespace and resource filters narrow the count",
			req: builder.ForRestoreRequest("r1", "b1").
				IncludedNamespaces("app-*").
				ExcludedNamespaces("*-staging").
				IncludedResources("deployments").
				Result(),
			wantResources:      4,
			wantSteps:          7,
			wantDuration:       30 * time.Minute,
			wantConflictPolicy: restorev1.ConflictPolicyFail,
			wantNamespaces:     []string{"app-prod"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Plan(tc.req, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, tc.wantResources, plan.TotalResources)
			assert.Equal(t, tc.wantSteps, plan.TotalSteps)
			assert.Len(t, plan.Steps, tc.wantSteps)
			assert.Equal(t, tc.wantDuration, plan.EstimatedDuration.Duration)
			assert.Equal(t, tc.wantBootstrap, plan.RequiresClusterBootstrap)
			assert.Equal(t, tc.wantConflictPolicy, plan.ConflictPolicy)
			assert.Equal(t, tc.wantNamespaces, plan.Namespaces)
			assert.Equal(t, "prod", plan.SourceCluster)
		})
	}
}

func TestPlanUnknownBackup(t *testing.T) {
	_, err := Plan(builder.ForRestoreRequest("r1", "missing").Result(), nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestPlanInvalidNamespacePattern(t *testing.T) {
	req := builder.ForRestoreRequest("r1", "b1").IncludedNamespaces("app-(a|b)").Result()
	_, err := Plan(req, testMetadata())
	assert.Error(t, err)
}
