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

func TestScenarios(t *testing.T) {
	scenarios := Scenarios()

	var ids []restorev1.DRScenario
	for _, info := range scenarios {
		ids = append(ids, info.ID)
		assert.NotEmpty(t, info.Name)
		assert.Contains(t, restorev1.RestoreModes(), info.DefaultRestoreMode)
	}
	assert.Equal(t, restorev1.DRScenarios(), ids)

	rebuild, ok := LookupScenario(restorev1.DRScenarioClusterRebuild)
	require.True(t, ok)
	assert.True(t, rebuild.RequiresClusterBootstrap)
	assert.Equal(t, 9, rebuild.TotalSteps)
	assert.Equal(t, 2*time.Hour, rebuild.EstimatedDuration.Duration)
	assert.Equal(t, restorev1.ConflictPolicyWarn, rebuild.ConflictPolicy)

	rollback, ok := LookupScenario(restorev1.DRScenarioConfigurationRollback)
	require.True(t, ok)
	assert.False(t, rollback.RequiresClusterBootstrap)
	assert.Equal(t, 7, rollback.TotalSteps)
	assert.Equal(t, 30*time.Minute, rollback.EstimatedDuration.Duration)
	assert.Equal(t, restorev1.ConflictPolicyFail, rollback.ConflictPolicy)

	_, ok = LookupScenario("meteor-strike")
	assert.False(t, ok)
}

func TestScenariosMatchPlans(t *testing.T) {
	for _, info := range Scenarios() {
		req := builder.ForRestoreRequest("r1", "b1").Clusters("prod", "dr").Scenario(info.ID).Result()
		plan, err := Plan(req, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, info.TotalSteps, plan.TotalSteps, info.ID)
		assert.Equal(t, info.EstimatedDuration, plan.EstimatedDuration, info.ID)
		assert.Equal(t, info.ConflictPolicy, plan.ConflictPolicy, info.ID)
		assert.Equal(t, info.RequiresClusterBootstrap, plan.RequiresClusterBootstrap, info.ID)
	}
}

func TestRequestForScenario(t *testing.T) {
	tests := []struct {
		name     string
		request  *restorev1.ScenarioRequest
		wantMode restorev1.RestoreMode
		wantErr  string
	}{
		{
			name:     "namespace recovery defaults to a namespace restore",
			request:  &restorev1.ScenarioRequest{RestoreID: "r1", Scenario: restorev1.DRScenarioNamespaceRecovery, BackupID: "b1", SourceCluster: "prod", TargetCluster: "dr", TargetNamespaces: []string{"app-dr"}},
			wantMode: restorev1.RestoreModeNamespace,
		},
		{
			name:     "configuration rollback",
			request:  &restorev1.ScenarioRequest{RestoreID: "r1", Scenario: restorev1.DRScenarioConfigurationRollback, BackupID: "b1", TargetCluster: "prod"},
			wantMode: restorev1.RestoreModeConfiguration,
		},
		{
			name:     "explicit mode wins",
			request:  &restorev1.ScenarioRequest{RestoreID: "r1", Scenario: restorev1.DRScenarioClusterRebuild, BackupID: "b1", TargetCluster: "dr", RestoreMode: restorev1.RestoreModeSelective},
			wantMode: restorev1.RestoreModeSelective,
		},
		{
			name:    "missing scenario",
			request: &restorev1.ScenarioRequest{RestoreID: "r1", BackupID: "b1", TargetCluster: "dr"},
			wantErr: "scenario is required",
		},
		{
			name:    "unknown scenario",
			request: &restorev1.ScenarioRequest{RestoreID: "r1", Scenario: "meteor-strike", BackupID: "b1", TargetCluster: "dr"},
			wantErr: `unsupported scenario "meteor-strike"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := RequestForScenario(tc.request)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMode, req.RestoreMode)
			assert.Equal(t, tc.request.Scenario, req.DRScenario)
			assert.Equal(t, tc.request.RestoreID, req.RestoreID)
			assert.Equal(t, tc.request.BackupID, req.BackupID)
			assert.Equal(t, tc.request.TargetCluster, req.TargetCluster)
			assert.Equal(t, tc.request.TargetNamespaces, req.TargetNamespaces)
		})
	}
}
