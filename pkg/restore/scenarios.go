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
	"time"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

var scenarioCatalog = []restorev1.ScenarioInfo{
	{
		ID:                 restorev1.DRScenarioClusterRebuild,
		Name:               "Complete Cluster Rebuild",
		Description:        "Rebuild an entire cluster from backup, bootstrapping namespaces and the GitOps controller first",
		DefaultRestoreMode: restorev1.RestoreModeFullCluster,
	},
	{
		ID:                 restorev1.DRScenarioNamespaceRecovery,
		Name:               "Namespace Recovery",
		Description:        "Recover specific namespaces into an existing cluster",
		DefaultRestoreMode: restorev1.RestoreModeNamespace,
	},
	{
		ID:                 restorev1.DRScenarioDataCorruption,
		Name:               "Data Corruption Recovery",
		Description:        "Restore the resources damaged by a data corruption event",
		DefaultRestoreMode: restorev1.RestoreModeSelective,
	},
	{
		ID:                 restorev1.DRScenarioConfigurationRollback,
		Name:               "Configuration Rollback",
		Description:        "Roll configuration resources back to their backed-up state",
		DefaultRestoreMode: restorev1.RestoreModeConfiguration,
	},
	{
		ID:                 restorev1.DRScenarioCrossClusterMigration,
		Name:               "Cross-Cluster Migration",
		Description:        "Move workloads from the source cluster onto another cluster",
		DefaultRestoreMode: restorev1.RestoreModeFullCluster,
	},
}

// scenarioShape returns what a scenario does to a plan: whether the target
// is bootstrapped, the step count, the duration estimate and the conflict
// policy.
func scenarioShape(scenario restorev1.DRScenario) (bool, int, time.Duration, restorev1.ConflictPolicy) {
	if scenario == restorev1.DRScenarioClusterRebuild {
		return true, DefaultTotalSteps + BootstrapSteps, DefaultEstimatedDuration * bootstrapDurationFactor, restorev1.ConflictPolicyWarn
	}
	return false, DefaultTotalSteps, DefaultEstimatedDuration, restorev1.ConflictPolicyFail
}

// Scenarios returns the supported disaster recovery scenarios with the
// planning figures a restore of each would get.
func Scenarios() []restorev1.ScenarioInfo {
	out := make([]restorev1.ScenarioInfo, 0, len(scenarioCatalog))
	for _, info := range scenarioCatalog {
		bootstrap, steps, estimate, policy := scenarioShape(info.ID)
		info.RequiresClusterBootstrap = bootstrap
		info.TotalSteps = steps
		info.EstimatedDuration = metav1.Duration{Duration: estimate}
		info.ConflictPolicy = policy
		out = append(out, info)
	}
	return out
}

// LookupScenario returns the catalogue entry of one scenario.
func LookupScenario(scenario restorev1.DRScenario) (restorev1.ScenarioInfo, bool) {
	for _, info := range Scenarios() {
		if info.ID == scenario {
			return info, true
		}
	}
	return restorev1.ScenarioInfo{}, false
}

// RequestForScenario turns a scenario request into a restore request,
// filling the restore mode from the scenario when it is not set. The result
// still has to pass request validation.
func RequestForScenario(sr *restorev1.ScenarioRequest) (*restorev1.RestoreRequest, error) {
	if sr.Scenario == "" {
		return nil, errors.New("scenario is required")
	}
	info, ok := LookupScenario(sr.Scenario)
	if !ok {
		return nil, errors.Errorf("unsupported scenario %q", sr.Scenario)
	}

	mode := sr.RestoreMode
	if mode == "" {
		mode = info.DefaultRestoreMode
	}

	return &restorev1.RestoreRequest{
		RestoreID:        sr.RestoreID,
		BackupID:         sr.BackupID,
		SourceCluster:    sr.SourceCluster,
		TargetCluster:    sr.TargetCluster,
		RestoreMode:      mode,
		DRScenario:       sr.Scenario,
		TargetNamespaces: append([]string(nil), sr.TargetNamespaces...),
		ResourceFilters:  sr.ResourceFilters,
		GitOpsConfig:     sr.GitOpsConfig,
		ValidationConfig: sr.ValidationConfig,
		DryRun:           sr.DryRun,
	}, nil
}
