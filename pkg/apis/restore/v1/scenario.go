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

package v1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// ScenarioInfo describes a disaster recovery scenario and the restore it
// leads to by default.
type ScenarioInfo struct {
	ID                       DRScenario      `json:"id"`
	Name                     string          `json:"name"`
	Description              string          `json:"description"`
	DefaultRestoreMode       RestoreMode     `json:"default_restore_mode"`
	ConflictPolicy           ConflictPolicy  `json:"conflict_policy"`
	RequiresClusterBootstrap bool            `json:"requires_cluster_bootstrap"`
	TotalSteps               int             `json:"total_steps"`
	EstimatedDuration        metav1.Duration `json:"estimated_duration"`
}

// ScenarioRequest asks for a restore described by its scenario. Fields
// left empty take the scenario's defaults.
type ScenarioRequest struct {
	// RestoreID names the execution. One is generated when empty.
	RestoreID     string     `json:"restore_id,omitempty"`
	Scenario      DRScenario `json:"scenario"`
	BackupID      string     `json:"backup_id"`
	SourceCluster string     `json:"source_cluster"`
	TargetCluster string     `json:"target_cluster"`

	// +optional
	RestoreMode RestoreMode `json:"restore_mode,omitempty"`
	// +optional
	TargetNamespaces []string `json:"target_namespaces,omitempty"`
	// +optional
	ResourceFilters *ResourceFilters `json:"resource_filters,omitempty"`
	// +optional
	GitOpsConfig *GitOpsConfig `json:"gitops_config,omitempty"`
	// +optional
	ValidationConfig *ValidationConfig `json:"validation_config,omitempty"`

	DryRun bool `json:"dry_run"`
}
