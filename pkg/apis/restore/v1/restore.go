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

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RestoreMode controls how much of a backup a restore brings back.
type RestoreMode string

const (
	RestoreModeFullCluster   RestoreMode = "full-cluster"
	RestoreModeSelective     RestoreMode = "selective"
	RestoreModeNamespace     RestoreMode = "namespace"
	RestoreModeApplication   RestoreMode = "application"
	RestoreModeConfiguration RestoreMode = "configuration"
)

// RestoreModes returns every supported restore mode.
func RestoreModes() []RestoreMode {
	return []RestoreMode{
		RestoreModeFullCluster,
		RestoreModeSelective,
		RestoreModeNamespace,
		RestoreModeApplication,
		RestoreModeConfiguration,
	}
}

// DRScenario is the category of disaster a restore recovers from.
type DRScenario string

const (
	DRScenarioClusterRebuild        DRScenario = "cluster-rebuild"
	DRScenarioNamespaceRecovery     DRScenario = "namespace-recovery"
	DRScenarioDataCorruption        DRScenario = "data-corruption"
	DRScenarioConfigurationRollback DRScenario = "configuration-rollback"
	DRScenarioCrossClusterMigration DRScenario = "cross-cluster-migration"
)

// DRScenarios returns every supported disaster recovery scenario.
func DRScenarios() []DRScenario {
	return []DRScenario{
		DRScenarioClusterRebuild,
		DRScenarioNamespaceRecovery,
		DRScenarioDataCorruption,
		DRScenarioConfigurationRollback,
		DRScenarioCrossClusterMigration,
	}
}

// ResourceFilters narrows down which backed-up resources are restored.
type ResourceFilters struct {
	// IncludedNamespaces is a slice of namespace names or glob patterns to
	// restore. If empty, all namespaces are included.
	// +optional
	IncludedNamespaces []string `json:"included_namespaces,omitempty"`

	// ExcludedNamespaces contains namespaces that are not restored.
	// +optional
	ExcludedNamespaces []string `json:"excluded_namespaces,omitempty"`

	// IncludedResources is a slice of resource names (plural, lowercase,
	// e.g. "deployments", glob patterns allowed) to restore. If empty, all
	// resources are included.
	// +optional
	IncludedResources []string `json:"included_resources,omitempty"`

	// ExcludedResources contains resource names that are not restored.
	// +optional
	ExcludedResources []string `json:"excluded_resources,omitempty"`

	// LabelSelector restricts the restore to resources carrying all
	// of the given labels.
	// +optional
	LabelSelector map[string]string `json:"label_selector,omitempty"`
}

// GitOpsConfig describes the repository and controller a restore is
// synchronized through.
type GitOpsConfig struct {
	RepositoryURL string `json:"repository_url,omitempty"`
	Branch        string `json:"branch,omitempty"`

	// Path is the directory inside the repository holding per-cluster
	// manifests. Defaults to "clusters".
	Path string `json:"path,omitempty"`

	// AutoSync enables triggering the GitOps controller after push.
	AutoSync *bool `json:"auto_sync,omitempty"`

	Username string `json:"username,omitempty"`
	Token    string `json:"-"`

	ArgoCDNamespace string `json:"argocd_namespace,omitempty"`
	ArgoCDProject   string `json:"argocd_project,omitempty"`

	// SyncTimeout bounds how long the controller's reconciliation is
	// monitored before giving up with a warning.
	SyncTimeout metav1.Duration `json:"sync_timeout,omitempty"`
}

// AutoSyncEnabled reports whether the controller sync should be triggered.
// Auto sync is on unless explicitly disabled.
func (c *GitOpsConfig) AutoSyncEnabled() bool {
	if c == nil || c.AutoSync == nil {
		return true
	}
	return *c.AutoSync
}

// FunctionalTest is a CEL assertion evaluated against one live object
// after the restore has been synchronized.
type FunctionalTest struct {
	Name       string `json:"name"`
	APIVersion string `json:"api_version"`
	Kind       string `json:"kind"`
	Namespace  string `json:"namespace,omitempty"`
	ObjectName string `json:"object_name"`

	// Expression must evaluate to a bool. The live object is bound to the
	// variable "object".
	Expression string `json:"expression"`
}

// ValidationConfig controls the checks performed around a restore.
type ValidationConfig struct {
	ClusterValidation  bool `json:"cluster_validation"`
	ResourceValidation bool `json:"resource_validation"`
	FunctionalTesting  bool `json:"functional_testing"`

	// ReadyTimeout bounds the wait for restored resources to become ready.
	ReadyTimeout metav1.Duration `json:"ready_timeout,omitempty"`

	FunctionalTests []FunctionalTest `json:"functional_tests,omitempty"`
}

// RestoreRequest is the immutable input of a single restore operation.
type RestoreRequest struct {
	RestoreID     string      `json:"restore_id"`
	BackupID      string      `json:"backup_id"`
	SourceCluster string      `json:"source_cluster"`
	TargetCluster string      `json:"target_cluster"`
	RestoreMode   RestoreMode `json:"restore_mode"`
	DRScenario    DRScenario  `json:"dr_scenario"`

	// TargetNamespaces remaps namespaced resources. Only a single entry
	// is supported.
	// +optional
	TargetNamespaces []string `json:"target_namespaces,omitempty"`

	// +optional
	ResourceFilters *ResourceFilters `json:"resource_filters,omitempty"`

	// GitOpsConfig overrides the server's GitOps wiring for this restore.
	// +optional
	GitOpsConfig *GitOpsConfig `json:"gitops_config,omitempty"`

	// +optional
	ValidationConfig *ValidationConfig `json:"validation_config,omitempty"`

	DryRun bool `json:"dry_run"`

	// Requester is the authenticated principal that submitted the request.
	Requester string `json:"requester,omitempty"`
}

// RestoreProgress is the live state of an active restore.
type RestoreProgress struct {
	RestoreID           string       `json:"restore_id"`
	Phase               RestorePhase `json:"phase"`
	PercentComplete     float64      `json:"percent_complete"`
	CurrentStep         string       `json:"current_step"`
	StepsCompleted      int          `json:"steps_completed"`
	TotalSteps          int          `json:"total_steps"`
	StartTime           time.Time    `json:"start_time"`
	EstimatedCompletion *time.Time   `json:"estimated_completion,omitempty"`
	ResourcesProcessed  int          `json:"resources_processed"`
	ResourcesTotal      int          `json:"resources_total"`
	Errors              []string     `json:"errors"`
	Warnings            []string     `json:"warnings"`
}

// DeepCopy returns an independent copy of the progress.
func (p *RestoreProgress) DeepCopy() *RestoreProgress {
	if p == nil {
		return nil
	}
	out := *p
	if p.EstimatedCompletion != nil {
		t := *p.EstimatedCompletion
		out.EstimatedCompletion = &t
	}
	out.Errors = append([]string(nil), p.Errors...)
	out.Warnings = append([]string(nil), p.Warnings...)
	return &out
}

// RestoreResult is the terminal record of a restore. It is never modified
// once it has been added to the history.
type RestoreResult struct {
	RestoreID         string            `json:"restore_id"`
	Success           bool              `json:"success"`
	Phase             RestorePhase      `json:"phase"`
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time"`
	Duration          metav1.Duration   `json:"duration"`
	ResourcesRestored int               `json:"resources_restored"`
	ResourcesFailed   int               `json:"resources_failed"`
	GitCommits        []string          `json:"git_commits"`
	ValidationReport  *ValidationReport `json:"validation_report,omitempty"`
	ErrorSummary      string            `json:"error_summary,omitempty"`
	Recommendations   []string          `json:"recommendations,omitempty"`
	Warnings          []string          `json:"warnings,omitempty"`
	Request           RestoreRequest    `json:"request"`
}
