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

package builder

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

/*

Example usage:

var req = builder.ForRestoreRequest("r1", "b1").
	Clusters("prod", "dr").
	Scenario(restorev1.DRScenarioClusterRebuild).
	TargetNamespaces("prod").
	Result()

*/

// RestoreRequestBuilder builds RestoreRequest objects.
type RestoreRequestBuilder struct {
	object *restorev1.RestoreRequest
}

// ForRestoreRequest is the constructor for a RestoreRequestBuilder. The
// request defaults to a full-cluster namespace-recovery restore.
func ForRestoreRequest(restoreID, backupID string) *RestoreRequestBuilder {
	return &RestoreRequestBuilder{
		object: &restorev1.RestoreRequest{
			RestoreID:   restoreID,
			BackupID:    backupID,
			RestoreMode: restorev1.RestoreModeFullCluster,
			DRScenario:  restorev1.DRScenarioNamespaceRecovery,
		},
	}
}

// Result returns the built RestoreRequest.
func (b *RestoreRequestBuilder) Result() *restorev1.RestoreRequest {
	return b.object
}

// Clusters sets the source and target clusters.
func (b *RestoreRequestBuilder) Clusters(source, target string) *RestoreRequestBuilder {
	b.object.SourceCluster = source
	b.object.TargetCluster = target
	return b
}

// Mode sets the restore mode.
func (b *RestoreRequestBuilder) Mode(mode restorev1.RestoreMode) *RestoreRequestBuilder {
	b.object.RestoreMode = mode
	return b
}

// Scenario sets the disaster recovery scenario.
func (b *RestoreRequestBuilder) Scenario(scenario restorev1.DRScenario) *RestoreRequestBuilder {
	b.object.DRScenario = scenario
	return b
}

// TargetNamespaces sets the namespace remapping targets.
func (b *RestoreRequestBuilder) TargetNamespaces(namespaces ...string) *RestoreRequestBuilder {
	b.object.TargetNamespaces = append(b.object.TargetNamespaces, namespaces...)
	return b
}

// IncludedNamespaces appends to the namespace include filter.
func (b *RestoreRequestBuilder) IncludedNamespaces(namespaces ...string) *RestoreRequestBuilder {
	b.filters().IncludedNamespaces = append(b.filters().IncludedNamespaces, namespaces...)
	return b
}

// ExcludedNamespaces appends to the namespace exclude filter.
func (b *RestoreRequestBuilder) ExcludedNamespaces(namespaces ...string) *RestoreRequestBuilder {
	b.filters().ExcludedNamespaces = append(b.filters().ExcludedNamespaces, namespaces...)
	return b
}

// IncludedResources appends to the resource include filter.
func (b *RestoreRequestBuilder) IncludedResources(resources ...string) *RestoreRequestBuilder {
	b.filters().IncludedResources = append(b.filters().IncludedResources, resources...)
	return b
}

// ExcludedResources appends to the resource exclude filter.
func (b *RestoreRequestBuilder) ExcludedResources(resources ...string) *RestoreRequestBuilder {
	b.filters().ExcludedResources = append(b.filters().ExcludedResources, resources...)
	return b
}

func (b *RestoreRequestBuilder) filters() *restorev1.ResourceFilters {
	if b.object.ResourceFilters == nil {
		b.object.ResourceFilters = &restorev1.ResourceFilters{}
	}
	return b.object.ResourceFilters
}

// GitOps sets the GitOps override.
func (b *RestoreRequestBuilder) GitOps(cfg *restorev1.GitOpsConfig) *RestoreRequestBuilder {
	b.object.GitOpsConfig = cfg
	return b
}

// AutoSync sets whether the GitOps controller is triggered.
func (b *RestoreRequestBuilder) AutoSync(val bool) *RestoreRequestBuilder {
	if b.object.GitOpsConfig == nil {
		b.object.GitOpsConfig = &restorev1.GitOpsConfig{}
	}
	b.object.GitOpsConfig.AutoSync = &val
	return b
}

// ReadyTimeout enables resource validation with the given wait bound.
func (b *RestoreRequestBuilder) ReadyTimeout(val time.Duration) *RestoreRequestBuilder {
	b.validation().ResourceValidation = true
	b.validation().ReadyTimeout = metav1.Duration{Duration: val}
	return b
}

// FunctionalTests enables functional testing with the given tests.
func (b *RestoreRequestBuilder) FunctionalTests(tests ...restorev1.FunctionalTest) *RestoreRequestBuilder {
	b.validation().FunctionalTesting = true
	b.validation().FunctionalTests = append(b.validation().FunctionalTests, tests...)
	return b
}

func (b *RestoreRequestBuilder) validation() *restorev1.ValidationConfig {
	if b.object.ValidationConfig == nil {
		b.object.ValidationConfig = &restorev1.ValidationConfig{}
	}
	return b.object.ValidationConfig
}

// DryRun sets the dry-run flag.
func (b *RestoreRequestBuilder) DryRun(val bool) *RestoreRequestBuilder {
	b.object.DryRun = val
	return b
}

// Requester sets the authenticated principal.
func (b *RestoreRequestBuilder) Requester(val string) *RestoreRequestBuilder {
	b.object.Requester = val
	return b
}

// LabelSelector restricts the restore to resources carrying all of labels.
func (b *RestoreRequestBuilder) LabelSelector(labels map[string]string) *RestoreRequestBuilder {
	b.filters().LabelSelector = labels
	return b
}

// Checks sets which pre- and post-restore checks run.
func (b *RestoreRequestBuilder) Checks(cluster, resources bool) *RestoreRequestBuilder {
	b.validation().ClusterValidation = cluster
	b.validation().ResourceValidation = resources
	return b
}
