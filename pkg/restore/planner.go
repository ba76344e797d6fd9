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
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/util/collections"
	"github.com/walbis/tkkube/pkg/util/wildcard"
)

const (
	// DefaultTotalSteps is the number of progress steps of a restore that
	// does not need a cluster bootstrap.
	DefaultTotalSteps = 7

	// BootstrapSteps is the number of extra steps a cluster bootstrap adds.
	BootstrapSteps = 2

	// DefaultEstimatedDuration is the estimate for a regular restore.
	DefaultEstimatedDuration = 30 * time.Minute

	// bootstrapDurationFactor multiplies the estimate when the target
	// cluster has to be bootstrapped first.
	bootstrapDurationFactor = 4
)

// Plan builds the restore plan for req from the backup's metadata. The
// metadata must already have been resolved; an unknown backup is reported
// by the backup store as a NotFoundError.
func Plan(req *restorev1.RestoreRequest, metadata *restorev1.BackupMetadata) (*restorev1.RestorePlan, error) {
	if metadata == nil {
		return nil, NewNotFoundError("backup", req.BackupID)
	}

	namespaces, err := planNamespaces(req.ResourceFilters, metadata)
	if err != nil {
		return nil, errors.Wrap(err, "error selecting namespaces to restore")
	}

	plan := &restorev1.RestorePlan{
		RestoreID:         req.RestoreID,
		BackupID:          req.BackupID,
		SourceCluster:     req.SourceCluster,
		TargetCluster:     req.TargetCluster,
		TotalResources:    countResources(req.ResourceFilters, metadata, namespaces),
		Namespaces:        namespaces,
	}
	if plan.SourceCluster == "" {
		plan.SourceCluster = metadata.ClusterName
	}

	bootstrap, steps, estimate, policy := scenarioShape(req.DRScenario)
	plan.RequiresClusterBootstrap = bootstrap
	plan.TotalSteps = steps
	plan.EstimatedDuration = metav1.Duration{Duration: estimate}
	plan.ConflictPolicy = policy

	for _, phase := range restorev1.OrderedPhases() {
		plan.Steps = append(plan.Steps, string(phase))
		if phase == restorev1.RestorePhasePreparation && plan.RequiresClusterBootstrap {
			plan.Steps = append(plan.Steps, "BootstrapNamespaces", "BootstrapGitOpsController")
		}
	}
	plan.Steps = append(plan.Steps, string(restorev1.RestorePhaseCompleted))

	return plan, nil
}

// splitResourceKey splits a "<namespace>/<resource>" resource count key.
func splitResourceKey(key string) (namespace, resource string) {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func backupNamespaces(metadata *restorev1.BackupMetadata) []string {
	seen := map[string]struct{}{}
	var out []string
	for key := range metadata.ResourceCounts {
		ns, _ := splitResourceKey(key)
		if ns == "" {
			continue
		}
		if _, ok := seen[ns]; !ok {
			seen[ns] = struct{}{}
			out = append(out, ns)
		}
	}
	sort.Strings(out)
	return out
}

func planNamespaces(filters *restorev1.ResourceFilters, metadata *restorev1.BackupMetadata) ([]string, error) {
	available := backupNamespaces(metadata)
	if filters == nil {
		return available, nil
	}
	return wildcard.SelectNamespaces(available, filters.IncludedNamespaces, filters.ExcludedNamespaces)
}

func countResources(filters *restorev1.ResourceFilters, metadata *restorev1.BackupMetadata, namespaces []string) int {
	resources := collections.NewCaseInsensitiveIncludesExcludes()
	if filters != nil {
		resources.Includes(filters.IncludedResources...).Excludes(filters.ExcludedResources...)
	}
	selected := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		selected[ns] = struct{}{}
	}

	total := 0
	for key, count := range metadata.ResourceCounts {
		ns, resource := splitResourceKey(key)
		if ns != "" {
			if _, ok := selected[ns]; !ok {
				continue
			}
		}
		if !resources.ShouldInclude(resource) {
			continue
		}
		total += count
	}
	return total
}
