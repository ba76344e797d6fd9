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

// BackupMetadata summarizes a backup stored in object storage.
type BackupMetadata struct {
	BackupID    string    `json:"backup_id"`
	ClusterName string    `json:"cluster_name"`
	Timestamp   time.Time `json:"timestamp"`

	// ResourceCounts is keyed by "<namespace>/<resource>", or "<resource>"
	// for cluster-scoped resources, where resource is the plural lowercase
	// resource name.
	ResourceCounts map[string]int `json:"resource_counts"`

	SizeBytes int64    `json:"size_bytes"`
	Version   string   `json:"version,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// ConflictPolicy decides what happens when restored resources already
// exist in the target cluster.
type ConflictPolicy string

const (
	ConflictPolicyFail ConflictPolicy = "fail"
	ConflictPolicyWarn ConflictPolicy = "warn"
)

// RestorePlan is the output of the planner for one request.
type RestorePlan struct {
	RestoreID                string          `json:"restore_id"`
	BackupID                 string          `json:"backup_id"`
	SourceCluster            string          `json:"source_cluster"`
	TargetCluster            string          `json:"target_cluster"`
	TotalResources           int             `json:"total_resources"`
	TotalSteps               int             `json:"total_steps"`
	EstimatedDuration        metav1.Duration `json:"estimated_duration"`
	RequiresClusterBootstrap bool            `json:"requires_cluster_bootstrap"`
	ConflictPolicy           ConflictPolicy  `json:"conflict_policy"`
	Namespaces               []string        `json:"namespaces,omitempty"`
	Steps                    []string        `json:"steps"`
}
