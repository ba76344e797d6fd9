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

const (
	// RestoreIDLabel is the label key used to identify the restore that
	// produced a manifest.
	RestoreIDLabel = "restore.gitops.io/restore-id"

	// SourceBackupLabel is the label key used to identify the backup a
	// manifest was restored from.
	SourceBackupLabel = "restore.gitops.io/source-backup"

	// DRScenarioLabel is the label key used to record the disaster
	// recovery scenario of the restore.
	DRScenarioLabel = "restore.gitops.io/dr-scenario"

	// RestoredAtAnnotation holds the RFC3339 time the manifest was generated.
	RestoredAtAnnotation = "restore.gitops.io/restored-at"

	// SourceClusterAnnotation is the name of the cluster the backup was
	// taken from.
	SourceClusterAnnotation = "restore.gitops.io/source-cluster"

	// TargetClusterAnnotation is the name of the cluster being restored.
	TargetClusterAnnotation = "restore.gitops.io/target-cluster"
)
