/*
Copyright 2018 the Velero contributors.

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

package persistence

import (
	"path"
	"strings"
)

const (
	// BackupManifestFile is written by the backup executor at the root of
	// every backup directory.
	BackupManifestFile = "backup-manifest.yaml"

	restoreResultFile = "result.json.gz"
	restoreLogFile    = "restore.log.gz"
)

// ObjectStoreLayout defines how backups and restore results map to keys in
// an object storage bucket. Backups live directly under the root prefix,
// identified by their directory path (e.g. "prod-cluster/2024-03-01_00-00-00").
// Restore results live under "<restoresPrefix>/<restore id>/".
type ObjectStoreLayout struct {
	rootPrefix     string
	restoresPrefix string
}

func NewObjectStoreLayout(prefix, restoresPrefix string) *ObjectStoreLayout {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	if restoresPrefix == "" {
		restoresPrefix = "restores"
	}

	return &ObjectStoreLayout{
		rootPrefix:     prefix,
		restoresPrefix: strings.TrimSuffix(restoresPrefix, "/") + "/",
	}
}

func (l *ObjectStoreLayout) getBackupDir(backup string) string {
	return path.Join(l.rootPrefix, backup) + "/"
}

func (l *ObjectStoreLayout) getBackupManifestKey(backup string) string {
	return path.Join(l.rootPrefix, backup, BackupManifestFile)
}

// backupIDFromManifestKey returns the backup id for a manifest key, or
// false when key is not a backup manifest.
func (l *ObjectStoreLayout) backupIDFromManifestKey(key string) (string, bool) {
	if !strings.HasPrefix(key, l.rootPrefix) || strings.HasPrefix(key, l.restoresPrefix) {
		return "", false
	}
	dir, file := path.Split(strings.TrimPrefix(key, l.rootPrefix))
	if file != BackupManifestFile || dir == "" {
		return "", false
	}
	return strings.TrimSuffix(dir, "/"), true
}

func (l *ObjectStoreLayout) getRestoreResultKey(restore string) string {
	return path.Join(l.restoresPrefix, restore, restoreResultFile)
}

func (l *ObjectStoreLayout) getRestoreLogKey(restore string) string {
	return path.Join(l.restoresPrefix, restore, restoreLogFile)
}
