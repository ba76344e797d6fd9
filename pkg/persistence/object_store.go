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
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/cloudprovider"
	"github.com/walbis/tkkube/pkg/restore"
)

// BackupStore defines operations for reading backups from, and persisting
// restore results to, a backup store in object storage.
type BackupStore interface {
	IsValid(ctx context.Context) error

	ListBackups(ctx context.Context) ([]string, error)
	GetBackupMetadata(ctx context.Context, backupID string) (*restorev1.BackupMetadata, error)
	GetBackupResources(ctx context.Context, backupID string) ([]*unstructured.Unstructured, error)

	PutRestoreResult(ctx context.Context, result *restorev1.RestoreResult) error
	GetRestoreResult(ctx context.Context, restoreID string) (*restorev1.RestoreResult, error)
	PutRestoreLog(ctx context.Context, restoreID string, log io.Reader) error
}

// Location describes where a backup store lives.
type Location struct {
	Provider       string
	Bucket         string
	Prefix         string
	RestoresPrefix string
	Config         map[string]string
}

type objectBackupStore struct {
	objectStore cloudprovider.ObjectStore
	bucket      string
	layout      *ObjectStoreLayout
	logger      logrus.FieldLogger
}

// ObjectStoreGetter is a type that can get a cloudprovider.ObjectStore
// from a provider name.
type ObjectStoreGetter interface {
	GetObjectStore(provider string) (cloudprovider.ObjectStore, error)
}

func NewObjectBackupStore(location Location, objectStoreGetter ObjectStoreGetter, logger logrus.FieldLogger) (BackupStore, error) {
	if location.Provider == "" {
		return nil, errors.New("object storage provider name must not be empty")
	}
	if location.Bucket == "" {
		return nil, errors.New("object storage bucket must not be empty")
	}

	objectStore, err := objectStoreGetter.GetObjectStore(location.Provider)
	if err != nil {
		return nil, err
	}

	// add the bucket name to the config map so that object stores can use
	// it when initializing. The AWS object store uses this to determine the
	// bucket's region when setting up its client.
	config := make(map[string]string, len(location.Config)+1)
	for k, v := range location.Config {
		config[k] = v
	}
	config[cloudprovider.BucketKey] = location.Bucket

	if err := objectStore.Init(config); err != nil {
		return nil, errors.Wrapf(err, "error initializing %s object store", location.Provider)
	}

	log := logger.WithFields(logrus.Fields(map[string]interface{}{
		"bucket": location.Bucket,
		"prefix": location.Prefix,
	}))

	return &objectBackupStore{
		objectStore: objectStore,
		bucket:      location.Bucket,
		layout:      NewObjectStoreLayout(location.Prefix, location.RestoresPrefix),
		logger:      log,
	}, nil
}

// IsValid checks that the bucket can be listed.
func (s *objectBackupStore) IsValid(ctx context.Context) error {
	if _, err := s.objectStore.ListCommonPrefixes(ctx, s.bucket, s.layout.rootPrefix, "/"); err != nil {
		return errors.Wrapf(err, "error listing bucket %s", s.bucket)
	}
	return nil
}

func (s *objectBackupStore) ListBackups(ctx context.Context) ([]string, error) {
	keys, err := s.objectStore.ListObjects(ctx, s.bucket, s.layout.rootPrefix)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	output := []string{}
	for _, key := range keys {
		if backupID, ok := s.layout.backupIDFromManifestKey(key); ok {
			output = append(output, backupID)
		}
	}
	sort.Strings(output)

	return output, nil
}

func (s *objectBackupStore) GetBackupMetadata(ctx context.Context, backupID string) (*restorev1.BackupMetadata, error) {
	key := s.layout.getBackupManifestKey(backupID)

	data, err := s.getObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, restore.NewNotFoundError("backup", backupID)
	}

	return decodeBackupManifest(backupID, data)
}

func (s *objectBackupStore) GetBackupResources(ctx context.Context, backupID string) ([]*unstructured.Unstructured, error) {
	dir := s.layout.getBackupDir(backupID)

	exists, err := s.objectStore.ObjectExists(ctx, s.bucket, s.layout.getBackupManifestKey(backupID))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, restore.NewNotFoundError("backup", backupID)
	}

	keys, err := s.objectStore.ListObjects(ctx, s.bucket, dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Strings(keys)

	var resources []*unstructured.Unstructured
	for _, key := range keys {
		if !isResourceFile(key) {
			continue
		}

		rc, err := s.objectStore.GetObject(ctx, s.bucket, key)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		items, err := decodeResourceFile(strings.TrimPrefix(key, dir), rc)
		rc.Close()
		if err != nil {
			return nil, err
		}

		s.logger.WithFields(logrus.Fields{"backup": backupID, "key": key, "count": len(items)}).Debug("Read backup resource file")
		resources = append(resources, items...)
	}

	return resources, nil
}

func (s *objectBackupStore) PutRestoreResult(ctx context.Context, result *restorev1.RestoreResult) error {
	buf := new(bytes.Buffer)
	gzw := gzip.NewWriter(buf)
	if err := json.NewEncoder(gzw).Encode(result); err != nil {
		return errors.Wrap(err, "error encoding restore result")
	}
	if err := gzw.Close(); err != nil {
		return errors.Wrap(err, "error closing gzip writer")
	}

	key := s.layout.getRestoreResultKey(result.RestoreID)
	if err := s.objectStore.PutObject(ctx, s.bucket, key, buf); err != nil {
		return errors.Wrapf(err, "error putting restore result %s", key)
	}
	return nil
}

// PutRestoreLog stores a gzipped restore log next to the restore result.
func (s *objectBackupStore) PutRestoreLog(ctx context.Context, restoreID string, log io.Reader) error {
	key := s.layout.getRestoreLogKey(restoreID)
	if err := s.objectStore.PutObject(ctx, s.bucket, key, log); err != nil {
		return errors.Wrapf(err, "error putting restore log %s", key)
	}
	return nil
}

func (s *objectBackupStore) GetRestoreResult(ctx context.Context, restoreID string) (*restorev1.RestoreResult, error) {
	data, err := s.getObject(ctx, s.layout.getRestoreResultKey(restoreID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, restore.NewNotFoundError("restore", restoreID)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer gzr.Close()

	result := new(restorev1.RestoreResult)
	if err := json.NewDecoder(gzr).Decode(result); err != nil {
		return nil, errors.Wrap(err, "error decoding object data")
	}
	return result, nil
}

// getObject returns the contents of key, or nil if it does not exist.
func (s *objectBackupStore) getObject(ctx context.Context, key string) ([]byte, error) {
	exists, err := s.objectStore.ObjectExists(ctx, s.bucket, key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, nil
	}

	res, err := s.objectStore.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}
