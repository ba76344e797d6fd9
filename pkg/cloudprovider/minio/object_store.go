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

package minio

import (
	"context"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/walbis/tkkube/pkg/cloudprovider"
)

const (
	endpointKey        = "endpoint"
	regionKey          = "region"
	useSSLKey          = "useSSL"
	accessKeyEnvVarKey = "accessKeyEnvVar"
	secretKeyEnvVarKey = "secretKeyEnvVar"

	defaultAccessKeyEnvVar = "MINIO_ACCESS_KEY"
	defaultSecretKeyEnvVar = "MINIO_SECRET_KEY"

	noSuchKeyCode = "NoSuchKey"
)

// ObjectStore reads and writes objects in a MinIO bucket. This is where the
// cluster backup executor uploads backups.
type ObjectStore struct {
	log    logrus.FieldLogger
	client *minio.Client
}

func NewObjectStore(logger logrus.FieldLogger) *ObjectStore {
	return &ObjectStore{log: logger}
}

func (o *ObjectStore) Init(config map[string]string) error {
	if err := cloudprovider.ValidateObjectStoreConfigKeys(config,
		endpointKey,
		regionKey,
		useSSLKey,
		accessKeyEnvVarKey,
		secretKeyEnvVarKey,
	); err != nil {
		return err
	}

	endpoint := config[endpointKey]
	if endpoint == "" {
		return errors.Errorf("%s is required", endpointKey)
	}

	useSSL := true
	if val := config[useSSLKey]; val != "" {
		var err error
		if useSSL, err = strconv.ParseBool(val); err != nil {
			return errors.Wrapf(err, "could not parse %s (expected bool)", useSSLKey)
		}
	}

	accessKeyVar := valueOrDefault(config[accessKeyEnvVarKey], defaultAccessKeyEnvVar)
	secretKeyVar := valueOrDefault(config[secretKeyEnvVarKey], defaultSecretKeyEnvVar)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv(accessKeyVar), os.Getenv(secretKeyVar), ""),
		Secure: useSSL,
		Region: config[regionKey],
	})
	if err != nil {
		return errors.Wrap(err, "error creating MinIO client")
	}
	o.client = client

	return nil
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func (o *ObjectStore) PutObject(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := o.client.PutObject(ctx, bucket, key, body, -1, minio.PutObjectOptions{})
	return errors.Wrapf(err, "error putting object %s", key)
}

func (o *ObjectStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	if _, err := o.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKeyCode {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return true, nil
}

func (o *ObjectStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting object %s", key)
	}
	// GetObject is lazy; surface a missing key here rather than on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, errors.Wrapf(err, "error getting object %s", key)
	}
	return obj, nil
}

func (o *ObjectStore) ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) ([]string, error) {
	if delimiter != "/" {
		return nil, errors.Errorf("unsupported delimiter %q", delimiter)
	}

	var ret []string
	for info := range o.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if info.Err != nil {
			return nil, errors.WithStack(info.Err)
		}
		if strings.HasSuffix(info.Key, delimiter) {
			ret = append(ret, info.Key)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func (o *ObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var ret []string
	for info := range o.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, errors.WithStack(info.Err)
		}
		ret = append(ret, info.Key)
	}
	sort.Strings(ret)
	return ret, nil
}

func (o *ObjectStore) DeleteObject(ctx context.Context, bucket, key string) error {
	return errors.Wrapf(o.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}), "error deleting object %s", key)
}
