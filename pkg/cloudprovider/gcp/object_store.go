/*
Copyright 2017, 2019 the Velero contributors.

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

package gcp

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/walbis/tkkube/pkg/cloudprovider"
)

const (
	credentialsFileConfigKey = "credentialsFile"
	kmsKeyNameConfigKey      = "kmsKeyName"
	endpointConfigKey        = "endpoint"
)

// ObjectStore reads and writes objects in a Google Cloud Storage bucket.
type ObjectStore struct {
	log        logrus.FieldLogger
	client     *storage.Client
	kmsKeyName string
}

func NewObjectStore(logger logrus.FieldLogger) *ObjectStore {
	return &ObjectStore{log: logger}
}

func (o *ObjectStore) Init(config map[string]string) error {
	if err := cloudprovider.ValidateObjectStoreConfigKeys(config,
		credentialsFileConfigKey,
		kmsKeyNameConfigKey,
		endpointConfigKey,
	); err != nil {
		return err
	}

	var opts []option.ClientOption
	if endpoint := config[endpointConfigKey]; endpoint != "" {
		// emulators such as fake-gcs-server
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		if file := config[credentialsFileConfigKey]; file != "" {
			opts = append(opts, option.WithCredentialsFile(file))
		}
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return errors.WithStack(err)
	}
	o.client = client
	o.kmsKeyName = config[kmsKeyNameConfigKey]

	return nil
}

func (o *ObjectStore) PutObject(ctx context.Context, bucket, key string, body io.Reader) error {
	w := o.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.KMSKeyName = o.kmsKeyName

	// The writer returned by NewWriter is asynchronous, so errors aren't guaranteed
	// until Close() is called
	_, copyErr := io.Copy(w, body)

	// Ensure we close w and report errors properly
	closeErr := w.Close()
	if copyErr != nil {
		return errors.WithStack(copyErr)
	}

	return errors.WithStack(closeErr)
}

func (o *ObjectStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	if _, err := o.client.Bucket(bucket).Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	return true, nil
}

func (o *ObjectStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := o.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return r, nil
}

func (o *ObjectStore) ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) ([]string, error) {
	iter := o.client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: delimiter,
	})

	var res []string
	for {
		obj, err := iter.Next()
		if err == iterator.Done {
			return res, nil
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		if obj.Prefix != "" {
			res = append(res, obj.Prefix)
		}
	}
}

func (o *ObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	iter := o.client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix: prefix,
	})

	var res []string
	for {
		obj, err := iter.Next()
		if err == iterator.Done {
			return res, nil
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		res = append(res, obj.Name)
	}
}

func (o *ObjectStore) DeleteObject(ctx context.Context, bucket, key string) error {
	return errors.Wrapf(o.client.Bucket(bucket).Object(key).Delete(ctx), "error deleting object %s", key)
}
