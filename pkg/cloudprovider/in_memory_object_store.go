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

package cloudprovider

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type BucketData map[string][]byte

// InMemoryObjectStore is a simple implementation of the ObjectStore interface
// that stores its data in-memory/in-proc. It backs the "memory" provider and
// is used as a test fake.
type InMemoryObjectStore struct {
	mu   sync.RWMutex
	Data map[string]BucketData
}

func NewInMemoryObjectStore(buckets ...string) *InMemoryObjectStore {
	o := &InMemoryObjectStore{
		Data: make(map[string]BucketData),
	}

	for _, bucket := range buckets {
		o.Data[bucket] = make(map[string][]byte)
	}

	return o
}

//
// Interface Implementation
//

// Init creates the configured bucket if it does not exist yet.
func (o *InMemoryObjectStore) Init(config map[string]string) error {
	if err := ValidateObjectStoreConfigKeys(config); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if bucket := config[BucketKey]; bucket != "" {
		if _, ok := o.Data[bucket]; !ok {
			o.Data[bucket] = make(map[string][]byte)
		}
	}
	return nil
}

func (o *InMemoryObjectStore) PutObject(_ context.Context, bucket, key string, body io.Reader) error {
	obj, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	bucketData, ok := o.Data[bucket]
	if !ok {
		return errors.New("bucket not found")
	}
	bucketData[key] = obj

	return nil
}

func (o *InMemoryObjectStore) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	bucketData, ok := o.Data[bucket]
	if !ok {
		return false, errors.New("bucket not found")
	}

	_, found := bucketData[key]
	return found, nil
}

func (o *InMemoryObjectStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	bucketData, ok := o.Data[bucket]
	if !ok {
		return nil, errors.New("bucket not found")
	}

	obj, ok := bucketData[key]
	if !ok {
		return nil, errors.New("key not found")
	}

	return io.NopCloser(bytes.NewReader(obj)), nil
}

func (o *InMemoryObjectStore) ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) ([]string, error) {
	keys, err := o.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	// For each key, check if it has an instance of the delimiter *after* the prefix.
	// If not, skip it; if so, return the prefix of the key up to/including the delimiter.

	seen := make(map[string]struct{})
	var prefixes []string
	for _, key := range keys {
		// everything after 'prefix'
		afterPrefix := key[len(prefix):]

		// index of the *start* of 'delimiter' in 'afterPrefix'
		delimiterStart := strings.Index(afterPrefix, delimiter)
		if delimiterStart == -1 {
			continue
		}

		// return the prefix, plus everything after the prefix and before
		// the delimiter, plus the delimiter
		fullPrefix := prefix + afterPrefix[0:delimiterStart] + delimiter
		if _, ok := seen[fullPrefix]; ok {
			continue
		}
		seen[fullPrefix] = struct{}{}
		prefixes = append(prefixes, fullPrefix)
	}
	sort.Strings(prefixes)

	return prefixes, nil
}

func (o *InMemoryObjectStore) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	bucketData, ok := o.Data[bucket]
	if !ok {
		return nil, errors.New("bucket not found")
	}

	var objs []string
	for key := range bucketData {
		if strings.HasPrefix(key, prefix) {
			objs = append(objs, key)
		}
	}
	sort.Strings(objs)

	return objs, nil
}

func (o *InMemoryObjectStore) DeleteObject(_ context.Context, bucket, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	bucketData, ok := o.Data[bucket]
	if !ok {
		return errors.New("bucket not found")
	}

	delete(bucketData, key)

	return nil
}

//
// Test Helper Methods
//

func (o *InMemoryObjectStore) ClearBucket(bucket string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.Data[bucket]; !ok {
		return
	}

	o.Data[bucket] = make(map[string][]byte)
}
