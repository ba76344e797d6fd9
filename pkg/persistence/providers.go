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

package persistence

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/walbis/tkkube/pkg/cloudprovider"
	"github.com/walbis/tkkube/pkg/cloudprovider/aws"
	"github.com/walbis/tkkube/pkg/cloudprovider/azure"
	"github.com/walbis/tkkube/pkg/cloudprovider/gcp"
	"github.com/walbis/tkkube/pkg/cloudprovider/minio"
)

const (
	ProviderAWS    = "aws"
	ProviderMinIO  = "minio"
	ProviderAzure  = "azure"
	ProviderGCP    = "gcp"
	ProviderMemory = "memory"
)

// Providers returns the names of the compiled-in object store providers.
func Providers() []string {
	return []string{ProviderAWS, ProviderMinIO, ProviderAzure, ProviderGCP, ProviderMemory}
}

type providerGetter struct {
	log    logrus.FieldLogger
	memory *cloudprovider.InMemoryObjectStore
}

// NewObjectStoreGetter returns an ObjectStoreGetter for the compiled-in
// providers. All "memory" stores returned by one getter share their data.
func NewObjectStoreGetter(log logrus.FieldLogger) ObjectStoreGetter {
	return &providerGetter{
		log:    log,
		memory: cloudprovider.NewInMemoryObjectStore(),
	}
}

func (g *providerGetter) GetObjectStore(provider string) (cloudprovider.ObjectStore, error) {
	log := g.log.WithField("provider", provider)

	switch provider {
	case ProviderAWS:
		return aws.NewObjectStore(log), nil
	case ProviderMinIO:
		return minio.NewObjectStore(log), nil
	case ProviderAzure:
		return azure.NewObjectStore(log), nil
	case ProviderGCP:
		return gcp.NewObjectStore(log), nil
	case ProviderMemory:
		return g.memory, nil
	default:
		return nil, errors.Errorf("unknown object storage provider %q, valid providers are %v", provider, Providers())
	}
}
