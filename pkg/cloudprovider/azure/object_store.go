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

package azure

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/walbis/tkkube/pkg/cloudprovider"
)

const (
	storageAccountKey       = "storageAccount"
	storageAccountURIKey    = "storageAccountURI"
	storageAccountKeyEnvVar = "storageAccountKeyEnvVar"
)

// ObjectStore reads and writes blobs in an Azure storage account. Buckets
// map to blob containers.
type ObjectStore struct {
	log    logrus.FieldLogger
	client *azblob.Client
}

func NewObjectStore(logger logrus.FieldLogger) *ObjectStore {
	return &ObjectStore{log: logger}
}

func (o *ObjectStore) Init(config map[string]string) error {
	if err := cloudprovider.ValidateObjectStoreConfigKeys(config,
		storageAccountKey,
		storageAccountURIKey,
		storageAccountKeyEnvVar,
	); err != nil {
		return err
	}

	account := config[storageAccountKey]
	if account == "" {
		return errors.Errorf("%s is required", storageAccountKey)
	}

	uri := config[storageAccountURIKey]
	if uri == "" {
		uri = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}

	// auth with storage account access key
	if name := config[storageAccountKeyEnvVar]; name != "" {
		accessKey := os.Getenv(name)
		if accessKey == "" {
			return errors.Errorf("no storage account access key found in environment variable %s", name)
		}
		o.log.Info("auth with the storage account access key")
		cred, err := azblob.NewSharedKeyCredential(account, accessKey)
		if err != nil {
			return errors.Wrap(err, "failed to create storage account access key credential")
		}
		client, err := azblob.NewClientWithSharedKeyCredential(uri, cred, nil)
		if err != nil {
			return errors.Wrap(err, "failed to create blob client with the storage account access key")
		}
		o.client = client
		return nil
	}

	// auth with Azure AD
	o.log.Info("auth with Azure AD")
	var cred azcore.TokenCredential
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Azure AD credential")
	}
	client, err := azblob.NewClient(uri, cred, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create blob client with the Azure AD credential")
	}
	o.client = client
	return nil
}

func (o *ObjectStore) PutObject(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := o.client.UploadStream(ctx, bucket, key, body, nil)
	return errors.Wrapf(err, "error putting object %s", key)
}

func (o *ObjectStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := o.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return true, nil
}

func (o *ObjectStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	res, err := o.client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting object %s", key)
	}
	return res.Body, nil
}

func (o *ObjectStore) ListCommonPrefixes(ctx context.Context, bucket, prefix, delimiter string) ([]string, error) {
	pager := o.client.ServiceClient().NewContainerClient(bucket).NewListBlobsHierarchyPager(delimiter, &container.ListBlobsHierarchyOptions{
		Prefix: to.Ptr(prefix),
	})

	var ret []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, p := range page.Segment.BlobPrefixes {
			ret = append(ret, *p.Name)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func (o *ObjectStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	pager := o.client.NewListBlobsFlatPager(bucket, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})

	var ret []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, item := range page.Segment.BlobItems {
			ret = append(ret, *item.Name)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func (o *ObjectStore) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := o.client.DeleteBlob(ctx, bucket, key, nil)
	return errors.Wrapf(err, "error deleting object %s", key)
}
