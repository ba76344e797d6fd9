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
package client

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

// DynamicFactory contains methods for retrieving dynamic clients for GroupVersionResources and
// GroupVersionKinds.
type DynamicFactory interface {
	// ClientForGroupVersionResource returns a Dynamic client for the given group/version
	// and resource for the given namespace.
	ClientForGroupVersionResource(gv schema.GroupVersion, resource metav1.APIResource, namespace string) (Dynamic, error)
}

// dynamicFactory implements DynamicFactory.
type dynamicFactory struct {
	dynamicClient dynamic.Interface
}

// NewDynamicFactory returns a new ClientPool-based dynamic factory.
func NewDynamicFactory(dynamicClient dynamic.Interface) DynamicFactory {
	return &dynamicFactory{dynamicClient: dynamicClient}
}

func (f *dynamicFactory) ClientForGroupVersionResource(gv schema.GroupVersion, resource metav1.APIResource, namespace string) (Dynamic, error) {
	var resourceClient dynamic.ResourceInterface = f.dynamicClient.Resource(gv.WithResource(resource.Name))
	if resource.Namespaced {
		resourceClient = f.dynamicClient.Resource(gv.WithResource(resource.Name)).Namespace(namespace)
	}
	return &dynamicResourceClient{resourceClient: resourceClient}, nil
}

// Creator creates an object.
type Creator interface {
	// Create creates an object.
	Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
}

// Lister lists objects.
type Lister interface {
	// List lists all the objects of a given resource.
	List(ctx context.Context, opts metav1.ListOptions) (*unstructured.UnstructuredList, error)
}

// Getter gets an object.
type Getter interface {
	// Get fetches an object by name.
	Get(ctx context.Context, name string, opts metav1.GetOptions) (*unstructured.Unstructured, error)
}

// Patcher patches an object.
type Patcher interface {
	// Patch patches the named object using the provided patch bytes, which are expected to be in JSON merge patch format. The patched object is returned.
	Patch(ctx context.Context, name string, data []byte) (*unstructured.Unstructured, error)
}

// Dynamic contains client methods the restore engine needs for reading restored
// resources and driving the GitOps controller.
type Dynamic interface {
	Creator
	Lister
	Getter
	Patcher
}

// dynamicResourceClient implements Dynamic.
type dynamicResourceClient struct {
	resourceClient dynamic.ResourceInterface
}

var _ Dynamic = &dynamicResourceClient{}

func (d *dynamicResourceClient) Create(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return d.resourceClient.Create(ctx, obj, metav1.CreateOptions{})
}

func (d *dynamicResourceClient) List(ctx context.Context, options metav1.ListOptions) (*unstructured.UnstructuredList, error) {
	return d.resourceClient.List(ctx, options)
}

func (d *dynamicResourceClient) Get(ctx context.Context, name string, opts metav1.GetOptions) (*unstructured.Unstructured, error) {
	return d.resourceClient.Get(ctx, name, opts)
}

func (d *dynamicResourceClient) Patch(ctx context.Context, name string, data []byte) (*unstructured.Unstructured, error) {
	return d.resourceClient.Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{})
}
