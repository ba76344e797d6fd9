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
package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"
	discoveryfake "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"
	kbclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/discovery"
)

// APIServer contains in-memory fakes for all of the relevant
// Kubernetes API server clients.
type APIServer struct {
	KubeClient        *kubefake.Clientset
	DynamicClient     *dynamicfake.FakeDynamicClient
	DiscoveryClient   *discoveryfake.FakeDiscovery
	KubebuilderClient kbclient.Client
}

// NewAPIServer constructs an APIServer serving the given resource types
// and seeded with their items. With no resources, DefaultResources are served.
func NewAPIServer(t *testing.T, resources ...*APIResource) *APIServer {
	t.Helper()

	if len(resources) == 0 {
		resources = DefaultResources()
	}

	listKinds := make(map[schema.GroupVersionResource]string)
	for _, r := range resources {
		listKinds[r.GVR()] = r.Kind + "List"
	}

	kubeClient := kubefake.NewSimpleClientset()
	discoveryClient := kubeClient.Discovery().(*discoveryfake.FakeDiscovery)
	discoveryClient.Resources = APIResourceLists(resources...)
	discoveryClient.FakedServerVersion = &version.Info{Major: "1", Minor: "29", GitVersion: "v1.29.3"}

	s := &APIServer{
		KubeClient:        kubeClient,
		DynamicClient:     dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds),
		DiscoveryClient:   discoveryClient,
		KubebuilderClient: NewFakeControllerRuntimeClient(t),
	}

	for _, r := range resources {
		for _, item := range r.UnstructuredItems() {
			var err error
			if r.Namespaced {
				_, err = s.DynamicClient.Resource(r.GVR()).Namespace(item.GetNamespace()).Create(context.TODO(), item, metav1.CreateOptions{})
			} else {
				_, err = s.DynamicClient.Resource(r.GVR()).Create(context.TODO(), item, metav1.CreateOptions{})
			}
			require.NoError(t, err)
		}
	}

	return s
}

// ClusterClients returns the fakes bundled as the clients of the named
// cluster, with a discovery helper backed by the fake discovery client.
func (s *APIServer) ClusterClients(t *testing.T, name string) *client.ClusterClients {
	t.Helper()

	helper, err := discovery.NewHelper(s.DiscoveryClient, NewLogger())
	require.NoError(t, err)

	return &client.ClusterClients{
		Name:           name,
		Kube:           s.KubeClient,
		Dynamic:        s.DynamicClient,
		DynamicFactory: client.NewDynamicFactory(s.DynamicClient),
		Kubebuilder:    s.KubebuilderClient,
		Discovery:      helper,
	}
}
