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
	"github.com/pkg/errors"
	authorizationv1 "k8s.io/api/authorization/v1"
	corev1api "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	kbclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// Factory knows how to create Kubernetes clients for a single cluster.
type Factory interface {
	// KubeClient returns a Kubernetes client.
	KubeClient() (kubernetes.Interface, error)
	// DynamicClient returns a Kubernetes dynamic client.
	DynamicClient() (dynamic.Interface, error)
	// KubebuilderClient returns a controller-runtime client able to handle core and authorization
	// types.
	KubebuilderClient() (kbclient.Client, error)
	// SetClientQPS sets the Queries Per Second for a client.
	SetClientQPS(float32)
	// SetClientBurst sets the Burst for a client.
	SetClientBurst(int)
	// ClientConfig returns a rest.Config struct used for client-go clients.
	ClientConfig() (*rest.Config, error)
}

type factory struct {
	kubeconfig  string
	kubecontext string
	baseName    string
	clientQPS   float32
	clientBurst int
}

// NewFactory returns a Factory for the cluster selected by kubeconfig and kubecontext.
// Empty values fall back to $KUBECONFIG, the current context or in-cluster configuration.
func NewFactory(baseName, kubeconfig, kubecontext string) Factory {
	return &factory{
		baseName:    baseName,
		kubeconfig:  kubeconfig,
		kubecontext: kubecontext,
	}
}

func (f *factory) ClientConfig() (*rest.Config, error) {
	return Config(f.kubeconfig, f.kubecontext, f.baseName, f.clientQPS, f.clientBurst)
}

func (f *factory) KubeClient() (kubernetes.Interface, error) {
	clientConfig, err := f.ClientConfig()
	if err != nil {
		return nil, err
	}

	kubeClient, err := kubernetes.NewForConfig(clientConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return kubeClient, nil
}

func (f *factory) DynamicClient() (dynamic.Interface, error) {
	clientConfig, err := f.ClientConfig()
	if err != nil {
		return nil, err
	}
	dynamicClient, err := dynamic.NewForConfig(clientConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return dynamicClient, nil
}

func (f *factory) KubebuilderClient() (kbclient.Client, error) {
	clientConfig, err := f.ClientConfig()
	if err != nil {
		return nil, err
	}

	kubebuilderClient, err := kbclient.New(clientConfig, kbclient.Options{
		Scheme: NewScheme(),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return kubebuilderClient, nil
}

func (f *factory) SetClientQPS(qps float32) {
	f.clientQPS = qps
}

func (f *factory) SetClientBurst(burst int) {
	f.clientBurst = burst
}

// NewScheme returns the scheme used by kubebuilder clients.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = corev1api.AddToScheme(scheme)
	_ = authorizationv1.AddToScheme(scheme)
	return scheme
}
