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
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	kbclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/walbis/tkkube/pkg/discovery"
)

// ClusterConfig locates the credentials of a named cluster.
type ClusterConfig struct {
	Kubeconfig string  `yaml:"kubeconfig"`
	Context    string  `yaml:"context"`
	QPS        float32 `yaml:"qps"`
	Burst      int     `yaml:"burst"`
}

// ClusterClients bundles the clients used against one cluster.
type ClusterClients struct {
	Name           string
	Kube           kubernetes.Interface
	Dynamic        dynamic.Interface
	DynamicFactory DynamicFactory
	Kubebuilder    kbclient.Client
	Discovery      discovery.Helper
}

// ClusterRegistry resolves cluster names to clients.
type ClusterRegistry interface {
	// ClientsFor returns the clients for the named cluster, creating and
	// caching them on first use.
	ClientsFor(cluster string) (*ClusterClients, error)
	// Clusters returns the known cluster names, sorted.
	Clusters() []string
}

type clusterRegistry struct {
	baseName string
	configs  map[string]ClusterConfig
	log      logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*ClusterClients
}

// NewClusterRegistry returns a ClusterRegistry that builds clients from kubeconfig files.
func NewClusterRegistry(baseName string, configs map[string]ClusterConfig, log logrus.FieldLogger) ClusterRegistry {
	return &clusterRegistry{
		baseName: baseName,
		configs:  configs,
		log:      log,
		clients:  make(map[string]*ClusterClients),
	}
}

func (r *clusterRegistry) ClientsFor(cluster string) (*ClusterClients, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clients, ok := r.clients[cluster]; ok {
		return clients, nil
	}

	cfg, ok := r.configs[cluster]
	if !ok {
		return nil, errors.Errorf("cluster %q is not configured", cluster)
	}

	f := NewFactory(r.baseName, cfg.Kubeconfig, cfg.Context)
	f.SetClientQPS(cfg.QPS)
	f.SetClientBurst(cfg.Burst)

	clients, err := NewClusterClients(cluster, f, r.log)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating clients for cluster %s", cluster)
	}

	r.log.WithField("cluster", cluster).Info("Created clients for cluster")
	r.clients[cluster] = clients
	return clients, nil
}

func (r *clusterRegistry) Clusters() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClusterClients builds every client for one cluster from a Factory.
func NewClusterClients(name string, f Factory, log logrus.FieldLogger) (*ClusterClients, error) {
	kubeClient, err := f.KubeClient()
	if err != nil {
		return nil, err
	}
	dynamicClient, err := f.DynamicClient()
	if err != nil {
		return nil, err
	}
	kbClient, err := f.KubebuilderClient()
	if err != nil {
		return nil, err
	}
	helper, err := discovery.NewHelper(kubeClient.Discovery(), log.WithField("cluster", name))
	if err != nil {
		return nil, errors.Wrap(err, "error initializing discovery helper")
	}

	return &ClusterClients{
		Name:           name,
		Kube:           kubeClient,
		Dynamic:        dynamicClient,
		DynamicFactory: NewDynamicFactory(dynamicClient),
		Kubebuilder:    kbClient,
		Discovery:      helper,
	}, nil
}

type staticClusterRegistry struct {
	clients map[string]*ClusterClients
}

// NewStaticClusterRegistry returns a ClusterRegistry over prebuilt clients.
func NewStaticClusterRegistry(clients ...*ClusterClients) ClusterRegistry {
	r := &staticClusterRegistry{clients: make(map[string]*ClusterClients)}
	for _, c := range clients {
		r.clients[c.Name] = c
	}
	return r
}

func (r *staticClusterRegistry) ClientsFor(cluster string) (*ClusterClients, error) {
	clients, ok := r.clients[cluster]
	if !ok {
		return nil, errors.Errorf("cluster %q is not configured", cluster)
	}
	return clients, nil
}

func (r *staticClusterRegistry) Clusters() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
