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

package discovery

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/restmapper"
)

// Helper exposes functions for interacting with the Kubernetes discovery
// API.
type Helper interface {
	// Resources gets the current set of resources retrieved from discovery
	// that can be restored and inspected.
	Resources() []*metav1.APIResourceList

	// KindFor gets a fully-resolved GroupVersionResource and an
	// APIResource for the provided partially-specified GroupVersionKind.
	KindFor(input schema.GroupVersionKind) (schema.GroupVersionResource, metav1.APIResource, error)

	// Refresh pulls an updated set of resources from the discovery API.
	Refresh() error
}

type helper struct {
	discoveryClient discovery.DiscoveryInterface
	logger          logrus.FieldLogger

	// lock guards mapper, resources and kindMap
	lock      sync.RWMutex
	mapper    meta.RESTMapper
	resources []*metav1.APIResourceList
	kindMap   map[schema.GroupVersionKind]metav1.APIResource
}

var _ Helper = &helper{}

func NewHelper(discoveryClient discovery.DiscoveryInterface, logger logrus.FieldLogger) (Helper, error) {
	h := &helper{
		discoveryClient: discoveryClient,
		logger:          logger,
	}
	if err := h.Refresh(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *helper) KindFor(input schema.GroupVersionKind) (schema.GroupVersionResource, metav1.APIResource, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if resource, ok := h.kindMap[input]; ok {
		return input.GroupVersion().WithResource(resource.Name), resource, nil
	}

	// the version in a backed-up manifest may not be the served one, so
	// fall back to the preferred mapping for the group and kind
	m, err := h.mapper.RESTMapping(input.GroupKind())
	if err != nil {
		return schema.GroupVersionResource{}, metav1.APIResource{}, err
	}
	if resource, ok := h.kindMap[m.GroupVersionKind]; ok {
		return m.Resource, resource, nil
	}
	return schema.GroupVersionResource{}, metav1.APIResource{}, errors.Errorf("APIResource not found for GroupVersionKind %v", input)
}

func (h *helper) Refresh() error {
	h.lock.Lock()
	defer h.lock.Unlock()

	groupResources, err := restmapper.GetAPIGroupResources(h.discoveryClient)
	if err != nil {
		return errors.WithStack(err)
	}

	var serverResources []*metav1.APIResourceList
	for _, group := range groupResources {
		for _, gv := range group.Group.Versions {
			serverResources = append(serverResources, &metav1.APIResourceList{
				GroupVersion: gv.GroupVersion,
				APIResources: group.VersionedResources[gv.Version],
			})
		}
	}

	h.resources = discovery.FilteredBy(
		discovery.ResourcePredicateFunc(filterByVerbs),
		serverResources,
	)

	sortResources(h.resources)

	h.mapper = restmapper.NewDiscoveryRESTMapper(groupResources)

	h.kindMap = make(map[schema.GroupVersionKind]metav1.APIResource)
	for _, resourceGroup := range h.resources {
		gv, err := schema.ParseGroupVersion(resourceGroup.GroupVersion)
		if err != nil {
			return errors.Wrapf(err, "unable to parse GroupVersion %s", resourceGroup.GroupVersion)
		}

		for _, resource := range resourceGroup.APIResources {
			// discovery leaves group and version empty on the resource itself
			resource.Group = gv.Group
			resource.Version = gv.Version
			h.kindMap[gv.WithKind(resource.Kind)] = resource
		}
	}

	h.logger.WithField("groupVersions", len(h.resources)).Debug("Refreshed discovery information")

	return nil
}

// filterByVerbs keeps resources the restore engine can read back and
// conflict-check.
func filterByVerbs(groupVersion string, r *metav1.APIResource) bool {
	return discovery.SupportsAllVerbs{Verbs: []string{"list", "create", "get"}}.Match(groupVersion, r)
}

// sortResources sources resources by moving extensions to the end of the slice. The order of all
// the other resources is preserved.
func sortResources(resources []*metav1.APIResourceList) {
	sort.SliceStable(resources, func(i, j int) bool {
		left := resources[i]
		leftGV, _ := schema.ParseGroupVersion(left.GroupVersion)
		// not checking error because it should be impossible to fail to parse data coming from the
		// apiserver
		if leftGV.Group == "extensions" {
			// always sort extensions at the bottom by saying left is "greater"
			return false
		}

		right := resources[j]
		rightGV, _ := schema.ParseGroupVersion(right.GroupVersion)
		// not checking error because it should be impossible to fail to parse data coming from the
		// apiserver
		if rightGV.Group == "extensions" {
			// always sort extensions at the bottom by saying left is "less"
			return true
		}

		return i < j
	})
}

func (h *helper) Resources() []*metav1.APIResourceList {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.resources
}
