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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// APIResource stores information about a specific Kubernetes API
// resource.
type APIResource struct {
	Group      string
	Version    string
	Name       string
	Kind       string
	Namespaced bool
	Items      []runtime.Object
}

// GVR returns a GroupVersionResource representing the resource.
func (r *APIResource) GVR() schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    r.Group,
		Version:  r.Version,
		Resource: r.Name,
	}
}

// GVK returns a GroupVersionKind representing the resource.
func (r *APIResource) GVK() schema.GroupVersionKind {
	return schema.GroupVersionKind{
		Group:   r.Group,
		Version: r.Version,
		Kind:    r.Kind,
	}
}

// UnstructuredItems returns the resource's items with apiVersion and kind set.
func (r *APIResource) UnstructuredItems() []*unstructured.Unstructured {
	var out []*unstructured.Unstructured
	for _, item := range r.Items {
		content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(item)
		if err != nil {
			panic(err)
		}
		u := &unstructured.Unstructured{Object: content}
		u.SetGroupVersionKind(r.GVK())
		out = append(out, u)
	}
	return out
}

func newAPIResource(group, version, name, kind string, namespaced bool, items []runtime.Object) *APIResource {
	return &APIResource{
		Group:      group,
		Version:    version,
		Name:       name,
		Kind:       kind,
		Namespaced: namespaced,
		Items:      items,
	}
}

func Namespaces(items ...runtime.Object) *APIResource {
	return newAPIResource("", "v1", "namespaces", "Namespace", false, items)
}

func ConfigMaps(items ...runtime.Object) *APIResource {
	return newAPIResource("", "v1", "configmaps", "ConfigMap", true, items)
}

func Secrets(items ...runtime.Object) *APIResource {
	return newAPIResource("", "v1", "secrets", "Secret", true, items)
}

func Services(items ...runtime.Object) *APIResource {
	return newAPIResource("", "v1", "services", "Service", true, items)
}

func Pods(items ...runtime.Object) *APIResource {
	return newAPIResource("", "v1", "pods", "Pod", true, items)
}

func PVCs(items ...runtime.Object) *APIResource {
	return newAPIResource("", "v1", "persistentvolumeclaims", "PersistentVolumeClaim", true, items)
}

func Deployments(items ...runtime.Object) *APIResource {
	return newAPIResource("apps", "v1", "deployments", "Deployment", true, items)
}

func StatefulSets(items ...runtime.Object) *APIResource {
	return newAPIResource("apps", "v1", "statefulsets", "StatefulSet", true, items)
}

func DaemonSets(items ...runtime.Object) *APIResource {
	return newAPIResource("apps", "v1", "daemonsets", "DaemonSet", true, items)
}

func Jobs(items ...runtime.Object) *APIResource {
	return newAPIResource("batch", "v1", "jobs", "Job", true, items)
}

// Applications describes Argo CD Applications. Items are expected to be
// *unstructured.Unstructured.
func Applications(items ...runtime.Object) *APIResource {
	return newAPIResource("argoproj.io", "v1alpha1", "applications", "Application", true, items)
}

// DefaultResources returns every resource type the restore engine touches,
// without items.
func DefaultResources() []*APIResource {
	return []*APIResource{
		Namespaces(),
		ConfigMaps(),
		Secrets(),
		Services(),
		Pods(),
		PVCs(),
		Deployments(),
		StatefulSets(),
		DaemonSets(),
		Jobs(),
		Applications(),
	}
}

var fullVerbs = metav1.Verbs{"get", "list", "watch", "create", "update", "patch", "delete"}

// APIResourceLists renders resources the way discovery reports them.
func APIResourceLists(resources ...*APIResource) []*metav1.APIResourceList {
	var (
		lists []*metav1.APIResourceList
		index = map[string]*metav1.APIResourceList{}
	)
	for _, r := range resources {
		gv := schema.GroupVersion{Group: r.Group, Version: r.Version}.String()
		list, ok := index[gv]
		if !ok {
			list = &metav1.APIResourceList{GroupVersion: gv}
			index[gv] = list
			lists = append(lists, list)
		}
		list.APIResources = append(list.APIResources, metav1.APIResource{
			Name:       r.Name,
			Kind:       r.Kind,
			Namespaced: r.Namespaced,
			Verbs:      fullVerbs,
		})
	}
	return lists
}
