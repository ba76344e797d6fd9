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

package restore

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/label"
	"github.com/walbis/tkkube/pkg/util/collections"
	"github.com/walbis/tkkube/pkg/util/kube"
)

// metadata fields populated by the API server that must not be committed
// to a GitOps repository.
var serverPopulatedFields = []string{
	"resourceVersion",
	"uid",
	"creationTimestamp",
	"deletionTimestamp",
	"deletionGracePeriodSeconds",
	"generation",
	"selfLink",
	"managedFields",
	"ownerReferences",
}

// Transform converts a backed-up resource into a GitOps manifest for req.
// The input is never modified.
func Transform(req *restorev1.RestoreRequest, raw *unstructured.Unstructured, now time.Time) (*unstructured.Unstructured, error) {
	obj := raw.DeepCopy()

	for _, field := range serverPopulatedFields {
		unstructured.RemoveNestedField(obj.Object, "metadata", field)
	}
	unstructured.RemoveNestedField(obj.Object, "status")

	objLabels := obj.GetLabels()
	if objLabels == nil {
		objLabels = make(map[string]string)
	}
	for k, v := range label.RestoreLabels(req.RestoreID, req.BackupID, req.DRScenario) {
		objLabels[k] = v
	}
	obj.SetLabels(objLabels)

	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string)
	}
	annotations[restorev1.RestoredAtAnnotation] = now.UTC().Format(time.RFC3339)
	annotations[restorev1.SourceClusterAnnotation] = req.SourceCluster
	annotations[restorev1.TargetClusterAnnotation] = req.TargetCluster
	obj.SetAnnotations(annotations)

	if obj.GetNamespace() != "" {
		switch len(req.TargetNamespaces) {
		case 0:
		case 1:
			obj.SetNamespace(req.TargetNamespaces[0])
		default:
			return nil, errors.WithStack(&ManifestInvalidError{
				Resource: resourceName(raw),
				Reason:   fmt.Sprintf("cannot map namespace %q onto %d target namespaces", raw.GetNamespace(), len(req.TargetNamespaces)),
			})
		}
	}

	if err := ValidateManifest(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// ValidateManifest checks that a manifest can be applied to a cluster.
func ValidateManifest(obj *unstructured.Unstructured) error {
	var missing []string
	if obj.GetAPIVersion() == "" {
		missing = append(missing, "apiVersion")
	}
	if obj.GetKind() == "" {
		missing = append(missing, "kind")
	}
	if _, ok := obj.Object["metadata"].(map[string]interface{}); !ok {
		missing = append(missing, "metadata")
	} else if obj.GetName() == "" {
		missing = append(missing, "metadata.name")
	}

	if len(missing) > 0 {
		return errors.WithStack(&ManifestInvalidError{
			Resource: resourceName(obj),
			Reason:   "missing " + strings.Join(missing, ", "),
		})
	}
	return nil
}

func resourceName(obj *unstructured.Unstructured) string {
	kind := obj.GetKind()
	if kind == "" {
		kind = "<unknown kind>"
	}
	name := kube.NamespaceAndName(obj)
	if name == "" {
		name = "<unnamed>"
	}
	return kind + " " + name
}

// TransformResult is the output of TransformAll.
type TransformResult struct {
	Manifests []*unstructured.Unstructured
	Skipped   int
}

// TransformAll applies the request's resource filters and transforms every
// remaining resource. The first invalid manifest aborts the whole batch.
func TransformAll(req *restorev1.RestoreRequest, raw []*unstructured.Unstructured, now time.Time) (*TransformResult, error) {
	filter := newResourceFilter(req.ResourceFilters)

	result := &TransformResult{}
	for _, item := range raw {
		if !filter.matches(item) {
			result.Skipped++
			continue
		}
		manifest, err := Transform(req, item, now)
		if err != nil {
			return nil, err
		}
		result.Manifests = append(result.Manifests, manifest)
	}
	return result, nil
}

type resourceFilter struct {
	namespaces *collections.IncludesExcludes
	resources  *collections.IncludesExcludes
	selector   labels.Selector
}

func newResourceFilter(filters *restorev1.ResourceFilters) *resourceFilter {
	f := &resourceFilter{
		namespaces: collections.NewIncludesExcludes(),
		resources:  collections.NewCaseInsensitiveIncludesExcludes(),
		selector:   labels.Everything(),
	}
	if filters == nil {
		return f
	}
	f.namespaces.Includes(filters.IncludedNamespaces...).Excludes(filters.ExcludedNamespaces...)
	f.resources.Includes(filters.IncludedResources...).Excludes(filters.ExcludedResources...)
	if len(filters.LabelSelector) > 0 {
		f.selector = labels.SelectorFromSet(filters.LabelSelector)
	}
	return f
}

func (f *resourceFilter) matches(obj *unstructured.Unstructured) bool {
	if ns := obj.GetNamespace(); ns != "" && !f.namespaces.ShouldInclude(ns) {
		return false
	}
	if !f.resources.ShouldInclude(ResourceName(obj)) {
		return false
	}
	return f.selector.Matches(labels.Set(obj.GetLabels()))
}

// ResourceName returns the plural lowercase resource name of obj, as used
// in resource filters and backup resource counts.
func ResourceName(obj *unstructured.Unstructured) string {
	plural, _ := meta.UnsafeGuessKindToResource(obj.GroupVersionKind())
	return plural.Resource
}

// ValidateFilters returns the problems found in a request's filters.
func ValidateFilters(filters *restorev1.ResourceFilters) []error {
	if filters == nil {
		return nil
	}
	var errs []error
	for _, err := range collections.ValidateIncludesExcludes(filters.IncludedNamespaces, filters.ExcludedNamespaces) {
		errs = append(errs, errors.Wrap(err, "invalid namespace filter"))
	}
	for _, err := range collections.ValidateIncludesExcludes(filters.IncludedResources, filters.ExcludedResources) {
		errs = append(errs, errors.Wrap(err, "invalid resource filter"))
	}
	return errs
}
