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

package validation

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	kubeerrs "k8s.io/apimachinery/pkg/util/errors"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/label"
	"github.com/walbis/tkkube/pkg/restore"
)

// Conflict is a live object that a restored manifest would overwrite.
type Conflict struct {
	Kind      string
	Namespace string
	Name      string
	// RestoreID is the restore that created the live object, if any.
	RestoreID string
}

func (c Conflict) String() string {
	if c.Namespace == "" {
		return fmt.Sprintf("%s %s", c.Kind, c.Name)
	}
	return fmt.Sprintf("%s %s/%s", c.Kind, c.Namespace, c.Name)
}

// DetectConflicts looks every manifest up in the target cluster. Objects that
// exist and were not created by this restore are conflicts. Kinds the
// cluster does not serve cannot conflict.
func (v *Validator) DetectConflicts(ctx context.Context, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) ([]Conflict, error) {
	clients, err := v.clusters.ClientsFor(req.TargetCluster)
	if err != nil {
		return nil, restore.NewAccessError(req.TargetCluster, "cluster is not reachable", err)
	}

	log := v.log.WithFields(logrus.Fields{"restore": req.RestoreID, "cluster": req.TargetCluster})

	var (
		conflicts []Conflict
		errs      []error
	)
	for _, obj := range manifests {
		gvk := obj.GroupVersionKind()
		gvr, resource, err := clients.Discovery.KindFor(gvk)
		if err != nil {
			log.WithField("kind", gvk.String()).Debug("Kind is not served by the target cluster, skipping conflict check")
			continue
		}

		namespace := ""
		if resource.Namespaced {
			namespace = obj.GetNamespace()
		}
		dynamicClient, err := clients.DynamicFactory.ClientForGroupVersionResource(gvr.GroupVersion(), resource, namespace)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "error getting client for %s", gvr.String()))
			continue
		}

		live, err := client.GetRetriable(ctx, client.GetFuncForDynamicClient(dynamicClient, metav1.GetOptions{}), obj.GetName(), v.backoff, client.IsRetriableAPIError)
		if apierrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "error getting %s %s", gvk.Kind, obj.GetName()))
			continue
		}

		if label.RestoredBy(live.GetLabels(), req.RestoreID) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:      gvk.Kind,
			Namespace: namespace,
			Name:      obj.GetName(),
			RestoreID: live.GetLabels()[restorev1.RestoreIDLabel],
		})
	}

	if len(errs) > 0 {
		return conflicts, restore.NewAccessError(req.TargetCluster, "error checking for conflicts", kubeerrs.NewAggregate(errs))
	}

	log.WithField("conflicts", len(conflicts)).Info("Checked target cluster for conflicts")
	return conflicts, nil
}

// ResolveConflicts applies a conflict policy. Under ConflictPolicyWarn the
// conflicts come back as warnings, otherwise any conflict is a ConflictError.
func ResolveConflicts(policy restorev1.ConflictPolicy, conflicts []Conflict) ([]string, error) {
	if len(conflicts) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		names = append(names, c.String())
	}

	if policy == restorev1.ConflictPolicyWarn {
		warnings := make([]string, 0, len(names))
		for _, name := range names {
			warnings = append(warnings, "Conflict detected: "+name)
		}
		return warnings, nil
	}

	return nil, errors.WithStack(&restore.ConflictError{Resources: names})
}
