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
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	authorizationv1 "k8s.io/api/authorization/v1"
	kbclient "sigs.k8s.io/controller-runtime/pkg/client"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
)

type permission struct {
	group    string
	resource string
}

var (
	requiredPermissions = []permission{
		{resource: "namespaces"},
		{resource: "configmaps"},
		{resource: "secrets"},
		{resource: "services"},
		{group: "apps", resource: "deployments"},
	}
	requiredVerbs = []string{"get", "list", "create", "update", "patch"}
)

func (p permission) String() string {
	if p.group == "" {
		return p.resource
	}
	return p.resource + "." + p.group
}

// ValidateRestorePermissions checks that the requester may run this restore
// and that the orchestrator's own identity holds the RBAC verbs a restore
// needs on the target cluster.
func (v *Validator) ValidateRestorePermissions(ctx context.Context, req *restorev1.RestoreRequest) error {
	if err := v.authorizer.Authorize(req.Requester, req); err != nil {
		return err
	}

	clients, err := v.clusters.ClientsFor(req.TargetCluster)
	if err != nil {
		return restore.NewAccessError(req.TargetCluster, "cluster is not reachable", err)
	}

	// Namespace-scoped reviews when the restore lands in a single namespace.
	namespace := ""
	if len(req.TargetNamespaces) == 1 {
		namespace = req.TargetNamespaces[0]
	}

	var denied []string
	for _, p := range requiredPermissions {
		for _, verb := range requiredVerbs {
			allowed, err := canI(ctx, clients.Kubebuilder, p, verb, namespace)
			if err != nil {
				return restore.NewAccessError(req.TargetCluster, "error reviewing permissions", err)
			}
			if !allowed {
				denied = append(denied, verb+" "+p.String())
			}
		}
	}

	if len(denied) > 0 {
		return restore.NewAccessError(req.TargetCluster, fmt.Sprintf("missing permissions: %s", strings.Join(denied, ", ")), nil)
	}

	v.log.WithFields(logrus.Fields{"cluster": req.TargetCluster, "requester": req.Requester}).Debug("Restore permissions granted")
	return nil
}

func canI(ctx context.Context, c kbclient.Client, p permission, verb, namespace string) (bool, error) {
	review := &authorizationv1.SelfSubjectAccessReview{
		Spec: authorizationv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authorizationv1.ResourceAttributes{
				Namespace: namespace,
				Verb:      verb,
				Group:     p.group,
				Resource:  p.resource,
			},
		},
	}
	if err := c.Create(ctx, review); err != nil {
		return false, errors.Wrapf(err, "error reviewing %s on %s", verb, p)
	}
	return review.Status.Allowed, nil
}
