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

package orchestrator

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	corev1api "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/label"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/kube"
)

// bootstrapCluster prepares a rebuilt cluster for the restore: it creates
// the namespaces the manifests live in and checks that the GitOps
// controller is installed. Each part counts as a progress step.
func (rc *restoreContext) bootstrapCluster(ctx context.Context) error {
	rc.progress.setStep("Bootstrapping namespaces")
	if err := rc.bootstrapNamespaces(ctx); err != nil {
		return err
	}
	rc.progress.completeStep()

	rc.progress.setStep("Checking GitOps controller")
	if err := rc.checkGitOpsController(); err != nil {
		return err
	}
	rc.progress.completeStep()
	return nil
}

func (rc *restoreContext) manifestNamespaces() []string {
	namespaces := sets.New[string]()
	for _, obj := range rc.manifests {
		if obj.GetKind() == "Namespace" && obj.GetNamespace() == "" {
			namespaces.Insert(obj.GetName())
			continue
		}
		if ns := obj.GetNamespace(); ns != "" {
			namespaces.Insert(ns)
		}
	}
	return sets.List(namespaces)
}

func (rc *restoreContext) bootstrapNamespaces(ctx context.Context) error {
	namespaces := rc.manifestNamespaces()
	if rc.request.DryRun {
		rc.log.WithField("namespaces", namespaces).Info("Dry run: not creating namespaces")
		return nil
	}

	clients, err := rc.clusters.ClientsFor(rc.request.TargetCluster)
	if err != nil {
		return restore.NewAccessError(rc.request.TargetCluster, "cluster is not reachable", err)
	}

	for _, name := range namespaces {
		ns := &corev1api.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name: name,
				Labels: label.RestoreLabels(rc.request.RestoreID, "", ""),
			},
		}
		created, err := kube.EnsureNamespaceExists(ctx, ns, clients.Kube.CoreV1().Namespaces())
		if err != nil {
			return errors.WithStack(err)
		}
		if created {
			rc.log.WithField("namespace", name).Info("Created namespace")
		}
	}
	return nil
}

// checkGitOpsController warns when the target cluster does not serve Argo
// CD Applications, since the sync would then never happen.
func (rc *restoreContext) checkGitOpsController() error {
	if !rc.gitops.AutoSyncEnabled() {
		return nil
	}

	clients, err := rc.clusters.ClientsFor(rc.request.TargetCluster)
	if err != nil {
		return restore.NewAccessError(rc.request.TargetCluster, "cluster is not reachable", err)
	}
	if _, _, err := clients.Discovery.KindFor(gitops.ApplicationGVK); err != nil {
		rc.warn(fmt.Sprintf("Argo CD is not installed on cluster %s: the restore will not be synced", rc.request.TargetCluster))
	}
	return nil
}
