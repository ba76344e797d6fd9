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

package gitops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/utils/clock"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/label"
	"github.com/walbis/tkkube/pkg/restore"
)

const (
	inClusterServer     = "https://kubernetes.default.svc"
	defaultPollInterval = 5 * time.Second

	syncStatusSynced    = "Synced"
	healthStatusHealthy = "Healthy"
	operationRunning    = "Running"
	operationFailed     = "Failed"
	operationError      = "Error"
)

// ApplicationGVK identifies Argo CD Applications.
var ApplicationGVK = schema.GroupVersionKind{Group: "argoproj.io", Version: "v1alpha1", Kind: "Application"}

// ApplicationName returns the name of the Application syncing a restore.
func ApplicationName(restoreID string) string {
	return label.GetValidName("restore-" + restoreID)
}

// NewApplication builds the Argo CD Application that deploys a restore's
// directory to the target cluster.
func NewApplication(cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest) *unstructured.Unstructured {
	destinationNamespace := "default"
	if len(req.TargetNamespaces) == 1 {
		destinationNamespace = req.TargetNamespaces[0]
	}

	app := &unstructured.Unstructured{Object: map[string]interface{}{
		"spec": map[string]interface{}{
			"project": cfg.ArgoCDProject,
			"source": map[string]interface{}{
				"repoURL":        cfg.RepositoryURL,
				"targetRevision": cfg.Branch,
				"path":           RestoreDir(cfg, req),
			},
			"destination": map[string]interface{}{
				"server":    inClusterServer,
				"namespace": destinationNamespace,
			},
			"syncPolicy": map[string]interface{}{
				"automated": map[string]interface{}{
					"prune":    true,
					"selfHeal": true,
				},
				"syncOptions": []interface{}{"CreateNamespace=true"},
			},
		},
	}}
	app.SetGroupVersionKind(ApplicationGVK)
	app.SetName(ApplicationName(req.RestoreID))
	app.SetNamespace(cfg.ArgoCDNamespace)
	app.SetLabels(label.RestoreLabels(req.RestoreID, "", req.DRScenario))
	return app
}

// SyncStatus is the observed state of a restore's Application.
type SyncStatus struct {
	Sync      string
	Health    string
	Operation string
	Message   string
}

func (s *SyncStatus) String() string {
	return fmt.Sprintf("sync=%s health=%s operation=%s", orUnknown(s.Sync), orUnknown(s.Health), orUnknown(s.Operation))
}

func (s *SyncStatus) settled() bool {
	return s.Sync == syncStatusSynced && s.Health == healthStatusHealthy && s.Operation != operationRunning
}

func (s *SyncStatus) failed() bool {
	return s.Operation == operationFailed || s.Operation == operationError
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// SyncController drives the GitOps controller of the target cluster.
type SyncController interface {
	// TriggerSync creates or updates the restore's Application and asks
	// the controller to sync it.
	TriggerSync(ctx context.Context, cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest) error
	// MonitorSync waits until the Application is synced and healthy, up
	// to cfg.SyncTimeout. Running out of time yields a SyncTimeoutError.
	MonitorSync(ctx context.Context, cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest, progress func(step string)) (*SyncStatus, error)
}

type argoCD struct {
	clusters     client.ClusterRegistry
	clock        clock.WithTicker
	pollInterval time.Duration
	log          logrus.FieldLogger
}

// NewArgoCD returns a SyncController for Argo CD, reached through the
// dynamic client of each target cluster.
func NewArgoCD(clusters client.ClusterRegistry, log logrus.FieldLogger) SyncController {
	return &argoCD{
		clusters:     clusters,
		clock:        clock.RealClock{},
		pollInterval: defaultPollInterval,
		log:          log,
	}
}

func (a *argoCD) applicationClient(cfg *restorev1.GitOpsConfig, cluster string) (client.Dynamic, error) {
	clients, err := a.clusters.ClientsFor(cluster)
	if err != nil {
		return nil, restore.NewAccessError(cluster, "cluster is not reachable", err)
	}
	gvr, resource, err := clients.Discovery.KindFor(ApplicationGVK)
	if err != nil {
		return nil, errors.Wrapf(err, "Argo CD is not installed on cluster %s", cluster)
	}
	return clients.DynamicFactory.ClientForGroupVersionResource(gvr.GroupVersion(), resource, cfg.ArgoCDNamespace)
}

func (a *argoCD) TriggerSync(ctx context.Context, cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest) error {
	apps, err := a.applicationClient(cfg, req.TargetCluster)
	if err != nil {
		return err
	}

	desired := NewApplication(cfg, req)
	name := desired.GetName()
	log := a.log.WithFields(logrus.Fields{"application": name, "cluster": req.TargetCluster})

	existing, err := apps.Get(ctx, name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		if _, err := apps.Create(ctx, desired); err != nil {
			return errors.Wrapf(err, "error creating application %s", name)
		}
		log.Info("Created application")
	case err != nil:
		return errors.Wrapf(err, "error getting application %s", name)
	default:
		patch, err := specPatch(existing, desired)
		if err != nil {
			return err
		}
		if patch != nil {
			if _, err := apps.Patch(ctx, name, patch); err != nil {
				return errors.Wrapf(err, "error updating application %s", name)
			}
			log.Info("Updated application")
		}
	}

	operation, err := json.Marshal(map[string]interface{}{
		"operation": map[string]interface{}{
			"initiatedBy": map[string]interface{}{"username": authorName},
			"sync": map[string]interface{}{
				"revision": cfg.Branch,
				"prune":    true,
			},
		},
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := apps.Patch(ctx, name, operation); err != nil {
		return errors.Wrapf(err, "error requesting sync of application %s", name)
	}

	log.Info("Requested application sync")
	return nil
}

// specPatch returns the merge patch moving existing's labels and spec to
// desired's, or nil when they already match.
func specPatch(existing, desired *unstructured.Unstructured) ([]byte, error) {
	updated := existing.DeepCopy()
	updated.Object["spec"] = desired.Object["spec"]
	updated.SetLabels(desired.GetLabels())

	original, err := json.Marshal(existing.Object)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	modified, err := json.Marshal(updated.Object)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return nil, errors.Wrap(err, "error creating application patch")
	}
	if string(patch) == "{}" {
		return nil, nil
	}
	return patch, nil
}

func (a *argoCD) MonitorSync(ctx context.Context, cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest, progress func(string)) (*SyncStatus, error) {
	apps, err := a.applicationClient(cfg, req.TargetCluster)
	if err != nil {
		return nil, err
	}

	name := ApplicationName(req.RestoreID)
	deadline := a.clock.Now().Add(cfg.SyncTimeout.Duration)
	ticker := a.clock.NewTicker(a.pollInterval)
	defer ticker.Stop()

	status := &SyncStatus{}
	for {
		app, err := apps.Get(ctx, name, metav1.GetOptions{})
		switch {
		case apierrors.IsNotFound(err):
			// the controller may not have observed the commit yet
		case err != nil:
			return status, errors.Wrapf(err, "error getting application %s", name)
		default:
			status = applicationStatus(app)
		}

		if progress != nil {
			progress("GitOps sync: " + status.String())
		}

		if status.settled() {
			return status, nil
		}
		if status.failed() {
			return status, errors.Errorf("sync of application %s failed: %s", name, status.Message)
		}
		if !a.clock.Now().Before(deadline) {
			return status, errors.WithStack(&restore.SyncTimeoutError{Application: name, LastStatus: status.String()})
		}

		select {
		case <-ctx.Done():
			return status, errors.WithStack(ctx.Err())
		case <-ticker.C():
		}
	}
}

func applicationStatus(app *unstructured.Unstructured) *SyncStatus {
	status := &SyncStatus{}
	status.Sync, _, _ = unstructured.NestedString(app.Object, "status", "sync", "status")
	status.Health, _, _ = unstructured.NestedString(app.Object, "status", "health", "status")
	status.Operation, _, _ = unstructured.NestedString(app.Object, "status", "operationState", "phase")
	status.Message, _, _ = unstructured.NestedString(app.Object, "status", "operationState", "message")
	return status
}
