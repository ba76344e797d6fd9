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

package verification

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/kube"
)

// resourceWaiter tracks the manifests that have not become ready yet.
type resourceWaiter struct {
	getter  *liveGetter
	pending map[string]*unstructured.Unstructured
	ready   sets.Set[string]
}

func newResourceWaiter(getter *liveGetter, manifests []*unstructured.Unstructured) *resourceWaiter {
	rw := &resourceWaiter{
		getter:  getter,
		pending: make(map[string]*unstructured.Unstructured, len(manifests)),
		ready:   sets.New[string](),
	}
	for _, obj := range manifests {
		rw.pending[describe(obj)] = obj
	}
	return rw
}

// poll checks every pending item once. It reports whether nothing is left
// pending.
func (rw *resourceWaiter) poll(ctx context.Context) (bool, error) {
	for key, obj := range rw.pending {
		live, err := rw.getter.get(ctx, obj.GroupVersionKind(), obj.GetNamespace(), obj.GetName())
		if err != nil {
			return false, err
		}
		if live == nil {
			continue
		}
		ready, err := kube.IsReady(live)
		if err != nil {
			return false, errors.WithStack(&restore.VerificationError{Err: err})
		}
		if ready {
			delete(rw.pending, key)
			rw.ready.Insert(key)
		}
	}
	return len(rw.pending) == 0, nil
}

func (rw *resourceWaiter) timedOut() []string {
	return sets.List(sets.KeySet(rw.pending))
}

// WaitForResourcesReady polls the manifests until each is ready or the
// request's ready timeout elapses. Resources still pending at the deadline
// are returned, not treated as an error.
func (v *Verifier) WaitForResourcesReady(ctx context.Context, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) (int, []string, error) {
	getter, err := v.getter(req.TargetCluster)
	if err != nil {
		return 0, nil, err
	}

	timeout := v.readyTimeoutFor(req)
	log := v.log.WithFields(logrus.Fields{"restore": req.RestoreID, "cluster": req.TargetCluster, "timeout": timeout})
	log.Infof("Waiting for %d resources to become ready", len(manifests))

	rw := newResourceWaiter(getter, manifests)
	err = wait.PollUntilContextTimeout(ctx, v.pollInterval, timeout, true, rw.poll)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return rw.ready.Len(), rw.timedOut(), errors.WithStack(ctx.Err())
	case wait.Interrupted(err):
		log.WithField("pending", len(rw.pending)).Warn("Timed out waiting for resources to become ready")
	default:
		return rw.ready.Len(), rw.timedOut(), err
	}

	return rw.ready.Len(), rw.timedOut(), nil
}

// ValidateResourceHealth classifies every manifest's live object. Missing
// objects count as unhealthy.
func (v *Verifier) ValidateResourceHealth(ctx context.Context, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) (*restorev1.HealthReport, error) {
	getter, err := v.getter(req.TargetCluster)
	if err != nil {
		return nil, err
	}

	report := &restorev1.HealthReport{}
	for _, obj := range manifests {
		detail := restorev1.ResourceHealth{
			Kind:      obj.GetKind(),
			Namespace: obj.GetNamespace(),
			Name:      obj.GetName(),
		}

		live, err := getter.get(ctx, obj.GroupVersionKind(), obj.GetNamespace(), obj.GetName())
		if err != nil {
			return nil, err
		}
		if live == nil {
			detail.Status = restorev1.HealthStatusUnhealthy
			detail.Message = "resource not found"
		} else {
			detail.Status, detail.Message, err = kube.ResourceHealth(live)
			if err != nil {
				return nil, errors.WithStack(&restore.VerificationError{Err: err})
			}
		}

		switch detail.Status {
		case restorev1.HealthStatusHealthy:
			report.Healthy++
		case restorev1.HealthStatusDegraded:
			report.Degraded++
		default:
			report.Unhealthy++
		}
		report.Details = append(report.Details, detail)
	}

	switch {
	case report.Unhealthy > 0:
		report.OverallStatus = restorev1.HealthStatusUnhealthy
	case report.Degraded > 0:
		report.OverallStatus = restorev1.HealthStatusDegraded
	default:
		report.OverallStatus = restorev1.HealthStatusHealthy
	}

	v.log.WithFields(logrus.Fields{
		"restore":   req.RestoreID,
		"healthy":   report.Healthy,
		"degraded":  report.Degraded,
		"unhealthy": report.Unhealthy,
	}).Info("Aggregated resource health")
	return report, nil
}
