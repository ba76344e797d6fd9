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

// Package verification checks the state of restored resources once the
// GitOps controller has applied them.
package verification

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/utils/clock"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/kube"
)

const (
	// DefaultReadyTimeout bounds WaitForResourcesReady when the request
	// does not set one.
	DefaultReadyTimeout = 5 * time.Minute

	defaultPollInterval = 5 * time.Second
)

// Verifier inspects restored resources in the target cluster.
type Verifier struct {
	clusters     client.ClusterRegistry
	readyTimeout time.Duration
	pollInterval time.Duration
	clock        clock.PassiveClock
	log          logrus.FieldLogger
}

// NewVerifier returns a Verifier. A zero readyTimeout selects
// DefaultReadyTimeout.
func NewVerifier(clusters client.ClusterRegistry, readyTimeout time.Duration, log logrus.FieldLogger) *Verifier {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	return &Verifier{
		clusters:     clusters,
		readyTimeout: readyTimeout,
		pollInterval: defaultPollInterval,
		clock:        clock.RealClock{},
		log:          log,
	}
}

// Verify waits for the manifests to become ready, aggregates their health
// and runs the request's functional tests. Only API failures are returned
// as errors; unready or unhealthy resources end up in the report.
func (v *Verifier) Verify(ctx context.Context, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) (*restorev1.ValidationReport, error) {
	report := &restorev1.ValidationReport{}

	if resourceValidation(req) {
		ready, timedOut, err := v.WaitForResourcesReady(ctx, req, manifests)
		if err != nil {
			return nil, err
		}
		report.ReadyResources = ready
		report.TimedOutResources = timedOut

		health, err := v.ValidateResourceHealth(ctx, req, manifests)
		if err != nil {
			return nil, err
		}
		report.Health = *health
	} else {
		report.Health.OverallStatus = restorev1.HealthStatusHealthy
	}

	if req.ValidationConfig != nil && req.ValidationConfig.FunctionalTesting {
		results, err := v.RunFunctionalTests(ctx, req)
		if err != nil {
			return nil, err
		}
		report.FunctionalTests = results
	}

	report.GeneratedAt = v.clock.Now().UTC()
	return report, nil
}

// resourceValidation is on unless the request turns it off explicitly.
func resourceValidation(req *restorev1.RestoreRequest) bool {
	return req.ValidationConfig == nil || req.ValidationConfig.ResourceValidation
}

func (v *Verifier) readyTimeoutFor(req *restorev1.RestoreRequest) time.Duration {
	if req.ValidationConfig != nil && req.ValidationConfig.ReadyTimeout.Duration > 0 {
		return req.ValidationConfig.ReadyTimeout.Duration
	}
	return v.readyTimeout
}

// liveGetter fetches the live counterparts of manifests. A nil object means
// it does not exist yet or its kind is not served.
type liveGetter struct {
	clients *client.ClusterClients

	// discovery is refreshed at most once per verification, for kinds
	// whose CRDs arrived with the restore
	mu        sync.Mutex
	refreshed bool
}

func (v *Verifier) getter(cluster string) (*liveGetter, error) {
	clients, err := v.clusters.ClientsFor(cluster)
	if err != nil {
		return nil, errors.WithStack(&restore.VerificationError{Err: err})
	}
	return &liveGetter{clients: clients}, nil
}

func (g *liveGetter) get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error) {
	gvr, resource, served, err := g.resolve(gvk)
	if err != nil || !served {
		return nil, err
	}
	if !resource.Namespaced {
		namespace = ""
	}
	dynamicClient, err := g.clients.DynamicFactory.ClientForGroupVersionResource(gvr.GroupVersion(), resource, namespace)
	if err != nil {
		return nil, errors.WithStack(&restore.VerificationError{Err: err})
	}

	obj, err := dynamicClient.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(&restore.VerificationError{Err: errors.Wrapf(err, "error getting %s %s", gvk.Kind, name)})
	}
	return obj, nil
}

func (g *liveGetter) resolve(gvk schema.GroupVersionKind) (schema.GroupVersionResource, metav1.APIResource, bool, error) {
	gvr, resource, err := g.clients.Discovery.KindFor(gvk)
	if err == nil {
		return gvr, resource, true, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refreshed {
		return gvr, resource, false, nil
	}
	g.refreshed = true

	if err := g.clients.Discovery.Refresh(); err != nil {
		return gvr, resource, false, errors.WithStack(&restore.VerificationError{Err: errors.Wrap(err, "error refreshing discovery")})
	}
	gvr, resource, err = g.clients.Discovery.KindFor(gvk)
	return gvr, resource, err == nil, nil
}

func describe(obj *unstructured.Unstructured) string {
	return obj.GetKind() + " " + kube.NamespaceAndName(obj)
}
