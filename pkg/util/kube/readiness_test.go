/*
Copyright The Velero Contributors.

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

package kube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1api "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/builder"
)

func TestIsPodRunning(t *testing.T) {
	tests := []struct {
		name string
		pod  *corev1api.Pod
		err  string
	}{
		{
			name: "pod is nil",
			err:  "invalid input pod",
		},
		{
			name: "pod is not scheduled",
			pod:  builder.ForPod("fake-ns", "fake-pod").Phase("fake-phase").Result(),
			err:  "pod is not scheduled, name=fake-pod, namespace=fake-ns, phase=fake-phase",
		},
		{
			name: "pod is pending",
			pod:  builder.ForPod("fake-ns", "fake-pod").NodeName("node").Phase(corev1api.PodPending).Result(),
			err:  "pod is not running, name=fake-pod, namespace=fake-ns, phase=Pending",
		},
		{
			name: "pod is being deleted",
			pod: builder.ForPod("fake-ns", "fake-pod").
				ObjectMeta(func(obj metav1.Object) { obj.SetDeletionTimestamp(&metav1.Time{}) }).
				NodeName("node").Phase(corev1api.PodRunning).Result(),
			err: "pod is being terminated, name=fake-pod, namespace=fake-ns, phase=Running",
		},
		{
			name: "success",
			pod:  builder.ForPod("fake-ns", "fake-pod").NodeName("node").Phase(corev1api.PodRunning).Result(),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := IsPodRunning(test.pod)
			if test.err == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, test.err)
			}
		})
	}
}

func TestResourceHealth(t *testing.T) {
	tests := []struct {
		name   string
		obj    *unstructured.Unstructured
		status restorev1.HealthStatus
	}{
		{
			name:   "deployment fully available",
			obj:    builder.ToUnstructured(builder.ForDeployment("ns", "web").Replicas(3).AvailableReplicas(3).Result()),
			status: restorev1.HealthStatusHealthy,
		},
		{
			name:   "deployment partially available",
			obj:    builder.ToUnstructured(builder.ForDeployment("ns", "web").Replicas(3).AvailableReplicas(1).Result()),
			status: restorev1.HealthStatusDegraded,
		},
		{
			name:   "deployment with nothing available",
			obj:    builder.ToUnstructured(builder.ForDeployment("ns", "web").Replicas(3).Result()),
			status: restorev1.HealthStatusUnhealthy,
		},
		{
			name:   "deployment scaled to zero",
			obj:    builder.ToUnstructured(builder.ForDeployment("ns", "web").Replicas(0).Result()),
			status: restorev1.HealthStatusHealthy,
		},
		{
			name:   "running ready pod",
			obj:    builder.ToUnstructured(builder.ForPod("ns", "p").NodeName("n").Phase(corev1api.PodRunning).Ready(true).Result()),
			status: restorev1.HealthStatusHealthy,
		},
		{
			name:   "running pod not ready",
			obj:    builder.ToUnstructured(builder.ForPod("ns", "p").NodeName("n").Phase(corev1api.PodRunning).Ready(false).Result()),
			status: restorev1.HealthStatusDegraded,
		},
		{
			name:   "failed pod",
			obj:    builder.ToUnstructured(builder.ForPod("ns", "p").Phase(corev1api.PodFailed).Result()),
			status: restorev1.HealthStatusUnhealthy,
		},
		{
			name:   "config map only needs to exist",
			obj:    builder.ToUnstructured(builder.ForConfigMap("ns", "cm").Result()),
			status: restorev1.HealthStatusHealthy,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, _, err := ResourceHealth(tc.obj)
			require.NoError(t, err)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestIsVersionAtLeast(t *testing.T) {
	assert.True(t, IsVersionAtLeast("v1.29.3", "v1.20.0"))
	assert.False(t, IsVersionAtLeast("v1.19.16", "v1.20.0"))
	assert.True(t, IsVersionAtLeast("v1.19.16", ""))
}

func TestNamespaceAndName(t *testing.T) {
	assert.Equal(t, "ns/cm", NamespaceAndName(builder.ForConfigMap("ns", "cm").Result()))
	assert.Equal(t, "ns", NamespaceAndName(builder.ForNamespace("ns").Result()))
}
