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
	"fmt"

	"github.com/pkg/errors"
	appsv1api "k8s.io/api/apps/v1"
	batchv1api "k8s.io/api/batch/v1"
	corev1api "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

// IsPodRunning does a well-rounded check to make sure the specified pod is running stably.
// If not, return the error found
func IsPodRunning(pod *corev1api.Pod) error {
	if pod == nil {
		return errors.New("invalid input pod")
	}

	if pod.Spec.NodeName == "" {
		return errors.Errorf("pod is not scheduled, name=%s, namespace=%s, phase=%s", pod.Name, pod.Namespace, pod.Status.Phase)
	}

	if pod.Status.Phase != corev1api.PodRunning {
		return errors.Errorf("pod is not running, name=%s, namespace=%s, phase=%s", pod.Name, pod.Namespace, pod.Status.Phase)
	}

	if pod.DeletionTimestamp != nil {
		return errors.Errorf("pod is being terminated, name=%s, namespace=%s, phase=%s", pod.Name, pod.Namespace, pod.Status.Phase)
	}

	return nil
}

func isPodReady(pod *corev1api.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1api.PodReady {
			return cond.Status == corev1api.ConditionTrue
		}
	}
	return false
}

// ResourceHealth classifies a live object. Kinds without a notion of
// readiness are healthy as soon as they exist.
func ResourceHealth(obj *unstructured.Unstructured) (restorev1.HealthStatus, string, error) {
	switch obj.GroupVersionKind().GroupKind().String() {
	case "Deployment.apps":
		deploy := new(appsv1api.Deployment)
		if err := fromUnstructured(obj, deploy); err != nil {
			return "", "", err
		}
		return replicaHealth(desiredReplicas(deploy.Spec.Replicas), deploy.Status.AvailableReplicas,
			deploy.Status.ObservedGeneration >= deploy.Generation && deploy.Status.UpdatedReplicas == desiredReplicas(deploy.Spec.Replicas))
	case "StatefulSet.apps":
		sts := new(appsv1api.StatefulSet)
		if err := fromUnstructured(obj, sts); err != nil {
			return "", "", err
		}
		return replicaHealth(desiredReplicas(sts.Spec.Replicas), sts.Status.ReadyReplicas, true)
	case "DaemonSet.apps":
		ds := new(appsv1api.DaemonSet)
		if err := fromUnstructured(obj, ds); err != nil {
			return "", "", err
		}
		return replicaHealth(ds.Status.DesiredNumberScheduled, ds.Status.NumberReady, true)
	case "Pod":
		pod := new(corev1api.Pod)
		if err := fromUnstructured(obj, pod); err != nil {
			return "", "", err
		}
		return podHealth(pod)
	case "Job.batch":
		job := new(batchv1api.Job)
		if err := fromUnstructured(obj, job); err != nil {
			return "", "", err
		}
		switch {
		case job.Status.Succeeded > 0:
			return restorev1.HealthStatusHealthy, "", nil
		case job.Status.Failed > 0 && job.Status.Active == 0:
			return restorev1.HealthStatusUnhealthy, fmt.Sprintf("%d failed pod(s)", job.Status.Failed), nil
		default:
			return restorev1.HealthStatusDegraded, "job has not completed", nil
		}
	case "PersistentVolumeClaim":
		pvc := new(corev1api.PersistentVolumeClaim)
		if err := fromUnstructured(obj, pvc); err != nil {
			return "", "", err
		}
		switch pvc.Status.Phase {
		case corev1api.ClaimBound:
			return restorev1.HealthStatusHealthy, "", nil
		case corev1api.ClaimLost:
			return restorev1.HealthStatusUnhealthy, "claim lost its volume", nil
		default:
			return restorev1.HealthStatusDegraded, "claim is not bound", nil
		}
	default:
		return restorev1.HealthStatusHealthy, "", nil
	}
}

func fromUnstructured(obj *unstructured.Unstructured, into interface{}) error {
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.UnstructuredContent(), into); err != nil {
		return errors.Wrapf(err, "error converting %s %s", obj.GetKind(), NamespaceAndName(obj))
	}
	return nil
}

func desiredReplicas(replicas *int32) int32 {
	if replicas == nil {
		return 1
	}
	return *replicas
}

func replicaHealth(desired, ready int32, rolledOut bool) (restorev1.HealthStatus, string, error) {
	switch {
	case ready >= desired && rolledOut:
		return restorev1.HealthStatusHealthy, "", nil
	case ready > 0:
		return restorev1.HealthStatusDegraded, fmt.Sprintf("%d/%d replicas ready", ready, desired), nil
	default:
		return restorev1.HealthStatusUnhealthy, fmt.Sprintf("0/%d replicas ready", desired), nil
	}
}

func podHealth(pod *corev1api.Pod) (restorev1.HealthStatus, string, error) {
	switch pod.Status.Phase {
	case corev1api.PodSucceeded:
		return restorev1.HealthStatusHealthy, "", nil
	case corev1api.PodFailed:
		return restorev1.HealthStatusUnhealthy, "pod failed", nil
	}
	if err := IsPodRunning(pod); err != nil {
		return restorev1.HealthStatusDegraded, err.Error(), nil
	}
	if !isPodReady(pod) {
		return restorev1.HealthStatusDegraded, "pod is running but not ready", nil
	}
	return restorev1.HealthStatusHealthy, "", nil
}

// IsReady reports whether a live object is healthy.
func IsReady(obj *unstructured.Unstructured) (bool, error) {
	status, _, err := ResourceHealth(obj)
	if err != nil {
		return false, err
	}
	return status == restorev1.HealthStatusHealthy, nil
}
