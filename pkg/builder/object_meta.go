/*
Copyright 2019 the Velero contributors.

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

package builder

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/label"
)

// ObjectMetaOpt is a functional option for ObjectMeta.
type ObjectMetaOpt func(metav1.Object)

// WithResourceVersion sets the object's resourceVersion.
func WithResourceVersion(val string) func(obj metav1.Object) {
	return func(obj metav1.Object) {
		obj.SetResourceVersion(val)
	}
}

// WithLabels merges the given key/value pairs into the object's labels.
// A trailing key without a value gets an empty value.
func WithLabels(vals ...string) func(obj metav1.Object) {
	return func(obj metav1.Object) {
		obj.SetLabels(setMapEntries(obj.GetLabels(), vals...))
	}
}

// WithRestoreLabels marks the object as written by a restore.
func WithRestoreLabels(restoreID, backupID string, scenario restorev1.DRScenario) func(obj metav1.Object) {
	return func(obj metav1.Object) {
		objLabels := obj.GetLabels()
		if objLabels == nil {
			objLabels = map[string]string{}
		}
		for k, v := range label.RestoreLabels(restoreID, backupID, scenario) {
			objLabels[k] = v
		}
		obj.SetLabels(objLabels)
	}
}

// WithUID sets the object's UID.
func WithUID(val string) func(obj metav1.Object) {
	return func(obj metav1.Object) {
		obj.SetUID(types.UID(val))
	}
}

func setMapEntries(m map[string]string, vals ...string) map[string]string {
	if m == nil {
		m = make(map[string]string, len(vals)/2+1)
	}
	if len(vals)%2 != 0 {
		vals = append(vals, "")
	}
	for i := 0; i < len(vals); i += 2 {
		m[vals[i]] = vals[i+1]
	}
	return m
}
