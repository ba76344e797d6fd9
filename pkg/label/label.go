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

package label

import (
	"crypto/sha256"
	"fmt"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

// GetValidName shortens restore and backup IDs, and the names derived from
// them, to at most DNS1035LabelMaxLength characters so they can be used as
// label values and object names. Longer values keep their first 57
// characters followed by the first 6 hex characters of their sha256.
func GetValidName(label string) string {
	if len(label) <= validation.DNS1035LabelMaxLength {
		return label
	}

	sha := sha256.Sum256([]byte(label))
	strSha := fmt.Sprintf("%x", sha)
	charsFromLabel := validation.DNS1035LabelMaxLength - 6
	if charsFromLabel < 0 {
		return string(strSha[validation.DNS1035LabelMaxLength])
	}

	return label[:charsFromLabel] + strSha[:6]
}

// RestoreLabels returns the provenance labels stamped on the objects a
// restore writes. Empty backup IDs and scenarios are left out.
func RestoreLabels(restoreID, backupID string, scenario restorev1.DRScenario) map[string]string {
	out := map[string]string{restorev1.RestoreIDLabel: GetValidName(restoreID)}
	if backupID != "" {
		out[restorev1.SourceBackupLabel] = GetValidName(backupID)
	}
	if scenario != "" {
		out[restorev1.DRScenarioLabel] = string(scenario)
	}
	return out
}

// RestoredBy reports whether objLabels mark an object as written by the
// restore with the given ID.
func RestoredBy(objLabels map[string]string, restoreID string) bool {
	return labels.SelectorFromSet(labels.Set{restorev1.RestoreIDLabel: GetValidName(restoreID)}).Matches(labels.Set(objLabels))
}
