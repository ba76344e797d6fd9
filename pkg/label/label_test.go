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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/util/validation"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

func TestGetValidLabelName(t *testing.T) {
	tests := []struct {
		name          string
		label         string
		expectedLabel string
	}{
		{
			name:          "short restore id is not modified",
			label:         "nightly-restore-1",
			expectedLabel: "nightly-restore-1",
		},
		{
			name:          "id with more than 63 characters is shortened",
			label:         "this_is_a_very_long_label_value_that_will_be_rejected_by_Kubernetes",
			expectedLabel: "this_is_a_very_long_label_value_that_will_be_rejected_by_8d0722",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			labelVal := GetValidName(test.label)
			assert.Equal(t, test.expectedLabel, labelVal)
		})
	}
}

func TestRestoreLabels(t *testing.T) {
	assert.Equal(t, map[string]string{
		restorev1.RestoreIDLabel:    "r1",
		restorev1.SourceBackupLabel: "b1",
		restorev1.DRScenarioLabel:   "namespace-recovery",
	}, RestoreLabels("r1", "b1", restorev1.DRScenarioNamespaceRecovery))

	assert.Equal(t, map[string]string{restorev1.RestoreIDLabel: "r1"}, RestoreLabels("r1", "", ""))

	long := RestoreLabels("restore-"+strings.Repeat("a", 80), "", "")
	assert.Empty(t, validation.IsValidLabelValue(long[restorev1.RestoreIDLabel]))
}

func TestRestoredBy(t *testing.T) {
	long := "restore-" + strings.Repeat("a", 80)

	assert.True(t, RestoredBy(RestoreLabels("r1", "b1", ""), "r1"))
	assert.True(t, RestoredBy(RestoreLabels(long, "", ""), long))
	assert.False(t, RestoredBy(RestoreLabels("r0", "", ""), "r1"))
	assert.False(t, RestoredBy(map[string]string{"app": "web"}, "r1"))
	assert.False(t, RestoredBy(nil, "r1"))
}
