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

package flag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

func TestSetOfEnum(t *testing.T) {
	enum := NewEnum("a", "a", "b", "c")
	assert.Equal(t, "a", enum.String())

	err := enum.Set("d")
	require.Error(t, err)
	assert.Equal(t, `invalid value "d", valid values are a, b, c`, err.Error())
	assert.Equal(t, "a", enum.String())

	require.NoError(t, enum.Set("b"))
	assert.Equal(t, "b", enum.String())
	assert.Equal(t, "", enum.Type())
}

func TestEnumOf(t *testing.T) {
	enum := NewEnumOf(restorev1.DRScenarioNamespaceRecovery, restorev1.DRScenarios()...)
	assert.Equal(t, string(restorev1.DRScenarioNamespaceRecovery), enum.String())
	assert.Len(t, enum.AllowedValues(), len(restorev1.DRScenarios()))

	require.NoError(t, enum.Set("cluster-rebuild"))
	assert.Equal(t, "cluster-rebuild", enum.String())
	assert.Error(t, enum.Set("cluster_rebuild"))
}
