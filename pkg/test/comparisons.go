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
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	core "k8s.io/client-go/testing"
)

// ValidatePatch tests the validity of an action. It checks
// that the action is a PatchAction, that the patch decodes from JSON
// with the provided decode func and has no extraneous fields, and that
// the decoded patch matches the expected.
func ValidatePatch(t *testing.T, action core.Action, expected interface{}, decodeFunc func(*json.Decoder) (interface{}, error)) {
	t.Helper()

	patchAction, ok := action.(core.PatchAction)
	require.True(t, ok, "action is not a PatchAction")

	decoder := json.NewDecoder(bytes.NewReader(patchAction.GetPatch()))
	decoder.DisallowUnknownFields()

	actual, err := decodeFunc(decoder)
	require.NoError(t, err)

	AssertDeepEqual(t, expected, actual)
}

// FilterActions returns the actions with the given verb and resource.
func FilterActions(actions []core.Action, verb, resource string) []core.Action {
	var out []core.Action
	for _, a := range actions {
		if a.GetVerb() == verb && a.GetResource().Resource == resource {
			out = append(out, a)
		}
	}
	return out
}

// AssertDeepEqual asserts the equality of objects, comparing time.Time
// values with Equal.
func AssertDeepEqual(t *testing.T, expected, actual interface{}) bool {
	t.Helper()

	if diff := cmp.Diff(expected, actual, cmp.Comparer(func(t1, t2 time.Time) bool { return t1.Equal(t2) })); diff != "" {
		return assert.Fail(t, fmt.Sprintf("Objects not equal (-want +got):\n\n%s", diff))
	}

	return true
}
