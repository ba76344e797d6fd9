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

package restore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/apiserver"
)

type fakeRemote struct {
	active   []*restorev1.RestoreProgress
	history  []restorev1.RestoreResult
	statuses map[string]*apiserver.RestoreStatus
	limits   []int
	err      error
}

func (f *fakeRemote) ListActiveRestores(context.Context) ([]*restorev1.RestoreProgress, error) {
	return f.active, f.err
}

func (f *fakeRemote) ListRestoreHistory(_ context.Context, limit int) ([]restorev1.RestoreResult, error) {
	f.limits = append(f.limits, limit)
	return f.history, nil
}

func (f *fakeRemote) GetRestore(_ context.Context, id string) (*apiserver.RestoreStatus, error) {
	if status, ok := f.statuses[id]; ok {
		return status, nil
	}
	return nil, &apiserver.APIError{StatusCode: 404, Code: "not_found", Message: "restore not found"}
}

func TestGetOptionsValidate(t *testing.T) {
	t.Setenv(serverEnvVar, "")
	t.Setenv(apiKeyEnvVar, "")

	c, _, _ := newTestCommand("")
	o := NewGetOptions()
	assert.EqualError(t, o.Validate(c), "--server or $GITOPS_RESTORE_SERVER is required")

	t.Setenv(serverEnvVar, "http://localhost:8080")
	t.Setenv(apiKeyEnvVar, "secret")
	o = NewGetOptions()
	assert.Equal(t, "http://localhost:8080", o.Server)
	assert.Equal(t, "secret", o.APIKey)
	require.NoError(t, o.Validate(c))

	o.Limit = -1
	assert.EqualError(t, o.Validate(c), "--limit must not be negative")
}

func TestGetListsActiveAndHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := &fakeRemote{
		active: []*restorev1.RestoreProgress{
			{RestoreID: "r2", Phase: restorev1.RestorePhaseGitOpsSync, PercentComplete: 57, CurrentStep: "Waiting for sync", StartTime: now.Add(-time.Minute)},
		},
		history: []restorev1.RestoreResult{*result("r1", restorev1.RestorePhaseCompleted)},
	}
	c, out, _ := newTestCommand("")
	o := NewGetOptions()
	o.Limit = 5

	require.NoError(t, runGet(context.Background(), c, o, nil, remote, now))
	assert.Equal(t, []int{5}, remote.limits)
	assert.Contains(t, out.String(), "NAME   PHASE")
	assert.Contains(t, out.String(), "r2")
	assert.Contains(t, out.String(), "57%")
	assert.Contains(t, out.String(), "Waiting for sync")
	assert.Contains(t, out.String(), "r1")
}

func TestGetEmpty(t *testing.T) {
	c, out, _ := newTestCommand("")

	require.NoError(t, runGet(context.Background(), c, NewGetOptions(), nil, &fakeRemote{}, time.Now()))
	assert.Equal(t, "No active restores.\n\nNo finished restores.\n", out.String())
}

func TestGetJSONOutput(t *testing.T) {
	c, out, _ := newTestCommand("")
	require.NoError(t, c.Flags().Set("output", "json"))

	require.NoError(t, runGet(context.Background(), c, NewGetOptions(), nil, &fakeRemote{}, time.Now()))

	var list RestoreList
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	assert.Empty(t, list.Active)
	assert.Empty(t, list.History)
	assert.Contains(t, out.String(), `"active": []`)
}

func TestGetListError(t *testing.T) {
	c, _, _ := newTestCommand("")
	remote := &fakeRemote{err: errors.New("connection refused")}

	err := runGet(context.Background(), c, NewGetOptions(), nil, remote, time.Now())
	assert.EqualError(t, err, "error listing active restores: connection refused")
}

func TestGetDescribesRestores(t *testing.T) {
	remote := &fakeRemote{statuses: map[string]*apiserver.RestoreStatus{
		"r2": {RestoreID: "r2", Active: true, Progress: &restorev1.RestoreProgress{
			RestoreID:       "r2",
			Phase:           restorev1.RestorePhaseVerification,
			CurrentStep:     "Checking resource health",
			PercentComplete: 71,
			StartTime:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}},
		"r1": {RestoreID: "r1", Result: result("r1", restorev1.RestorePhaseCompleted)},
	}}
	c, out, _ := newTestCommand("")

	require.NoError(t, runGet(context.Background(), c, NewGetOptions(), []string{"r2", "r1"}, remote, time.Now()))
	assert.Contains(t, out.String(), "Checking resource health")
	assert.Contains(t, out.String(), "r1")

	err := runGet(context.Background(), c, NewGetOptions(), []string{"missing"}, remote, time.Now())
	var apiErr *apiserver.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestGetDescribeYAMLOutput(t *testing.T) {
	remote := &fakeRemote{statuses: map[string]*apiserver.RestoreStatus{
		"r1": {RestoreID: "r1", Result: &restorev1.RestoreResult{RestoreID: "r1", Phase: restorev1.RestorePhaseCompleted, Duration: metav1.Duration{Duration: time.Minute}}},
	}}
	c, out, _ := newTestCommand("")
	require.NoError(t, c.Flags().Set("output", "yaml"))

	require.NoError(t, runGet(context.Background(), c, NewGetOptions(), []string{"r1"}, remote, time.Now()))
	assert.Contains(t, out.String(), "restore_id: r1")
}
