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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/cmd/util/output"
	pkgrestore "github.com/walbis/tkkube/pkg/restore"
)

type fakeRestorer struct {
	mu sync.Mutex

	started  *restorev1.RestoreRequest
	startErr error

	// statuses are returned in order; the restore is finished once they
	// run out unless stuck is set.
	statuses []restorev1.RestorePhase
	stuck    bool
	canceled []string
	waited   bool

	results  map[string]*restorev1.RestoreResult
	plan     *restorev1.RestorePlan
	warnings []string
}

func (f *fakeRestorer) StartRestore(_ context.Context, req *restorev1.RestoreRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = req
	return req.RestoreID, nil
}

func (f *fakeRestorer) GetRestoreStatus(restoreID string) (*restorev1.RestoreProgress, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stuck {
		return &restorev1.RestoreProgress{RestoreID: restoreID, Phase: restorev1.RestorePhaseGitOpsSync}, true
	}
	if len(f.statuses) == 0 {
		return nil, false
	}
	phase := f.statuses[0]
	f.statuses = f.statuses[1:]
	return &restorev1.RestoreProgress{RestoreID: restoreID, Phase: phase, CurrentStep: "step " + string(phase), PercentComplete: 50}, true
}

func (f *fakeRestorer) CancelRestore(restoreID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, restoreID)
	f.stuck = false
	return true
}

func (f *fakeRestorer) GetRestoreResult(_ context.Context, restoreID string) (*restorev1.RestoreResult, error) {
	if result, ok := f.results[restoreID]; ok {
		return result, nil
	}
	return nil, pkgrestore.NewNotFoundError("restore", restoreID)
}

func (f *fakeRestorer) PlanRestore(_ context.Context, req *restorev1.RestoreRequest) (*restorev1.RestorePlan, error) {
	f.started = req
	return f.plan, nil
}

func (f *fakeRestorer) ValidateRestore(_ context.Context, req *restorev1.RestoreRequest) ([]string, error) {
	f.started = req
	return f.warnings, nil
}

func (f *fakeRestorer) Wait() {
	f.waited = true
}

func newTestCommand(input string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	c := &cobra.Command{Use: "test"}
	output.BindFlags(c.Flags())

	var out, errOut bytes.Buffer
	c.SetIn(strings.NewReader(input))
	c.SetOut(&out)
	c.SetErr(&errOut)
	return c, &out, &errOut
}

func newTestRunOptions() *RunOptions {
	o := NewRunOptions()
	o.RestoreID = "r1"
	o.BackupID = "b1"
	o.SourceCluster = "prod"
	o.TargetCluster = "dr-east"
	o.PollInterval = time.Millisecond
	return o
}

func result(id string, phase restorev1.RestorePhase) *restorev1.RestoreResult {
	return &restorev1.RestoreResult{
		RestoreID:         id,
		Success:           phase == restorev1.RestorePhaseCompleted,
		Phase:             phase,
		ResourcesRestored: 3,
		Request:           restorev1.RestoreRequest{RestoreID: id, BackupID: "b1", TargetCluster: "dr-east"},
	}
}

func TestRunReportsPhasesAndResult(t *testing.T) {
	r := &fakeRestorer{
		statuses: []restorev1.RestorePhase{
			restorev1.RestorePhasePlanning,
			restorev1.RestorePhasePlanning,
			restorev1.RestorePhaseGitOpsSync,
		},
		results: map[string]*restorev1.RestoreResult{"r1": result("r1", restorev1.RestorePhaseCompleted)},
	}
	c, out, errOut := newTestCommand("y\n")

	require.NoError(t, newTestRunOptions().Run(context.Background(), c, r))

	require.NotNil(t, r.started)
	assert.Equal(t, "b1", r.started.BackupID)
	assert.True(t, r.waited)
	assert.Empty(t, r.canceled)

	assert.Contains(t, errOut.String(), `Restoring backup "b1" to cluster "dr-east"`)
	assert.Contains(t, errOut.String(), "Restore r1 started.")
	assert.Equal(t, 1, strings.Count(errOut.String(), "Planning: step Planning (50%)"))
	assert.Contains(t, errOut.String(), "GitOpsSync: step GitOpsSync (50%)")

	assert.Contains(t, out.String(), "r1")
	assert.Contains(t, out.String(), "Resources Restored:")
}

func TestRunAborted(t *testing.T) {
	r := &fakeRestorer{}
	c, out, errOut := newTestCommand("n\n")

	require.NoError(t, newTestRunOptions().Run(context.Background(), c, r))
	assert.Nil(t, r.started)
	assert.Contains(t, errOut.String(), "Restore aborted.")
	assert.Empty(t, out.String())
}

func TestRunDryRunSkipsConfirmation(t *testing.T) {
	r := &fakeRestorer{results: map[string]*restorev1.RestoreResult{"r1": result("r1", restorev1.RestorePhaseCompleted)}}
	c, _, errOut := newTestCommand("")

	o := newTestRunOptions()
	o.DryRun = true
	require.NoError(t, o.Run(context.Background(), c, r))

	require.NotNil(t, r.started)
	assert.True(t, r.started.DryRun)
	assert.NotContains(t, errOut.String(), "Are you sure")
}

func TestRunFailedRestore(t *testing.T) {
	r := &fakeRestorer{results: map[string]*restorev1.RestoreResult{"r1": result("r1", restorev1.RestorePhaseFailed)}}
	c, _, _ := newTestCommand("")

	o := newTestRunOptions()
	o.Confirm.Confirm = true
	err := o.Run(context.Background(), c, r)
	require.Error(t, err)
	assert.Equal(t, "restore r1 failed", err.Error())
}

func TestRunStartError(t *testing.T) {
	r := &fakeRestorer{startErr: errors.New("restore \"r1\" is already running")}
	c, _, _ := newTestCommand("")

	o := newTestRunOptions()
	o.Confirm.Confirm = true
	err := o.Run(context.Background(), c, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.False(t, r.waited)
}

func TestRunCanceled(t *testing.T) {
	r := &fakeRestorer{
		stuck:   true,
		results: map[string]*restorev1.RestoreResult{"r1": result("r1", restorev1.RestorePhaseFailed)},
	}
	c, _, errOut := newTestCommand("")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestRunOptions()
	o.Confirm.Confirm = true
	err := o.Run(ctx, c, r)
	require.Error(t, err)

	assert.Equal(t, []string{"r1"}, r.canceled)
	assert.True(t, r.waited)
	assert.Contains(t, errOut.String(), "Canceling restore r1.")
}

func TestRunJSONOutput(t *testing.T) {
	r := &fakeRestorer{results: map[string]*restorev1.RestoreResult{"r1": result("r1", restorev1.RestorePhaseCompleted)}}
	c, out, _ := newTestCommand("")
	require.NoError(t, c.Flags().Set("output", "json"))

	o := newTestRunOptions()
	o.Confirm.Confirm = true
	require.NoError(t, o.Run(context.Background(), c, r))

	var got restorev1.RestoreResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "r1", got.RestoreID)
	assert.Equal(t, restorev1.RestorePhaseCompleted, got.Phase)
}

func TestPlan(t *testing.T) {
	r := &fakeRestorer{plan: &restorev1.RestorePlan{
		RestoreID:      "r1",
		BackupID:       "b1",
		TargetCluster:  "dr-east",
		TotalResources: 4,
		Steps:          []string{"Validate backup", "Push manifests"},
	}}
	c, out, _ := newTestCommand("")

	o := newTestRunOptions().RequestOptions
	require.NoError(t, runPlan(context.Background(), c, o, r))

	assert.Contains(t, out.String(), "1. Validate backup")
	assert.Contains(t, out.String(), "2. Push manifests")
	assert.Equal(t, "r1", r.started.RestoreID)
}

func TestValidate(t *testing.T) {
	r := &fakeRestorer{warnings: []string{"backup is 40 days old"}}
	c, out, _ := newTestCommand("")

	require.NoError(t, runValidate(context.Background(), c, newTestRunOptions().RequestOptions, r))
	assert.Equal(t, "Restore r1 is valid.\nWarning: backup is 40 days old\n", out.String())
}

func TestValidateYAMLOutput(t *testing.T) {
	r := &fakeRestorer{}
	c, out, _ := newTestCommand("")
	require.NoError(t, c.Flags().Set("output", "yaml"))

	require.NoError(t, runValidate(context.Background(), c, newTestRunOptions().RequestOptions, r))
	assert.Equal(t, "valid: true\nwarnings: []\n", out.String())
}

func TestDescribe(t *testing.T) {
	r := &fakeRestorer{results: map[string]*restorev1.RestoreResult{
		"r1": result("r1", restorev1.RestorePhaseCompleted),
		"r2": result("r2", restorev1.RestorePhaseFailed),
	}}
	c, out, _ := newTestCommand("")

	require.NoError(t, runDescribe(context.Background(), c, []string{"r1", "r2"}, r))
	assert.Contains(t, out.String(), "r1")
	assert.Contains(t, out.String(), "r2")

	err := runDescribe(context.Background(), c, []string{"missing"}, r)
	require.Error(t, err)
	assert.True(t, pkgrestore.IsNotFound(err))
}
