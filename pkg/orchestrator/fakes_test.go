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

package orchestrator

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/notify"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/test"
	"github.com/walbis/tkkube/pkg/validation"
)

// observer is called by the fakes with the name of the call, so tests can
// look at the progress while a phase is running.
type observer func(call string)

type fakeBackupStore struct {
	mu        sync.Mutex
	observe   observer
	metadata  map[string]*restorev1.BackupMetadata
	resources map[string][]*unstructured.Unstructured
	results   map[string]*restorev1.RestoreResult
	logs      map[string]string
}

func newFakeBackupStore() *fakeBackupStore {
	return &fakeBackupStore{
		metadata:  map[string]*restorev1.BackupMetadata{},
		resources: map[string][]*unstructured.Unstructured{},
		results:   map[string]*restorev1.RestoreResult{},
		logs:      map[string]string{},
	}
}

func (s *fakeBackupStore) withBackup(id string, resources ...*unstructured.Unstructured) *fakeBackupStore {
	counts := map[string]int{}
	for _, r := range resources {
		counts[r.GetNamespace()+"/"+restore.ResourceName(r)]++
	}
	s.metadata[id] = &restorev1.BackupMetadata{BackupID: id, ClusterName: "prod", ResourceCounts: counts}
	s.resources[id] = resources
	return s
}

func (s *fakeBackupStore) call(name string) {
	if s.observe != nil {
		s.observe(name)
	}
}

func (s *fakeBackupStore) IsValid(context.Context) error { return nil }

func (s *fakeBackupStore) ListBackups(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.metadata {
		out = append(out, id)
	}
	return out, nil
}

func (s *fakeBackupStore) GetBackupMetadata(_ context.Context, id string) (*restorev1.BackupMetadata, error) {
	s.call("GetBackupMetadata")
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.metadata[id]
	if !ok {
		return nil, restore.NewNotFoundError("backup", id)
	}
	return md, nil
}

func (s *fakeBackupStore) GetBackupResources(_ context.Context, id string) ([]*unstructured.Unstructured, error) {
	s.call("GetBackupResources")
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*unstructured.Unstructured
	for _, r := range s.resources[id] {
		out = append(out, r.DeepCopy())
	}
	return out, nil
}

func (s *fakeBackupStore) PutRestoreResult(_ context.Context, result *restorev1.RestoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.RestoreID] = result
	return nil
}

func (s *fakeBackupStore) GetRestoreResult(_ context.Context, id string) (*restorev1.RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	if !ok {
		return nil, restore.NewNotFoundError("restore", id)
	}
	return result, nil
}

func (s *fakeBackupStore) PutRestoreLog(_ context.Context, id string, log io.Reader) error {
	gz, err := gzip.NewReader(log)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[id] = string(data)
	return nil
}

type fakeValidator struct {
	mu          sync.Mutex
	observe     observer
	clusterErr  error
	gitopsErr   error
	permErr     error
	conflicts   []validation.Conflict
	conflictErr error
	calls       []string
}

func (v *fakeValidator) record(name string) {
	v.mu.Lock()
	v.calls = append(v.calls, name)
	v.mu.Unlock()
	if v.observe != nil {
		v.observe(name)
	}
}

func (v *fakeValidator) ValidateClusterAccess(context.Context, string) error {
	v.record("ValidateClusterAccess")
	return v.clusterErr
}

func (v *fakeValidator) ValidateGitOpsAccess(context.Context, *restorev1.GitOpsConfig) error {
	v.record("ValidateGitOpsAccess")
	return v.gitopsErr
}

func (v *fakeValidator) ValidateRestorePermissions(context.Context, *restorev1.RestoreRequest) error {
	v.record("ValidateRestorePermissions")
	return v.permErr
}

func (v *fakeValidator) DetectConflicts(context.Context, *restorev1.RestoreRequest, []*unstructured.Unstructured) ([]validation.Conflict, error) {
	v.record("DetectConflicts")
	return v.conflicts, v.conflictErr
}

func (v *fakeValidator) callNames() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

type fakeRepository struct {
	mu       sync.Mutex
	observe  observer
	fs       *test.FakeFileSystem
	block    chan struct{}
	cloneErr error
	pushErr  error
	cloned   []string
	written  map[string][]*unstructured.Unstructured
	messages []string
}

func (r *fakeRepository) Clone(ctx context.Context, cfg *restorev1.GitOpsConfig, dir string) (*gitops.WorkingTree, error) {
	if r.observe != nil {
		r.observe("Clone")
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.cloneErr != nil {
		return nil, r.cloneErr
	}
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cloned = append(r.cloned, dir)
	return gitops.NewWorkingTree(dir, cfg, nil, r.fs), nil
}

func (r *fakeRepository) WriteManifests(tree *gitops.WorkingTree, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.written == nil {
		r.written = map[string][]*unstructured.Unstructured{}
	}
	r.written[req.RestoreID] = manifests

	var paths []string
	for _, m := range manifests {
		paths = append(paths, gitops.ManifestFile(m))
	}
	return paths, nil
}

func (r *fakeRepository) CommitAndPush(_ context.Context, _ *gitops.WorkingTree, message string) (string, error) {
	if r.observe != nil {
		r.observe("CommitAndPush")
	}
	if r.pushErr != nil {
		return "", r.pushErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return fmt.Sprintf("%040d", len(r.messages)), nil
}

func (r *fakeRepository) clonedDirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cloned...)
}

func (r *fakeRepository) commitMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type fakeSyncController struct {
	mu         sync.Mutex
	triggerErr error
	monitorErr error
	triggered  []string
}

func (s *fakeSyncController) TriggerSync(_ context.Context, _ *restorev1.GitOpsConfig, req *restorev1.RestoreRequest) error {
	s.mu.Lock()
	s.triggered = append(s.triggered, req.RestoreID)
	s.mu.Unlock()
	return s.triggerErr
}

func (s *fakeSyncController) MonitorSync(_ context.Context, _ *restorev1.GitOpsConfig, _ *restorev1.RestoreRequest, progress func(string)) (*gitops.SyncStatus, error) {
	status := &gitops.SyncStatus{Sync: "Synced", Health: "Healthy", Operation: "Succeeded"}
	progress("GitOps sync: " + status.String())
	if s.monitorErr != nil {
		return status, s.monitorErr
	}
	return status, nil
}

func (s *fakeSyncController) triggeredIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.triggered...)
}

type fakeVerifier struct {
	mu      sync.Mutex
	observe observer
	report  *restorev1.ValidationReport
	err     error
	calls   int
}

func (v *fakeVerifier) Verify(_ context.Context, _ *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) (*restorev1.ValidationReport, error) {
	if v.observe != nil {
		v.observe("Verify")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	if v.report != nil {
		return v.report, nil
	}
	return &restorev1.ValidationReport{
		ReadyResources: len(manifests),
		Health: restorev1.HealthReport{
			Healthy:       len(manifests),
			OverallStatus: restorev1.HealthStatusHealthy,
		},
	}, nil
}

func (v *fakeVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*notify.Event
}

func (n *fakeNotifier) Notify(_ context.Context, event *notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) eventTypes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type denyAll struct{}

func (denyAll) Authorize(principal string, req *restorev1.RestoreRequest) error {
	return restore.NewAccessError(req.TargetCluster, fmt.Sprintf("principal %q may not restore to this cluster", principal), nil)
}
