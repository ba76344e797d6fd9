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

// Package orchestrator runs restores through the phase sequence Planning,
// Validation, Preparation, GitOpsSync, Verification and Cleanup, tracking
// the progress of every active restore and keeping the history of finished
// ones.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/clock"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/buildinfo"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/metrics"
	"github.com/walbis/tkkube/pkg/notify"
	"github.com/walbis/tkkube/pkg/persistence"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/filesystem"
	"github.com/walbis/tkkube/pkg/util/logging"
	"github.com/walbis/tkkube/pkg/validation"
)

const (
	// DefaultHistoryListLimit is used by ListRestoreHistory when no limit
	// is given.
	DefaultHistoryListLimit = 50

	// DefaultHistoryRetention caps the number of results kept in memory.
	DefaultHistoryRetention = 1000
)

// Validator checks the preconditions of a restore.
type Validator interface {
	ValidateClusterAccess(ctx context.Context, cluster string) error
	ValidateGitOpsAccess(ctx context.Context, cfg *restorev1.GitOpsConfig) error
	ValidateRestorePermissions(ctx context.Context, req *restorev1.RestoreRequest) error
	DetectConflicts(ctx context.Context, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) ([]validation.Conflict, error)
}

// Verifier inspects restored resources once they have been synced.
type Verifier interface {
	Verify(ctx context.Context, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) (*restorev1.ValidationReport, error)
}

// Config holds the orchestrator settings that do not come from requests.
type Config struct {
	// WorkDir is the parent of the per-restore scratch directories.
	WorkDir string
	// GitOps is the server-wide GitOps wiring. Requests may override it.
	GitOps *restorev1.GitOpsConfig
	// HistoryRetention caps the in-memory history.
	HistoryRetention int

	// LogLevel of the per-restore logs. The zero value, PanicLevel, selects
	// InfoLevel.
	LogLevel  logrus.Level
	LogFormat logging.Format
	// LogOutput receives per-restore logs besides the persisted copy. Nil
	// means stdout.
	LogOutput io.Writer
}

// Orchestrator runs restores. All access to active restores and to the
// history goes through its methods.
type Orchestrator struct {
	config Config

	backupStore    persistence.BackupStore
	validator      Validator
	repository     gitops.Repository
	syncController gitops.SyncController
	verifier       Verifier
	authorizer     auth.Authorizer
	clusters       client.ClusterRegistry
	notifier       notify.Notifier
	metrics        *metrics.ServerMetrics
	fs             filesystem.Interface
	clock          clock.Clock
	logger         logrus.FieldLogger

	mu      sync.RWMutex
	active  map[string]*activeRestore
	history []restorev1.RestoreResult
	wg      sync.WaitGroup
}

// Dependencies are the collaborators of an Orchestrator. Notifier and
// Metrics are optional.
type Dependencies struct {
	BackupStore    persistence.BackupStore
	Validator      Validator
	Repository     gitops.Repository
	SyncController gitops.SyncController
	Verifier       Verifier
	Authorizer     auth.Authorizer
	Clusters       client.ClusterRegistry
	Notifier       notify.Notifier
	Metrics        *metrics.ServerMetrics
	FileSystem     filesystem.Interface
}

type activeRestore struct {
	request  *restorev1.RestoreRequest
	progress *progressTracker
	cancel   context.CancelFunc
}

// New returns an Orchestrator. A missing work dir selects the system temp
// dir.
func New(config Config, deps Dependencies, logger logrus.FieldLogger) *Orchestrator {
	if config.WorkDir == "" {
		config.WorkDir = os.TempDir()
	}
	if config.HistoryRetention <= 0 {
		config.HistoryRetention = DefaultHistoryRetention
	}
	if config.LogLevel == logrus.PanicLevel {
		config.LogLevel = logrus.InfoLevel
	}
	if config.GitOps == nil {
		config.GitOps = &restorev1.GitOpsConfig{}
	}
	if deps.FileSystem == nil {
		deps.FileSystem = filesystem.NewFileSystem()
	}
	if deps.Authorizer == nil {
		deps.Authorizer = auth.AllowAll()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewMultiNotifier()
	}

	return &Orchestrator{
		config:         config,
		backupStore:    deps.BackupStore,
		validator:      deps.Validator,
		repository:     deps.Repository,
		syncController: deps.SyncController,
		verifier:       deps.Verifier,
		authorizer:     deps.Authorizer,
		clusters:       deps.Clusters,
		notifier:       deps.Notifier,
		metrics:        deps.Metrics,
		fs:             deps.FileSystem,
		clock:          clock.RealClock{},
		logger:         logger,
		active:         make(map[string]*activeRestore),
	}
}

// DuplicateRestoreError is returned when a restore with the same ID is
// still active.
type DuplicateRestoreError struct {
	RestoreID string
}

func (e *DuplicateRestoreError) Error() string {
	return fmt.Sprintf("restore %s is already in progress", e.RestoreID)
}

// StartRestore validates req and starts running it in the background. Only
// request validation and authorization errors are returned; everything
// that goes wrong later ends up in the restore's result.
func (o *Orchestrator) StartRestore(ctx context.Context, req *restorev1.RestoreRequest) (string, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return "", err
	}
	if err := o.authorizer.Authorize(req.Requester, req); err != nil {
		return "", err
	}

	// the restore outlives the caller's request
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry := &activeRestore{
		request:  copyRequest(req),
		progress: newProgressTracker(req.RestoreID, o.clock.Now().UTC()),
		cancel:   cancel,
	}

	o.mu.Lock()
	if _, ok := o.active[req.RestoreID]; ok {
		o.mu.Unlock()
		cancel()
		return "", errors.WithStack(&DuplicateRestoreError{RestoreID: req.RestoreID})
	}
	o.active[req.RestoreID] = entry
	activeCount := len(o.active)
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.RegisterRestoreAttempt(string(req.DRScenario))
		o.metrics.SetActiveRestores(activeCount)
	}
	o.logger.WithFields(logrus.Fields{
		"restore":  req.RestoreID,
		"backup":   req.BackupID,
		"scenario": req.DRScenario,
	}).Info("Starting restore")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.runRestore(runCtx, entry)
	}()

	return req.RestoreID, nil
}

// GetRestoreStatus returns a snapshot of an active restore's progress.
func (o *Orchestrator) GetRestoreStatus(restoreID string) (*restorev1.RestoreProgress, bool) {
	o.mu.RLock()
	entry, ok := o.active[restoreID]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.progress.snapshot(), true
}

// ListActiveRestores returns progress snapshots of every active restore.
func (o *Orchestrator) ListActiveRestores() []*restorev1.RestoreProgress {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*restorev1.RestoreProgress, 0, len(o.active))
	for _, entry := range o.active {
		out = append(out, entry.progress.snapshot())
	}
	return out
}

// CancelRestore forgets an active restore and cancels its context. The
// restore stops at its next blocking call and is recorded as failed.
func (o *Orchestrator) CancelRestore(restoreID string) bool {
	o.mu.Lock()
	entry, ok := o.active[restoreID]
	if ok {
		delete(o.active, restoreID)
	}
	activeCount := len(o.active)
	o.mu.Unlock()

	if !ok {
		return false
	}

	entry.cancel()
	if o.metrics != nil {
		o.metrics.SetActiveRestores(activeCount)
	}
	o.logger.WithField("restore", restoreID).Info("Canceled restore")
	return true
}

// ListRestoreHistory returns up to limit of the most recent results, oldest
// first. A limit of zero or less selects DefaultHistoryListLimit.
func (o *Orchestrator) ListRestoreHistory(limit int) []restorev1.RestoreResult {
	if limit <= 0 {
		limit = DefaultHistoryListLimit
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	start := len(o.history) - limit
	if start < 0 {
		start = 0
	}
	return append([]restorev1.RestoreResult(nil), o.history[start:]...)
}

// GetRestoreResult looks a finished restore up in the history, then in the
// backup store.
func (o *Orchestrator) GetRestoreResult(ctx context.Context, restoreID string) (*restorev1.RestoreResult, error) {
	o.mu.RLock()
	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].RestoreID == restoreID {
			result := o.history[i]
			o.mu.RUnlock()
			return &result, nil
		}
	}
	o.mu.RUnlock()

	if o.backupStore == nil {
		return nil, restore.NewNotFoundError("restore", restoreID)
	}
	return o.backupStore.GetRestoreResult(ctx, restoreID)
}

// GetCapabilities describes what the orchestrator supports.
func (o *Orchestrator) GetCapabilities() restorev1.Capabilities {
	cfg := gitops.MergeConfig(o.config.GitOps, nil)
	return restorev1.Capabilities{
		SupportedModes:     restorev1.RestoreModes(),
		SupportedScenarios: restorev1.DRScenarios(),
		GitOpsIntegration: restorev1.GitOpsIntegration{
			Repository: cfg.RepositoryURL,
			Branch:     cfg.Branch,
			AutoSync:   cfg.AutoSyncEnabled(),
		},
		ValidationOptions: restorev1.ValidationOptions{
			ClusterValidation:  true,
			ResourceValidation: true,
			FunctionalTesting:  true,
		},
		Version: buildinfo.ReportedVersion(),
	}
}

// PlanRestore builds the plan for req without starting it.
func (o *Orchestrator) PlanRestore(ctx context.Context, req *restorev1.RestoreRequest) (*restorev1.RestorePlan, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}
	metadata, err := o.backupStore.GetBackupMetadata(ctx, req.BackupID)
	if err != nil {
		return nil, err
	}
	return restore.Plan(req, metadata)
}

// ValidateRestore runs the validation phase checks for req without
// starting it. Conflicts are reported as warnings or as a ConflictError
// depending on the scenario's conflict policy.
func (o *Orchestrator) ValidateRestore(ctx context.Context, req *restorev1.RestoreRequest) ([]string, error) {
	plan, err := o.PlanRestore(ctx, req)
	if err != nil {
		return nil, err
	}

	rc := &restoreContext{
		Orchestrator: o,
		request:      req,
		gitops:       gitops.MergeConfig(o.config.GitOps, req.GitOpsConfig),
		plan:         plan,
		log:          o.logger.WithField("restore", req.RestoreID),
	}
	if err := rc.validatePreconditions(ctx); err != nil {
		return nil, err
	}
	if err := rc.loadManifests(ctx); err != nil {
		return nil, err
	}
	return rc.checkConflicts(ctx)
}

// Wait blocks until every started restore has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown cancels every active restore and waits for them to finish.
func (o *Orchestrator) Shutdown() {
	o.mu.RLock()
	for _, entry := range o.active {
		entry.cancel()
	}
	o.mu.RUnlock()
	o.wg.Wait()
}

// finish removes entry from the active set, unless it was canceled or
// replaced, and appends result to the history.
func (o *Orchestrator) finish(entry *activeRestore, result *restorev1.RestoreResult) {
	o.mu.Lock()
	if current, ok := o.active[result.RestoreID]; ok && current == entry {
		delete(o.active, result.RestoreID)
	}
	o.history = append(o.history, *result)
	if excess := len(o.history) - o.config.HistoryRetention; excess > 0 {
		o.history = append([]restorev1.RestoreResult(nil), o.history[excess:]...)
	}
	activeCount := len(o.active)
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.SetActiveRestores(activeCount)
	}
}
