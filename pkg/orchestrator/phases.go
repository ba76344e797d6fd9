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
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/logging"
	"github.com/walbis/tkkube/pkg/validation"
)

// postProcessTimeout bounds persisting and announcing a finished restore.
const postProcessTimeout = 30 * time.Second

// restoreContext carries the state of one restore through its phases.
type restoreContext struct {
	*Orchestrator

	request  *restorev1.RestoreRequest
	gitops   *restorev1.GitOpsConfig
	progress *progressTracker
	log      logrus.FieldLogger

	plan       *restorev1.RestorePlan
	manifests  []*unstructured.Unstructured
	skipped    int
	scratchDir string
	tree       *gitops.WorkingTree
	written    []string
	commits    []string
	report     *restorev1.ValidationReport
}

type phaseFunc func(ctx context.Context) error

func (o *Orchestrator) runRestore(ctx context.Context, entry *activeRestore) {
	req := entry.request
	fields := logrus.Fields{
		"restore": req.RestoreID,
		"backup":  req.BackupID,
		"cluster": req.TargetCluster,
	}

	var log logrus.FieldLogger
	logHook := logging.NewLogHook()
	restoreLog, err := logging.NewTempFileLogger(o.config.LogOutput, o.config.LogLevel, o.config.LogFormat, logHook, fields)
	if err != nil {
		o.logger.WithFields(fields).WithError(err).Warn("Error creating restore log, logging to the server log only")
		log = o.logger.WithFields(fields)
	} else {
		log = restoreLog
	}

	rc := &restoreContext{
		Orchestrator: o,
		request:      req,
		gitops:       gitops.MergeConfig(o.config.GitOps, req.GitOpsConfig),
		progress:     entry.progress,
		log:          log,
	}

	failedPhase, runErr := rc.runPhases(ctx)
	if runErr != nil {
		rc.progress.fail(runErr)
		log.WithError(runErr).WithField("phase", failedPhase).Error("Restore failed")
		logging.LogStackTrace(log, runErr)
		rc.removeScratchDir()
		if o.metrics != nil {
			o.metrics.RegisterRestoreFailed(string(req.DRScenario), string(failedPhase))
			if failedPhase == restorev1.RestorePhaseValidation {
				o.metrics.RegisterRestoreValidationFailed(string(req.DRScenario))
			}
		}
	}

	result := rc.buildResult(runErr)
	log.WithFields(logrus.Fields{
		"success":  result.Success,
		"phase":    result.Phase,
		"duration": result.Duration.Duration,
		"warnings": logHook.GetCount(logrus.WarnLevel),
		"errors":   logHook.GetCount(logrus.ErrorLevel),
	}).Info("Restore finished")

	o.finish(entry, result)

	if o.metrics != nil {
		o.metrics.RegisterRestoreDuration(string(req.DRScenario), result.Duration.Seconds())
		if result.Success {
			o.metrics.RegisterRestoreSuccess(string(req.DRScenario))
			o.metrics.RegisterResourcesRestored(string(req.DRScenario), result.ResourcesRestored)
		}
	}

	// the restore's own context may be canceled by now
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postProcessTimeout)
	defer cancel()
	o.persist(postCtx, result, restoreLog)
	o.sendNotification(postCtx, result)
}

// runPhases executes the working phases in order and stops at the first
// error. On error it returns the phase that failed, or the phase that was
// about to run when the restore was canceled.
func (rc *restoreContext) runPhases(ctx context.Context) (restorev1.RestorePhase, error) {
	phases := []struct {
		phase restorev1.RestorePhase
		step  string
		run   phaseFunc
	}{
		{restorev1.RestorePhasePlanning, "Loading backup metadata", rc.runPlanning},
		{restorev1.RestorePhaseValidation, "Validating cluster and repository access", rc.runValidation},
		{restorev1.RestorePhasePreparation, "Loading backup resources", rc.runPreparation},
		{restorev1.RestorePhaseGitOpsSync, "Committing manifests", rc.runGitOpsSync},
		{restorev1.RestorePhaseVerification, "Verifying restored resources", rc.runVerification},
		{restorev1.RestorePhaseCleanup, "Cleaning up temporary resources", rc.runCleanup},
	}

	baseLog := rc.log
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return p.phase, errors.Wrapf(err, "restore canceled before %s", p.phase)
		}

		rc.progress.enterPhase(p.phase, p.step)
		rc.log = baseLog.WithField("phase", p.phase)
		rc.log.Info(p.step)

		start := rc.clock.Now()
		err := p.run(ctx)
		if rc.metrics != nil {
			rc.metrics.ObservePhaseDuration(string(p.phase), rc.clock.Since(start).Seconds())
		}
		if err != nil {
			return p.phase, err
		}
		rc.progress.completeStep()
	}
	rc.log = baseLog

	rc.progress.complete("Restore completed successfully")
	rc.log.Info("Restore completed")
	return "", nil
}

func (rc *restoreContext) runPlanning(ctx context.Context) error {
	metadata, err := rc.backupStore.GetBackupMetadata(ctx, rc.request.BackupID)
	if err != nil {
		return err
	}

	plan, err := restore.Plan(rc.request, metadata)
	if err != nil {
		return err
	}
	rc.plan = plan

	rc.progress.update(func(p *restorev1.RestoreProgress) {
		p.TotalSteps = plan.TotalSteps
		p.ResourcesTotal = plan.TotalResources
		eta := p.StartTime.Add(plan.EstimatedDuration.Duration)
		p.EstimatedCompletion = &eta
	})
	rc.log.WithFields(logrus.Fields{
		"resources": plan.TotalResources,
		"steps":     plan.TotalSteps,
		"bootstrap": plan.RequiresClusterBootstrap,
	}).Info("Planned restore")
	return nil
}

func (rc *restoreContext) runValidation(ctx context.Context) error {
	return rc.validatePreconditions(ctx)
}

// validatePreconditions checks access to the target cluster and the GitOps
// repository, and the restore permissions. Cluster validation can be turned
// off per request; the other checks always run.
func (rc *restoreContext) validatePreconditions(ctx context.Context) error {
	if clusterValidation(rc.request) {
		if err := rc.validator.ValidateClusterAccess(ctx, rc.request.TargetCluster); err != nil {
			return err
		}
	} else {
		rc.log.Info("Cluster validation disabled by request")
	}

	if err := rc.validator.ValidateGitOpsAccess(ctx, rc.gitops); err != nil {
		return err
	}
	return rc.validator.ValidateRestorePermissions(ctx, rc.request)
}

func clusterValidation(req *restorev1.RestoreRequest) bool {
	return req.ValidationConfig == nil || req.ValidationConfig.ClusterValidation
}

func (rc *restoreContext) runPreparation(ctx context.Context) error {
	if err := rc.loadManifests(ctx); err != nil {
		return err
	}
	rc.progress.update(func(p *restorev1.RestoreProgress) {
		p.ResourcesTotal = len(rc.manifests)
	})

	rc.progress.setStep("Checking for conflicts")
	warnings, err := rc.checkConflicts(ctx)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		rc.warn(w)
	}

	rc.progress.setStep("Cloning GitOps repository")
	if err := rc.fs.MkdirAll(rc.config.WorkDir, 0o755); err != nil {
		return errors.Wrapf(err, "error creating work dir %s", rc.config.WorkDir)
	}
	rc.scratchDir = filepath.Join(rc.config.WorkDir, fmt.Sprintf("restore-%s-%s", rc.request.RestoreID, uuid.NewString()))
	tree, err := rc.repository.Clone(ctx, rc.gitops, rc.scratchDir)
	if err != nil {
		return err
	}
	rc.tree = tree

	rc.progress.setStep("Writing manifests")
	written, err := rc.repository.WriteManifests(tree, rc.request, rc.manifests)
	if err != nil {
		return err
	}
	rc.written = written
	rc.progress.update(func(p *restorev1.RestoreProgress) {
		p.ResourcesProcessed = len(rc.manifests)
	})
	rc.log.WithFields(logrus.Fields{"files": len(written), "dir": gitops.RestoreDir(rc.gitops, rc.request)}).Info("Wrote restore manifests")

	if rc.plan.RequiresClusterBootstrap {
		return rc.bootstrapCluster(ctx)
	}
	return nil
}

// loadManifests downloads the backup's resources and transforms the ones
// selected by the request's filters.
func (rc *restoreContext) loadManifests(ctx context.Context) error {
	resources, err := rc.backupStore.GetBackupResources(ctx, rc.request.BackupID)
	if err != nil {
		return err
	}

	result, err := restore.TransformAll(rc.request, resources, rc.clock.Now())
	if err != nil {
		return err
	}
	rc.manifests = result.Manifests
	rc.skipped = result.Skipped

	rc.log.WithFields(logrus.Fields{
		"resources": len(resources),
		"manifests": len(result.Manifests),
		"skipped":   result.Skipped,
	}).Info("Transformed backup resources")
	return nil
}

// checkConflicts applies the plan's conflict policy to the live objects the
// manifests would overwrite.
func (rc *restoreContext) checkConflicts(ctx context.Context) ([]string, error) {
	conflicts, err := rc.validator.DetectConflicts(ctx, rc.request, rc.manifests)
	if err != nil {
		return nil, err
	}
	return validation.ResolveConflicts(rc.plan.ConflictPolicy, conflicts)
}

func (rc *restoreContext) runGitOpsSync(ctx context.Context) error {
	if rc.request.DryRun {
		msg := fmt.Sprintf("Dry run: manifests were written to %s but not committed", rc.scratchDir)
		rc.log.Info(msg)
		rc.progress.warn(msg)
		return nil
	}

	message := fmt.Sprintf("Restore operation %s - %s", rc.request.RestoreID, rc.request.DRScenario)
	hash, err := rc.repository.CommitAndPush(ctx, rc.tree, message)
	if err != nil {
		return err
	}
	rc.commits = append(rc.commits, hash)

	if !rc.gitops.AutoSyncEnabled() {
		rc.warn(fmt.Sprintf("Auto sync is disabled: application %s must be synced manually", gitops.ApplicationName(rc.request.RestoreID)))
		return nil
	}

	rc.progress.setStep("Triggering GitOps sync")
	if err := rc.syncController.TriggerSync(ctx, rc.gitops, rc.request); err != nil {
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}
		rc.warn(fmt.Sprintf("Error triggering GitOps sync: %v", err))
		return nil
	}

	rc.progress.setStep("Waiting for GitOps sync")
	status, err := rc.syncController.MonitorSync(ctx, rc.gitops, rc.request, rc.progress.setStep)
	switch {
	case err == nil:
		rc.log.WithField("status", status.String()).Info("GitOps sync finished")
		return nil
	case restore.IsSyncTimeout(err):
		if rc.metrics != nil {
			rc.metrics.RegisterSyncTimeout(string(rc.request.DRScenario))
		}
		rc.warn(err.Error())
		return nil
	default:
		return err
	}
}

func (rc *restoreContext) runVerification(ctx context.Context) error {
	switch {
	case rc.request.DryRun:
		rc.warn("Verification skipped: dry run")
		return nil
	case !rc.gitops.AutoSyncEnabled():
		rc.warn("Verification skipped: auto sync is disabled")
		return nil
	}

	report, err := rc.verifier.Verify(ctx, rc.request, rc.manifests)
	if err != nil {
		return err
	}
	rc.report = report

	if n := len(report.TimedOutResources); n > 0 {
		rc.warn(fmt.Sprintf("%d resources were not ready before the ready timeout", n))
	}
	if n := report.FailedFunctionalTests(); n > 0 {
		rc.warn(fmt.Sprintf("%d functional tests failed", n))
	}
	rc.log.WithFields(logrus.Fields{
		"ready":   report.ReadyResources,
		"overall": report.Health.OverallStatus,
	}).Info("Verified restored resources")
	return nil
}

func (rc *restoreContext) runCleanup(_ context.Context) error {
	rc.removeScratchDir()
	return nil
}

// removeScratchDir deletes the restore's checkout. Failures only warn.
func (rc *restoreContext) removeScratchDir() {
	if rc.scratchDir == "" {
		return
	}
	if err := rc.fs.RemoveAll(rc.scratchDir); err != nil {
		rc.warn(fmt.Sprintf("Error removing scratch dir %s: %v", rc.scratchDir, err))
		return
	}
	rc.log.WithField("dir", rc.scratchDir).Debug("Removed scratch dir")
	rc.scratchDir = ""
}

func (rc *restoreContext) warn(msg string) {
	rc.log.Warn(msg)
	if rc.progress != nil {
		rc.progress.warn(msg)
	}
}
