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

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/notify"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/logging"
)

func (rc *restoreContext) buildResult(runErr error) *restorev1.RestoreResult {
	progress := rc.progress.snapshot()
	end := rc.clock.Now().UTC()

	result := &restorev1.RestoreResult{
		RestoreID:         rc.request.RestoreID,
		Success:           runErr == nil,
		Phase:             progress.Phase,
		StartTime:         progress.StartTime,
		EndTime:           end,
		Duration:          metav1.Duration{Duration: end.Sub(progress.StartTime)},
		ResourcesRestored: progress.ResourcesProcessed,
		GitCommits:        append([]string{}, rc.commits...),
		ValidationReport:  rc.report,
		Warnings:          progress.Warnings,
		Request:           sanitizeRequest(rc.request),
	}

	if runErr != nil {
		result.ErrorSummary = runErr.Error()
		if failed := progress.ResourcesTotal - progress.ResourcesProcessed; failed > 0 {
			result.ResourcesFailed = failed
		}
	} else if rc.report != nil {
		result.ResourcesFailed = rc.report.Health.Unhealthy
	}
	result.Recommendations = recommendations(rc.request, runErr, rc.report)

	return result
}

// recommendations derives follow-up actions from the outcome of a restore.
func recommendations(req *restorev1.RestoreRequest, runErr error, report *restorev1.ValidationReport) []string {
	var out []string

	switch {
	case runErr == nil:
	case restore.IsNotFound(runErr):
		out = append(out, fmt.Sprintf("Verify that backup %s exists in the backup store", req.BackupID))
	case restore.IsAccessError(runErr):
		out = append(out, fmt.Sprintf("Check credentials and network access for cluster %s and the GitOps repository", req.TargetCluster))
	case restore.IsConflict(runErr):
		out = append(out, "Remove the conflicting resources or restore them with the cluster-rebuild scenario")
	case restore.IsManifestInvalid(runErr):
		out = append(out, "Exclude the invalid resource with resource filters or repair it in the backup")
	case restore.IsVerificationError(runErr):
		out = append(out, fmt.Sprintf("Check that the API server of cluster %s is reachable and verify the restore manually", req.TargetCluster))
	case errors.Is(runErr, context.Canceled):
		out = append(out, "The restore was canceled; committed manifests stay in the GitOps repository")
	default:
		out = append(out, "Inspect the restore log for details and retry the restore")
	}

	if report != nil {
		if n := report.Health.Unhealthy; n > 0 {
			out = append(out, fmt.Sprintf("Investigate %d unhealthy resources", n))
		}
		if n := report.Health.Degraded; n > 0 {
			out = append(out, fmt.Sprintf("Check replicas and pod status of %d degraded resources", n))
		}
		if n := len(report.TimedOutResources); n > 0 {
			out = append(out, fmt.Sprintf("Raise validation_config.ready_timeout, %d resources were not ready in time", n))
		}
		if n := report.FailedFunctionalTests(); n > 0 {
			out = append(out, fmt.Sprintf("Review the %d failed functional tests", n))
		}
	}

	if runErr == nil {
		if req.DryRun {
			out = append(out, "Review the generated manifests and run the restore without dry_run to apply them")
		} else {
			out = append(out, "Monitor application performance for 24 hours", "Verify data integrity")
		}
	}
	return out
}

// sanitizeRequest copies req without credentials.
func sanitizeRequest(req *restorev1.RestoreRequest) restorev1.RestoreRequest {
	out := *copyRequest(req)
	if out.GitOpsConfig != nil {
		out.GitOpsConfig.Token = ""
	}
	return out
}

// copyRequest returns a copy of req sharing no pointers with it.
func copyRequest(req *restorev1.RestoreRequest) *restorev1.RestoreRequest {
	out := *req
	out.TargetNamespaces = append([]string(nil), req.TargetNamespaces...)
	if req.ResourceFilters != nil {
		f := *req.ResourceFilters
		f.IncludedNamespaces = append([]string(nil), f.IncludedNamespaces...)
		f.ExcludedNamespaces = append([]string(nil), f.ExcludedNamespaces...)
		f.IncludedResources = append([]string(nil), f.IncludedResources...)
		f.ExcludedResources = append([]string(nil), f.ExcludedResources...)
		if f.LabelSelector != nil {
			selector := make(map[string]string, len(f.LabelSelector))
			for k, v := range f.LabelSelector {
				selector[k] = v
			}
			f.LabelSelector = selector
		}
		out.ResourceFilters = &f
	}
	if req.GitOpsConfig != nil {
		cfg := *req.GitOpsConfig
		if cfg.AutoSync != nil {
			autoSync := *cfg.AutoSync
			cfg.AutoSync = &autoSync
		}
		out.GitOpsConfig = &cfg
	}
	if req.ValidationConfig != nil {
		vc := *req.ValidationConfig
		vc.FunctionalTests = append([]restorev1.FunctionalTest(nil), vc.FunctionalTests...)
		out.ValidationConfig = &vc
	}
	return &out
}

// persist uploads the result and the restore log to the backup store.
// Failures are logged only.
func (o *Orchestrator) persist(ctx context.Context, result *restorev1.RestoreResult, restoreLog logging.DualModeLogger) {
	log := o.logger.WithField("restore", result.RestoreID)
	if restoreLog != nil {
		restoreLog.DoneForPersist(log)
		defer restoreLog.Dispose(log)
	}
	if o.backupStore == nil {
		return
	}

	if err := o.backupStore.PutRestoreResult(ctx, result); err != nil {
		log.WithError(err).Warn("Error uploading restore result")
	}

	if restoreLog == nil {
		return
	}
	file, err := restoreLog.GetPersistFile()
	if err != nil {
		log.WithError(err).Warn("Error reading restore log")
		return
	}
	if err := o.backupStore.PutRestoreLog(ctx, result.RestoreID, file); err != nil {
		log.WithError(err).Warn("Error uploading restore log")
	}
}

func (o *Orchestrator) sendNotification(ctx context.Context, result *restorev1.RestoreResult) {
	event := notify.NewEvent(result, o.clock.Now())
	if err := o.notifier.Notify(ctx, event); err != nil {
		o.logger.WithError(err).WithField("restore", result.RestoreID).Warn("Error sending restore notification")
	}
}
