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

package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

var titleCaser = cases.Title(language.English)

// phaseString colors a phase by outcome.
func phaseString(phase restorev1.RestorePhase) string {
	switch phase {
	case restorev1.RestorePhaseCompleted:
		return color.GreenString(string(phase))
	case restorev1.RestorePhaseFailed:
		return color.RedString(string(phase))
	default:
		return color.YellowString(string(phase))
	}
}

func healthString(status restorev1.HealthStatus) string {
	s := titleCaser.String(string(status))
	switch status {
	case restorev1.HealthStatusHealthy:
		return color.GreenString(s)
	case restorev1.HealthStatusDegraded:
		return color.YellowString(s)
	case restorev1.HealthStatusUnhealthy:
		return color.RedString(s)
	default:
		return s
	}
}

// DescribeRestoreResult describes a finished restore.
func DescribeRestoreResult(result *restorev1.RestoreResult) string {
	return Describe(func(d *Describer) {
		d.DescribeName("Restore", result.RestoreID)
		d.Printf("Phase:\t%s\n", phaseString(result.Phase))
		d.Printf("Backup:\t%s\n", result.Request.BackupID)
		d.Printf("Clusters:\t%s -> %s\n", result.Request.SourceCluster, result.Request.TargetCluster)
		d.Printf("Mode:\t%s\n", result.Request.RestoreMode)
		d.Printf("Scenario:\t%s\n", result.Request.DRScenario)
		if result.Request.DryRun {
			d.Printf("Dry Run:\ttrue\n")
		}
		d.Println()

		d.Printf("Started:\t%s\n", timeOrDefault(result.StartTime, "<n/a>"))
		d.Printf("Completed:\t%s\n", timeOrDefault(result.EndTime, "<n/a>"))
		d.Printf("Duration:\t%s\n", result.Duration.Duration.Round(time.Second))
		d.Println()

		d.Printf("Resources Restored:\t%d\n", result.ResourcesRestored)
		d.Printf("Resources Failed:\t%d\n", result.ResourcesFailed)
		d.DescribeSlice(0, "Git Commits", result.GitCommits)

		if result.ErrorSummary != "" {
			d.Println()
			d.Printf("Error:\t%s\n", color.RedString(result.ErrorSummary))
		}
		if len(result.Warnings) > 0 {
			d.Println()
			d.DescribeSlice(0, "Warnings", result.Warnings)
		}

		if report := result.ValidationReport; report != nil {
			d.Println()
			describeValidationReport(d, report)
		}

		if len(result.Recommendations) > 0 {
			d.Println()
			d.DescribeSlice(0, "Recommendations", result.Recommendations)
		}
	})
}

func describeValidationReport(d *Describer, report *restorev1.ValidationReport) {
	d.Printf("Health:\t%s\n", healthString(report.Health.OverallStatus))
	d.Printf("  Healthy:\t%d\n", report.Health.Healthy)
	d.Printf("  Degraded:\t%d\n", report.Health.Degraded)
	d.Printf("  Unhealthy:\t%d\n", report.Health.Unhealthy)
	d.Printf("Ready Resources:\t%d\n", report.ReadyResources)
	if len(report.TimedOutResources) > 0 {
		d.DescribeSlice(0, "Timed Out", report.TimedOutResources)
	}

	var problems []string
	for _, h := range report.Health.Details {
		if h.Status == restorev1.HealthStatusHealthy {
			continue
		}
		name := h.Name
		if h.Namespace != "" {
			name = h.Namespace + "/" + name
		}
		problems = append(problems, fmt.Sprintf("%s %s: %s %s", h.Kind, name, titleCaser.String(string(h.Status)), h.Message))
	}
	if len(problems) > 0 {
		d.DescribeSlice(0, "Problems", problems)
	}

	if len(report.FunctionalTests) > 0 {
		var tests []string
		for _, t := range report.FunctionalTests {
			outcome := color.GreenString("passed")
			if !t.Passed {
				outcome = color.RedString("failed")
			}
			line := t.Name + ": " + outcome
			if t.Message != "" {
				line += " (" + t.Message + ")"
			}
			tests = append(tests, line)
		}
		d.DescribeSlice(0, "Functional Tests", tests)
	}
}

// DescribeRestoreProgress describes an active restore.
func DescribeRestoreProgress(p *restorev1.RestoreProgress) string {
	return Describe(func(d *Describer) {
		d.DescribeName("Restore", p.RestoreID)
		d.Printf("Phase:\t%s\n", phaseString(p.Phase))
		d.Printf("Step:\t%s\n", p.CurrentStep)
		d.Printf("Progress:\t%.0f%% (%d/%d steps)\n", p.PercentComplete, p.StepsCompleted, p.TotalSteps)
		d.Printf("Resources:\t%d/%d\n", p.ResourcesProcessed, p.ResourcesTotal)
		d.Printf("Started:\t%s\n", timeOrDefault(p.StartTime, "<n/a>"))
		if p.EstimatedCompletion != nil {
			d.Printf("Estimated Completion:\t%s\n", p.EstimatedCompletion.String())
		}
		if len(p.Warnings) > 0 {
			d.DescribeSlice(0, "Warnings", p.Warnings)
		}
		if len(p.Errors) > 0 {
			d.DescribeSlice(0, "Errors", p.Errors)
		}
	})
}

// DescribeRestorePlan describes a plan.
func DescribeRestorePlan(plan *restorev1.RestorePlan) string {
	return Describe(func(d *Describer) {
		d.DescribeName("Restore", plan.RestoreID)
		d.Printf("Backup:\t%s\n", plan.BackupID)
		d.Printf("Clusters:\t%s -> %s\n", plan.SourceCluster, plan.TargetCluster)
		d.Printf("Resources:\t%d\n", plan.TotalResources)
		d.Printf("Estimated Duration:\t%s\n", plan.EstimatedDuration.Duration)
		d.Printf("Cluster Bootstrap:\t%t\n", plan.RequiresClusterBootstrap)
		d.Printf("Conflict Policy:\t%s\n", plan.ConflictPolicy)
		d.DescribeSlice(0, "Namespaces", plan.Namespaces)

		steps := make([]string, 0, len(plan.Steps))
		for i, s := range plan.Steps {
			steps = append(steps, fmt.Sprintf("%d. %s", i+1, s))
		}
		d.DescribeSlice(0, "Steps", steps)
	})
}

// DescribeCapabilities describes what the engine supports.
func DescribeCapabilities(caps restorev1.Capabilities) string {
	modes := make([]string, 0, len(caps.SupportedModes))
	for _, m := range caps.SupportedModes {
		modes = append(modes, string(m))
	}
	scenarios := make([]string, 0, len(caps.SupportedScenarios))
	for _, s := range caps.SupportedScenarios {
		scenarios = append(scenarios, string(s))
	}

	return Describe(func(d *Describer) {
		d.DescribeName("Version", caps.Version)
		d.Printf("Modes:\t%s\n", strings.Join(modes, ", "))
		d.Printf("Scenarios:\t%s\n", strings.Join(scenarios, ", "))
		d.Println()
		d.Printf("Repository:\t%s\n", caps.GitOpsIntegration.Repository)
		d.Printf("Branch:\t%s\n", caps.GitOpsIntegration.Branch)
		d.Printf("Auto Sync:\t%t\n", caps.GitOpsIntegration.AutoSync)
		d.Println()
		d.Printf("Cluster Validation:\t%t\n", caps.ValidationOptions.ClusterValidation)
		d.Printf("Resource Validation:\t%t\n", caps.ValidationOptions.ResourceValidation)
		d.Printf("Functional Testing:\t%t\n", caps.ValidationOptions.FunctionalTesting)
	})
}

// DescribeBackup describes a backup's metadata.
func DescribeBackup(md *restorev1.BackupMetadata) string {
	return Describe(func(d *Describer) {
		d.DescribeName("Backup", md.BackupID)
		d.Printf("Cluster:\t%s\n", md.ClusterName)
		d.Printf("Created:\t%s\n", timeOrDefault(md.Timestamp, "<unknown>"))
		d.Printf("Size:\t%d bytes\n", md.SizeBytes)
		if md.Version != "" {
			d.Printf("Version:\t%s\n", md.Version)
		}
		d.DescribeCounts("Resources", md.ResourceCounts)
	})
}
