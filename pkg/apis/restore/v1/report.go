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

package v1

import "time"

// HealthStatus is the health classification of a resource or a restore.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ResourceHealth is the health of a single restored resource.
type ResourceHealth struct {
	Kind      string       `json:"kind"`
	Namespace string       `json:"namespace,omitempty"`
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
}

// HealthReport aggregates the health of all restored resources.
type HealthReport struct {
	Healthy       int              `json:"healthy"`
	Degraded      int              `json:"degraded"`
	Unhealthy     int              `json:"unhealthy"`
	OverallStatus HealthStatus     `json:"overall_status"`
	Details       []ResourceHealth `json:"details,omitempty"`
}

// FunctionalTestResult is the outcome of one functional test.
type FunctionalTestResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// ValidationReport is produced by the verification phase.
type ValidationReport struct {
	Health            HealthReport           `json:"health"`
	ReadyResources    int                    `json:"ready_resources"`
	TimedOutResources []string               `json:"timed_out_resources,omitempty"`
	FunctionalTests   []FunctionalTestResult `json:"functional_tests,omitempty"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

// FailedFunctionalTests returns the number of functional tests that did
// not pass.
func (r *ValidationReport) FailedFunctionalTests() int {
	if r == nil {
		return 0
	}
	failed := 0
	for _, t := range r.FunctionalTests {
		if !t.Passed {
			failed++
		}
	}
	return failed
}

// GitOpsIntegration describes the server's GitOps wiring.
type GitOpsIntegration struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	AutoSync   bool   `json:"auto_sync"`
}

// ValidationOptions lists which validation stages the server supports.
type ValidationOptions struct {
	ClusterValidation  bool `json:"cluster_validation"`
	ResourceValidation bool `json:"resource_validation"`
	FunctionalTesting  bool `json:"functional_testing"`
}

// Capabilities is a static descriptor of what the restore engine supports.
type Capabilities struct {
	SupportedModes     []RestoreMode     `json:"supported_modes"`
	SupportedScenarios []DRScenario      `json:"supported_scenarios"`
	GitOpsIntegration  GitOpsIntegration `json:"gitops_integration"`
	ValidationOptions  ValidationOptions `json:"validation_options"`
	Version            string            `json:"version"`
}
