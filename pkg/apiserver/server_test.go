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

package apiserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	clocktesting "k8s.io/utils/clock/testing"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/metrics"
	"github.com/walbis/tkkube/pkg/orchestrator"
	"github.com/walbis/tkkube/pkg/restore"
)

type fakeOrchestrator struct {
	mu          sync.Mutex
	started     []*restorev1.RestoreRequest
	startErr    error
	active      map[string]*restorev1.RestoreProgress
	results     map[string]*restorev1.RestoreResult
	canceled    []string
	historyArgs []int
	warnings    []string
	validateErr error
}

func (f *fakeOrchestrator) StartRestore(_ context.Context, req *restorev1.RestoreRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, req)
	return req.RestoreID, nil
}

func (f *fakeOrchestrator) GetRestoreStatus(id string) (*restorev1.RestoreProgress, bool) {
	p, ok := f.active[id]
	return p, ok
}

func (f *fakeOrchestrator) ListActiveRestores() []*restorev1.RestoreProgress {
	var out []*restorev1.RestoreProgress
	for _, p := range f.active {
		out = append(out, p)
	}
	return out
}

func (f *fakeOrchestrator) CancelRestore(id string) bool {
	if _, ok := f.active[id]; !ok {
		return false
	}
	f.canceled = append(f.canceled, id)
	return true
}

func (f *fakeOrchestrator) ListRestoreHistory(limit int) []restorev1.RestoreResult {
	f.historyArgs = append(f.historyArgs, limit)
	return []restorev1.RestoreResult{{RestoreID: "old", Success: true, Phase: restorev1.RestorePhaseCompleted}}
}

func (f *fakeOrchestrator) GetRestoreResult(_ context.Context, id string) (*restorev1.RestoreResult, error) {
	if r, ok := f.results[id]; ok {
		return r, nil
	}
	return nil, restore.NewNotFoundError("restore", id)
}

func (f *fakeOrchestrator) GetCapabilities() restorev1.Capabilities {
	return restorev1.Capabilities{
		SupportedModes:     restorev1.RestoreModes(),
		SupportedScenarios: restorev1.DRScenarios(),
		Version:            "v1.0.0",
	}
}

func (f *fakeOrchestrator) PlanRestore(_ context.Context, req *restorev1.RestoreRequest) (*restorev1.RestorePlan, error) {
	if req.BackupID == "missing" {
		return nil, restore.NewNotFoundError("backup", req.BackupID)
	}
	return &restorev1.RestorePlan{RestoreID: req.RestoreID, BackupID: req.BackupID, TotalResources: 20, TotalSteps: 7}, nil
}

func (f *fakeOrchestrator) ValidateRestore(context.Context, *restorev1.RestoreRequest) ([]string, error) {
	return f.warnings, f.validateErr
}

type fakeBackups struct {
	metadata map[string]*restorev1.BackupMetadata
}

func (b *fakeBackups) IsValid(context.Context) error { return nil }

func (b *fakeBackups) ListBackups(context.Context) ([]string, error) {
	var ids []string
	for id := range b.metadata {
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *fakeBackups) GetBackupMetadata(_ context.Context, id string) (*restorev1.BackupMetadata, error) {
	if md, ok := b.metadata[id]; ok {
		return md, nil
	}
	return nil, restore.NewNotFoundError("backup", id)
}

func (b *fakeBackups) GetBackupResources(context.Context, string) ([]*unstructured.Unstructured, error) {
	return nil, nil
}

func (b *fakeBackups) PutRestoreResult(context.Context, *restorev1.RestoreResult) error { return nil }

func (b *fakeBackups) GetRestoreResult(_ context.Context, id string) (*restorev1.RestoreResult, error) {
	return nil, restore.NewNotFoundError("restore", id)
}

func (b *fakeBackups) PutRestoreLog(context.Context, string, io.Reader) error { return nil }

type fakeClusters map[string]error

func (c fakeClusters) Clusters() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c fakeClusters) ValidateClusterAccess(_ context.Context, cluster string) error {
	if err, ok := c[cluster]; ok {
		return err
	}
	return restore.NewAccessError(cluster, "cluster is not configured", nil)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *Error          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

const validBody = `{
	"restore_id": "r1",
	"backup_id": "b1",
	"source_cluster": "prod",
	"target_cluster": "dr-east",
	"restore_mode": "full-cluster",
	"dr_scenario": "cluster-rebuild"
}`

var _ = Describe("Server", func() {
	var (
		orch    *fakeOrchestrator
		backups *fakeBackups
		handler http.Handler
		now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		orch = &fakeOrchestrator{
			active: map[string]*restorev1.RestoreProgress{
				"running": {RestoreID: "running", Phase: restorev1.RestorePhaseGitOpsSync, PercentComplete: 57},
			},
			results: map[string]*restorev1.RestoreResult{
				"done": {RestoreID: "done", Success: true, Phase: restorev1.RestorePhaseCompleted, ResourcesRestored: 20},
			},
		}
		backups = &fakeBackups{metadata: map[string]*restorev1.BackupMetadata{
			"b2": {BackupID: "b2", ClusterName: "prod"},
			"b1": {BackupID: "b1", ClusterName: "prod", ResourceCounts: map[string]int{"app/configmaps": 3}},
		}}

		logger := logrus.New()
		logger.Out = io.Discard

		server := NewServer(orch, backups, fakeClusters{
			"dr-east": nil,
			"dr-west": restore.NewAccessError("dr-west", "cluster unreachable", errors.New("connection refused")),
		}, keyStore, metrics.NewServerMetrics(), logger)
		server.clock = clocktesting.NewFakeClock(now)
		handler = server.Handler()
	})

	do := func(method, path, body string, authenticated bool) (*httptest.ResponseRecorder, *envelope) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if authenticated {
			req.Header.Set("Authorization", "Bearer "+opsToken)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		env := new(envelope)
		Expect(json.Unmarshal(rec.Body.Bytes(), env)).To(Succeed())
		return rec, env
	}

	expectError := func(rec *httptest.ResponseRecorder, env *envelope, status int, code string) {
		Expect(rec.Code).To(Equal(status))
		Expect(env.Success).To(BeFalse())
		Expect(env.Error).NotTo(BeNil())
		Expect(env.Error.Code).To(Equal(code))
	}

	Describe("authentication", func() {
		It("serves the health check without a token", func() {
			rec, env := do(http.MethodGet, "/healthz", "", false)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(env.Success).To(BeTrue())
			Expect(env.Timestamp).To(Equal(now))
		})

		It("rejects requests without a bearer token", func() {
			rec, env := do(http.MethodGet, "/api/v1/capabilities", "", false)
			expectError(rec, env, http.StatusUnauthorized, codeUnauthorized)
			Expect(env.Error.Message).To(Equal("missing bearer token"))
		})

		It("rejects unknown tokens", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil)
			req.Header.Set("Authorization", "Bearer not-a-valid-key")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(ContainSubstring("invalid api key"))
		})
	})

	Describe("POST /api/v1/restore", func() {
		It("accepts the restore and attributes it to the principal", func() {
			body := strings.Replace(validBody, `"dr_scenario"`, `"requester": "someone-else", "dr_scenario"`, 1)
			rec, env := do(http.MethodPost, "/api/v1/restore", body, true)

			Expect(rec.Code).To(Equal(http.StatusAccepted))
			var resp StartRestoreResponse
			Expect(json.Unmarshal(env.Data, &resp)).To(Succeed())
			Expect(resp).To(Equal(StartRestoreResponse{RestoreID: "r1", StatusURL: "/api/v1/restore/r1"}))

			Expect(orch.started).To(HaveLen(1))
			Expect(orch.started[0].Requester).To(Equal("ops"))
			Expect(orch.started[0].TargetCluster).To(Equal("dr-east"))
		})

		It("generates a restore ID when none is given", func() {
			body := strings.Replace(validBody, `"restore_id": "r1",`, "", 1)
			rec, _ := do(http.MethodPost, "/api/v1/restore", body, true)

			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(orch.started).To(HaveLen(1))
			Expect(orch.started[0].RestoreID).To(HavePrefix("restore-"))
		})

		It("rejects malformed and invalid requests", func() {
			rec, env := do(http.MethodPost, "/api/v1/restore", `{"restore_id": `, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)

			rec, env = do(http.MethodPost, "/api/v1/restore", `{"restore_id": "r1", "backup": "b1"}`, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)
			Expect(env.Error.Message).To(ContainSubstring(`unknown field "backup"`))

			body := strings.Replace(validBody, `"cluster-rebuild"`, `"meteor-strike"`, 1)
			rec, env = do(http.MethodPost, "/api/v1/restore", body, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)
			Expect(env.Error.Message).To(ContainSubstring(`unsupported dr_scenario "meteor-strike"`))

			body = strings.Replace(validBody, `"r1"`, `"Nightly Restore #1"`, 1)
			rec, env = do(http.MethodPost, "/api/v1/restore", body, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)
			Expect(env.Error.Message).To(ContainSubstring(`invalid restore_id "Nightly Restore #1"`))

			Expect(orch.started).To(BeEmpty())
		})

		It("maps orchestrator errors to status codes", func() {
			orch.startErr = restore.NewAccessError("dr-east", `principal "ops" may not restore to this cluster`, nil)
			rec, env := do(http.MethodPost, "/api/v1/restore", validBody, true)
			expectError(rec, env, http.StatusForbidden, codeForbidden)

			orch.startErr = errors.WithStack(&orchestrator.DuplicateRestoreError{RestoreID: "r1"})
			rec, env = do(http.MethodPost, "/api/v1/restore", validBody, true)
			expectError(rec, env, http.StatusConflict, codeConflict)
			Expect(env.Error.Message).To(Equal("restore r1 is already in progress"))

			orch.startErr = errors.New("boom")
			rec, env = do(http.MethodPost, "/api/v1/restore", validBody, true)
			expectError(rec, env, http.StatusInternalServerError, codeInternal)
		})
	})

	Describe("restore status", func() {
		It("lists active restores", func() {
			rec, env := do(http.MethodGet, "/api/v1/restore", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var active []restorev1.RestoreProgress
			Expect(json.Unmarshal(env.Data, &active)).To(Succeed())
			Expect(active).To(HaveLen(1))
			Expect(active[0].RestoreID).To(Equal("running"))
		})

		It("routes the history before restore IDs", func() {
			rec, env := do(http.MethodGet, "/api/v1/restore/history?limit=5", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(orch.historyArgs).To(Equal([]int{5}))

			var history []restorev1.RestoreResult
			Expect(json.Unmarshal(env.Data, &history)).To(Succeed())
			Expect(history).To(HaveLen(1))

			rec, env = do(http.MethodGet, "/api/v1/restore/history?limit=many", "", true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)
		})

		It("returns the progress of active restores and the result of finished ones", func() {
			rec, env := do(http.MethodGet, "/api/v1/restore/running", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var status RestoreStatus
			Expect(json.Unmarshal(env.Data, &status)).To(Succeed())
			Expect(status.Active).To(BeTrue())
			Expect(status.Progress.Phase).To(Equal(restorev1.RestorePhaseGitOpsSync))
			Expect(status.Result).To(BeNil())

			rec, env = do(http.MethodGet, "/api/v1/restore/done", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			status = RestoreStatus{}
			Expect(json.Unmarshal(env.Data, &status)).To(Succeed())
			Expect(status.Active).To(BeFalse())
			Expect(status.Result.ResourcesRestored).To(Equal(20))

			rec, env = do(http.MethodGet, "/api/v1/restore/unknown", "", true)
			expectError(rec, env, http.StatusNotFound, codeNotFound)
		})

		It("cancels active restores", func() {
			rec, _ := do(http.MethodDelete, "/api/v1/restore/running", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(orch.canceled).To(Equal([]string{"running"}))

			rec, env := do(http.MethodDelete, "/api/v1/restore/done", "", true)
			expectError(rec, env, http.StatusNotFound, codeNotFound)
		})
	})

	Describe("planning and validation", func() {
		It("plans a restore", func() {
			rec, env := do(http.MethodPost, "/api/v1/restore/plan", validBody, true)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var plan restorev1.RestorePlan
			Expect(json.Unmarshal(env.Data, &plan)).To(Succeed())
			Expect(plan.TotalResources).To(Equal(20))
			Expect(orch.started).To(BeEmpty())

			body := strings.Replace(validBody, `"b1"`, `"missing"`, 1)
			rec, env = do(http.MethodPost, "/api/v1/restore/plan", body, true)
			expectError(rec, env, http.StatusNotFound, codeNotFound)
		})

		It("reports warnings and conflicts", func() {
			orch.warnings = []string{"ConfigMap app/settings already exists"}
			rec, env := do(http.MethodPost, "/api/v1/restore/validate", validBody, true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp ValidationResponse
			Expect(json.Unmarshal(env.Data, &resp)).To(Succeed())
			Expect(resp).To(Equal(ValidationResponse{Valid: true, Warnings: orch.warnings}))

			orch.validateErr = errors.WithStack(&restore.ConflictError{Resources: []string{"ConfigMap app/settings"}})
			rec, env = do(http.MethodPost, "/api/v1/restore/validate", validBody, true)
			expectError(rec, env, http.StatusConflict, codeConflict)
		})
	})

	Describe("disaster recovery scenarios", func() {
		It("lists the scenario catalogue", func() {
			rec, env := do(http.MethodGet, "/api/v1/dr/scenarios", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var scenarios []restorev1.ScenarioInfo
			Expect(json.Unmarshal(env.Data, &scenarios)).To(Succeed())
			Expect(scenarios).To(HaveLen(len(restorev1.DRScenarios())))
			Expect(scenarios[0].ID).To(Equal(restorev1.DRScenarioClusterRebuild))
			Expect(scenarios[0].RequiresClusterBootstrap).To(BeTrue())
			Expect(scenarios[0].EstimatedDuration.Duration).To(Equal(2 * time.Hour))
		})

		It("executes a scenario with the scenario's restore mode", func() {
			body := `{
				"restore_id": "ns-recovery-1",
				"scenario": "namespace-recovery",
				"backup_id": "b1",
				"source_cluster": "prod",
				"target_cluster": "dr-east",
				"target_namespaces": ["app-dr"]
			}`
			rec, env := do(http.MethodPost, "/api/v1/dr/execute", body, true)
			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var resp StartRestoreResponse
			Expect(json.Unmarshal(env.Data, &resp)).To(Succeed())
			Expect(resp).To(Equal(StartRestoreResponse{RestoreID: "ns-recovery-1", StatusURL: "/api/v1/dr/scenarios/ns-recovery-1"}))

			Expect(orch.started).To(HaveLen(1))
			Expect(orch.started[0].DRScenario).To(Equal(restorev1.DRScenarioNamespaceRecovery))
			Expect(orch.started[0].RestoreMode).To(Equal(restorev1.RestoreModeNamespace))
			Expect(orch.started[0].TargetNamespaces).To(Equal([]string{"app-dr"}))
			Expect(orch.started[0].Requester).To(Equal("ops"))
		})

		It("generates an ID for scenario executions", func() {
			body := `{"scenario": "cluster-rebuild", "backup_id": "b1", "target_cluster": "dr-east"}`
			rec, _ := do(http.MethodPost, "/api/v1/dr/execute", body, true)
			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(orch.started).To(HaveLen(1))
			Expect(orch.started[0].RestoreID).To(HavePrefix("restore-"))
			Expect(orch.started[0].RestoreMode).To(Equal(restorev1.RestoreModeFullCluster))
		})

		It("rejects invalid scenario requests", func() {
			rec, env := do(http.MethodPost, "/api/v1/dr/execute", `{"scenario": "meteor-strike", "backup_id": "b1", "target_cluster": "dr-east"}`, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)
			Expect(env.Error.Message).To(ContainSubstring(`unsupported scenario "meteor-strike"`))

			rec, env = do(http.MethodPost, "/api/v1/dr/execute", `{"scenario": "cluster-rebuild", "target_cluster": "dr-east"}`, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)
			Expect(env.Error.Message).To(ContainSubstring("backup_id is required"))

			rec, env = do(http.MethodPost, "/api/v1/dr/execute", `{"scenario_type": "cluster-rebuild"}`, true)
			expectError(rec, env, http.StatusBadRequest, codeInvalidRequest)

			Expect(orch.started).To(BeEmpty())
		})

		It("returns the status of a scenario execution", func() {
			rec, env := do(http.MethodGet, "/api/v1/dr/scenarios/running", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var status RestoreStatus
			Expect(json.Unmarshal(env.Data, &status)).To(Succeed())
			Expect(status.Active).To(BeTrue())

			rec, env = do(http.MethodGet, "/api/v1/dr/scenarios/unknown", "", true)
			expectError(rec, env, http.StatusNotFound, codeNotFound)
		})
	})

	Describe("backups and clusters", func() {
		It("lists the configured clusters", func() {
			rec, env := do(http.MethodGet, "/api/v1/clusters", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var clusters []ClusterInfo
			Expect(json.Unmarshal(env.Data, &clusters)).To(Succeed())
			Expect(clusters).To(Equal([]ClusterInfo{{Name: "dr-east"}, {Name: "dr-west"}}))

			rec, env = do(http.MethodGet, "/api/v1/clusters?validate=true", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			clusters = nil
			Expect(json.Unmarshal(env.Data, &clusters)).To(Succeed())
			Expect(clusters).To(HaveLen(2))
			Expect(*clusters[0].Valid).To(BeTrue())
			Expect(*clusters[1].Valid).To(BeFalse())
			Expect(clusters[1].Message).To(ContainSubstring("connection refused"))
		})

		It("lists backups sorted", func() {
			rec, env := do(http.MethodGet, "/api/v1/backups", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var ids []string
			Expect(json.Unmarshal(env.Data, &ids)).To(Succeed())
			Expect(ids).To(Equal([]string{"b1", "b2"}))
		})

		It("returns backup metadata", func() {
			rec, env := do(http.MethodGet, "/api/v1/backups/b1", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var md restorev1.BackupMetadata
			Expect(json.Unmarshal(env.Data, &md)).To(Succeed())
			Expect(md.ResourceCounts).To(HaveKeyWithValue("app/configmaps", 3))

			rec, env = do(http.MethodGet, "/api/v1/backups/b9", "", true)
			expectError(rec, env, http.StatusNotFound, codeNotFound)
		})

		It("validates cluster access", func() {
			rec, env := do(http.MethodGet, "/api/v1/clusters/dr-east/validate", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var result ClusterValidation
			Expect(json.Unmarshal(env.Data, &result)).To(Succeed())
			Expect(result).To(Equal(ClusterValidation{Cluster: "dr-east", Valid: true}))

			rec, env = do(http.MethodGet, "/api/v1/clusters/dr-west/validate", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			result = ClusterValidation{}
			Expect(json.Unmarshal(env.Data, &result)).To(Succeed())
			Expect(result.Valid).To(BeFalse())
			Expect(result.Message).To(ContainSubstring("connection refused"))
		})
	})

	It("returns the capabilities", func() {
		rec, env := do(http.MethodGet, "/api/v1/capabilities", "", true)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var caps restorev1.Capabilities
		Expect(json.Unmarshal(env.Data, &caps)).To(Succeed())
		Expect(caps.SupportedScenarios).To(ContainElement(restorev1.DRScenarioClusterRebuild))
	})

	It("wraps routing errors in the envelope", func() {
		rec, env := do(http.MethodGet, "/api/v2/restore", "", true)
		expectError(rec, env, http.StatusNotFound, codeNotFound)

		rec, env = do(http.MethodPut, "/api/v1/capabilities", "", true)
		expectError(rec, env, http.StatusMethodNotAllowed, codeMethodNotAllowed)
	})
})
