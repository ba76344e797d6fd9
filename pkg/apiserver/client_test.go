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
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/metrics"
)

var _ = Describe("Client", func() {
	var (
		orch *fakeOrchestrator
		ts   *httptest.Server
	)

	BeforeEach(func() {
		orch = &fakeOrchestrator{
			active: map[string]*restorev1.RestoreProgress{
				"running": {RestoreID: "running", Phase: restorev1.RestorePhaseVerification, PercentComplete: 71},
			},
			results: map[string]*restorev1.RestoreResult{
				"done": {RestoreID: "done", Success: true, Phase: restorev1.RestorePhaseCompleted, ResourcesRestored: 4},
			},
		}

		logger := logrus.New()
		logger.Out = io.Discard

		server := NewServer(orch, &fakeBackups{}, fakeClusters{}, keyStore, metrics.NewServerMetrics(), logger)
		ts = httptest.NewServer(server.Handler())
		DeferCleanup(ts.Close)
	})

	It("lists active restores", func() {
		active, err := NewClient(ts.URL+"/", opsToken, nil).ListActiveRestores(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(HaveLen(1))
		Expect(active[0].RestoreID).To(Equal("running"))
		Expect(active[0].PercentComplete).To(BeNumerically("==", 71))
	})

	It("passes the history limit", func() {
		client := NewClient(ts.URL, opsToken, ts.Client())

		history, err := client.ListRestoreHistory(context.Background(), 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(1))
		Expect(history[0].RestoreID).To(Equal("old"))

		_, err = client.ListRestoreHistory(context.Background(), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(orch.historyArgs).To(Equal([]int{3, 0}))
	})

	It("returns progress or result for a restore", func() {
		client := NewClient(ts.URL, opsToken, nil)

		status, err := client.GetRestore(context.Background(), "running")
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Active).To(BeTrue())
		Expect(status.Progress.Phase).To(Equal(restorev1.RestorePhaseVerification))

		status, err = client.GetRestore(context.Background(), "done")
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Active).To(BeFalse())
		Expect(status.Result.ResourcesRestored).To(Equal(4))
	})

	It("returns API errors with their status and code", func() {
		_, err := NewClient(ts.URL, opsToken, nil).GetRestore(context.Background(), "unknown")

		var apiErr *APIError
		Expect(err).To(BeAssignableToTypeOf(apiErr))
		apiErr = err.(*APIError)
		Expect(apiErr.StatusCode).To(Equal(http.StatusNotFound))
		Expect(apiErr.Code).To(Equal(codeNotFound))

		_, err = NewClient(ts.URL, "", nil).ListActiveRestores(context.Background())
		Expect(err).To(MatchError(ContainSubstring("missing bearer token")))
	})

	It("reports responses that are not envelopes", func() {
		plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer plain.Close()

		_, err := NewClient(plain.URL, "", nil).ListActiveRestores(context.Background())
		Expect(err).To(MatchError("unexpected status 502 Bad Gateway"))
	})
})
