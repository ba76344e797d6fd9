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

// Package apiserver exposes the restore orchestrator over HTTP.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/metrics"
	"github.com/walbis/tkkube/pkg/persistence"
)

const (
	apiPrefix = "/api/v1"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
)

// Orchestrator is the part of orchestrator.Orchestrator the API serves.
type Orchestrator interface {
	StartRestore(ctx context.Context, req *restorev1.RestoreRequest) (string, error)
	GetRestoreStatus(restoreID string) (*restorev1.RestoreProgress, bool)
	ListActiveRestores() []*restorev1.RestoreProgress
	CancelRestore(restoreID string) bool
	ListRestoreHistory(limit int) []restorev1.RestoreResult
	GetRestoreResult(ctx context.Context, restoreID string) (*restorev1.RestoreResult, error)
	GetCapabilities() restorev1.Capabilities
	PlanRestore(ctx context.Context, req *restorev1.RestoreRequest) (*restorev1.RestorePlan, error)
	ValidateRestore(ctx context.Context, req *restorev1.RestoreRequest) ([]string, error)
}

// ClusterValidator lists the configured clusters and checks that a named
// cluster can be reached.
type ClusterValidator interface {
	Clusters() []string
	ValidateClusterAccess(ctx context.Context, cluster string) error
}

type Server struct {
	orchestrator  Orchestrator
	backups       persistence.BackupStore
	clusters      ClusterValidator
	authenticator auth.Authenticator
	metrics       *metrics.ServerMetrics
	clock         clock.Clock
	logger        logrus.FieldLogger
}

// NewServer returns a Server. A nil authenticator disables authentication
// and attributes every request to the anonymous principal.
func NewServer(
	orchestrator Orchestrator,
	backups persistence.BackupStore,
	clusters ClusterValidator,
	authenticator auth.Authenticator,
	serverMetrics *metrics.ServerMetrics,
	logger logrus.FieldLogger,
) *Server {
	return &Server{
		orchestrator:  orchestrator,
		backups:       backups,
		clusters:      clusters,
		authenticator: authenticator,
		metrics:       serverMetrics,
		clock:         clock.RealClock{},
		logger:        logger,
	}
}

// Handler returns the router serving every API route.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusNotFound, codeNotFound, "no route for "+r.URL.Path)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
	})

	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := router.PathPrefix(apiPrefix).Subrouter()
	api.Use(s.instrument, s.authenticate)

	// fixed paths go before {restoreId}
	api.HandleFunc("/restore", s.startRestore).Methods(http.MethodPost)
	api.HandleFunc("/restore", s.listActiveRestores).Methods(http.MethodGet)
	api.HandleFunc("/restore/history", s.listRestoreHistory).Methods(http.MethodGet)
	api.HandleFunc("/restore/validate", s.validateRestore).Methods(http.MethodPost)
	api.HandleFunc("/restore/plan", s.planRestore).Methods(http.MethodPost)
	api.HandleFunc("/restore/{restoreId}", s.getRestore).Methods(http.MethodGet)
	api.HandleFunc("/restore/{restoreId}", s.cancelRestore).Methods(http.MethodDelete)

	// a scenario execution is a restore named by its scenario request
	api.HandleFunc("/dr/scenarios", s.listScenarios).Methods(http.MethodGet)
	api.HandleFunc("/dr/scenarios/{restoreId}", s.getRestore).Methods(http.MethodGet)
	api.HandleFunc("/dr/execute", s.executeScenario).Methods(http.MethodPost)

	api.HandleFunc("/backups", s.listBackups).Methods(http.MethodGet)
	api.HandleFunc("/backups/{backupId}", s.getBackup).Methods(http.MethodGet)

	api.HandleFunc("/clusters", s.listClusters).Methods(http.MethodGet)
	api.HandleFunc("/clusters/{cluster}/validate", s.validateCluster).Methods(http.MethodGet)
	api.HandleFunc("/capabilities", s.capabilities).Methods(http.MethodGet)

	return router
}

// Run serves the API on address until ctx is canceled, then shuts the
// listener down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", address).Info("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "error running API server")
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "error shutting down API server")
	}
	return nil
}
