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
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/ptr"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/buildinfo"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/validation"
)

const maxRequestBytes = 1 << 20

// StartRestoreResponse is returned when a restore was accepted.
type StartRestoreResponse struct {
	RestoreID string `json:"restore_id"`
	StatusURL string `json:"status_url"`
}

// RestoreStatus holds either the progress of an active restore or the
// result of a finished one.
type RestoreStatus struct {
	RestoreID string                     `json:"restore_id"`
	Active    bool                       `json:"active"`
	Progress  *restorev1.RestoreProgress `json:"progress,omitempty"`
	Result    *restorev1.RestoreResult   `json:"result,omitempty"`
}

type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings,omitempty"`
}

// ClusterInfo is a configured cluster. Valid is only set when access was
// checked.
type ClusterInfo struct {
	Name    string `json:"name"`
	Valid   *bool  `json:"valid,omitempty"`
	Message string `json:"message,omitempty"`
}

type ClusterValidation struct {
	Cluster string `json:"cluster"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.sendSuccess(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.ReportedVersion(),
	})
}

// decodeBody strictly decodes a JSON body into into. It writes the error
// response itself.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, what string, into interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(into); err != nil {
		s.sendError(w, http.StatusBadRequest, codeInvalidRequest, "error decoding "+what+": "+err.Error())
		return false
	}
	return true
}

// decodeRequest reads a restore request from the body, attributes it to the
// authenticated principal and validates it. It writes the error response
// itself and returns nil when the request is unusable.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) *restorev1.RestoreRequest {
	req := new(restorev1.RestoreRequest)
	if !s.decodeBody(w, r, "restore request", req) {
		return nil
	}
	return s.completeRequest(w, r, req)
}

func (s *Server) completeRequest(w http.ResponseWriter, r *http.Request, req *restorev1.RestoreRequest) *restorev1.RestoreRequest {
	if req.RestoreID == "" {
		req.RestoreID = "restore-" + uuid.NewString()
	}
	req.Requester = PrincipalFrom(r.Context())

	if err := validation.ValidateRequest(req); err != nil {
		s.sendError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return nil
	}
	return req
}

func (s *Server) startRestore(w http.ResponseWriter, r *http.Request) {
	req := s.decodeRequest(w, r)
	if req == nil {
		return
	}
	s.start(w, r, req, "restore")
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, req *restorev1.RestoreRequest, statusPath string) {
	id, err := s.orchestrator.StartRestore(r.Context(), req)
	if err != nil {
		s.sendErr(w, err)
		return
	}

	s.sendSuccess(w, http.StatusAccepted, &StartRestoreResponse{
		RestoreID: id,
		StatusURL: fmt.Sprintf("%s/%s/%s", apiPrefix, statusPath, id),
	})
}

func (s *Server) listScenarios(w http.ResponseWriter, _ *http.Request) {
	s.sendSuccess(w, http.StatusOK, restore.Scenarios())
}

// executeScenario starts the restore a scenario request describes.
func (s *Server) executeScenario(w http.ResponseWriter, r *http.Request) {
	sr := new(restorev1.ScenarioRequest)
	if !s.decodeBody(w, r, "scenario request", sr) {
		return
	}

	req, err := restore.RequestForScenario(sr)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if req = s.completeRequest(w, r, req); req == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{"restore": req.RestoreID, "scenario": req.DRScenario}).Info("Executing disaster recovery scenario")
	s.start(w, r, req, "dr/scenarios")
}

func (s *Server) listActiveRestores(w http.ResponseWriter, _ *http.Request) {
	active := s.orchestrator.ListActiveRestores()
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartTime.Before(active[j].StartTime)
	})
	s.sendSuccess(w, http.StatusOK, active)
}

func (s *Server) listRestoreHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			s.sendError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("limit %q must be a non-negative integer", value))
			return
		}
		limit = n
	}
	s.sendSuccess(w, http.StatusOK, s.orchestrator.ListRestoreHistory(limit))
}

func (s *Server) getRestore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["restoreId"]

	if progress, ok := s.orchestrator.GetRestoreStatus(id); ok {
		s.sendSuccess(w, http.StatusOK, &RestoreStatus{RestoreID: id, Active: true, Progress: progress})
		return
	}

	result, err := s.orchestrator.GetRestoreResult(r.Context(), id)
	if err != nil {
		s.sendErr(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, &RestoreStatus{RestoreID: id, Result: result})
}

func (s *Server) cancelRestore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["restoreId"]

	if !s.orchestrator.CancelRestore(id) {
		s.sendError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("restore %q is not active", id))
		return
	}
	s.logger.WithField("restore", id).WithField("principal", PrincipalFrom(r.Context())).Info("Restore canceled through the API")
	s.sendSuccess(w, http.StatusOK, map[string]string{"restore_id": id})
}

func (s *Server) validateRestore(w http.ResponseWriter, r *http.Request) {
	req := s.decodeRequest(w, r)
	if req == nil {
		return
	}

	warnings, err := s.orchestrator.ValidateRestore(r.Context(), req)
	if err != nil {
		s.sendErr(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, &ValidationResponse{Valid: true, Warnings: warnings})
}

func (s *Server) planRestore(w http.ResponseWriter, r *http.Request) {
	req := s.decodeRequest(w, r)
	if req == nil {
		return
	}

	plan, err := s.orchestrator.PlanRestore(r.Context(), req)
	if err != nil {
		s.sendErr(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, plan)
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	ids, err := s.backups.ListBackups(r.Context())
	if err != nil {
		s.sendErr(w, err)
		return
	}
	sort.Strings(ids)
	if ids == nil {
		ids = []string{}
	}
	s.sendSuccess(w, http.StatusOK, ids)
}

func (s *Server) getBackup(w http.ResponseWriter, r *http.Request) {
	metadata, err := s.backups.GetBackupMetadata(r.Context(), mux.Vars(r)["backupId"])
	if err != nil {
		s.sendErr(w, err)
		return
	}
	s.sendSuccess(w, http.StatusOK, metadata)
}

func (s *Server) listClusters(w http.ResponseWriter, r *http.Request) {
	validate := r.URL.Query().Get("validate") == "true"

	clusters := []*ClusterInfo{}
	for _, name := range s.clusters.Clusters() {
		c := &ClusterInfo{Name: name}
		if validate {
			err := s.clusters.ValidateClusterAccess(r.Context(), name)
			c.Valid = ptr.To(err == nil)
			if err != nil {
				c.Message = err.Error()
			}
		}
		clusters = append(clusters, c)
	}
	s.sendSuccess(w, http.StatusOK, clusters)
}

// validateCluster reports an unreachable cluster in the response body
// rather than as an error status.
func (s *Server) validateCluster(w http.ResponseWriter, r *http.Request) {
	cluster := mux.Vars(r)["cluster"]

	result := &ClusterValidation{Cluster: cluster, Valid: true}
	if err := s.clusters.ValidateClusterAccess(r.Context(), cluster); err != nil {
		result.Valid = false
		result.Message = err.Error()
	}
	s.sendSuccess(w, http.StatusOK, result)
}

func (s *Server) capabilities(w http.ResponseWriter, _ *http.Request) {
	s.sendSuccess(w, http.StatusOK, s.orchestrator.GetCapabilities())
}
