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
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/walbis/tkkube/pkg/orchestrator"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/logging"
)

// Error codes carried in Response.Error.
const (
	codeInvalidRequest   = "invalid_request"
	codeUnauthorized     = "unauthorized"
	codeForbidden        = "forbidden"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternal         = "internal_error"
)

// Response is the envelope of every API response.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) sendSuccess(w http.ResponseWriter, status int, data interface{}) {
	s.send(w, status, &Response{Success: true, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.send(w, status, &Response{Error: &Error{Code: code, Message: message}})
}

// sendErr maps err to a status code by its type. Errors of unknown type are
// internal errors.
func (s *Server) sendErr(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, codeInternal

	var dup *orchestrator.DuplicateRestoreError
	switch {
	case restore.IsNotFound(err):
		status, code = http.StatusNotFound, codeNotFound
	case restore.IsAccessError(err):
		status, code = http.StatusForbidden, codeForbidden
	case restore.IsConflict(err), errors.As(err, &dup):
		status, code = http.StatusConflict, codeConflict
	case restore.IsManifestInvalid(err):
		status, code = http.StatusUnprocessableEntity, codeInvalidRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Error handling API request")
		logging.LogStackTrace(s.logger, err)
	}
	s.sendError(w, status, code, err.Error())
}

func (s *Server) send(w http.ResponseWriter, status int, resp *Response) {
	resp.Timestamp = s.clock.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithError(err).Warn("Error writing API response")
	}
}
