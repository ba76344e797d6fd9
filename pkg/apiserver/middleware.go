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
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AnonymousPrincipal is the requester of every request when
// authentication is disabled.
const AnonymousPrincipal = "anonymous"

type principalKey struct{}

func withPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// PrincipalFrom returns the authenticated principal of a request.
func PrincipalFrom(ctx context.Context) string {
	if name, ok := ctx.Value(principalKey{}).(string); ok {
		return name
	}
	return AnonymousPrincipal
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument logs every request and records its latency by route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		duration := s.clock.Since(start)

		if s.metrics != nil {
			s.metrics.RegisterAPIRequest(route, r.Method, rec.status, duration)
		}
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   rec.status,
			"duration": duration.String(),
			"remote":   r.RemoteAddr,
		}).Info("Handled API request")
	})
}

// authenticate resolves the bearer token into a principal.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.sendError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		name, err := s.authenticator.Authenticate(token)
		if err != nil {
			s.logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("Rejected API request")
			s.sendError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), name)))
	})
}
