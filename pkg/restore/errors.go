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

package restore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NotFoundError is returned when a backup or restore identifier is unknown.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFoundError returns a NotFoundError carrying a stack trace.
func NewNotFoundError(kind, id string) error {
	return errors.WithStack(&NotFoundError{Kind: kind, ID: id})
}

// AccessError is returned when a cluster or repository is unreachable or
// the caller is not authorized.
type AccessError struct {
	Target string
	Reason string
	Err    error
}

func (e *AccessError) Error() string {
	msg := fmt.Sprintf("access to %s denied: %s", e.Target, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AccessError) Unwrap() error { return e.Err }

// NewAccessError returns an AccessError carrying a stack trace.
func NewAccessError(target, reason string, err error) error {
	return errors.WithStack(&AccessError{Target: target, Reason: reason, Err: err})
}

// ConflictError lists live resources that collide with restored ones.
type ConflictError struct {
	Resources []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d resource(s) already exist in the target cluster: %s", len(e.Resources), strings.Join(e.Resources, ", "))
}

// ManifestInvalidError is returned when a generated manifest lacks a
// required field or cannot be mapped.
type ManifestInvalidError struct {
	Resource string
	Reason   string
}

func (e *ManifestInvalidError) Error() string {
	return fmt.Sprintf("invalid manifest %s: %s", e.Resource, e.Reason)
}

// SyncTimeoutError is reported when the GitOps controller did not settle
// within the monitoring window. It is surfaced as a warning.
type SyncTimeoutError struct {
	Application string
	LastStatus  string
}

func (e *SyncTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for application %s to sync (last status: %s)", e.Application, e.LastStatus)
}

// VerificationError is returned when the health or readiness APIs
// cannot be reached during verification.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return "verification failed: " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error { return e.Err }

// IsNotFound returns true if err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAccessError returns true if err wraps an AccessError.
func IsAccessError(err error) bool {
	var target *AccessError
	return errors.As(err, &target)
}

// IsConflict returns true if err wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsManifestInvalid returns true if err wraps a ManifestInvalidError.
func IsManifestInvalid(err error) bool {
	var target *ManifestInvalidError
	return errors.As(err, &target)
}

// IsSyncTimeout returns true if err wraps a SyncTimeoutError.
func IsSyncTimeout(err error) bool {
	var target *SyncTimeoutError
	return errors.As(err, &target)
}

// IsVerificationError returns true if err wraps a VerificationError.
func IsVerificationError(err error) bool {
	var target *VerificationError
	return errors.As(err, &target)
}
