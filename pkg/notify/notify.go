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

// Package notify delivers restore completion events to external systems.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

const (
	EventRestoreCompleted = "restore.completed"
	EventRestoreFailed    = "restore.failed"
)

// Event is the payload sent for a finished restore.
type Event struct {
	ID        string                   `json:"id"`
	Type      string                   `json:"type"`
	Timestamp time.Time                `json:"timestamp"`
	Result    *restorev1.RestoreResult `json:"result"`
}

// NewEvent wraps a terminal result in an Event with a fresh id.
func NewEvent(result *restorev1.RestoreResult, now time.Time) *Event {
	eventType := EventRestoreFailed
	if result.Success {
		eventType = EventRestoreCompleted
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: now.UTC(),
		Result:    result,
	}
}

func (e *Event) encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding notification")
	}
	return data, nil
}

// Notifier delivers restore events. Delivery failures are returned so
// the caller can log them; they never affect the restore itself.
type Notifier interface {
	Notify(ctx context.Context, event *Event) error
}

type multiNotifier []Notifier

// NewMultiNotifier fans an event out to every notifier, skipping nils.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	var m multiNotifier
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multiNotifier) Notify(ctx context.Context, event *Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}
