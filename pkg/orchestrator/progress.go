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

package orchestrator

import (
	"sync"
	"time"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
)

// progressTracker guards the progress of one restore. Only the restore's
// own goroutine writes to it; status queries read snapshots.
type progressTracker struct {
	mu       sync.Mutex
	progress restorev1.RestoreProgress
}

func newProgressTracker(restoreID string, start time.Time) *progressTracker {
	return &progressTracker{
		progress: restorev1.RestoreProgress{
			RestoreID:  restoreID,
			Phase:      restorev1.RestorePhasePlanning,
			TotalSteps: restore.DefaultTotalSteps,
			StartTime:  start,
			Errors:     []string{},
			Warnings:   []string{},
		},
	}
}

func (t *progressTracker) snapshot() *restorev1.RestoreProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.DeepCopy()
}

func (t *progressTracker) update(fn func(p *restorev1.RestoreProgress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.progress)
}

// enterPhase records the start of a phase.
func (t *progressTracker) enterPhase(phase restorev1.RestorePhase, step string) {
	t.update(func(p *restorev1.RestoreProgress) {
		p.Phase = phase
		p.CurrentStep = step
	})
}

func (t *progressTracker) setStep(step string) {
	t.update(func(p *restorev1.RestoreProgress) {
		p.CurrentStep = step
	})
}

// completeStep counts one finished step. The percentage stays below 100
// until complete is called.
func (t *progressTracker) completeStep() {
	t.update(func(p *restorev1.RestoreProgress) {
		if p.StepsCompleted < p.TotalSteps-1 {
			p.StepsCompleted++
		}
		p.PercentComplete = percent(p.StepsCompleted, p.TotalSteps)
	})
}

func (t *progressTracker) complete(step string) {
	t.update(func(p *restorev1.RestoreProgress) {
		p.Phase = restorev1.RestorePhaseCompleted
		p.CurrentStep = step
		p.StepsCompleted = p.TotalSteps
		p.PercentComplete = 100
	})
}

// fail moves the restore to Failed. The percentage is left where it was.
func (t *progressTracker) fail(err error) {
	t.update(func(p *restorev1.RestoreProgress) {
		p.Phase = restorev1.RestorePhaseFailed
		p.Errors = append(p.Errors, err.Error())
	})
}

func (t *progressTracker) warn(msgs ...string) {
	t.update(func(p *restorev1.RestoreProgress) {
		p.Warnings = append(p.Warnings, msgs...)
	})
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
