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

// RestorePhase is a step of the restore state machine.
type RestorePhase string

const (
	RestorePhasePlanning     RestorePhase = "Planning"
	RestorePhaseValidation   RestorePhase = "Validation"
	RestorePhasePreparation  RestorePhase = "Preparation"
	RestorePhaseGitOpsSync   RestorePhase = "GitOpsSync"
	RestorePhaseVerification RestorePhase = "Verification"
	RestorePhaseCleanup      RestorePhase = "Cleanup"
	RestorePhaseCompleted    RestorePhase = "Completed"

	// RestorePhaseFailed is reachable from every non-terminal phase.
	RestorePhaseFailed RestorePhase = "Failed"
)

// OrderedPhases returns the working phases in execution order, not
// including the terminal ones.
func OrderedPhases() []RestorePhase {
	return []RestorePhase{
		RestorePhasePlanning,
		RestorePhaseValidation,
		RestorePhasePreparation,
		RestorePhaseGitOpsSync,
		RestorePhaseVerification,
		RestorePhaseCleanup,
	}
}

// IsTerminal returns true for Completed and Failed.
func (p RestorePhase) IsTerminal() bool {
	return p == RestorePhaseCompleted || p == RestorePhaseFailed
}

// Index returns the position of the phase in the ordered sequence.
// Completed sorts after every working phase; Failed and unknown values
// return -1.
func (p RestorePhase) Index() int {
	for i, phase := range OrderedPhases() {
		if phase == p {
			return i
		}
	}
	if p == RestorePhaseCompleted {
		return len(OrderedPhases())
	}
	return -1
}
