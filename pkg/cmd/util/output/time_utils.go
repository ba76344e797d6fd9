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

package output

import (
	"time"

	"k8s.io/apimachinery/pkg/util/duration"
)

// timeOrDefault returns t formatted as RFC 3339 if t is not a zero value,
// or else returns defaultVal.
func timeOrDefault(t time.Time, defaultVal string) string {
	if t.IsZero() {
		return defaultVal
	}
	return t.UTC().Format(time.RFC3339)
}

// humanReadableDurationSince returns a string representing the amount of
// time that has passed from `when` to now, or the defaultVal string if
// `when` is the zero value or in the future.
func humanReadableDurationSince(now, when time.Time, defaultVal string) string {
	if when.IsZero() || when.After(now) {
		return defaultVal
	}

	return duration.ShortHumanDuration(now.Sub(when))
}
