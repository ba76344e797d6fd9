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
package logging

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogHook is a logrus hook that counts the number of log
// statements that have been written at each logrus level. It also
// keeps the rendered warning and error entries.
type LogHook struct {
	mu      sync.RWMutex
	counts  map[logrus.Level]int
	entries map[logrus.Level][]string
}

// NewLogHook returns a pointer to an initialized LogHook.
func NewLogHook() *LogHook {
	return &LogHook{
		counts:  make(map[logrus.Level]int),
		entries: make(map[logrus.Level][]string),
	}
}

// Levels returns the logrus levels that the hook should be fired for.
func (h *LogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire executes the hook's logic.
func (h *LogHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[entry.Level]++
	if entry.Level > logrus.WarnLevel {
		return nil
	}

	msg := entry.Message
	if resource, ok := entry.Data["resource"]; ok {
		msg = fmt.Sprintf("%s: %s", resource, msg)
	}
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	h.entries[entry.Level] = append(h.entries[entry.Level], msg)

	return nil
}

// GetCount returns the number of log statements that have been
// written at the specific level provided.
func (h *LogHook) GetCount(level logrus.Level) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.counts[level]
}

// GetEntries returns the warning or error statements that have been
// written at the specific level provided.
func (h *LogHook) GetEntries(level logrus.Level) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]string(nil), h.entries[level]...)
}
