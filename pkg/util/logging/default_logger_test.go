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
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger(t *testing.T) {
	formatFlag := NewFormatFlag()

	for _, testFormat := range formatFlag.AllowedValues() {
		formatFlag.Set(testFormat)
		logger := DefaultLogger(logrus.InfoLevel, formatFlag.Parse())
		assert.Equal(t, logrus.InfoLevel, logger.Level)
		assert.Equal(t, os.Stdout, logger.Out)

		for _, level := range logrus.AllLevels {
			assert.Equal(t, DefaultHooks(), logger.Hooks[level])
		}
	}
}

func TestSetErrorKey(t *testing.T) {
	defer SetErrorKey(FormatText)

	SetErrorKey(FormatJSON)
	assert.Equal(t, "error.message", logrus.ErrorKey)

	DefaultLogger(logrus.InfoLevel, FormatText)
	assert.Equal(t, "error.message", logrus.ErrorKey)

	SetErrorKey(FormatText)
	assert.Equal(t, "error", logrus.ErrorKey)

	DefaultLogger(logrus.InfoLevel, FormatJSON)
	assert.Equal(t, "error", logrus.ErrorKey)
}

func TestDefaultLoggerConcurrentUse(t *testing.T) {
	SetErrorKey(FormatText)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(format Format) {
			defer wg.Done()
			logger := DefaultLogger(logrus.InfoLevel, format)
			logger.Out = new(bytes.Buffer)
			logger.WithError(errors.New("boom")).Error("restore failed")
		}([]Format{FormatText, FormatJSON}[i%2])
	}
	wg.Wait()

	assert.Equal(t, "error", logrus.ErrorKey)
}
