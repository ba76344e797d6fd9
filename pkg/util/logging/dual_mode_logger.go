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
	"compress/gzip"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DualModeLogger is a thread safe logger that writes to the process output and,
// until DoneForPersist is called, to a gzip compressed temp file that can be
// uploaded once the operation it belongs to has finished.
type DualModeLogger interface {
	logrus.FieldLogger
	// DoneForPersist stops writing to the persist file and flushes it.
	DoneForPersist(log logrus.FieldLogger)
	// GetPersistFile rewinds the persist file and returns it.
	GetPersistFile() (*os.File, error)
	// Dispose closes and removes the persist file.
	Dispose(log logrus.FieldLogger)
}

type tempFileLogger struct {
	logrus.FieldLogger
	logger *logrus.Logger
	out    io.Writer
	file   *os.File
	w      *gzip.Writer
}

// NewTempFileLogger creates a DualModeLogger that writes to out and to a file in the temp folder.
// A nil out means stdout.
func NewTempFileLogger(out io.Writer, logLevel logrus.Level, logFormat Format, hook *LogHook, fields logrus.Fields) (DualModeLogger, error) {
	if out == nil {
		out = os.Stdout
	}

	file, err := os.CreateTemp("", "restore-log-*.gz")
	if err != nil {
		return nil, errors.Wrap(err, "error creating temp log file")
	}

	w := gzip.NewWriter(file)

	logger := DefaultLogger(logLevel, logFormat)
	logger.Out = io.MultiWriter(out, w)
	if hook != nil {
		logger.Hooks.Add(hook)
	}

	return &tempFileLogger{
		FieldLogger: logger.WithFields(fields),
		logger:      logger,
		out:         out,
		file:        file,
		w:           w,
	}, nil
}

func (p *tempFileLogger) DoneForPersist(log logrus.FieldLogger) {
	p.logger.SetOutput(p.out)

	if err := p.w.Close(); err != nil {
		log.WithError(err).Warn("error closing gzip writer")
	}
}

func (p *tempFileLogger) GetPersistFile() (*os.File, error) {
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "error resetting log file offset to 0")
	}

	return p.file, nil
}

func (p *tempFileLogger) Dispose(log logrus.FieldLogger) {
	p.w.Close()

	if err := p.file.Close(); err != nil {
		log.WithError(err).WithField("file", p.file.Name()).Warn("error closing temp log file")
	}
	if err := os.Remove(p.file.Name()); err != nil {
		log.WithError(err).WithField("file", p.file.Name()).Warn("error removing temp log file")
	}
}
