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

package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// CancelOnShutdown starts a goroutine that will call cancelFunc when
// either SIGINT or SIGTERM is received. A second signal exits the process
// immediately.
func CancelOnShutdown(cancelFunc context.CancelFunc, logger logrus.FieldLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logger.Infof("Received signal %s, shutting down", sig)
		cancelFunc()

		sig = <-sigs
		logger.Warnf("Received second signal %s, exiting without waiting for active restores", sig)
		os.Exit(1)
	}()
}
