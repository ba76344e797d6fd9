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

package client

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/rest"

	"github.com/walbis/tkkube/pkg/buildinfo"
)

const (
	defaultQPS   float32 = 20.0
	defaultBurst         = 30
)

// Config returns a *rest.Config for the kubeconfig and context, resolved the
// way kubectl does: an empty kubeconfig falls back to $KUBECONFIG, the
// default file or in-cluster configuration, an empty context to the
// current one.
func Config(kubeconfig, kubecontext, baseName string, qps float32, burst int) (*rest.Config, error) {
	flags := genericclioptions.NewConfigFlags(false)
	flags.KubeConfig = &kubeconfig
	flags.Context = &kubecontext

	clientConfig, err := flags.ToRESTConfig()
	if err != nil {
		return nil, errors.Wrap(err, "error finding Kubernetes API server config in the kubeconfig, $KUBECONFIG, or in-cluster configuration")
	}

	if qps <= 0 {
		qps = defaultQPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	clientConfig.QPS = qps
	clientConfig.Burst = burst
	clientConfig.UserAgent = buildUserAgent(
		baseName,
		buildinfo.Version,
		buildinfo.FormattedGitSHA(),
		runtime.GOOS,
		runtime.GOARCH,
	)

	return clientConfig, nil
}

// buildUserAgent builds a User-Agent string from given args.
// Format: "<command>/<version> (<os>/<arch>) <git sha>"
func buildUserAgent(command, version, formattedSha, os, arch string) string {
	return fmt.Sprintf(
		"%s/%s (%s/%s) %s", command, version, os, arch, formattedSha)
}
