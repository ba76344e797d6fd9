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
package test

import (
	"testing"

	"k8s.io/apimachinery/pkg/runtime"
	kbclient "sigs.k8s.io/controller-runtime/pkg/client"
	k8sfake "sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/walbis/tkkube/pkg/client"
)

func NewFakeControllerRuntimeClientBuilder(t *testing.T) *k8sfake.ClientBuilder {
	t.Helper()
	return k8sfake.NewClientBuilder().WithScheme(client.NewScheme())
}

func NewFakeControllerRuntimeClient(t *testing.T, initObjs ...runtime.Object) kbclient.Client {
	t.Helper()
	return NewFakeControllerRuntimeClientBuilder(t).WithRuntimeObjects(initObjs...).Build()
}
