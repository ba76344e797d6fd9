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

package gitops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/builder"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/test"
)

func testConfig() *restorev1.GitOpsConfig {
	return MergeConfig(&restorev1.GitOpsConfig{RepositoryURL: "https://git.example.com/org/fleet.git"}, nil)
}

func testManifests() []*unstructured.Unstructured {
	return []*unstructured.Unstructured{
		builder.ToUnstructured(builder.ForDeployment("app-prod", "web").Replicas(2).Result()),
		builder.ToUnstructured(builder.ForConfigMap("app-prod", "settings").Data("mode", "dr").Result()),
		builder.ToUnstructured(builder.ForNamespace("app-prod").Result()),
	}
}

func TestWriteManifests(t *testing.T) {
	fs := test.NewFakeFileSystem()
	repo := NewRepository(fs, test.NewLogger())
	tree := NewWorkingTree("/work/repo", testConfig(), nil, fs)
	req := builder.ForRestoreRequest("r1", "b1").Clusters("prod", "dr").Result()

	written, err := repo.WriteManifests(tree, req, testManifests())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"clusters/dr/restore-r1/_cluster/namespace-app-prod.yaml",
		"clusters/dr/restore-r1/app-prod/configmap-settings.yaml",
		"clusters/dr/restore-r1/app-prod/deployment-web.yaml",
		"clusters/dr/restore-r1/kustomization.yaml",
		"clusters/dr/applications/restore-r1.yaml",
	}, written)
	assert.Equal(t, []string{"/work/repo/clusters/dr/restore-r1"}, fs.RemoveAllCalls)

	data, err := fs.ReadFile("/work/repo/clusters/dr/restore-r1/kustomization.yaml")
	require.NoError(t, err)
	k := new(kustomization)
	require.NoError(t, yaml.Unmarshal(data, k))
	assert.Equal(t, "Kustomization", k.Kind)
	assert.Equal(t, []string{
		"_cluster/namespace-app-prod.yaml",
		"app-prod/configmap-settings.yaml",
		"app-prod/deployment-web.yaml",
	}, k.Resources)

	data, err = fs.ReadFile("/work/repo/clusters/dr/restore-r1/app-prod/configmap-settings.yaml")
	require.NoError(t, err)
	cm := new(unstructured.Unstructured)
	require.NoError(t, yaml.Unmarshal(data, &cm.Object))
	assert.Equal(t, "settings", cm.GetName())
	assert.Equal(t, "ConfigMap", cm.GetKind())

	data, err = fs.ReadFile("/work/repo/clusters/dr/applications/restore-r1.yaml")
	require.NoError(t, err)
	app := new(unstructured.Unstructured)
	require.NoError(t, yaml.Unmarshal(data, &app.Object))
	assert.Equal(t, "restore-r1", app.GetName())
	assert.Equal(t, "argocd", app.GetNamespace())
	path, _, _ := unstructured.NestedString(app.Object, "spec", "source", "path")
	assert.Equal(t, "clusters/dr/restore-r1", path)
}

func TestWriteManifestsRejectsCollisions(t *testing.T) {
	fs := test.NewFakeFileSystem()
	repo := NewRepository(fs, test.NewLogger())
	tree := NewWorkingTree("/work/repo", testConfig(), nil, fs)
	req := builder.ForRestoreRequest("r1", "b1").Clusters("prod", "dr").Result()

	manifests := []*unstructured.Unstructured{
		builder.ToUnstructured(builder.ForConfigMap("app-prod", "settings").Result()),
		builder.ToUnstructured(builder.ForConfigMap("app-prod", "settings").Result()),
	}

	_, err := repo.WriteManifests(tree, req, manifests)
	assert.True(t, restore.IsManifestInvalid(err))
}

func TestWriteManifestsRejectsInvalidManifest(t *testing.T) {
	fs := test.NewFakeFileSystem()
	repo := NewRepository(fs, test.NewLogger())
	tree := NewWorkingTree("/work/repo", testConfig(), nil, fs)
	req := builder.ForRestoreRequest("r1", "b1").Clusters("prod", "dr").Result()

	nameless := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata":   map[string]interface{}{"namespace": "app-prod"},
	}}

	_, err := repo.WriteManifests(tree, req, []*unstructured.Unstructured{nameless})
	assert.True(t, restore.IsManifestInvalid(err))
}

func TestManifestFile(t *testing.T) {
	assert.Equal(t, "app-prod/deployment-web.yaml", ManifestFile(builder.ToUnstructured(builder.ForDeployment("app-prod", "web").Result())))
	assert.Equal(t, "_cluster/namespace-app-prod.yaml", ManifestFile(builder.ToUnstructured(builder.ForNamespace("app-prod").Result())))
}
