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

package engine

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/config"
	velerotest "github.com/walbis/tkkube/pkg/test"
)

func memoryConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.Provider = "memory"
	cfg.Storage.Bucket = "backups"
	cfg.GitOps.RepositoryURL = "https://git.example.com/dr.git"
	cfg.Clusters["dr"] = client.ClusterConfig{Kubeconfig: "/nonexistent/kubeconfig"}
	cfg.Restore.WorkDir = t.TempDir()
	return cfg
}

func TestNew(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Notifications.WebhookURL = "https://hooks.example.com/restore"

	e, err := New(cfg, Options{BaseName: "gitops-restore", LogLevel: logrus.InfoLevel}, velerotest.NewLogger())
	require.NoError(t, err)

	assert.Nil(t, e.KeyStore)
	assert.Equal(t, []string{"dr"}, e.Clusters.Clusters())

	caps := e.Orchestrator.GetCapabilities()
	assert.Equal(t, "https://git.example.com/dr.git", caps.GitOpsIntegration.Repository)
	assert.Equal(t, "main", caps.GitOpsIntegration.Branch)

	backups, err := e.BackupStore.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backups)

	assert.NoError(t, e.Close())
}

func TestNewWithAPIKeys(t *testing.T) {
	key, raw, err := auth.GenerateKey("ops", []string{"dr"}, []string{"*"})
	require.NoError(t, err)

	cfg := memoryConfig(t)
	cfg.API.Keys = []auth.APIKey{key}

	e, err := New(cfg, Options{}, velerotest.NewLogger())
	require.NoError(t, err)
	require.NotNil(t, e.KeyStore)

	name, err := e.KeyStore.Authenticate(raw)
	require.NoError(t, err)
	assert.Equal(t, "ops", name)
	assert.NoError(t, e.Close())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Bucket = ""

	_, err := New(cfg, Options{}, velerotest.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "storage.bucket is required")
}
