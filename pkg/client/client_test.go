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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: horse-cluster
  cluster:
    server: https://horse.org:4443
    insecure-skip-tls-verify: true
- name: pig-cluster
  cluster:
    server: https://pig.org:443
    insecure-skip-tls-verify: true
users:
- name: green-user
  user:
    token: green
contexts:
- name: federal-context
  context:
    cluster: horse-cluster
    user: green-user
- name: queen-anne-context
  context:
    cluster: pig-cluster
    user: green-user
current-context: federal-context
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0600))
	return path
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

func TestBuildUserAgent(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		os       string
		arch     string
		gitSha   string
		version  string
		expected string
	}{
		{
			name:     "Test general interpolation in correct order",
			command:  "gitops-restore",
			os:       "darwin",
			arch:     "amd64",
			gitSha:   "abc123",
			version:  "v0.1.1",
			expected: "gitops-restore/v0.1.1 (darwin/amd64) abc123",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp := buildUserAgent(test.command, test.version, test.gitSha, test.os, test.arch)
			assert.Equal(t, test.expected, resp)
		})
	}
}

func TestConfig(t *testing.T) {
	kubeconfig := writeKubeconfig(t)

	tests := []struct {
		name          string
		kubecontext   string
		QPS           float32
		burst         int
		expectedHost  string
		expectedQPS   float32
		expectedBurst int
	}{
		{
			name:          "current context is used when none is given",
			QPS:           1.0,
			burst:         1,
			expectedHost:  "https://horse.org:4443",
			expectedQPS:   1.0,
			expectedBurst: 1,
		},
		{
			name:          "named context selects its cluster",
			kubecontext:   "queen-anne-context",
			QPS:           200.0,
			burst:         20,
			expectedHost:  "https://pig.org:443",
			expectedQPS:   200.0,
			expectedBurst: 20,
		},
		{
			name:          "unset limits get defaults",
			kubecontext:   "federal-context",
			expectedHost:  "https://horse.org:4443",
			expectedQPS:   defaultQPS,
			expectedBurst: defaultBurst,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, err := Config(kubeconfig, test.kubecontext, "gitops-restore", test.QPS, test.burst)
			require.NoError(t, err)
			assert.Equal(t, test.expectedHost, client.Host)
			assert.InDelta(t, test.expectedQPS, client.QPS, 0.01)
			assert.Equal(t, test.expectedBurst, client.Burst)
			assert.Contains(t, client.UserAgent, "gitops-restore/")
		})
	}
}

func TestConfigUnknownContext(t *testing.T) {
	_, err := Config(writeKubeconfig(t), "no-such-context", "gitops-restore", 0, 0)
	assert.Error(t, err)
}

func TestClusterRegistry(t *testing.T) {
	registry := NewClusterRegistry("gitops-restore", map[string]ClusterConfig{
		"prod": {Kubeconfig: writeKubeconfig(t), Context: "federal-context"},
		"dr":   {Kubeconfig: writeKubeconfig(t), Context: "queen-anne-context"},
	}, discardLogger())

	assert.Equal(t, []string{"dr", "prod"}, registry.Clusters())

	_, err := registry.ClientsFor("staging")
	assert.EqualError(t, err, `cluster "staging" is not configured`)
}

func TestStaticClusterRegistry(t *testing.T) {
	prod := &ClusterClients{Name: "prod"}
	registry := NewStaticClusterRegistry(prod)

	got, err := registry.ClientsFor("prod")
	require.NoError(t, err)
	assert.Same(t, prod, got)
	assert.Equal(t, []string{"prod"}, registry.Clusters())

	_, err = registry.ClientsFor("dr")
	assert.Error(t, err)
}
