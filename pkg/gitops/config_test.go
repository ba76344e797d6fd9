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
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

func TestMergeConfig(t *testing.T) {
	base := &restorev1.GitOpsConfig{
		RepositoryURL: "https://git.example.com/org/fleet.git",
		Token:         "server-token",
	}

	got := MergeConfig(base, nil)
	assert.Equal(t, &restorev1.GitOpsConfig{
		RepositoryURL:   "https://git.example.com/org/fleet.git",
		Branch:          DefaultBranch,
		Path:            DefaultPath,
		Token:           "server-token",
		ArgoCDNamespace: DefaultArgoCDNamespace,
		ArgoCDProject:   DefaultArgoCDProject,
		SyncTimeout:     metav1.Duration{Duration: DefaultSyncTimeout},
	}, got)
	assert.True(t, got.AutoSyncEnabled())

	got = MergeConfig(base, &restorev1.GitOpsConfig{
		Branch:      "dr",
		AutoSync:    ptr.To(false),
		SyncTimeout: metav1.Duration{Duration: time.Minute},
	})
	assert.Equal(t, "https://git.example.com/org/fleet.git", got.RepositoryURL)
	assert.Equal(t, "dr", got.Branch)
	assert.False(t, got.AutoSyncEnabled())
	assert.Equal(t, time.Minute, got.SyncTimeout.Duration)

	// the base is left untouched
	assert.Empty(t, base.Branch)
}

func TestAuth(t *testing.T) {
	assert.Nil(t, Auth(nil))
	assert.Nil(t, Auth(&restorev1.GitOpsConfig{Username: "bot"}))

	auth, ok := Auth(&restorev1.GitOpsConfig{Token: "s3cr3t"}).(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "git", auth.Username)
	assert.Equal(t, "s3cr3t", auth.Password)

	auth, ok = Auth(&restorev1.GitOpsConfig{Username: "bot", Token: "s3cr3t"}).(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "bot", auth.Username)
}
