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
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

const (
	DefaultBranch          = "main"
	DefaultPath            = "clusters"
	DefaultArgoCDNamespace = "argocd"
	DefaultArgoCDProject   = "disaster-recovery"
	DefaultSyncTimeout     = 10 * time.Minute

	// defaultUsername is sent with token authentication when no username
	// is configured. Git hosts ignore it for token auth.
	defaultUsername = "git"
)

// MergeConfig returns the effective GitOps configuration of a request:
// fields set on override win over base, and unset fields take defaults.
// Neither argument is modified.
func MergeConfig(base, override *restorev1.GitOpsConfig) *restorev1.GitOpsConfig {
	out := &restorev1.GitOpsConfig{}
	if base != nil {
		*out = *base
	}

	if override != nil {
		if override.RepositoryURL != "" {
			out.RepositoryURL = override.RepositoryURL
		}
		if override.Branch != "" {
			out.Branch = override.Branch
		}
		if override.Path != "" {
			out.Path = override.Path
		}
		if override.AutoSync != nil {
			val := *override.AutoSync
			out.AutoSync = &val
		}
		if override.Username != "" {
			out.Username = override.Username
		}
		if override.Token != "" {
			out.Token = override.Token
		}
		if override.ArgoCDNamespace != "" {
			out.ArgoCDNamespace = override.ArgoCDNamespace
		}
		if override.ArgoCDProject != "" {
			out.ArgoCDProject = override.ArgoCDProject
		}
		if override.SyncTimeout.Duration > 0 {
			out.SyncTimeout = override.SyncTimeout
		}
	}

	if out.Branch == "" {
		out.Branch = DefaultBranch
	}
	if out.Path == "" {
		out.Path = DefaultPath
	}
	if out.ArgoCDNamespace == "" {
		out.ArgoCDNamespace = DefaultArgoCDNamespace
	}
	if out.ArgoCDProject == "" {
		out.ArgoCDProject = DefaultArgoCDProject
	}
	if out.SyncTimeout.Duration <= 0 {
		out.SyncTimeout = metav1.Duration{Duration: DefaultSyncTimeout}
	}

	return out
}

// Auth returns the transport credentials for cfg, or nil for anonymous access.
func Auth(cfg *restorev1.GitOpsConfig) transport.AuthMethod {
	if cfg == nil || cfg.Token == "" {
		return nil
	}
	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}
	return &http.BasicAuth{Username: username, Password: cfg.Token}
}
