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

// Package validation holds the precondition checks run before a restore
// touches the target cluster or the GitOps repository. None of them have
// side effects.
package validation

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/kube"
)

// DefaultMinServerVersion is the oldest Kubernetes release restores are
// allowed to target.
const DefaultMinServerVersion = "v1.20.0"

// Validator runs the precondition checks of a restore.
type Validator struct {
	clusters         client.ClusterRegistry
	authorizer       auth.Authorizer
	minServerVersion string
	backoff          wait.Backoff
	log              logrus.FieldLogger
}

// NewValidator returns a Validator. An empty minServerVersion selects
// DefaultMinServerVersion.
func NewValidator(clusters client.ClusterRegistry, authorizer auth.Authorizer, minServerVersion string, log logrus.FieldLogger) *Validator {
	if minServerVersion == "" {
		minServerVersion = DefaultMinServerVersion
	}
	return &Validator{
		clusters:         clusters,
		authorizer:       authorizer,
		minServerVersion: minServerVersion,
		backoff: wait.Backoff{
			Duration: 100 * time.Millisecond,
			Factor:   2,
			Jitter:   0.1,
			Steps:    4,
		},
		log: log,
	}
}

// Clusters returns the names of the configured clusters.
func (v *Validator) Clusters() []string {
	return v.clusters.Clusters()
}

// ValidateClusterAccess checks that cluster is configured, that its API
// server answers and that it runs a supported Kubernetes version.
func (v *Validator) ValidateClusterAccess(ctx context.Context, cluster string) error {
	clients, err := v.clusters.ClientsFor(cluster)
	if err != nil {
		return restore.NewAccessError(cluster, "cluster is not reachable", err)
	}

	serverVersion, err := kube.ServerVersion(ctx, clients.Kube.Discovery())
	if err != nil {
		return restore.NewAccessError(cluster, "cluster is not reachable", err)
	}
	if !kube.IsVersionAtLeast(serverVersion, v.minServerVersion) {
		return restore.NewAccessError(cluster, "server version "+serverVersion+" is older than "+v.minServerVersion, nil)
	}

	v.log.WithFields(logrus.Fields{"cluster": cluster, "version": serverVersion}).Debug("Cluster is reachable")
	return nil
}

// ValidateGitOpsAccess lists the remote's references and checks that the
// configured branch exists.
func (v *Validator) ValidateGitOpsAccess(ctx context.Context, cfg *restorev1.GitOpsConfig) error {
	if cfg == nil || cfg.RepositoryURL == "" {
		return restore.NewAccessError("gitops repository", "no repository is configured", nil)
	}

	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{cfg.RepositoryURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: gitops.Auth(cfg)})
	if err != nil {
		return restore.NewAccessError(cfg.RepositoryURL, "repository is not reachable", err)
	}

	branch := plumbing.NewBranchReferenceName(cfg.Branch)
	for _, ref := range refs {
		if ref.Name() == branch {
			v.log.WithFields(logrus.Fields{"repository": cfg.RepositoryURL, "branch": cfg.Branch}).Debug("Repository is reachable")
			return nil
		}
	}
	return restore.NewAccessError(cfg.RepositoryURL, "branch "+cfg.Branch+" does not exist", nil)
}

