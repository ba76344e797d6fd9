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
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/utils/clock"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
	"github.com/walbis/tkkube/pkg/util/filesystem"
)

const (
	authorName  = "gitops-restore"
	authorEmail = "gitops-restore@localhost"
)

// WorkingTree is a checkout of the GitOps repository owned by one restore.
type WorkingTree struct {
	Dir    string
	Config *restorev1.GitOpsConfig

	repo *git.Repository
	fs   filesystem.Interface
}

// NewWorkingTree wraps an existing checkout at dir. repo may be nil when the
// tree is only written to, as in dry runs against a pre-populated directory.
func NewWorkingTree(dir string, cfg *restorev1.GitOpsConfig, repo *git.Repository, fs filesystem.Interface) *WorkingTree {
	return &WorkingTree{Dir: dir, Config: cfg, repo: repo, fs: fs}
}

// Repository writes restore manifests to a GitOps repository.
type Repository interface {
	// Clone checks out cfg's branch into dir, which must not exist yet.
	Clone(ctx context.Context, cfg *restorev1.GitOpsConfig, dir string) (*WorkingTree, error)
	// WriteManifests lays the manifests out in the tree and returns the
	// written paths relative to the tree root.
	WriteManifests(tree *WorkingTree, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) ([]string, error)
	// CommitAndPush commits every change in the tree and pushes it to the
	// origin branch, returning the commit hash.
	CommitAndPush(ctx context.Context, tree *WorkingTree, message string) (string, error)
}

type repository struct {
	fs    filesystem.Interface
	clock clock.PassiveClock
	log   logrus.FieldLogger

	depth int
}

// NewRepository returns a Repository backed by go-git.
func NewRepository(fs filesystem.Interface, log logrus.FieldLogger) Repository {
	return &repository{
		fs:    fs,
		clock: clock.RealClock{},
		log:   log,
		depth: 1,
	}
}

func (r *repository) Clone(ctx context.Context, cfg *restorev1.GitOpsConfig, dir string) (*WorkingTree, error) {
	log := r.log.WithFields(logrus.Fields{"repository": cfg.RepositoryURL, "branch": cfg.Branch})
	log.Info("Cloning GitOps repository")

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           cfg.RepositoryURL,
		Auth:          Auth(cfg),
		ReferenceName: plumbing.NewBranchReferenceName(cfg.Branch),
		SingleBranch:  true,
		Depth:         r.depth,
	})
	if err != nil {
		return nil, wrapTransportError(cfg.RepositoryURL, err, "error cloning repository")
	}

	log.WithField("dir", dir).Debug("Cloned GitOps repository")
	return NewWorkingTree(dir, cfg, repo, r.fs), nil
}

func (r *repository) CommitAndPush(ctx context.Context, tree *WorkingTree, message string) (string, error) {
	if tree.repo == nil {
		return "", errors.Errorf("working tree %s is not a git checkout", tree.Dir)
	}

	wt, err := tree.repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "error opening worktree")
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", errors.Wrap(err, "error staging manifests")
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  r.clock.Now(),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "error committing manifests")
	}

	branch := plumbing.NewBranchReferenceName(tree.Config.Branch)
	err = tree.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       Auth(tree.Config),
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("%s:%s", branch, branch))},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", wrapTransportError(tree.Config.RepositoryURL, err, "error pushing to "+tree.Config.Branch)
	}

	r.log.WithFields(logrus.Fields{"commit": hash.String(), "branch": tree.Config.Branch}).Info("Pushed restore manifests")
	return hash.String(), nil
}

// wrapTransportError turns credential and reachability failures into
// AccessErrors.
func wrapTransportError(url string, err error, msg string) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrRepositoryNotFound):
		return restore.NewAccessError(url, msg, err)
	default:
		return errors.Wrap(err, msg)
	}
}
