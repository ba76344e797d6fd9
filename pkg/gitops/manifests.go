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
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
)

const (
	clusterScopedDir  = "_cluster"
	kustomizationFile = "kustomization.yaml"
	applicationsDir   = "applications"
)

type kustomization struct {
	APIVersion string   `json:"apiVersion"`
	Kind       string   `json:"kind"`
	Resources  []string `json:"resources"`
}

// RestoreDir returns the repository-relative directory holding a restore's
// manifests.
func RestoreDir(cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest) string {
	return path.Join(cfg.Path, req.TargetCluster, "restore-"+req.RestoreID)
}

// ApplicationFile returns the repository-relative path of a restore's
// Argo CD Application manifest.
func ApplicationFile(cfg *restorev1.GitOpsConfig, req *restorev1.RestoreRequest) string {
	return path.Join(cfg.Path, req.TargetCluster, applicationsDir, ApplicationName(req.RestoreID)+".yaml")
}

// ManifestFile returns the path of obj relative to the restore directory.
func ManifestFile(obj *unstructured.Unstructured) string {
	dir := obj.GetNamespace()
	if dir == "" {
		dir = clusterScopedDir
	}
	return path.Join(dir, strings.ToLower(obj.GetKind())+"-"+obj.GetName()+".yaml")
}

func (r *repository) WriteManifests(tree *WorkingTree, req *restorev1.RestoreRequest, manifests []*unstructured.Unstructured) ([]string, error) {
	restoreDir := RestoreDir(tree.Config, req)
	absRestoreDir := filepath.Join(tree.Dir, filepath.FromSlash(restoreDir))

	// a rerun of the same restore replaces its previous output
	if err := tree.fs.RemoveAll(absRestoreDir); err != nil {
		return nil, errors.Wrapf(err, "error clearing %s", restoreDir)
	}

	files := make(map[string]*unstructured.Unstructured, len(manifests))
	for _, obj := range manifests {
		if err := restore.ValidateManifest(obj); err != nil {
			return nil, err
		}
		file := ManifestFile(obj)
		if _, ok := files[file]; ok {
			return nil, errors.WithStack(&restore.ManifestInvalidError{
				Resource: obj.GetKind() + " " + obj.GetName(),
				Reason:   "more than one manifest maps to " + file,
			})
		}
		files[file] = obj
	}

	resources := make([]string, 0, len(files))
	for file := range files {
		resources = append(resources, file)
	}
	sort.Strings(resources)

	var written []string
	for _, file := range resources {
		data, err := yaml.Marshal(files[file].Object)
		if err != nil {
			return nil, errors.Wrapf(err, "error encoding %s", file)
		}
		if err := writeFile(tree, path.Join(restoreDir, file), data); err != nil {
			return nil, err
		}
		written = append(written, path.Join(restoreDir, file))
	}

	data, err := yaml.Marshal(&kustomization{
		APIVersion: "kustomize.config.k8s.io/v1beta1",
		Kind:       "Kustomization",
		Resources:  resources,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error encoding kustomization")
	}
	if err := writeFile(tree, path.Join(restoreDir, kustomizationFile), data); err != nil {
		return nil, err
	}
	written = append(written, path.Join(restoreDir, kustomizationFile))

	data, err = yaml.Marshal(NewApplication(tree.Config, req).Object)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding application")
	}
	appFile := ApplicationFile(tree.Config, req)
	if err := writeFile(tree, appFile, data); err != nil {
		return nil, err
	}
	written = append(written, appFile)

	r.log.WithFields(logrus.Fields{
		"restore": req.RestoreID,
		"dir":     restoreDir,
		"files":   len(written),
	}).Info("Wrote restore manifests")

	return written, nil
}

func writeFile(tree *WorkingTree, relPath string, data []byte) error {
	abs := filepath.Join(tree.Dir, filepath.FromSlash(relPath))
	if err := tree.fs.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return errors.Wrapf(err, "error creating directory for %s", relPath)
	}
	if err := tree.fs.WriteFile(abs, data, 0644); err != nil {
		return errors.Wrapf(err, "error writing %s", relPath)
	}
	return nil
}
