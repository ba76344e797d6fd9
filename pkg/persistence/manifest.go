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

package persistence

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

// backupManifest is the document the backup executor writes next to the
// resource files of a backup.
type backupManifest struct {
	Timestamp  string                 `json:"timestamp"`
	Cluster    string                 `json:"cluster"`
	Namespace  string                 `json:"namespace,omitempty"`
	Resources  map[string]int         `json:"resources"`
	Files      []string               `json:"files,omitempty"`
	TotalSize  int64                  `json:"totalSize"`
	BackupPath string                 `json:"backupPath,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// clusterScopedDir holds the resource files of cluster-scoped resources.
const clusterScopedDir = "_cluster"

type resourceType struct {
	resource string
	gvk      schema.GroupVersionKind
}

// resourceFiles maps the base name of a resource file to the type of the
// objects it holds. Backups written by the executor omit apiVersion and kind.
var resourceFiles = map[string]resourceType{
	"deployments":            {"deployments", schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}},
	"statefulsets":           {"statefulsets", schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "StatefulSet"}},
	"daemonsets":             {"daemonsets", schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "DaemonSet"}},
	"services":               {"services", schema.GroupVersionKind{Version: "v1", Kind: "Service"}},
	"configmaps":             {"configmaps", schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}},
	"secrets":                {"secrets", schema.GroupVersionKind{Version: "v1", Kind: "Secret"}},
	"serviceaccounts":        {"serviceaccounts", schema.GroupVersionKind{Version: "v1", Kind: "ServiceAccount"}},
	"pvcs":                   {"persistentvolumeclaims", schema.GroupVersionKind{Version: "v1", Kind: "PersistentVolumeClaim"}},
	"persistentvolumeclaims": {"persistentvolumeclaims", schema.GroupVersionKind{Version: "v1", Kind: "PersistentVolumeClaim"}},
	"jobs":                   {"jobs", schema.GroupVersionKind{Group: "batch", Version: "v1", Kind: "Job"}},
	"cronjobs":               {"cronjobs", schema.GroupVersionKind{Group: "batch", Version: "v1", Kind: "CronJob"}},
	"ingresses":              {"ingresses", schema.GroupVersionKind{Group: "networking.k8s.io", Version: "v1", Kind: "Ingress"}},
	"namespaces":             {"namespaces", schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}},
}

// normalizeResource maps a resource file or count key onto the plural
// resource name, e.g. "pvcs" to "persistentvolumeclaims".
func normalizeResource(name string) string {
	name = strings.ToLower(name)
	if t, ok := resourceFiles[name]; ok {
		return t.resource
	}
	return name
}

func decodeBackupManifest(backupID string, data []byte) (*restorev1.BackupMetadata, error) {
	manifest := new(backupManifest)
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, errors.Wrapf(err, "error decoding manifest of backup %s", backupID)
	}

	metadata := &restorev1.BackupMetadata{
		BackupID:       backupID,
		ClusterName:    manifest.Cluster,
		ResourceCounts: make(map[string]int, len(manifest.Resources)),
		SizeBytes:      manifest.TotalSize,
	}

	if manifest.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, manifest.Timestamp)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing timestamp of backup %s", backupID)
		}
		metadata.Timestamp = ts
	}

	if version, ok := manifest.Metadata["version"].(string); ok {
		metadata.Version = version
	}

	for key, count := range manifest.Resources {
		ns, resource := "", key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			ns, resource = key[:i], key[i+1:]
		} else if manifest.Namespace != "" && normalizeResource(key) != "namespaces" {
			ns = manifest.Namespace
		}
		resource = normalizeResource(resource)
		if ns != "" {
			resource = ns + "/" + resource
		}
		metadata.ResourceCounts[resource] += count
	}

	for _, file := range manifest.Files {
		if manifest.Namespace != "" && !strings.Contains(file, "/") {
			file = path.Join(manifest.Namespace, file)
		}
		metadata.Files = append(metadata.Files, file)
	}
	sort.Strings(metadata.Files)

	return metadata, nil
}

// isResourceFile returns true for keys holding serialized resources.
func isResourceFile(key string) bool {
	if path.Base(key) == BackupManifestFile {
		return false
	}
	switch path.Ext(key) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// decodeResourceFile decodes a resource file, which holds either a YAML
// sequence of objects, a v1 List, or one or more YAML documents. relPath is
// the key relative to the backup directory and is used to infer the type
// and namespace of objects that do not carry them.
func decodeResourceFile(relPath string, r io.Reader) ([]*unstructured.Unstructured, error) {
	base := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	inferred, known := resourceFiles[strings.ToLower(base)]

	dir := path.Dir(relPath)
	namespace := ""
	if dir != "." && dir != clusterScopedDir && !strings.Contains(dir, "/") {
		namespace = dir
	}

	var items []*unstructured.Unstructured
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))
	for {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", relPath)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		jsonData, err := yaml.YAMLToJSON(doc)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding %s", relPath)
		}

		objs, err := decodeObjects(jsonData)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding %s", relPath)
		}
		items = append(items, objs...)
	}

	for _, obj := range items {
		if known && obj.GetKind() == "" {
			obj.SetAPIVersion(inferred.gvk.GroupVersion().String())
			obj.SetKind(inferred.gvk.Kind)
		}
		if namespace != "" && obj.GetNamespace() == "" && obj.GetKind() != "Namespace" {
			obj.SetNamespace(namespace)
		}
	}

	return items, nil
}

func decodeObjects(jsonData []byte) ([]*unstructured.Unstructured, error) {
	jsonData = bytes.TrimSpace(jsonData)
	if len(jsonData) == 0 || bytes.Equal(jsonData, []byte("null")) {
		return nil, nil
	}

	if jsonData[0] == '[' {
		var list []map[string]interface{}
		if err := json.Unmarshal(jsonData, &list); err != nil {
			return nil, errors.WithStack(err)
		}
		out := make([]*unstructured.Unstructured, 0, len(list))
		for _, item := range list {
			out = append(out, &unstructured.Unstructured{Object: item})
		}
		return out, nil
	}

	// Unstructured.UnmarshalJSON requires a kind, which backups written
	// without type information lack.
	var content map[string]interface{}
	if err := json.Unmarshal(jsonData, &content); err != nil {
		return nil, errors.WithStack(err)
	}
	obj := &unstructured.Unstructured{Object: content}

	if obj.IsList() {
		list, err := obj.ToList()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out := make([]*unstructured.Unstructured, 0, len(list.Items))
		for i := range list.Items {
			out = append(out, &list.Items[i])
		}
		return out, nil
	}

	return []*unstructured.Unstructured{obj}, nil
}
