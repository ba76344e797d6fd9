/*
Copyright 2017 the Velero contributors.

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

package kube

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
	corev1api "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/discovery"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"
)

// NamespaceAndName returns a string in the format <namespace>/<name>
func NamespaceAndName(objMeta metav1.Object) string {
	if objMeta.GetNamespace() == "" {
		return objMeta.GetName()
	}
	return fmt.Sprintf("%s/%s", objMeta.GetNamespace(), objMeta.GetName())
}

// EnsureNamespaceExists attempts to create the provided Kubernetes namespace. It returns two values:
// a bool indicating whether or not the namespace was created, and an error if the create failed
// for a reason other than that the namespace already exists. Note that in the case where the
// namespace already exists, this function will return (false, nil).
func EnsureNamespaceExists(ctx context.Context, namespace *corev1api.Namespace, client corev1client.NamespaceInterface) (bool, error) {
	if _, err := client.Create(ctx, namespace, metav1.CreateOptions{}); err == nil {
		return true, nil
	} else if apierrors.IsAlreadyExists(err) {
		return false, nil
	} else {
		return false, errors.Wrapf(err, "error creating namespace %s", namespace.Name)
	}
}

// ServerVersion returns the server's git version in canonical semver form,
// e.g. "v1.29.3". Distribution suffixes such as "+k3s1" are dropped.
// It returns when ctx is done even if the discovery call has not.
func ServerVersion(ctx context.Context, client discovery.ServerVersionInterface) (string, error) {
	type result struct {
		info *version.Info
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := client.ServerVersion()
		done <- result{info: info, err: err}
	}()

	var versionInfo *version.Info
	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "error getting server version")
	case res := <-done:
		if res.err != nil {
			return "", errors.Wrap(res.err, "error getting server version")
		}
		versionInfo = res.info
	}

	gitVersion := versionInfo.GitVersion
	if !strings.HasPrefix(gitVersion, "v") {
		gitVersion = "v" + gitVersion
	}
	canonical := semver.Canonical(gitVersion)
	if canonical == "" {
		return "", errors.Errorf("error parsing server version %q", versionInfo.GitVersion)
	}
	// Canonical keeps prerelease tags but drops build metadata.
	return canonical, nil
}

// IsVersionAtLeast compares two semver strings.
func IsVersionAtLeast(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	return semver.Compare(version, minimum) >= 0
}
