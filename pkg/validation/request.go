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

package validation

import (
	"path"
	"strings"

	"github.com/pkg/errors"
	kubeerrs "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	k8svalidation "k8s.io/apimachinery/pkg/util/validation"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/restore"
)

// ValidateRequest checks the fields of a restore request. Every problem is
// reported, aggregated into one error.
func ValidateRequest(req *restorev1.RestoreRequest) error {
	if req == nil {
		return errors.New("restore request is required")
	}

	var errs []error
	if req.RestoreID == "" {
		errs = append(errs, errors.New("restore_id is required"))
	} else if msgs := k8svalidation.IsDNS1123Label(req.RestoreID); len(msgs) > 0 {
		// the id names the scratch dir and the Application, and is a label value
		errs = append(errs, errors.Errorf("invalid restore_id %q: %s", req.RestoreID, strings.Join(msgs, "; ")))
	}
	if req.BackupID == "" {
		errs = append(errs, errors.New("backup_id is required"))
	}
	if req.TargetCluster == "" {
		errs = append(errs, errors.New("target_cluster is required"))
	}

	if !sets.New(restorev1.RestoreModes()...).Has(req.RestoreMode) {
		errs = append(errs, errors.Errorf("unsupported restore_mode %q", req.RestoreMode))
	}
	if !sets.New(restorev1.DRScenarios()...).Has(req.DRScenario) {
		errs = append(errs, errors.Errorf("unsupported dr_scenario %q", req.DRScenario))
	}

	errs = append(errs, ValidateTargetNamespaces(req.TargetNamespaces)...)
	errs = append(errs, restore.ValidateFilters(req.ResourceFilters)...)

	if cfg := req.GitOpsConfig; cfg != nil && cfg.Path != "" {
		if path.IsAbs(cfg.Path) || strings.HasPrefix(path.Clean(cfg.Path), "..") {
			errs = append(errs, errors.Errorf("gitops path %q must stay inside the repository", cfg.Path))
		}
	}

	if vc := req.ValidationConfig; vc != nil && vc.FunctionalTesting {
		for i, t := range vc.FunctionalTests {
			if t.Name == "" || t.Kind == "" || t.ObjectName == "" || t.Expression == "" {
				errs = append(errs, errors.Errorf("functional test %d needs a name, kind, object_name and expression", i))
			}
		}
	}

	return kubeerrs.NewAggregate(errs)
}

// ValidateTargetNamespaces checks that every target namespace is a valid
// DNS-1123 label.
func ValidateTargetNamespaces(namespaces []string) []error {
	var errs []error
	for _, ns := range namespaces {
		if msgs := k8svalidation.IsDNS1123Label(ns); len(msgs) > 0 {
			errs = append(errs, errors.Errorf("invalid target namespace %q: %s", ns, strings.Join(msgs, "; ")))
		}
	}
	return errs
}
