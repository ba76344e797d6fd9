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

package restore

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/builder"
	"github.com/walbis/tkkube/pkg/cmd/util/flag"
	"github.com/walbis/tkkube/pkg/validation"
)

// RequestOptions are the flags describing a restore request. They are
// shared by run, plan and validate.
type RequestOptions struct {
	RestoreID         string
	BackupID          string
	SourceCluster     string
	TargetCluster     string
	Mode              *flag.Enum
	Scenario          *flag.Enum
	TargetNamespaces  flag.StringArray
	IncludeNamespaces flag.StringArray
	ExcludeNamespaces flag.StringArray
	IncludeResources  flag.StringArray
	ExcludeResources  flag.StringArray
	Selector          flag.Map
	AutoSync          flag.OptionalBool
	Branch            string
	Path              string

	SkipClusterValidation  bool
	SkipResourceValidation bool
	ReadyTimeout           time.Duration
	FunctionalTestsFile    string
	DryRun                 bool
}

func NewRequestOptions() *RequestOptions {
	return &RequestOptions{
		Mode:     flag.NewEnumOf(restorev1.RestoreModeFullCluster, restorev1.RestoreModes()...),
		Scenario: flag.NewEnumOf(restorev1.DRScenarioClusterRebuild, restorev1.DRScenarios()...),
		Selector: flag.NewLabelMap(),
		AutoSync: flag.NewOptionalBool(nil),
	}
}

func (o *RequestOptions) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.BackupID, "backup", "", "Backup to restore from.")
	flags.StringVar(&o.SourceCluster, "source-cluster", "", "Cluster the backup was taken from. Defaults to the cluster recorded in the backup.")
	flags.StringVar(&o.TargetCluster, "target-cluster", "", "Cluster to restore into.")
	flags.Var(o.Mode, "mode", fmt.Sprintf("How much of the backup to restore. Valid values are %s.", strings.Join(o.Mode.AllowedValues(), ", ")))
	flags.Var(o.Scenario, "scenario", fmt.Sprintf("Disaster recovery scenario being handled. Valid values are %s.", strings.Join(o.Scenario.AllowedValues(), ", ")))
	flags.Var(&o.TargetNamespaces, "target-namespace", "Namespace to restore namespaced resources into. Only one is supported.")
	flags.Var(&o.IncludeNamespaces, "include-namespaces", "Namespaces to include in the restore. Glob patterns are allowed.")
	flags.Var(&o.ExcludeNamespaces, "exclude-namespaces", "Namespaces to exclude from the restore.")
	flags.Var(&o.IncludeResources, "include-resources", "Resources to include in the restore, as plural lowercase names such as deployments.")
	flags.Var(&o.ExcludeResources, "exclude-resources", "Resources to exclude from the restore.")
	flags.VarP(&o.Selector, "selector", "l", "Only restore resources carrying all of these labels, as key=value pairs.")
	f := flags.VarPF(&o.AutoSync, "auto-sync", "", "Whether to trigger the GitOps controller after pushing. Defaults to the server configuration.")
	f.NoOptDefVal = "true"
	flags.StringVar(&o.Branch, "branch", "", "Git branch to push to, overriding the configured one.")
	flags.StringVar(&o.Path, "path", "", "Directory inside the repository holding per-cluster manifests, overriding the configured one.")
	flags.BoolVar(&o.SkipClusterValidation, "skip-cluster-validation", false, "Do not check access to the target cluster before restoring.")
	flags.BoolVar(&o.SkipResourceValidation, "skip-resource-validation", false, "Do not wait for restored resources to become ready.")
	flags.DurationVar(&o.ReadyTimeout, "ready-timeout", 0, "How long to wait for restored resources to become ready. Defaults to the server setting.")
	flags.StringVar(&o.FunctionalTestsFile, "functional-tests", "", "YAML file listing functional tests to run after the restore.")
	flags.BoolVar(&o.DryRun, "dry-run", false, "Plan, validate and transform without pushing to the repository.")
}

// Complete takes the restore id from args, generating one if none is given.
func (o *RequestOptions) Complete(args []string) {
	if len(args) > 0 {
		o.RestoreID = args[0]
	}
	if o.RestoreID == "" {
		o.RestoreID = "restore-" + uuid.NewString()
	}
}

// BuildRequest turns the flags into a validated request.
func (o *RequestOptions) BuildRequest() (*restorev1.RestoreRequest, error) {
	b := builder.ForRestoreRequest(o.RestoreID, o.BackupID).
		Clusters(o.SourceCluster, o.TargetCluster).
		Mode(restorev1.RestoreMode(o.Mode.String())).
		Scenario(restorev1.DRScenario(o.Scenario.String())).
		TargetNamespaces(o.TargetNamespaces...).
		Checks(!o.SkipClusterValidation, !o.SkipResourceValidation).
		DryRun(o.DryRun)

	if len(o.IncludeNamespaces) > 0 {
		b.IncludedNamespaces(o.IncludeNamespaces...)
	}
	if len(o.ExcludeNamespaces) > 0 {
		b.ExcludedNamespaces(o.ExcludeNamespaces...)
	}
	if len(o.IncludeResources) > 0 {
		b.IncludedResources(o.IncludeResources...)
	}
	if len(o.ExcludeResources) > 0 {
		b.ExcludedResources(o.ExcludeResources...)
	}
	if labels := o.Selector.Data(); labels != nil {
		b.LabelSelector(labels)
	}

	if o.Branch != "" || o.Path != "" {
		b.GitOps(&restorev1.GitOpsConfig{Branch: o.Branch, Path: o.Path})
	}
	if o.AutoSync.Value != nil {
		b.AutoSync(*o.AutoSync.Value)
	}

	if o.ReadyTimeout > 0 {
		if o.SkipResourceValidation {
			return nil, errors.New("--ready-timeout cannot be combined with --skip-resource-validation")
		}
		b.ReadyTimeout(o.ReadyTimeout)
	}

	if o.FunctionalTestsFile != "" {
		tests, err := readFunctionalTests(o.FunctionalTestsFile)
		if err != nil {
			return nil, err
		}
		b.FunctionalTests(tests...)
	}

	req := b.Result()
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func readFunctionalTests(path string) ([]restorev1.FunctionalTest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading functional tests")
	}

	var tests []restorev1.FunctionalTest
	if err := yaml.UnmarshalStrict(data, &tests); err != nil {
		return nil, errors.Wrapf(err, "error decoding functional tests from %s", path)
	}
	if len(tests) == 0 {
		return nil, errors.Errorf("%s lists no functional tests", path)
	}
	return tests, nil
}
