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

package verification

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/runtime/schema"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

// RunFunctionalTests evaluates each configured CEL expression against its
// live object, bound as "object". Expressions that fail to compile, do not
// yield a bool or evaluate to false are failed tests. Only API failures are
// returned as errors.
func (v *Verifier) RunFunctionalTests(ctx context.Context, req *restorev1.RestoreRequest) ([]restorev1.FunctionalTestResult, error) {
	if req.ValidationConfig == nil || len(req.ValidationConfig.FunctionalTests) == 0 {
		return nil, nil
	}

	getter, err := v.getter(req.TargetCluster)
	if err != nil {
		return nil, err
	}

	env, err := cel.NewEnv(cel.Variable("object", cel.DynType))
	if err != nil {
		return nil, errors.Wrap(err, "error creating CEL environment")
	}

	results := make([]restorev1.FunctionalTestResult, 0, len(req.ValidationConfig.FunctionalTests))
	for _, test := range req.ValidationConfig.FunctionalTests {
		result := restorev1.FunctionalTestResult{Name: test.Name}

		gv, err := schema.ParseGroupVersion(test.APIVersion)
		if err != nil {
			result.Message = fmt.Sprintf("invalid api_version %q", test.APIVersion)
			results = append(results, result)
			continue
		}

		live, err := getter.get(ctx, gv.WithKind(test.Kind), test.Namespace, test.ObjectName)
		if err != nil {
			return nil, err
		}
		if live == nil {
			result.Message = fmt.Sprintf("%s %s not found", test.Kind, test.ObjectName)
			results = append(results, result)
			continue
		}

		result.Passed, result.Message = evaluate(env, test.Expression, live.Object)
		results = append(results, result)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	v.log.WithFields(logrus.Fields{"restore": req.RestoreID, "tests": len(results), "failed": failed}).Info("Ran functional tests")
	return results, nil
}

func evaluate(env *cel.Env, expression string, obj map[string]interface{}) (bool, string) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, "compile error: " + issues.Err().Error()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return false, "program error: " + err.Error()
	}

	out, _, err := prg.Eval(map[string]interface{}{"object": obj})
	if err != nil {
		return false, "evaluation error: " + err.Error()
	}
	if out.Type() != types.BoolType {
		return false, fmt.Sprintf("expression returned %s, expected bool", out.Type())
	}
	if !out.Value().(bool) {
		return false, "expression evaluated to false"
	}
	return true, ""
}
