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
package client

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
)

// MinuteBackoff is a retry.DefaultBackoff that retries for at least a minute (60000ms) but no more than 2 minutes (120000ms).
var MinuteBackoff = func() wait.Backoff {
	mb := retry.DefaultBackoff
	// TotalDuration = 0ms + 10ms + 50ms + 250ms + 1250ms + 6250ms + 31250ms + 60000ms = 99,060 ms > 1 minute
	// 7 steps
	mb.Steps = 7
	mb.Cap = time.Minute
	return mb
}()

type GetFunc func(ctx context.Context, name string) (*unstructured.Unstructured, error)

func GetFuncForDynamicClient(client Dynamic, getOptions metav1.GetOptions) GetFunc {
	return func(ctx context.Context, name string) (*unstructured.Unstructured, error) {
		return client.Get(ctx, name, getOptions)
	}
}

// GetRetriable calls getFuncIn until it succeeds, returns an error retriable
// rejects, or backoff is exhausted.
func GetRetriable(ctx context.Context, getFuncIn GetFunc, name string, backoff wait.Backoff, retriable func(error) bool) (*unstructured.Unstructured, error) {
	var clusterObj *unstructured.Unstructured
	getFunc := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		clusterObj, err = getFuncIn(ctx, name)
		return err
	}
	err := retry.OnError(backoff, retriable, getFunc)
	return clusterObj, err
}

// IsRetriableAPIError reports whether err is a transient API server failure.
func IsRetriableAPIError(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err)
}
