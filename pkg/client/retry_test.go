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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/util/retry"
)

func TestGetRetriable(t *testing.T) {
	tests := []struct {
		name       string
		errToRetry error
		retriable  func(error) bool
		wantTries  int
		wantErr    bool
	}{
		{
			name:       "retries on not found",
			errToRetry: apierrors.NewNotFound(schema.GroupResource{}, ""),
			retriable:  apierrors.IsNotFound,
			wantTries:  3,
		},
		{
			name:       "retries transient server errors",
			errToRetry: apierrors.NewServiceUnavailable("busy"),
			retriable:  IsRetriableAPIError,
			wantTries:  3,
		},
		{
			name:       "stops on errors that are not retriable",
			errToRetry: apierrors.NewForbidden(schema.GroupResource{Resource: "deployments"}, "web", nil),
			retriable:  IsRetriableAPIError,
			wantTries:  1,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := &unstructured.Unstructured{}
			tries := 0
			get := func(_ context.Context, name string) (*unstructured.Unstructured, error) {
				tries++
				if tries < 3 {
					return nil, tt.errToRetry
				}
				return want, nil
			}

			got, err := GetRetriable(context.Background(), get, "foo", retry.DefaultRetry, tt.retriable)
			assert.Equal(t, tt.wantTries, tries)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, want, got)
		})
	}
}

func TestGetRetriableStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := GetRetriable(ctx, func(context.Context, string) (*unstructured.Unstructured, error) {
		called = true
		return nil, nil
	}, "foo", retry.DefaultRetry, IsRetriableAPIError)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
