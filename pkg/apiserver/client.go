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

package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
)

// APIError is an error response returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
}

// Client reads restore state from a running API server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. token is sent as a
// bearer token when set.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// ListActiveRestores returns the restores the server is running.
func (c *Client) ListActiveRestores(ctx context.Context) ([]*restorev1.RestoreProgress, error) {
	var active []*restorev1.RestoreProgress
	if err := c.get(ctx, apiPrefix+"/restore", nil, &active); err != nil {
		return nil, err
	}
	return active, nil
}

// ListRestoreHistory returns the most recent finished restores, oldest first.
// A limit of zero leaves the count to the server.
func (c *Client) ListRestoreHistory(ctx context.Context, limit int) ([]restorev1.RestoreResult, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var history []restorev1.RestoreResult
	if err := c.get(ctx, apiPrefix+"/restore/history", query, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GetRestore returns the progress of an active restore or the result of a
// finished one.
func (c *Client) GetRestore(ctx context.Context, restoreID string) (*RestoreStatus, error) {
	status := new(RestoreStatus)
	if err := c.get(ctx, apiPrefix+"/restore/"+url.PathEscape(restoreID), nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *Error          `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		if res.StatusCode != http.StatusOK {
			return errors.Errorf("unexpected status %s", res.Status)
		}
		return errors.Wrapf(err, "error decoding response from %s", path)
	}

	if !envelope.Success {
		apiErr := &APIError{StatusCode: res.StatusCode}
		if envelope.Error != nil {
			apiErr.Code, apiErr.Message = envelope.Error.Code, envelope.Error.Message
		}
		return apiErr
	}

	if len(envelope.Data) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(envelope.Data, into), "error decoding data from %s", path)
}
