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

package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/walbis/tkkube/pkg/buildinfo"
)

var fipsEnabled bool

func NewCommand() *cobra.Command {
	var (
		server  string
		timeout = 5 * time.Second
	)

	c := &cobra.Command{
		Use:   "version",
		Short: "Print the gitops-restore version",
		Run: func(c *cobra.Command, args []string) {
			printVersion(c.Context(), c.OutOrStdout(), http.DefaultClient, server, timeout)
		},
	}

	c.Flags().StringVar(&server, "server", server, "Base URL of a running restore API server whose version should also be printed, e.g. http://localhost:8080.")
	c.Flags().DurationVar(&timeout, "timeout", timeout, "Maximum time to wait for the server version")

	return c
}

func printVersion(ctx context.Context, w io.Writer, client *http.Client, server string, timeout time.Duration) {
	fmt.Fprintln(w, "Client:")
	fmt.Fprintf(w, "\tVersion: %s\n", buildinfo.ReportedVersion())
	fmt.Fprintf(w, "\tGit commit: %s\n", buildinfo.FormattedGitSHA())
	fmt.Fprintf(w, "\tGo version: %s\n", buildinfo.GoVersion())
	if fipsEnabled {
		fmt.Fprintln(w, "\tFIPS: enabled")
	}

	if server == "" {
		return
	}

	version, err := serverVersion(ctx, client, server, timeout)
	if err != nil {
		fmt.Fprintf(w, "<error getting server version: %s>\n", err)
		return
	}

	fmt.Fprintln(w, "Server:")
	fmt.Fprintf(w, "\tVersion: %s\n", version)
}

// serverVersion reads the version from the server's unauthenticated
// health endpoint.
func serverVersion(ctx context.Context, client *http.Client, server string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(server, "/")+"/healthz", nil)
	if err != nil {
		return "", errors.WithStack(err)
	}

	res, err := client.Do(req)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %s", res.Status)
	}

	var body struct {
		Data struct {
			Version string `json:"version"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "error decoding health response")
	}
	if body.Data.Version == "" {
		return "", errors.New("server did not report a version")
	}
	return body.Data.Version, nil
}
