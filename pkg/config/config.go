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

// Package config loads the gitops-restore configuration file and the
// optional env file holding its secrets.
package config

import (
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubeerrs "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	restorev1 "github.com/walbis/tkkube/pkg/apis/restore/v1"
	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/persistence"
	"github.com/walbis/tkkube/pkg/validation"
	"github.com/walbis/tkkube/pkg/verification"
)

// Environment variables read after the env file has been loaded.
const (
	GitOpsTokenEnvVar = "GITOPS_TOKEN"
	APIKeysEnvVar     = "RESTORE_API_KEYS"
)

const (
	DefaultAPIAddress       = ":8080"
	DefaultMetricsAddress   = ":8085"
	DefaultRestoresPrefix   = "restores"
	DefaultHistoryRetention = 1000
)

type Config struct {
	Storage       StorageConfig                   `yaml:"storage"`
	GitOps        GitOpsConfig                    `yaml:"gitops"`
	Clusters      map[string]client.ClusterConfig `yaml:"clusters"`
	Restore       RestoreConfig                   `yaml:"restore"`
	API           APIConfig                       `yaml:"api"`
	Notifications NotificationsConfig             `yaml:"notifications"`
}

// StorageConfig locates the backup store.
type StorageConfig struct {
	Provider       string            `yaml:"provider"`
	Bucket         string            `yaml:"bucket"`
	Prefix         string            `yaml:"prefix"`
	RestoresPrefix string            `yaml:"restores_prefix"`
	Config         map[string]string `yaml:"config"`
}

// GitOpsConfig is the server-wide GitOps wiring. The token is only read
// from the environment.
type GitOpsConfig struct {
	RepositoryURL   string        `yaml:"repository_url"`
	Branch          string        `yaml:"branch"`
	Path            string        `yaml:"path"`
	Username        string        `yaml:"username"`
	AutoSync        *bool         `yaml:"auto_sync"`
	ArgoCDNamespace string        `yaml:"argocd_namespace"`
	ArgoCDProject   string        `yaml:"argocd_project"`
	SyncTimeout     time.Duration `yaml:"sync_timeout"`

	Token string `yaml:"-"`
}

type RestoreConfig struct {
	WorkDir          string        `yaml:"work_dir"`
	HistoryLimit     int           `yaml:"history_limit"`
	ReadyTimeout     time.Duration `yaml:"ready_timeout"`
	MinServerVersion string        `yaml:"min_server_version"`
}

type APIConfig struct {
	Address        string        `yaml:"address"`
	MetricsAddress string        `yaml:"metrics_address"`
	Keys           []auth.APIKey `yaml:"keys"`
}

type NotificationsConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	KafkaBrokers   []string      `yaml:"kafka_brokers"`
	KafkaTopic     string        `yaml:"kafka_topic"`
}

// Default returns a Config holding every default value.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			RestoresPrefix: DefaultRestoresPrefix,
		},
		GitOps: GitOpsConfig{
			Branch:          gitops.DefaultBranch,
			Path:            gitops.DefaultPath,
			ArgoCDNamespace: gitops.DefaultArgoCDNamespace,
			ArgoCDProject:   gitops.DefaultArgoCDProject,
			SyncTimeout:     gitops.DefaultSyncTimeout,
		},
		Clusters: map[string]client.ClusterConfig{},
		Restore: RestoreConfig{
			WorkDir:          filepath.Join(os.TempDir(), "gitops-restore"),
			HistoryLimit:     DefaultHistoryRetention,
			ReadyTimeout:     verification.DefaultReadyTimeout,
			MinServerVersion: validation.DefaultMinServerVersion,
		},
		API: APIConfig{
			Address:        DefaultAPIAddress,
			MetricsAddress: DefaultMetricsAddress,
		},
		Notifications: NotificationsConfig{
			WebhookTimeout: 10 * time.Second,
		},
	}
}

// Load reads the env file, if any, into the process environment and then
// decodes the config file, if any, over the defaults. Unknown keys in the
// config file are an error. The result is not validated.
func Load(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return nil, errors.Wrapf(err, "error loading environment from env file (%s)", envFile)
		}
	}

	cfg := Default()
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening config file %s", configFile)
		}
		defer f.Close()

		if err := decodeStrict(f, cfg); err != nil {
			return nil, errors.Wrapf(err, "error decoding config file %s", configFile)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeStrict rejects keys that do not exist in the target struct.
func decodeStrict(r io.Reader, out interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv(GitOpsTokenEnvVar); token != "" {
		c.GitOps.Token = token
	}

	keys, err := parseAPIKeys(os.Getenv(APIKeysEnvVar))
	if err != nil {
		return errors.Wrapf(err, "error parsing %s", APIKeysEnvVar)
	}
	c.API.Keys = append(c.API.Keys, keys...)
	return nil
}

// parseAPIKeys parses comma-separated "name:prefix:hash" entries. Keys
// from the environment may restore any scenario to any cluster.
func parseAPIKeys(value string) ([]auth.APIKey, error) {
	var keys []auth.APIKey
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, errors.Errorf("api key entry %q must have the form name:prefix:hash", entry)
		}
		keys = append(keys, auth.APIKey{
			Name:      parts[0],
			Prefix:    parts[1],
			Hash:      parts[2],
			Clusters:  []string{"*"},
			Scenarios: []string{"*"},
		})
	}
	return keys, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if !sets.New(persistence.Providers()...).Has(c.Storage.Provider) {
		errs = append(errs, errors.Errorf("storage.provider %q is invalid, valid providers are %v", c.Storage.Provider, persistence.Providers()))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}

	if c.GitOps.RepositoryURL == "" {
		errs = append(errs, errors.New("gitops.repository_url is required"))
	}
	if p := c.GitOps.Path; path.IsAbs(p) || strings.HasPrefix(path.Clean(p), "..") {
		errs = append(errs, errors.Errorf("gitops.path %q must stay inside the repository", p))
	}
	if c.GitOps.SyncTimeout < 0 {
		errs = append(errs, errors.New("gitops.sync_timeout must not be negative"))
	}

	if len(c.Clusters) == 0 {
		errs = append(errs, errors.New("at least one cluster must be configured"))
	}

	if c.Restore.WorkDir == "" {
		errs = append(errs, errors.New("restore.work_dir is required"))
	}
	if c.Restore.HistoryLimit < 0 {
		errs = append(errs, errors.New("restore.history_limit must not be negative"))
	}
	if c.Restore.ReadyTimeout < 0 {
		errs = append(errs, errors.New("restore.ready_timeout must not be negative"))
	}
	if v := c.Restore.MinServerVersion; v != "" && !semver.IsValid(v) {
		errs = append(errs, errors.Errorf("restore.min_server_version %q is not a semantic version", v))
	}

	if _, err := auth.NewKeyStore(c.API.Keys); err != nil {
		errs = append(errs, err)
	}

	if u := c.Notifications.WebhookURL; u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs = append(errs, errors.Errorf("notifications.webhook_url %q must be an http or https URL", u))
		}
	}
	if len(c.Notifications.KafkaBrokers) > 0 && c.Notifications.KafkaTopic == "" {
		errs = append(errs, errors.New("notifications.kafka_topic is required when kafka_brokers are set"))
	}

	return kubeerrs.NewAggregate(errs)
}

// GitOpsDefaults converts the GitOps section into the base configuration
// that requests override.
func (c *Config) GitOpsDefaults() *restorev1.GitOpsConfig {
	return &restorev1.GitOpsConfig{
		RepositoryURL:   c.GitOps.RepositoryURL,
		Branch:          c.GitOps.Branch,
		Path:            c.GitOps.Path,
		AutoSync:        c.GitOps.AutoSync,
		Username:        c.GitOps.Username,
		Token:           c.GitOps.Token,
		ArgoCDNamespace: c.GitOps.ArgoCDNamespace,
		ArgoCDProject:   c.GitOps.ArgoCDProject,
		SyncTimeout:     metav1.Duration{Duration: c.GitOps.SyncTimeout},
	}
}

// StorageLocation converts the storage section into a backup store location.
func (c *Config) StorageLocation() persistence.Location {
	return persistence.Location{
		Provider:       c.Storage.Provider,
		Bucket:         c.Storage.Bucket,
		Prefix:         c.Storage.Prefix,
		RestoresPrefix: c.Storage.RestoresPrefix,
		Config:         c.Storage.Config,
	}
}
