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

// Package engine assembles an orchestrator and its collaborators from a
// configuration.
package engine

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	kubeerrs "k8s.io/apimachinery/pkg/util/errors"

	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/client"
	"github.com/walbis/tkkube/pkg/config"
	"github.com/walbis/tkkube/pkg/gitops"
	"github.com/walbis/tkkube/pkg/metrics"
	"github.com/walbis/tkkube/pkg/notify"
	"github.com/walbis/tkkube/pkg/orchestrator"
	"github.com/walbis/tkkube/pkg/persistence"
	"github.com/walbis/tkkube/pkg/util/filesystem"
	"github.com/walbis/tkkube/pkg/util/logging"
	"github.com/walbis/tkkube/pkg/validation"
	"github.com/walbis/tkkube/pkg/verification"
)

// Engine holds everything a restore needs.
type Engine struct {
	Orchestrator *orchestrator.Orchestrator
	BackupStore  persistence.BackupStore
	Validator    *validation.Validator
	Clusters     client.ClusterRegistry
	Metrics      *metrics.ServerMetrics

	// KeyStore is nil when no API keys are configured.
	KeyStore *auth.KeyStore

	closers []io.Closer
}

// Options tune the per-restore logs.
type Options struct {
	BaseName  string
	LogLevel  logrus.Level
	LogFormat logging.Format
}

// New validates cfg and builds an Engine from it.
func New(cfg *config.Config, opts Options, logger logrus.FieldLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	backupStore, err := persistence.NewObjectBackupStore(cfg.StorageLocation(), persistence.NewObjectStoreGetter(logger), logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		BackupStore: backupStore,
		Clusters:    client.NewClusterRegistry(opts.BaseName, cfg.Clusters, logger),
		Metrics:     metrics.NewServerMetrics(),
	}

	var authorizer auth.Authorizer = auth.AllowAll()
	if len(cfg.API.Keys) > 0 {
		if e.KeyStore, err = auth.NewKeyStore(cfg.API.Keys); err != nil {
			return nil, err
		}
		authorizer = e.KeyStore
	}

	notifier, err := e.notifier(cfg.Notifications, logger)
	if err != nil {
		return nil, err
	}

	e.Validator = validation.NewValidator(e.Clusters, authorizer, cfg.Restore.MinServerVersion, logger)
	fs := filesystem.NewFileSystem()

	e.Orchestrator = orchestrator.New(
		orchestrator.Config{
			WorkDir:          cfg.Restore.WorkDir,
			GitOps:           cfg.GitOpsDefaults(),
			HistoryRetention: cfg.Restore.HistoryLimit,
			LogLevel:         opts.LogLevel,
			LogFormat:        opts.LogFormat,
		},
		orchestrator.Dependencies{
			BackupStore:    backupStore,
			Validator:      e.Validator,
			Repository:     gitops.NewRepository(fs, logger),
			SyncController: gitops.NewArgoCD(e.Clusters, logger),
			Verifier:       verification.NewVerifier(e.Clusters, cfg.Restore.ReadyTimeout, logger),
			Authorizer:     authorizer,
			Clusters:       e.Clusters,
			Notifier:       notifier,
			Metrics:        e.Metrics,
			FileSystem:     fs,
		},
		logger,
	)

	return e, nil
}

func (e *Engine) notifier(cfg config.NotificationsConfig, logger logrus.FieldLogger) (notify.Notifier, error) {
	var notifiers []notify.Notifier

	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout, logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, kafka)
		e.closers = append(e.closers, kafka)
	}

	return notify.NewMultiNotifier(notifiers...), nil
}

// Close cancels active restores, waits for them and releases the
// notification producers.
func (e *Engine) Close() error {
	e.Orchestrator.Shutdown()

	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return kubeerrs.NewAggregate(errs)
}
