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

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	kubeerrs "k8s.io/apimachinery/pkg/util/errors"

	"github.com/walbis/tkkube/pkg/apiserver"
	"github.com/walbis/tkkube/pkg/auth"
	"github.com/walbis/tkkube/pkg/buildinfo"
	"github.com/walbis/tkkube/pkg/cmd"
	"github.com/walbis/tkkube/pkg/cmd/cli"
	"github.com/walbis/tkkube/pkg/cmd/util/signals"
	"github.com/walbis/tkkube/pkg/config"
	"github.com/walbis/tkkube/pkg/engine"
)

const metricsShutdownTimeout = 5 * time.Second

type serverConfig struct {
	apiAddress     string
	metricsAddress string
}

func (s *serverConfig) bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&s.apiAddress, "api-address", "", fmt.Sprintf("The address the restore API listens on. Overrides api.address, which defaults to %s.", config.DefaultAPIAddress))
	flags.StringVar(&s.metricsAddress, "metrics-address", "", fmt.Sprintf("The address to expose prometheus metrics on. Overrides api.metrics_address, which defaults to %s.", config.DefaultMetricsAddress))
}

// apply overrides the configured addresses with the flags that were set.
func (s *serverConfig) apply(cfg *config.Config) {
	if s.apiAddress != "" {
		cfg.API.Address = s.apiAddress
	}
	if s.metricsAddress != "" {
		cfg.API.MetricsAddress = s.metricsAddress
	}
}

func NewCommand(configOpts *cli.ConfigOptions) *cobra.Command {
	serverCfg := &serverConfig{}

	var command = &cobra.Command{
		Use:   "server",
		Short: "Run the restore API server",
		Long:  "Run the restore API server, which accepts restore requests over HTTP and runs them in the background",
		Run: func(c *cobra.Command, args []string) {
			// Make sure we log to stdout so cloud log dashboards don't show this as an error.
			logger := configOpts.Logger(os.Stdout)
			logger.Infof("setting log-level to %s", strings.ToUpper(configOpts.LogLevel.Parse().String()))
			logger.Infof("Starting gitops-restore server %s (%s)", buildinfo.ReportedVersion(), buildinfo.FormattedGitSHA())

			s, err := newServer(configOpts, serverCfg, fmt.Sprintf("%s-%s", c.Parent().Name(), c.Name()), logger)
			cmd.CheckError(err)

			cmd.CheckError(s.run())
		},
	}

	serverCfg.bindFlags(command.Flags())

	return command
}

type server struct {
	engine         *engine.Engine
	apiServer      *apiserver.Server
	apiAddress     string
	metricsAddress string
	ctx            context.Context
	cancelFunc     context.CancelFunc
	logger         logrus.FieldLogger
}

func newServer(configOpts *cli.ConfigOptions, serverCfg *serverConfig, baseName string, logger *logrus.Logger) (*server, error) {
	cfg, err := configOpts.Load()
	if err != nil {
		return nil, err
	}
	serverCfg.apply(cfg)

	e, err := engine.New(cfg, engine.Options{
		BaseName:  baseName,
		LogLevel:  configOpts.LogLevel.Parse(),
		LogFormat: configOpts.LogFormat.Parse(),
	}, logger)
	if err != nil {
		return nil, err
	}

	// a nil *KeyStore must not end up in a non-nil interface
	var authenticator auth.Authenticator
	if e.KeyStore != nil {
		authenticator = e.KeyStore
		logger.WithField("keys", e.KeyStore.Names()).Info("API key authentication enabled")
	} else {
		logger.Warn("No API keys configured, the restore API accepts anonymous requests")
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &server{
		engine:         e,
		apiServer:      apiserver.NewServer(e.Orchestrator, e.BackupStore, e.Validator, authenticator, e.Metrics, logger),
		apiAddress:     cfg.API.Address,
		metricsAddress: cfg.API.MetricsAddress,
		ctx:            ctx,
		cancelFunc:     cancelFunc,
		logger:         logger,
	}, nil
}

func (s *server) run() error {
	signals.CancelOnShutdown(s.cancelFunc, s.logger)

	if err := s.engine.BackupStore.IsValid(s.ctx); err != nil {
		s.logger.WithError(err).Warn("Backup storage is not reachable yet")
	}

	s.engine.Metrics.RegisterAllMetrics()
	metricsServer := s.startMetricsServer()

	err := s.apiServer.Run(s.ctx, s.apiAddress)

	// the API server only returns on shutdown or failure
	s.cancelFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	metricsErr := metricsServer.Shutdown(shutdownCtx)

	s.logger.Info("Waiting for active restores to stop")
	closeErr := s.engine.Close()

	return kubeerrs.NewAggregate([]error{err, errors.Wrap(metricsErr, "error shutting down metrics server"), closeErr})
}

func (s *server) startMetricsServer() *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              s.metricsAddress,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Infof("Starting metric server at address [%s]", s.metricsAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Errorf("Failed to run metric server at [%s]", s.metricsAddress)
			s.cancelFunc()
		}
	}()

	return srv
}
