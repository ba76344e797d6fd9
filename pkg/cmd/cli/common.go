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

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bombsimon/logrusr/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/walbis/tkkube/pkg/config"
	"github.com/walbis/tkkube/pkg/engine"
	"github.com/walbis/tkkube/pkg/persistence"
	"github.com/walbis/tkkube/pkg/util/logging"
)

// ConfigFileEnvVar names the config file when --config is not given.
const ConfigFileEnvVar = "GITOPS_RESTORE_CONFIG"

// ConfigOptions are the flags shared by every command that loads the
// configuration.
type ConfigOptions struct {
	ConfigFile string
	EnvFile    string
	LogLevel   *logging.LevelFlag
	LogFormat  *logging.FormatFlag
}

func NewConfigOptions() *ConfigOptions {
	return &ConfigOptions{
		ConfigFile: os.Getenv(ConfigFileEnvVar),
		LogLevel:   logging.LogLevelFlag(logrus.InfoLevel),
		LogFormat:  logging.NewFormatFlag(),
	}
}

func (o *ConfigOptions) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.ConfigFile, "config", o.ConfigFile, fmt.Sprintf("Path to the configuration file. Defaults to $%s.", ConfigFileEnvVar))
	flags.StringVar(&o.EnvFile, "env-file", o.EnvFile, "Path to a file of KEY=value lines loaded into the environment before the configuration, typically holding GITOPS_TOKEN and RESTORE_API_KEYS.")
	flags.Var(o.LogLevel, "log-level", fmt.Sprintf("The level at which to log. Valid values are %s.", strings.Join(o.LogLevel.AllowedValues(), ", ")))
	flags.Var(o.LogFormat, "log-format", fmt.Sprintf("The format for log output. Valid values are %s.", strings.Join(o.LogFormat.AllowedValues(), ", ")))
}

// Load reads the configuration. It is not validated.
func (o *ConfigOptions) Load() (*config.Config, error) {
	return config.Load(o.ConfigFile, o.EnvFile)
}

// Logger returns a logger writing to out and routes klog output from the
// Kubernetes client libraries through it. It also sets the process wide
// error key for the chosen log format, so it is called once per command.
func (o *ConfigOptions) Logger(out io.Writer) *logrus.Logger {
	format := o.LogFormat.Parse()
	logging.SetErrorKey(format)
	logger := logging.DefaultLogger(o.LogLevel.Parse(), format)
	logger.Out = out
	klog.SetLogger(logrusr.New(logger.WithField("component", "client-go")))
	return logger
}

// NewEngine loads and validates the configuration and builds an engine.
func (o *ConfigOptions) NewEngine(baseName string, logger logrus.FieldLogger) (*engine.Engine, error) {
	cfg, err := o.Load()
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, engine.Options{
		BaseName:  baseName,
		LogLevel:  o.LogLevel.Parse(),
		LogFormat: o.LogFormat.Parse(),
	}, logger)
}

// NewBackupStore loads the configuration and opens only its backup
// storage, so commands that browse backups work without cluster or GitOps
// settings.
func (o *ConfigOptions) NewBackupStore(logger logrus.FieldLogger) (persistence.BackupStore, error) {
	cfg, err := o.Load()
	if err != nil {
		return nil, err
	}
	return persistence.NewObjectBackupStore(cfg.StorageLocation(), persistence.NewObjectStoreGetter(logger), logger)
}
