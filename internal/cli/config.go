package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/happi/internal/jsonstore"
	"github.com/mesh-intelligence/happi/internal/logging"
	"github.com/mesh-intelligence/happi/internal/paths"
	"github.com/mesh-intelligence/happi/internal/sqlite"
	"github.com/mesh-intelligence/happi/pkg/backends"
	"github.com/mesh-intelligence/happi/pkg/client"
	"github.com/mesh-intelligence/happi/pkg/schema"
	"github.com/mesh-intelligence/happi/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "HAPPI"

	defaultBackend = types.BackendJSON
)

// settings is the decoded config.yaml, after environment overrides.
type settings struct {
	types.Config `mapstructure:",squash"`
	DataDir      string         `mapstructure:"data_dir"`
	IDFromName   bool           `mapstructure:"id_from_name"`
	Log          logging.Config `mapstructure:"log"`
}

// loadConfig reads config.yaml from configDir with viper. Every key can be
// overridden from the environment as HAPPI_<KEY>, nested keys joined by
// underscores (HAPPI_MONGO_URI). A missing config.yaml is not an error.
func loadConfig(configDir string) (*settings, error) {
	v := viper.New()
	v.SetDefault("backend", defaultBackend)
	v.SetDefault("path", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("initialize", false)
	v.SetDefault("id_from_name", true)
	v.SetDefault("mongo.uri", types.DefaultMongoURI)
	v.SetDefault("mongo.database", types.DefaultMongoDatabase)
	v.SetDefault("mongo.collection", types.DefaultMongoCollection)
	v.SetDefault("mongo.timeout", types.DefaultMongoTimeout)
	v.SetDefault("questionnaire.url", "")
	v.SetDefault("questionnaire.experiment", "")
	v.SetDefault("questionnaire.user", "")
	v.SetDefault("questionnaire.password", "")
	v.SetDefault("log.level", logging.DefaultLevel)
	v.SetDefault("log.development", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, nil
}

// environment is everything a command needs to talk to the registry.
type environment struct {
	settings *settings
	dataDir  string
	log      *zap.SugaredLogger
	client   *client.Client
}

func (e *environment) Close() error {
	defer e.log.Sync() //nolint:errcheck
	return e.client.Close()
}

// resolve loads the configuration and applies the global flags on top.
func (f *rootFlags) resolve() (*settings, string, *zap.SugaredLogger, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("resolve config dir: %w", err)
	}
	s, err := loadConfig(configDir)
	if err != nil {
		return nil, "", nil, err
	}
	dataDir, err := paths.ResolveDataDir(f.dataDir, s.DataDir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("resolve data dir: %w", err)
	}

	if f.backend != "" {
		s.Backend = f.backend
	}
	if f.path != "" {
		s.Path = f.path
	}
	if s.Path == "" && (s.Backend == types.BackendJSON || s.Backend == types.BackendSQLite) {
		s.Path = paths.DatabaseFile(dataDir, s.Backend)
	}
	if f.logLevel != "" {
		s.Log.Level = f.logLevel
	}
	if f.verbose {
		s.Log.Level = "debug"
		s.Log.Development = true
	}

	log, err := logging.New(s.Log)
	if err != nil {
		return nil, "", nil, userError("%w", err)
	}
	return s, dataDir, log, nil
}

// open resolves the configuration and opens a client over the configured
// backend with the built-in schemas.
func (f *rootFlags) open(ctx context.Context) (*environment, error) {
	s, dataDir, log, err := f.resolve()
	if err != nil {
		return nil, err
	}
	if err := s.Config.Validate(); err != nil {
		return nil, userError("invalid config: %w", err)
	}
	b, err := backends.Open(ctx, s.Config, log)
	if errors.Is(err, jsonstore.ErrStoreMissing) || errors.Is(err, sqlite.ErrDatabaseMissing) {
		return nil, userError("%w (run happi init)", err)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", s.Backend, err)
	}
	c, err := client.New(b, schema.NewBuiltinRegistry(),
		client.WithLogger(log),
		client.WithIDFromName(s.IDFromName),
	)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &environment{settings: s, dataDir: dataDir, log: log, client: c}, nil
}
