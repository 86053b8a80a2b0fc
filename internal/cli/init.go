package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/happi/internal/paths"
	"github.com/mesh-intelligence/happi/pkg/backends"
	"github.com/mesh-intelligence/happi/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend    string    `yaml:"backend"`
	DataDir    string    `yaml:"data_dir,omitempty"`
	Path       string    `yaml:"path,omitempty"`
	IDFromName bool      `yaml:"id_from_name"`
	Log        logConfig `yaml:"log"`
}

type logConfig struct {
	Level string `yaml:"level"`
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize happi configuration and storage",
		Long: "Write config.yaml to the config directory when it is missing, then create\n" +
			"the local database of the json or sqlite backend.",
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		}),
	}
}

func runInit(cmd *cobra.Command, flags *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	s, dataDir, log, err := flags.resolve()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	configPath := filepath.Join(configDir, paths.ConfigFileName)
	written, err := writeConfigIfMissing(configPath, configFile{
		Backend:    s.Backend,
		DataDir:    flags.dataDir,
		Path:       flags.path,
		IDFromName: s.IDFromName,
		Log:        logConfig{Level: s.Log.Level},
	})
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if written {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	}

	if s.Backend != types.BackendJSON && s.Backend != types.BackendSQLite {
		fmt.Fprintf(cmd.OutOrStdout(), "Backend %s needs no local storage\n", s.Backend)
		return nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	cfg := s.Config
	cfg.Initialize = true
	b, err := backends.Open(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := b.Close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s database at %s\n", s.Backend, cfg.Path)
	return nil
}

// writeConfigIfMissing creates config.yaml with cfg if the file does not
// exist. It reports whether the file was written.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
