package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/taskboard/internal/paths"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir,omitempty"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	ServiceURL  string `yaml:"service_url,omitempty"`
}

type initFlags struct {
	backend     string
	databaseURL string
	serviceURL  string
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	var f initFlags
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize taskboard storage",
		Long: `Create the configuration directory and config.yaml, then attach the
configured backend once to create its storage.

An existing config.yaml is left untouched.

Example:
  taskboard init
  taskboard init --backend postgres --database-url postgres://localhost/taskboard
  taskboard init --backend remote --service-url http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags, f)
		},
	}
	cmd.Flags().StringVar(&f.backend, "backend", types.BackendSQLite, "backend to configure (sqlite, postgres, remote)")
	cmd.Flags().StringVar(&f.databaseURL, "database-url", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&f.serviceURL, "service-url", "", "base URL of a taskboard service")
	return cmd
}

func runInit(cmd *cobra.Command, flags *rootFlags, f initFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return exitError(exitSysError, "resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return exitError(exitSysError, "create config directory: %w", err)
	}

	cfg := configFile{
		Backend:     f.backend,
		DataDir:     flags.dataDir,
		DatabaseURL: f.databaseURL,
		ServiceURL:  f.serviceURL,
	}
	if cfg.DataDir != "" {
		if cfg.DataDir, err = filepath.Abs(cfg.DataDir); err != nil {
			return exitError(exitSysError, "resolve data dir: %w", err)
		}
	}
	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, cfg); err != nil {
		return exitError(exitSysError, "write config: %w", err)
	}

	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	a.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Taskboard initialized (%s backend, config %s)\n", a.settings.backend.Backend, configPath)
	return nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
