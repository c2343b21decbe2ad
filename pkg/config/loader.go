package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that searches rootDir/.stepbom for config.yml
// or config.yaml.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewFileLoader creates a loader reading an explicit config file. The file
// must exist.
func NewFileLoader(path string) Loader {
	return &loader{configFile: path}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (STEPBOM_*)
// 2. Config file
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".stepbom"))
	}

	v.SetEnvPrefix("STEPBOM")
	v.AutomaticEnv()
	// STEPBOM_OUTPUT_DIR overrides output.dir.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"input.dir",
		"output.dir",
		"output.legacy_dir",
		"output.web_assets",
		"kernel.analysis_cells",
		"kernel.mesh_cells",
		"kernel.eval_timeout",
		"traversal.max_depth",
		"catalog.path",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("input.dir", defaults.Input.Dir)
	v.SetDefault("input.patterns", defaults.Input.Patterns)
	v.SetDefault("input.ignore", defaults.Input.Ignore)

	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.legacy_dir", defaults.Output.LegacyDir)
	v.SetDefault("output.web_assets", defaults.Output.WebAssets)

	v.SetDefault("kernel.analysis_cells", defaults.Kernel.AnalysisCells)
	v.SetDefault("kernel.mesh_cells", defaults.Kernel.MeshCells)
	v.SetDefault("kernel.eval_timeout", defaults.Kernel.EvalTimeout)

	v.SetDefault("traversal.max_depth", defaults.Traversal.MaxDepth)

	v.SetDefault("catalog.path", defaults.Catalog.Path)
}

// LoadConfig loads configuration rooted at the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
