// Package config loads stepbom configuration from defaults, an optional
// YAML file and STEPBOM_* environment variables.
package config

import "time"

// Config is the complete stepbom configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Kernel    KernelConfig    `yaml:"kernel" mapstructure:"kernel"`
	Traversal TraversalConfig `yaml:"traversal" mapstructure:"traversal"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
}

// InputConfig controls input file discovery.
type InputConfig struct {
	Dir      string   `yaml:"dir" mapstructure:"dir"`           // directory searched when no files are given
	Patterns []string `yaml:"patterns" mapstructure:"patterns"` // glob patterns matched against file names
	Ignore   []string `yaml:"ignore" mapstructure:"ignore"`     // glob patterns excluded from discovery
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	LegacyDir string `yaml:"legacy_dir" mapstructure:"legacy_dir"` // empty disables the <stem>_bom.json copy
	WebAssets bool   `yaml:"web_assets" mapstructure:"web_assets"`
}

// KernelConfig tunes the script kernel.
type KernelConfig struct {
	AnalysisCells int           `yaml:"analysis_cells" mapstructure:"analysis_cells"` // marching cubes cells for measurements
	MeshCells     int           `yaml:"mesh_cells" mapstructure:"mesh_cells"`         // marching cubes cells for web meshes
	EvalTimeout   time.Duration `yaml:"eval_timeout" mapstructure:"eval_timeout"`
}

// TraversalConfig bounds the assembly walk.
type TraversalConfig struct {
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth"`
}

// CatalogConfig locates the SQLite run catalog.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty disables the catalog
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dir:      "model",
			Patterns: []string{"*.step", "*.stp", "*.lignin"},
			Ignore:   []string{".*"},
		},
		Output: OutputConfig{
			Dir:       "extracted_data",
			LegacyDir: "models",
		},
		Kernel: KernelConfig{
			AnalysisCells: 64,
			MeshCells:     128,
			EvalTimeout:   5 * time.Second,
		},
		Traversal: TraversalConfig{
			MaxDepth: 64,
		},
	}
}
