// Package config provides configuration loading for mcpforge.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (MCPFORGE_*)
//  2. Project config (.mcpforge/config.yml), or the file given with --config
//  3. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: MCPFORGE_
//   - Nested fields: Use underscores (MCPFORGE_EXTRACTION_WORKERS)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
package config

// Config represents the complete mcpforge configuration.
type Config struct {
	Marker     MarkerConfig     `yaml:"marker" mapstructure:"marker"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Watch      WatchConfig      `yaml:"watch" mapstructure:"watch"`
}

// MarkerConfig names the call-form decorator "@namespace.verb()" that marks entry points.
type MarkerConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	Verb      string `yaml:"verb" mapstructure:"verb"`
}

// ExtractionConfig tunes the extractor and the runner.
type ExtractionConfig struct {
	DropSelf        bool `yaml:"drop_self" mapstructure:"drop_self"`                 // drop a leading "self" from method signatures
	PreferTreeSpans bool `yaml:"prefer_tree_spans" mapstructure:"prefer_tree_spans"` // use parser end lines over the indentation heuristic
	Workers         int  `yaml:"workers" mapstructure:"workers"`                     // files parsed concurrently
	Strict          bool `yaml:"strict" mapstructure:"strict"`                       // reject files containing syntax errors
	CacheSize       int  `yaml:"cache_size" mapstructure:"cache_size"`               // parsed modules kept in memory
}

// PathsConfig defines which files to extract from directory inputs.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for Python files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// OutputConfig controls where extraction results are written.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "yaml"
}

// ServerConfig describes the server the generated artifacts will run on.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Marker: MarkerConfig{
			Namespace: "mcp",
			Verb:      "tool",
		},
		Extraction: ExtractionConfig{
			DropSelf:        true,
			PreferTreeSpans: true,
			Workers:         4,
			Strict:          false,
			CacheSize:       1024,
		},
		Paths: PathsConfig{
			Include: []string{"**/*.py"},
			Ignore: []string{
				".git/**",
				"venv/**",
				".venv/**",
				"env/**",
				"**/__pycache__/**",
				"**/site-packages/**",
				"build/**",
				"dist/**",
				".tox/**",
			},
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "json",
		},
		Server: ServerConfig{
			Port: 7860,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}
