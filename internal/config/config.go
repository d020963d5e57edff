package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked for in the working directory when no config
// file is named explicitly.
const DefaultFile = ".migvista.yaml"

// Config is the tool configuration. Flags override file values, file
// values override defaults.
type Config struct {
	Project    string `yaml:"project"`     // path into the alembic project
	Port       string `yaml:"port"`        // HTTP listen port
	Alembic    string `yaml:"alembic"`     // alembic executable
	WebDir     string `yaml:"web_dir"`     // static assets for the visualization
	DebounceMs int    `yaml:"debounce_ms"` // file-change coalescing window
}

func Default() *Config {
	return &Config{
		Project:    ".",
		Port:       "8080",
		Alembic:    "alembic",
		WebDir:     "./web",
		DebounceMs: 100,
	}
}

// Load reads the config file at path over the defaults. An empty path
// means the default file, which is allowed to be absent; a path named
// explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
