package roadlens

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const (
	DefaultServerURL  = "http://localhost:8080"
	DefaultThreshold  = 0.5
	DefaultSensorPath = "sensors.*"
)

// Config is the CLI configuration file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Inference InferenceConfig `toml:"inference"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type ServerConfig struct {
	URL string `toml:"url"`
}

type InferenceConfig struct {
	Threshold float64 `toml:"threshold"`
}

type TelemetryConfig struct {
	Path string `toml:"path"`
}

func DefaultConfig() Config {
	return Config{
		Server:    ServerConfig{URL: DefaultServerURL},
		Inference: InferenceConfig{Threshold: DefaultThreshold},
		Telemetry: TelemetryConfig{Path: DefaultSensorPath},
	}
}

// LoadConfig reads a TOML file. Keys absent from the file keep the values of
// DefaultConfig, which is also returned on error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return DefaultConfig(), fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg.withDefaults(tree), nil
}

func (c Config) withDefaults(tree *toml.Tree) Config {
	def := DefaultConfig()
	if c.Server.URL == "" {
		c.Server.URL = def.Server.URL
	}
	if !tree.HasPath([]string{"inference", "threshold"}) {
		c.Inference.Threshold = def.Inference.Threshold
	}
	if c.Telemetry.Path == "" {
		c.Telemetry.Path = def.Telemetry.Path
	}

	return c
}
