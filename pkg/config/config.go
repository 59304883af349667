package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config externalizes the defaults a host is built with. Every field
// has a working zero-config default; a YAML file only overrides what
// it names.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Docker DockerConfig `yaml:"docker"`
	Stream StreamConfig `yaml:"stream"`
	Stop   StopConfig   `yaml:"stop"`
	Remote RemoteConfig `yaml:"remote"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type DockerConfig struct {
	// Binary overrides PATH discovery of the docker executable.
	Binary string `yaml:"binary"`
}

type StreamConfig struct {
	// LineCapacity bounds line-mode stream retention per channel.
	LineCapacity int `yaml:"lineCapacity"`
	// ByteCapacity bounds byte-mode stream retention per channel.
	ByteCapacity int `yaml:"byteCapacity"`
}

type StopConfig struct {
	// TimeoutSeconds is the grace period handed to docker stop.
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

type RemoteConfig struct {
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Stream: StreamConfig{LineCapacity: 1000, ByteCapacity: 131072},
		Stop:   StopConfig{TimeoutSeconds: 15},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// StopTimeout renders the configured grace period as a Duration.
func (c Config) StopTimeout() time.Duration {
	if c.Stop.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Stop.TimeoutSeconds) * time.Second
}
