package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/storage"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultWebAddress is the default URL of the segeval web server
	DefaultWebAddress = "localhost:8600"

	// DefaultShutdownDelay is the default number of seconds to wait for requests
	// to finish when the server is stopped.
	DefaultShutdownDelay = 5

	// WebAPIPath is the URL path prefix of all API endpoints.
	WebAPIPath = "/api/"
)

// Config holds the settings of a segeval server, typically read from a TOML file
// like:
//
//	[server]
//	http_address = "localhost:8600"
//	workers = 8
//	shutdown_delay = 5
//
//	[logging]
//	logfile = "/var/log/segeval.log"
//	max_log_size = 500  # MB
//	max_log_age = 30    # days
//
//	[auth]
//	secret_key = "..."
//	auth_file = "users.json"
//
//	[kafka]
//	servers = ["kafka1:9092"]
//	topic = "segeval-results"
//
//	[cache]
//	size_mb = 64
//	ttl = "1h"
//
//	[cors]
//	domains = ["https://neuroglancer.example.org"]
type Config struct {
	Server  serverConfig
	Logging core.LogConfig
	Auth    authConfig
	Kafka   storage.KafkaConfig
	Cache   cacheConfig
	Cors    corsConfig
}

type serverConfig struct {
	HTTPAddress   string `toml:"http_address"`
	Workers       int    `toml:"workers"`
	ShutdownDelay int    `toml:"shutdown_delay"` // seconds
	Note          string `toml:"note"`
}

type cacheConfig struct {
	SizeMB int      `toml:"size_mb"`
	TTL    duration `toml:"ttl"`
}

type corsConfig struct {
	Domains []string `toml:"domains"`
}

// duration is a time.Duration read from a TOML string like "90s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig returns the settings used for anything a config file leaves out.
func DefaultConfig() *Config {
	c := new(Config)
	c.Server.HTTPAddress = DefaultWebAddress
	c.Server.Workers = core.NumCPU
	c.Server.ShutdownDelay = DefaultShutdownDelay
	return c
}

// LoadConfig reads a TOML configuration file.  Relative paths within the file are
// taken relative to the file's directory.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no server TOML configuration file provided")
	}
	c := DefaultConfig()
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = core.NumCPU
	}
	core.Infof("Loaded server configuration from %s\n", filename)
	return c, nil
}

func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = core.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path")
		}
	}
	if c.Auth.AuthFile != "" {
		c.Auth.AuthFile, err = core.ConvertToAbsolute(c.Auth.AuthFile, configDir)
		if err != nil {
			return fmt.Errorf("error converting auth_file setting to absolute path")
		}
	}
	return nil
}
