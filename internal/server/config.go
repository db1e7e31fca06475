package server

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"memslink/internal/logger"
)

// Config holds all dashboard configuration.
type Config struct {
	ECU    ECUConfig    `yaml:"ecu" json:"ecu"`
	Server ServerConfig `yaml:"server" json:"server"`
}

type ECUConfig struct {
	Port       string `yaml:"port" json:"port"`             // e.g. /dev/ttyUSB0
	Generation string `yaml:"generation" json:"generation"` // "dual-frame" or "single-frame"
	PollHz     int    `yaml:"poll_hz" json:"pollHz"`
	Demo       bool   `yaml:"demo" json:"demo"` // use the simulator instead of a serial port
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults. The poll rate is
// modest because one dual-frame acquisition takes around 130 ms at 9600
// baud.
func DefaultConfig() *Config {
	return &Config{
		ECU: ECUConfig{
			Port:       "/dev/ttyUSB0",
			Generation: "dual-frame",
			PollHz:     4,
			Demo:       false,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies environment
// variable overrides. Falls back to defaults if the file is missing or
// malformed.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info().Str("path", path).Msg("no config file, using defaults")
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("config parse failed, using defaults")
		cfg = DefaultConfig()
	} else {
		logger.Info().Str("path", path).Msg("config loaded")
	}

	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides reads environment variables and overrides config
// values. Supported: MEMS_PORT, MEMS_GENERATION, MEMS_POLL_HZ, MEMS_DEMO,
// LISTEN_ADDR.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEMS_PORT"); v != "" {
		c.ECU.Port = v
	}
	if v := os.Getenv("MEMS_GENERATION"); v != "" {
		c.ECU.Generation = v
	}
	if v := os.Getenv("MEMS_POLL_HZ"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ECU.PollHz = n
		}
	}
	if v := os.Getenv("MEMS_DEMO"); v != "" {
		c.ECU.Demo = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
}
