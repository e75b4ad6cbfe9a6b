// Package config loads server configuration from layered sources — built-in
// defaults, an optional TOML file, then environment variables — the way
// spf13/viper is meant to be used, per spec.md §6 "Configuration".
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Network holds listener and TLS settings.
type Network struct {
	IP               string
	ClientPortHTTPS  int
	ClientPortHTTP   int
	WebTransportPort int
	ClientPath       string
	SSLCertPath      string
	SSLKeyPath       string
}

// Maps holds the on-disk map directory and an optional allowlist.
type Maps struct {
	Path string
	Maps []string // empty means "load every map file found"
}

// Game holds simulation tuning.
type Game struct {
	SimulationFramerate int
	SpawnMap            string
}

// LoggerSink configures one logging destination (console, file, or chat).
type LoggerSink struct {
	Enabled bool
	Level   string
	Headers bool
}

// Logger groups the three sinks spec.md §6 names.
type Logger struct {
	Console LoggerSink
	File    LoggerSink
	Chat    LoggerSink
}

// Config is the fully resolved, immutable server configuration.
type Config struct {
	Network Network
	Maps    Maps
	Game    Game
	Logger  Logger
}

// FrameDuration converts Game.SimulationFramerate into a tick period.
func (c Config) FrameDuration() time.Duration {
	if c.Game.SimulationFramerate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Game.SimulationFramerate)
}

// Load builds a Config from defaults, then an optional TOML file at path
// (skipped if path is empty; a file at path that cannot be read or parsed is
// an error), then environment
// variables prefixed EVADEARENA_ with "." replaced by "_" (e.g.
// EVADEARENA_GAME_SPAWN_MAP). Environment variables win over the file, which
// wins over defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("evadearena")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("config: reading %q: %w", path, err)
			}
		}
	}

	cfg := Config{
		Network: Network{
			IP:               v.GetString("network.ip"),
			ClientPortHTTPS:  v.GetInt("network.client_port_https"),
			ClientPortHTTP:   v.GetInt("network.client_port_http"),
			WebTransportPort: v.GetInt("network.webtransport_port"),
			ClientPath:       v.GetString("network.client_path"),
			SSLCertPath:      v.GetString("network.ssl_cert_path"),
			SSLKeyPath:       v.GetString("network.ssl_key_path"),
		},
		Maps: Maps{
			Path: v.GetString("maps.path"),
			Maps: v.GetStringSlice("maps.maps"),
		},
		Game: Game{
			SimulationFramerate: v.GetInt("game.simulation_framerate"),
			SpawnMap:            v.GetString("game.spawn_map"),
		},
		Logger: Logger{
			Console: sinkFromViper(v, "logger.console"),
			File:    sinkFromViper(v, "logger.file"),
			Chat:    sinkFromViper(v, "logger.chat"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func sinkFromViper(v *viper.Viper, key string) LoggerSink {
	return LoggerSink{
		Enabled: v.GetBool(key + ".enabled"),
		Level:   v.GetString(key + ".level"),
		Headers: v.GetBool(key + ".headers"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network.ip", "0.0.0.0")
	v.SetDefault("network.client_port_https", 8443)
	v.SetDefault("network.client_port_http", 8080)
	v.SetDefault("network.webtransport_port", 8443)
	v.SetDefault("network.client_path", "client")
	v.SetDefault("network.ssl_cert_path", "")
	v.SetDefault("network.ssl_key_path", "")

	v.SetDefault("maps.path", "maps")
	v.SetDefault("maps.maps", []string{})

	v.SetDefault("game.simulation_framerate", 60)
	v.SetDefault("game.spawn_map", "")

	v.SetDefault("logger.console.enabled", true)
	v.SetDefault("logger.console.level", "info")
	v.SetDefault("logger.console.headers", false)

	v.SetDefault("logger.file.enabled", false)
	v.SetDefault("logger.file.level", "info")
	v.SetDefault("logger.file.headers", true)

	v.SetDefault("logger.chat.enabled", false)
	v.SetDefault("logger.chat.level", "warn")
	v.SetDefault("logger.chat.headers", false)
}

func (c Config) validate() error {
	if c.Game.SpawnMap == "" {
		return fmt.Errorf("config: game.spawn_map must be set")
	}
	if c.Game.SimulationFramerate <= 0 {
		return fmt.Errorf("config: game.simulation_framerate must be positive")
	}
	return nil
}
