package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Socket      SocketConfig   `yaml:"socket"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Defaults    MatchDefaults  `yaml:"defaults"`
	GameConfigs GameConfigs    `yaml:"game_configs"`
	Admins      []string       `yaml:"admins"`
	Servers     []GameServer   `yaml:"servers"`
}

// SocketConfig holds the UDP log listener settings
type SocketConfig struct {
	ListenAddr string        `yaml:"listen_addr"`
	Port       int           `yaml:"port"`
	PublicIP   string        `yaml:"public_ip"`
	IdleEvict  time.Duration `yaml:"idle_evict"`
}

// HTTPConfig holds the status API settings
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Port       int    `yaml:"port"`
}

// DatabaseConfig holds SQLite settings. An empty path disables result history.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MatchDefaults are the per-server defaults restored on every warmup
type MatchDefaults struct {
	Record    bool `yaml:"record"`
	Knife     bool `yaml:"knife"`
	Overtime  bool `yaml:"overtime"`
	FullMap   bool `yaml:"fullmap"`
	PauseTime int  `yaml:"pause_time"`
	ReadyTime int  `yaml:"ready_time"`
}

// GameConfigs maps match phases to exec-style config files on disk
type GameConfigs struct {
	Warmup   string `yaml:"warmup"`
	Match    string `yaml:"match"`
	Knife    string `yaml:"knife"`
	Overtime string `yaml:"overtime"`
	FullMap  string `yaml:"fullmap"`
}

// GameServer represents a game server to manage
type GameServer struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	RconPassword string `yaml:"rcon_password"`
}

// Addr returns the host:port key the server is registered under
func (s GameServer) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults
	if cfg.Socket.ListenAddr == "" {
		cfg.Socket.ListenAddr = "0.0.0.0"
	}
	if cfg.Socket.Port == 0 {
		cfg.Socket.Port = 26000
	}
	if cfg.HTTP.ListenAddr == "" {
		cfg.HTTP.ListenAddr = "127.0.0.1"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Defaults.PauseTime == 0 {
		cfg.Defaults.PauseTime = -1
	}
	if cfg.Defaults.ReadyTime == 0 {
		cfg.Defaults.ReadyTime = -1
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}
	for _, srv := range c.Servers {
		if srv.Host == "" || srv.Port == 0 {
			return fmt.Errorf("server entry missing host or port")
		}
	}

	// Refuse to start with missing game configs rather than failing
	// mid-match when one is first needed.
	var missing []string
	for _, path := range c.GameConfigs.paths() {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("game config file(s) not found: %v", missing)
	}

	return nil
}

func (g GameConfigs) paths() []string {
	return []string{g.Warmup, g.Match, g.Knife, g.Overtime, g.FullMap}
}
