package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
)

// Config holds the registry daemon configuration.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Gossip      GossipConfig      `json:"gossip" yaml:"gossip"`
	Table       TableConfig       `json:"table" yaml:"table"`
	Redis       RedisConfig       `json:"redis" yaml:"redis"`
	Netrestrict NetrestrictConfig `json:"netrestrict" yaml:"netrestrict"`
	Dial        DialConfig        `json:"dial" yaml:"dial"`
	Logger      logger.Config     `json:"logger" yaml:"logger"`
}

type ServerConfig struct {
	// NodeID is the local 128-hex node id; generated when empty.
	NodeID    string `json:"node_id" yaml:"node_id"`
	Hostname  string `json:"hostname" yaml:"hostname"`
	Port      int    `json:"port" yaml:"port"`
	AdminAddr string `json:"admin_addr" yaml:"admin_addr"`
}

type GossipConfig struct {
	Port  int      `json:"port" yaml:"port"`
	Seeds []string `json:"seeds" yaml:"seeds"`
}

type TableConfig struct {
	// Backend selects snapshot storage: "file", "redis" or "none".
	Backend   string   `json:"backend" yaml:"backend"`
	DataDir   string   `json:"data_dir" yaml:"data_dir"`
	RedisKey  string   `json:"redis_key" yaml:"redis_key"`
	Bootnodes []string `json:"bootnodes" yaml:"bootnodes"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type NetrestrictConfig struct {
	// Predefined is one of "all", "private", "public", "none".
	Predefined string   `json:"predefined" yaml:"predefined"`
	Allow      []string `json:"allow" yaml:"allow"`
	Block      []string `json:"block" yaml:"block"`
}

type DialConfig struct {
	IntervalMS        int `json:"interval_ms" yaml:"interval_ms"`
	TimeoutMS         int `json:"timeout_ms" yaml:"timeout_ms"`
	Workers           int `json:"workers" yaml:"workers"`
	MaxDials          int `json:"max_dials" yaml:"max_dials"`
	UselessAfter      int `json:"useless_after" yaml:"useless_after"`
	RetryUselessEvery int `json:"retry_useless_every" yaml:"retry_useless_every"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Hostname:  "127.0.0.1",
			Port:      30303,
			AdminAddr: ":8090",
		},
		Gossip: GossipConfig{
			Port: 7946,
		},
		Table: TableConfig{
			Backend:  "file",
			DataDir:  "./data",
			RedisKey: "registry:nodes",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Netrestrict: NetrestrictConfig{
			Predefined: "all",
		},
		Dial: DialConfig{
			IntervalMS:        30000,
			TimeoutMS:         5000,
			Workers:           4,
			MaxDials:          16,
			UselessAfter:      3,
			RetryUselessEvery: 10,
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "registry", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}

	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
