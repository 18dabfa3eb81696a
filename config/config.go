package config

import (
	"encoding/json"
	"github.com/idena-network/idena-wallet-connect/units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

const (
	ProviderRelay = "relay"
	ProviderLocal = "local"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Provider  ProviderConfig `yaml:"provider"`
	Storage   StorageConfig  `yaml:"storage"`
	Session   SessionConfig  `yaml:"session"`
	Verbosity int            `yaml:"verbosity"`
}

type ServerConfig struct {
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
}

type ProviderConfig struct {
	Type       string `yaml:"type"`
	Url        string `yaml:"url"`
	ApiKey     string `yaml:"apiKey"`
	PrivateKey string `yaml:"privateKey"`
	ChainId    int64  `yaml:"chainId"`
	RejectAll  bool   `yaml:"rejectAll"`
	TimeoutSec int    `yaml:"timeoutSec"`
}

type StorageConfig struct {
	Type     string         `yaml:"type"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type PostgresConfig struct {
	ConnStr    string `yaml:"connStr"`
	ScriptsDir string `yaml:"scriptsDir"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Db       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type SessionConfig struct {
	Key               string   `yaml:"key"`
	LifeTimeSec       int      `yaml:"lifeTimeSec"`
	ConnectTimeoutSec int      `yaml:"connectTimeoutSec"`
	Exponent          int32    `yaml:"exponent"`
	RejectionPhrases  []string `yaml:"rejectionPhrases"`
}

func LoadConfig(configPath string) *Config {
	if _, err := os.Stat(configPath); err != nil {
		panic(errors.Errorf("Config file can't be found, path: %v", configPath))
	}
	byteValue, err := ioutil.ReadFile(configPath)
	if err != nil {
		panic(errors.Errorf("Config file can't be opened, path: %v", configPath))
	}
	conf, err := parseConfig(byteValue, filepath.Ext(configPath))
	if err != nil {
		panic(errors.Wrapf(err, "Cannot parse config, path: %v", configPath))
	}
	if err := conf.Validate(); err != nil {
		panic(errors.Wrapf(err, "Invalid config, path: %v", configPath))
	}
	return conf
}

func parseConfig(data []byte, ext string) (*Config, error) {
	conf := newDefaultConfig()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, conf); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

func (c *Config) Validate() error {
	switch c.Provider.Type {
	case ProviderRelay:
		if c.Provider.Url == "" {
			return errors.New("relay provider requires url")
		}
	case ProviderLocal:
		if c.Provider.PrivateKey == "" {
			return errors.New("local provider requires privateKey")
		}
		if c.Provider.ChainId <= 0 {
			return errors.New("local provider requires positive chainId")
		}
	default:
		return errors.Errorf("unknown provider type %q", c.Provider.Type)
	}
	switch c.Storage.Type {
	case StorageMemory, StorageRedis:
	case StoragePostgres:
		if c.Storage.Postgres.ConnStr == "" {
			return errors.New("postgres storage requires connStr")
		}
	default:
		return errors.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Session.Exponent < 0 || c.Session.Exponent > units.MaxExponent {
		return errors.Errorf("exponent must be within [0, %d]", units.MaxExponent)
	}
	if c.Session.Key == "" {
		return errors.New("session key must not be empty")
	}
	return nil
}

func newDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      80,
			RateLimit: 10,
			RateBurst: 20,
		},
		Provider: ProviderConfig{
			Type:       ProviderRelay,
			ChainId:    1,
			TimeoutSec: 120,
		},
		Storage: StorageConfig{
			Type: StorageMemory,
			Postgres: PostgresConfig{
				ScriptsDir: filepath.Join("resources"),
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Session: SessionConfig{
			Key:               "default",
			LifeTimeSec:       60 * 60 * 24 * 7,
			ConnectTimeoutSec: 120,
			Exponent:          18,
		},
		Verbosity: 3,
	}
}
