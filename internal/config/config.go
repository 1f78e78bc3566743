package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RelayConfig describes the downstream execution service.
type RelayConfig struct {
	ExecuteURL string `mapstructure:"execute_url"`
	Version    string `mapstructure:"version"`
}

// ClientConfig is used by the editor front ends.
type ClientConfig struct {
	BackendURL    string `mapstructure:"backend_url"`
	LanguagesFile string `mapstructure:"languages_file"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Client ClientConfig `mapstructure:"client"`
	Log    LogConfig    `mapstructure:"log"`
}

const (
	DefaultPort       = 5000
	DefaultExecuteURL = "https://emkc.org/api/v2/piston/execute"
	DefaultBackendURL = "http://localhost:5000"
)

// Load reads runpad.yaml from the working directory or $HOME/.runpad, then
// applies .env and RUNPAD_* environment overrides. The file is optional.
func Load() (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("runpad")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.runpad")

	return load(v)
}

// LoadFile reads configuration from an explicit path. Unlike Load, the file
// must exist.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return unmarshal(v)
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Client.BackendURL = strings.TrimRight(cfg.Client.BackendURL, "/")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("relay.execute_url", DefaultExecuteURL)
	v.SetDefault("relay.version", "*")
	v.SetDefault("client.backend_url", DefaultBackendURL)
	v.SetDefault("client.languages_file", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("runpad")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The browser build has always read its backend from these.
	v.BindEnv("client.backend_url", "RUNPAD_CLIENT_BACKEND_URL", "BACKEND_URL", "VITE_BACKEND_URL")
}
