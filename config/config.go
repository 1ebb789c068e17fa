package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	ServerPort     string         `mapstructure:"SERVER_PORT"`
	GinMode        string         `mapstructure:"GIN_MODE"`
	FrontendDir    string         `mapstructure:"FRONTEND_DIR"`
	ResyncInterval time.Duration  `mapstructure:"RESYNC_INTERVAL"`
	Subjects       SubjectsConfig `mapstructure:"SUBJECTS"`
	Store          StoreConfig    `mapstructure:"STORE"`
	Log            LogConfig      `mapstructure:"LOG"`
	CORS           CORSConfig     `mapstructure:"CORS"`
}

// SubjectsConfig describes where subject source files live and how they are split.
type SubjectsConfig struct {
	Dir       string `mapstructure:"DIR"`
	Extension string `mapstructure:"EXTENSION"`
	Delimiter string `mapstructure:"DELIMITER"` // single character, no quoting
	Watch     bool   `mapstructure:"WATCH"`
}

// StoreConfig holds the working-set file location
type StoreConfig struct {
	Path string `mapstructure:"PATH"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `mapstructure:"LEVEL"`
	Development bool   `mapstructure:"DEVELOPMENT"`
}

// CORSConfig lists origins allowed to call the API. "*" allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
}

// LoadConfig loads configuration from config.yaml (or the file at path when
// non-empty) and environment variables prefixed with QUIZ_.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("GIN_MODE", "debug") // gin.DebugMode, gin.ReleaseMode, gin.TestMode
	v.SetDefault("FRONTEND_DIR", "frontend")
	v.SetDefault("RESYNC_INTERVAL", "5m") // 0 disables the periodic check
	v.SetDefault("SUBJECTS.DIR", "questions")
	v.SetDefault("SUBJECTS.EXTENSION", ".csv")
	v.SetDefault("SUBJECTS.DELIMITER", "|")
	v.SetDefault("SUBJECTS.WATCH", true)
	v.SetDefault("STORE.PATH", "questions/questions.csv")
	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.DEVELOPMENT", false)
	v.SetDefault("CORS.ALLOWED_ORIGINS", []string{"*"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	// Override with environment variables (e.g., QUIZ_SERVER_PORT, QUIZ_SUBJECTS_DIR)
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.Subjects.Delimiter) != 1 {
		return fmt.Errorf("SUBJECTS.DELIMITER must be a single character, got %q", c.Subjects.Delimiter)
	}
	if c.Subjects.Dir == "" {
		return errors.New("SUBJECTS.DIR must not be empty")
	}
	if c.Store.Path == "" {
		return errors.New("STORE.PATH must not be empty")
	}
	if c.ResyncInterval < 0 {
		return fmt.Errorf("RESYNC_INTERVAL must not be negative, got %s", c.ResyncInterval)
	}
	return nil
}
