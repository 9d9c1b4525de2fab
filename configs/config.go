package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding/htmlindex"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr     string
	DbConfig       DbConfig
	NativeLibs     NativeLibsConfig
	XMLEncoding    string
	RedisConfig    RedisConfig
	LogLevel       string
	LogFormat      string
	MetricsEnabled bool
}

// DbConfig holds database-related configuration.
type DbConfig struct {
	Driver         string
	Server         string
	Port           int
	User           string
	Password       string
	Database       string
	AutoCommit     bool
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
}

// NativeLibsConfig lists shared libraries the database client needs next to the binary.
type NativeLibsConfig struct {
	Dir      string
	Required []string
}

// RedisConfig points at the invocation stats store. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	DriverSQLServer = "sqlserver"
	DriverHANA      = "hdb"
)

// ConfigurationError is returned when the service cannot run with the given settings.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LISTEN_ADDR", ":5000")
	v.SetDefault("DB_DRIVER", DriverSQLServer)
	v.SetDefault("DB_SERVER", "")
	v.SetDefault("DB_PORT", 1433)
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_DATABASE", "")
	v.SetDefault("DB_AUTOCOMMIT", true)
	v.SetDefault("DB_CONNECT_TIMEOUT", 5*time.Second)
	v.SetDefault("DB_CALL_TIMEOUT", 30*time.Second)
	v.SetDefault("NATIVE_LIB_DIR", ".")
	v.SetDefault("NATIVE_LIBS", "")
	v.SetDefault("XML_ENCODING", "utf-8")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("METRICS_ENABLED", true)
}

// LoadConfig reads .env, the environment and ./configs/config.yaml. Problems that
// fall back to defaults are returned as warnings for the caller to log.
func LoadConfig() (*Config, []string) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "could not load .env file, using environment and defaults")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			warnings = append(warnings, fmt.Sprintf("config file was found but could not be read: %v", err))
		}
	}

	return fromViper(v), warnings
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ListenAddr: v.GetString("LISTEN_ADDR"),
		DbConfig: DbConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			Server:         v.GetString("DB_SERVER"),
			Port:           v.GetInt("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			Database:       v.GetString("DB_DATABASE"),
			AutoCommit:     v.GetBool("DB_AUTOCOMMIT"),
			ConnectTimeout: v.GetDuration("DB_CONNECT_TIMEOUT"),
			CallTimeout:    v.GetDuration("DB_CALL_TIMEOUT"),
		},
		NativeLibs: NativeLibsConfig{
			Dir:      v.GetString("NATIVE_LIB_DIR"),
			Required: splitList(v.GetString("NATIVE_LIBS")),
		},
		XMLEncoding: strings.ToLower(strings.TrimSpace(v.GetString("XML_ENCODING"))),
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first setting the service cannot start with.
func (c *Config) Validate() error {
	switch c.DbConfig.Driver {
	case DriverSQLServer, DriverHANA:
	default:
		return ConfigurationError{Key: "DB_DRIVER", Reason: fmt.Sprintf("unsupported driver %q", c.DbConfig.Driver)}
	}
	if strings.TrimSpace(c.DbConfig.Server) == "" {
		return ConfigurationError{Key: "DB_SERVER", Reason: "is required"}
	}
	if c.DbConfig.Port < 1 || c.DbConfig.Port > 65535 {
		return ConfigurationError{Key: "DB_PORT", Reason: fmt.Sprintf("invalid port %d", c.DbConfig.Port)}
	}
	if _, err := htmlindex.Get(c.XMLEncoding); err != nil {
		return ConfigurationError{Key: "XML_ENCODING", Reason: fmt.Sprintf("unknown encoding %q", c.XMLEncoding)}
	}
	return nil
}
