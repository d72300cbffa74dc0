package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/usecase/membership"
)

const (
	EnvPrefix       = "IDP"
	DevelopmentName = "Development"
)

// Config is built once by the CLI and passed down explicitly.
type Config struct {
	Environment string
	HTTP        *HTTP
	Database    *Database
	OIDC        *OIDC
	Password    membership.PasswordPolicy
	Logger      *Logger
}

type HTTP struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Database struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

type OIDC struct {
	Issuer              string
	SigningKeyPath      string
	DeveloperKeyPath    string
	AccessTokenLifetime time.Duration
}

type Logger struct {
	Level  string
	Format string
}

// IsDevelopment reports whether the developer signing credential may be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, DevelopmentName)
}

// StoreOptions maps the database section onto store options.
func (c *Config) StoreOptions() sqldb.Options {
	return sqldb.Options{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

// Load reads configuration from path, or from appsettings.* in the working
// directory when path is empty. IDP_ environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("appsettings")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Environment: v.GetString("environment"),
		HTTP:        getHTTPConfig(v),
		Database:    getDatabaseConfig(v),
		OIDC:        getOIDCConfig(v),
		Password:    getPasswordPolicy(v),
		Logger:      getLoggerConfig(v),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", DevelopmentName)

	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("connectionstrings.defaultconnection", "identity.db")
	v.SetDefault("database.driver", sqldb.DriverSQLite)
	v.SetDefault("database.max_open_conns", 0)

	v.SetDefault("oidc.issuer", "http://localhost:5000")
	v.SetDefault("oidc.signing_key_path", "")
	v.SetDefault("oidc.developer_key_path", "tempkey.pem")
	v.SetDefault("oidc.access_token_lifetime", time.Hour)

	policy := membership.DefaultPasswordPolicy()
	v.SetDefault("password.required_length", policy.RequiredLength)
	v.SetDefault("password.require_digit", policy.RequireDigit)
	v.SetDefault("password.require_lowercase", policy.RequireLowercase)
	v.SetDefault("password.require_uppercase", policy.RequireUppercase)
	v.SetDefault("password.require_non_alphanumeric", policy.RequireNonAlphanumeric)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func getHTTPConfig(v *viper.Viper) *HTTP {
	return &HTTP{
		Addr:            v.GetString("http.addr"),
		ReadTimeout:     v.GetDuration("http.read_timeout"),
		WriteTimeout:    v.GetDuration("http.write_timeout"),
		ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
	}
}

func getDatabaseConfig(v *viper.Viper) *Database {
	return &Database{
		Driver:       v.GetString("database.driver"),
		DSN:          v.GetString("connectionstrings.defaultconnection"),
		MaxOpenConns: v.GetInt("database.max_open_conns"),
	}
}

func getOIDCConfig(v *viper.Viper) *OIDC {
	return &OIDC{
		Issuer:              v.GetString("oidc.issuer"),
		SigningKeyPath:      v.GetString("oidc.signing_key_path"),
		DeveloperKeyPath:    v.GetString("oidc.developer_key_path"),
		AccessTokenLifetime: v.GetDuration("oidc.access_token_lifetime"),
	}
}

func getPasswordPolicy(v *viper.Viper) membership.PasswordPolicy {
	return membership.PasswordPolicy{
		RequiredLength:         v.GetInt("password.required_length"),
		RequireDigit:           v.GetBool("password.require_digit"),
		RequireLowercase:       v.GetBool("password.require_lowercase"),
		RequireUppercase:       v.GetBool("password.require_uppercase"),
		RequireNonAlphanumeric: v.GetBool("password.require_non_alphanumeric"),
	}
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
}
