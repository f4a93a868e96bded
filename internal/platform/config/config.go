package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix は環境変数による上書きに使う接頭辞です。
	EnvPrefix = "EMPLOYEES"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultPath = "assets/local.yaml"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Env      string         `mapstructure:"env"      yaml:"env"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// ServerConfig は HTTP / gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `mapstructure:"listen_addr"      yaml:"listen_addr"`
	GRPCListenAddr     string        `mapstructure:"grpc_listen_addr" yaml:"grpc_listen_addr"`
	ShutdownTimeout    time.Duration `mapstructure:"-"                yaml:"-"`
	HealthInterval     time.Duration `mapstructure:"-"                yaml:"-"`
	ShutdownTimeoutRaw string        `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthIntervalRaw  string        `mapstructure:"health_interval"  yaml:"health_interval"`
}

// DatabaseConfig はレコードストアの接続設定です。
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"             yaml:"driver"`
	Host               string        `mapstructure:"host"               yaml:"host"`
	Port               int           `mapstructure:"port"               yaml:"port"`
	User               string        `mapstructure:"user"               yaml:"user"`
	Password           string        `mapstructure:"password"           yaml:"password"`
	Name               string        `mapstructure:"name"               yaml:"name"`
	SSLMode            string        `mapstructure:"ssl_mode"           yaml:"ssl_mode"`
	SQLitePath         string        `mapstructure:"sqlite_path"        yaml:"sqlite_path"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"     yaml:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"     yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"-"                  yaml:"-"`
	ConnMaxIdleTime    time.Duration `mapstructure:"-"                  yaml:"-"`
	ConnMaxLifetimeRaw string        `mapstructure:"conn_max_lifetime"  yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// ResolvePath は明示されたパス、CONFIG_PATH、既定値の順で設定ファイルのパスを決定します。
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultPath
}

// Load は指定されたパスから設定ファイルを読み込み、EMPLOYEES_ 接頭辞の環境変数で上書きします。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults は環境変数だけで指定されるキーも Unmarshal の対象にするため、全キーを登録します。
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("server.listen_addr", "")
	v.SetDefault("server.grpc_listen_addr", ":50051")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.health_interval", "15s")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.ssl_mode", "")
	v.SetDefault("database.sqlite_path", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "")
	v.SetDefault("database.conn_max_idle_time", "")
}

func (c *Config) validateAndNormalize() error {
	switch c.Env {
	case "local", "development", "production":
	default:
		return fmt.Errorf("config: env must be one of local, development, production: got %q", c.Env)
	}

	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}

	db := &c.Database
	if err := db.validateAndNormalize(); err != nil {
		return err
	}

	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	shutdown, err := parseDurationAllowEmpty(s.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	s.ShutdownTimeout = shutdown

	interval, err := parseDurationAllowEmpty(s.HealthIntervalRaw)
	if err != nil {
		return fmt.Errorf("config: server.health_interval: %w", err)
	}
	s.HealthInterval = interval

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	switch d.Driver {
	case DriverSQLite:
		if d.SQLitePath == "" {
			return fmt.Errorf("config: database.sqlite_path must be set for the sqlite driver")
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("config: database.driver %q is not supported", d.Driver)
	}

	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx / golang-migrate 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
