package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrMissingRequired is returned when a setting the bridge cannot start
// without is absent.
var ErrMissingRequired = errors.New("missing required configuration")

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// DeviceConfig addresses the plug. Simulate swaps the HTTP client for the
// in-memory plug.
type DeviceConfig struct {
	URL       string  `mapstructure:"url" validate:"required|fullUrl"`
	TimeoutMs int     `mapstructure:"timeout_ms" validate:"required|min:1"`
	Simulate  bool    `mapstructure:"simulate"`
	LoadW     float64 `mapstructure:"load_w"`
	ID        string  `mapstructure:"id" validate:"required"`
}

type CollectionConfig struct {
	IntervalMs    int    `mapstructure:"interval_ms" validate:"required|min:1000"`
	RetentionDays int    `mapstructure:"retention_days" validate:"required|min:1"`
	CleanupAt     string `mapstructure:"cleanup_at" validate:"required"`
	Timezone      string `mapstructure:"timezone" validate:"required"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      int    `mapstructure:"qos" validate:"min:0|max:2"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	SizeMB     int  `mapstructure:"size_mb"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type StreamConfig struct {
	IntervalMs int `mapstructure:"interval_ms" validate:"required|min:100"`
}

// Config is the full runtime configuration.
type Config struct {
	Port       string           `mapstructure:"port" validate:"required"`
	Env        string           `mapstructure:"env" validate:"required|in:development,production"`
	LogLevel   string           `mapstructure:"log_level" validate:"required|in:debug,info,warn,error"`
	Version    string           `mapstructure:"version"`
	DB         DBConfig         `mapstructure:"db"`
	Device     DeviceConfig     `mapstructure:"device"`
	Collection CollectionConfig `mapstructure:"collection"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Influx     InfluxConfig     `mapstructure:"influxdb"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Stream     StreamConfig     `mapstructure:"stream"`
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

func (c *Config) DeviceTimeout() time.Duration {
	return time.Duration(c.Device.TimeoutMs) * time.Millisecond
}

func (c *Config) CollectionInterval() time.Duration {
	return time.Duration(c.Collection.IntervalMs) * time.Millisecond
}

func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.Stream.IntervalMs) * time.Millisecond
}

// Location resolves the retention timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Collection.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Collection.Timezone, err)
	}
	return loc, nil
}

// CleanupClock splits cleanup_at into hour and minute.
func (c *Config) CleanupClock() (hour, minute int) {
	t, err := time.Parse("15:04", c.Collection.CleanupAt)
	if err != nil {
		return 2, 30
	}
	return t.Hour(), t.Minute()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log_level", "info")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("device.url", "http://172.16.0.189")
	v.SetDefault("device.timeout_ms", 10000)
	v.SetDefault("device.id", "default")
	v.SetDefault("collection.interval_ms", 60000)
	v.SetDefault("collection.retention_days", 90)
	v.SetDefault("collection.cleanup_at", "02:30")
	v.SetDefault("collection.timezone", "Europe/Berlin")
	v.SetDefault("mqtt.client_id", "pilo-plug-bridge")
	v.SetDefault("mqtt.topic", "pilo/plug/samples")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size_mb", 8)
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("stream.interval_ms", 2000)
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("env", "APP_ENV", "NODE_ENV")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("db.path", "DB_PATH")
	_ = v.BindEnv("device.url", "DEVICE_URL", "HOMEWIZARD_URL")
	_ = v.BindEnv("device.timeout_ms", "DEVICE_TIMEOUT")
	_ = v.BindEnv("device.simulate", "DEVICE_SIMULATE")
	_ = v.BindEnv("collection.interval_ms", "COLLECTION_INTERVAL")
	_ = v.BindEnv("collection.retention_days", "STATS_RETENTION_DAYS")
	_ = v.BindEnv("collection.timezone", "TZ_CLEANUP")
	_ = v.BindEnv("mqtt.enabled", "MQTT_ENABLED")
	_ = v.BindEnv("mqtt.broker", "MQTT_BROKER")
	_ = v.BindEnv("mqtt.topic", "MQTT_TOPIC")
	_ = v.BindEnv("mqtt.username", "MQTT_USERNAME")
	_ = v.BindEnv("mqtt.password", "MQTT_PASSWORD")
	_ = v.BindEnv("influxdb.enabled", "INFLUXDB_ENABLED")
	_ = v.BindEnv("influxdb.url", "INFLUXDB_URL")
	_ = v.BindEnv("influxdb.token", "INFLUXDB_TOKEN")
	_ = v.BindEnv("influxdb.org", "INFLUXDB_ORG")
	_ = v.BindEnv("influxdb.bucket", "INFLUXDB_BUCKET")
}

// Load reads configs/config.yml (or the file at path when non-empty),
// applies environment overrides and validates the result. A missing config
// file is not an error; every setting has a default except db.path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("%w: db.path", ErrMissingRequired)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker", ErrMissingRequired)
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("%w: influxdb.url and influxdb.bucket", ErrMissingRequired)
	}

	if _, err := time.Parse("15:04", c.Collection.CleanupAt); err != nil {
		return fmt.Errorf("invalid configuration: collection.cleanup_at %q is not HH:MM", c.Collection.CleanupAt)
	}

	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %w", v.Errors)
	}
	return nil
}
