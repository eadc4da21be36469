package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines the gateway configuration. Everything tunable (port path,
// extra OBIS codes, optional sinks) lives here and is passed down explicitly;
// nothing reads ambient globals.
type Config struct {
	Serial struct {
		Port      string `yaml:"port"`
		BaudRate  int    `yaml:"baudRate"`
		VerifyCRC bool   `yaml:"verifyCrc"`
	} `yaml:"serial"`

	// ObisCodes extends the built-in code table: OBIS code -> description.
	ObisCodes map[string]string `yaml:"obisCodes" env:"P1GW_OBIS_CODES"`

	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		TTLSeconds int    `yaml:"ttlSeconds"`
	} `yaml:"redis"`

	MQTT struct {
		Broker   string `yaml:"broker"`
		ClientID string `yaml:"clientId"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"mqtt"`

	Auth struct {
		JWTSecret    string        `yaml:"jwtSecret"`
		PasswordHash string        `yaml:"passwordHash"`
		TokenTTL     time.Duration `yaml:"tokenTtl"`
	} `yaml:"auth"`

	Export struct {
		CSVDir string `yaml:"csvDir"`
	} `yaml:"export"`
}

// Load reads configuration and applies defaults and validation.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Serial.BaudRate = 115200
	cfg.Serial.VerifyCRC = true
	cfg.HTTP.Port = "7592"
	cfg.Redis.TTLSeconds = 300
	cfg.MQTT.ClientID = "p1gateway"
	cfg.MQTT.Prefix = "homeassistant"
	cfg.Auth.TokenTTL = time.Hour

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Serial.Port) == "" {
		return nil, errors.New("config: serial port required")
	}
	if cfg.Serial.BaudRate <= 0 {
		return nil, errors.New("config: serial baud rate must be positive")
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if cfg.HistoryEnabled() && strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: auth jwt secret required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "7592"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// LatestTTL returns the redis TTL as a duration.
func (c *Config) LatestTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// RedisEnabled reports whether the latest-reading cache is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// MQTTEnabled reports whether Home Assistant publishing is configured.
func (c *Config) MQTTEnabled() bool {
	return strings.TrimSpace(c.MQTT.Broker) != ""
}

// CSVEnabled reports whether the daily CSV archive is configured.
func (c *Config) CSVEnabled() bool {
	return strings.TrimSpace(c.Export.CSVDir) != ""
}

// HistoryEnabled reports whether the token-protected history API is on. It
// requires an operator password hash to issue tokens against.
func (c *Config) HistoryEnabled() bool {
	return strings.TrimSpace(c.Auth.PasswordHash) != ""
}
