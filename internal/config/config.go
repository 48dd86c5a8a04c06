package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Port         string `yaml:"port"`
	PublicDir    string `yaml:"public_dir"`
	CookieSecure bool   `yaml:"cookie_secure"`

	Database Database `yaml:"database"`
	Session  Session  `yaml:"session"`
	Redis    Redis    `yaml:"redis"`
	Mail     Mail     `yaml:"mail"`
	Limits   Limits   `yaml:"limits"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
}

type Session struct {
	Secret      string        `yaml:"secret"`
	Backend     string        `yaml:"backend"` // filesystem or redis
	Dir         string        `yaml:"dir"`
	MaxAge      time.Duration `yaml:"max_age"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Mail struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Admin    string `yaml:"admin"`
}

type Limits struct {
	ContactPerHour  int   `yaml:"contact_per_hour"`
	LoginPerHour    int   `yaml:"login_per_hour"`
	AdminPerHour    int   `yaml:"admin_per_hour"`
	UploadMaxBytes  int64 `yaml:"upload_max_bytes"`
	MessagesPerPage int   `yaml:"messages_per_page"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:      "8080",
		PublicDir: "public",
		Database: Database{
			Driver: "sqlite3",
			DSN:    "portfolio.db",
		},
		Session: Session{
			Secret:      "",
			Backend:     "filesystem",
			Dir:         "",
			MaxAge:      24 * time.Hour,
			IdleTimeout: 30 * time.Minute,
		},
		Redis: Redis{Addr: "localhost:6379"},
		Mail:  Mail{Port: 587},
		Limits: Limits{
			ContactPerHour:  3,
			LoginPerHour:    10,
			AdminPerHour:    100,
			UploadMaxBytes:  5 * 1024 * 1024,
			MessagesPerPage: 10,
		},
	}
}

// Load reads filename on top of the defaults. The returned config is usable
// even when err is non-nil because the file could not be read.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", filename, err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.PublicDir = getEnv("PUBLIC_DIR", c.PublicDir)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Pass = getEnv("DB_PASS", c.Database.Pass)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.Backend = getEnv("SESSION_BACKEND", c.Session.Backend)
	c.Session.Dir = getEnv("SESSION_DIR", c.Session.Dir)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Mail.Enabled = getEnvBool("MAIL_ENABLED", c.Mail.Enabled)
	c.Mail.Host = getEnv("SMTP_HOST", c.Mail.Host)
	c.Mail.Port = getEnvInt("SMTP_PORT", c.Mail.Port)
	c.Mail.Username = getEnv("SMTP_USERNAME", c.Mail.Username)
	c.Mail.Password = getEnv("SMTP_PASSWORD", c.Mail.Password)
	c.Mail.From = getEnv("MAIL_FROM", c.Mail.From)
	c.Mail.Admin = getEnv("MAIL_ADMIN", c.Mail.Admin)
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite3", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}

	switch c.Session.Backend {
	case "filesystem", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported session backend %q", c.Session.Backend))
	}

	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("session secret must be at least 32 bytes"))
	}

	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "" || c.Mail.Admin == "") {
		errs = append(errs, errors.New("mail enabled but host, from or admin address missing"))
	}

	return errors.Join(errs...)
}

// DataSource returns the configured DSN or builds one from the discrete fields.
func (d Database) DataSource() string {
	if d.DSN != "" && (d.Host == "" || d.Driver == "sqlite3") {
		return d.DSN
	}

	switch d.Driver {
	case "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			d.User, d.Pass, d.Host, port, d.Name)
	case "postgres":
		port := d.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
			d.Host, port, d.Name, d.User, d.Pass)
	default:
		return d.DSN
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}
