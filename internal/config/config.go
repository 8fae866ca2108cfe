package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	goora "github.com/sijms/go-ora/v2"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "bankreviews.yaml"

// Environment overrides applied after the file is read.
const (
	EnvDSN      = "BANKREVIEWS_DB_DSN"
	EnvPassword = "BANKREVIEWS_DB_PASSWORD"
)

// Config represents the top-level bankreviews.yaml configuration.
type Config struct {
	Database    DatabaseConfig `yaml:"database"`
	Files       []string       `yaml:"files,omitempty"`
	ImportDir   string         `yaml:"import_dir,omitempty"`
	RejectsFile string         `yaml:"rejects_file,omitempty"`
	LogLevel    string         `yaml:"log_level"`
}

// DatabaseConfig identifies the target database. DSN, when set, is used
// verbatim and the other connection fields are ignored.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	User        string `yaml:"user,omitempty"`
	Password    string `yaml:"password,omitempty"`
	ServiceName string `yaml:"service_name,omitempty"` // database name for postgres
	Path        string `yaml:"path,omitempty"`         // sqlite only
	SSLMode     string `yaml:"sslmode,omitempty"`
	DSN         string `yaml:"dsn,omitempty"`
}

// Load reads a bankreviews.yaml file from disk and applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyEnv()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config for a local Oracle XE instance. The password is
// left empty so it can come from the environment.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      "oracle",
			Host:        "localhost",
			Port:        1521,
			User:        "bank_reviews",
			ServiceName: "XEPDB1",
		},
		LogLevel: "info",
	}
}

// LoadEnv loads variables from .env style files into the process
// environment. Missing files are ignored and existing variables win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides connection settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Database.Password = v
	}
}

// ResolvePaths makes relative file paths relative to base, normally the
// directory holding the config file.
func (c *Config) ResolvePaths(base string) {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, f := range c.Files {
		c.Files[i] = rel(f)
	}
	c.ImportDir = rel(c.ImportDir)
	c.RejectsFile = rel(c.RejectsFile)
	c.Database.Path = rel(c.Database.Path)
}

// DSN builds the data source name for the configured driver.
func (c *Config) DSN() (string, error) {
	db := c.Database
	if db.DSN != "" {
		return db.DSN, nil
	}
	switch db.Driver {
	case "oracle":
		if db.Host == "" || db.ServiceName == "" {
			return "", errors.New("oracle requires database.host and database.service_name")
		}
		port := db.Port
		if port == 0 {
			port = 1521
		}
		return goora.BuildUrl(db.Host, port, db.ServiceName, db.User, db.Password, nil), nil
	case "postgres":
		kv := map[string]string{
			"host":     db.Host,
			"user":     db.User,
			"password": db.Password,
			"dbname":   db.ServiceName,
			"sslmode":  db.SSLMode,
		}
		if db.Port != 0 {
			kv["port"] = strconv.Itoa(db.Port)
		}
		return pqConnString(kv), nil
	case "sqlite3":
		if db.Path == "" {
			return "", errors.New("sqlite3 requires database.path")
		}
		return "file:" + db.Path + "?_foreign_keys=on", nil
	case "":
		return "", errors.New("database.driver is not set")
	default:
		return "", fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

// pqConnString renders lib/pq key=value pairs, skipping empty values.
func pqConnString(kv map[string]string) string {
	keys := make([]string, 0, len(kv))
	for k, v := range kv {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+pqQuote(kv[k]))
	}
	return strings.Join(parts, " ")
}

func pqQuote(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log_level: %w", err)
	}
	return l, nil
}
