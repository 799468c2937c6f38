// Package config loads server and CLI settings from an optional YAML file
// and ORIENTA_* environment variables. Environment wins over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orienta/orienta/internal/utils"
)

// DevJWTSecret is the signing key used when none is configured. Production
// refuses to start with it.
const DevJWTSecret = "orienta-dev-secret-change-me"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Admin    AdminConfig    `yaml:"admin"`
	Backup   BackupConfig   `yaml:"backup"`
	Google   GoogleConfig   `yaml:"google"`
	Client   ClientConfig   `yaml:"client"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	Commit      string   `yaml:"commit"`
	BuildTime   string   `yaml:"build_time"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver"` // memory, sqlite3, postgres
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
	// ImportSnapshot seeds an empty database from a backup file on start.
	ImportSnapshot string `yaml:"import_snapshot"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// AdminConfig describes the account created at startup when missing.
// An empty Email disables it.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type BackupConfig struct {
	Dir string `yaml:"dir"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	TokenInfoURL string `yaml:"tokeninfo_url"`
}

type ClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	SessionFile string `yaml:"session_file"`
}

type LogConfig struct {
	Env     string `yaml:"env"` // development or production
	Verbose bool   `yaml:"verbose"`
}

// Default returns a configuration that runs locally without any files.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/orienta.db?_busy_timeout=5000"},
		JWT:      JWTConfig{Secret: DevJWTSecret, TTL: 24 * time.Hour},
		Backup:   BackupConfig{Dir: "data/backups"},
		Client:   ClientConfig{BaseURL: "http://localhost:8080", SessionFile: defaultSessionFile()},
		Log:      LogConfig{Env: "development"},
	}
}

func defaultSessionFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "orienta", "session.json")
	}
	return ".orienta-session.json"
}

// Load reads path (or $ORIENTA_CONFIG when path is empty) over the
// defaults and applies environment overrides. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("ORIENTA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Addr = utils.SafeEnv("ORIENTA_ADDR", c.Server.Addr)
	c.Server.CORSOrigins = utils.SafeEnvList("ORIENTA_CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.Commit = utils.SafeEnv("ORIENTA_COMMIT", c.Server.Commit)
	c.Server.BuildTime = utils.SafeEnv("ORIENTA_BUILD_TIME", c.Server.BuildTime)

	c.Database.Driver = utils.SafeEnv("ORIENTA_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = utils.SafeEnv("ORIENTA_DB_DSN", c.Database.DSN)
	c.Database.MigrationsDir = utils.SafeEnv("ORIENTA_MIGRATIONS_DIR", c.Database.MigrationsDir)
	c.Database.ImportSnapshot = utils.SafeEnv("ORIENTA_IMPORT_SNAPSHOT", c.Database.ImportSnapshot)

	c.JWT.Secret = utils.SafeEnv("ORIENTA_JWT_SECRET", c.JWT.Secret)
	c.JWT.TTL = utils.SafeEnvDuration("ORIENTA_JWT_TTL", c.JWT.TTL)

	c.Admin.Email = utils.SafeEnv("ORIENTA_ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Name = utils.SafeEnv("ORIENTA_ADMIN_NAME", c.Admin.Name)
	c.Admin.Password = utils.SafeEnv("ORIENTA_ADMIN_PASSWORD", c.Admin.Password)

	c.Backup.Dir = utils.SafeEnv("ORIENTA_BACKUP_DIR", c.Backup.Dir)

	c.Google.ClientID = utils.SafeEnv("ORIENTA_GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.TokenInfoURL = utils.SafeEnv("ORIENTA_GOOGLE_TOKENINFO_URL", c.Google.TokenInfoURL)

	c.Client.BaseURL = utils.SafeEnv("ORIENTA_API_URL", c.Client.BaseURL)
	c.Client.SessionFile = utils.SafeEnv("ORIENTA_SESSION_FILE", c.Client.SessionFile)

	c.Log.Env = utils.SafeEnv("ORIENTA_ENV", c.Log.Env)
	if v := strings.ToLower(os.Getenv("ORIENTA_VERBOSE")); v != "" {
		c.Log.Verbose = v == "1" || v == "true" || v == "yes"
	}
}

// Production reports whether Log.Env selects production behavior.
func (c *Config) Production() bool { return strings.EqualFold(c.Log.Env, "production") }

// ValidateServer checks the settings the API server depends on.
func (c *Config) ValidateServer() error {
	var errs []error
	switch c.Database.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be memory, sqlite3 or postgres", c.Database.Driver))
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	} else if c.Production() && (c.JWT.Secret == DevJWTSecret || len(c.JWT.Secret) < 32) {
		errs = append(errs, errors.New("jwt.secret must be a non-default value of at least 32 characters in production"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if strings.TrimSpace(c.Backup.Dir) == "" {
		errs = append(errs, errors.New("backup.dir is required"))
	}
	if c.Admin.Email != "" && len(c.Admin.Password) < 6 {
		errs = append(errs, errors.New("admin.password must have at least 6 characters"))
	}
	return errors.Join(errs...)
}
