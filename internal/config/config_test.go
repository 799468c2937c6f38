package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("ORIENTA_CONFIG", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orienta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  cors_origins: ["https://a.example"]
database:
  driver: postgres
  dsn: postgres://localhost/orienta
jwt:
  secret: from-file
  ttl: 2h
backup:
  dir: /var/backups/orienta
`), 0o600))
	t.Setenv("ORIENTA_CONFIG", path)
	t.Setenv("ORIENTA_ADDR", ":9100")
	t.Setenv("ORIENTA_CORS_ORIGINS", "https://b.example, https://c.example")
	t.Setenv("ORIENTA_VERBOSE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "/var/backups/orienta", cfg.Backup.Dir)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.JWT.TTL = 0
	cfg.Admin.Email = "admin@example.com"
	cfg.Admin.Password = "123"
	err := cfg.ValidateServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "jwt.ttl")
	assert.Contains(t, err.Error(), "admin.password")

	prod := Default()
	prod.Log.Env = "production"
	assert.ErrorContains(t, prod.ValidateServer(), "jwt.secret")
	prod.JWT.Secret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, prod.ValidateServer())

	mem := Default()
	mem.Database = DatabaseConfig{Driver: "memory"}
	assert.NoError(t, mem.ValidateServer())
}
