package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/usecase/membership"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.IsDevelopment())
	require.Equal(t, ":5000", cfg.HTTP.Addr)
	require.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	require.Equal(t, sqldb.Options{Driver: sqldb.DriverSQLite, DSN: "identity.db"}, cfg.StoreOptions())
	require.Equal(t, "http://localhost:5000", cfg.OIDC.Issuer)
	require.Equal(t, "tempkey.pem", cfg.OIDC.DeveloperKeyPath)
	require.Empty(t, cfg.OIDC.SigningKeyPath)
	require.Equal(t, time.Hour, cfg.OIDC.AccessTokenLifetime)
	require.Equal(t, membership.DefaultPasswordPolicy(), cfg.Password)
	require.Equal(t, &Logger{Level: "info", Format: "text"}, cfg.Logger)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appsettings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: Production
connectionstrings:
  defaultconnection: "user:pass@tcp(localhost:3306)/identity"
database:
  driver: mysql
oidc:
  signing_key_path: /etc/idp/signing.pem
  access_token_lifetime: 30m
password:
  require_non_alphanumeric: false
log:
  format: json
`), 0o600))

	t.Setenv("IDP_HTTP_ADDR", ":8080")
	t.Setenv("IDP_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.IsDevelopment())
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, sqldb.DriverMySQL, cfg.Database.Driver)
	require.Equal(t, "user:pass@tcp(localhost:3306)/identity", cfg.Database.DSN)
	require.Equal(t, "/etc/idp/signing.pem", cfg.OIDC.SigningKeyPath)
	require.Equal(t, 30*time.Minute, cfg.OIDC.AccessTokenLifetime)
	require.False(t, cfg.Password.RequireNonAlphanumeric)
	require.True(t, cfg.Password.RequireDigit)
	require.Equal(t, &Logger{Level: "debug", Format: "json"}, cfg.Logger)
}

func TestLoad_DiscoversAppSettingsInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appsettings.json"),
		[]byte(`{"ConnectionStrings": {"DefaultConnection": "other.db"}}`), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "other.db", cfg.Database.DSN)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
