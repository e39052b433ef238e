package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("GO_ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("TRACING_ENABLED", "")
	t.Setenv("PORT", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "dev", cfg.GoEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string][2]string{
		"missing secret":    {"JWT_SECRET", ""},
		"bad driver":        {"STORE_DRIVER", "mysql"},
		"bad ttl":           {"ACCESS_TOKEN_TTL", "fifteen"},
		"negative timeout":  {"REQUEST_TIMEOUT", "-1s"},
		"bad env":           {"GO_ENV", "staging"},
		"bad log level":     {"LOG_LEVEL", "trace"},
		"bad tracing flag":  {"TRACING_ENABLED", "maybe"},
		"short prod secret": {"GO_ENV", "prod"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresNeedsCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://app:pw@db:5432/foodorder?sslmode=disable")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db:5432/foodorder?sslmode=disable", cfg.PostgresDSN())
}

func TestPostgresDSN_FromParts(t *testing.T) {
	cfg := Config{
		PostgresHost: "localhost", PostgresPort: 5432, PostgresUser: "postgres",
		PostgresPassword: "pw", PostgresDB: "foodorder", PostgresSSLMode: "disable",
	}
	assert.Equal(t, "host=localhost port=5432 user=postgres password=pw dbname=foodorder sslmode=disable", cfg.PostgresDSN())
}

func TestLoadEnvFiles_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FOODORDER_TEST_A=from-file\nFOODORDER_TEST_B=from-file\n"), 0o600))

	t.Setenv("FOODORDER_TEST_A", "from-env")
	t.Setenv("FOODORDER_TEST_B", "")
	require.NoError(t, os.Unsetenv("FOODORDER_TEST_B"))

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "from-env", os.Getenv("FOODORDER_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("FOODORDER_TEST_B"))
}
