package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"NOMADNEST_ENV", "NOMADNEST_PORT", "NEXT_PUBLIC_API_URL", "NOMADNEST_API_URL",
		"JWT_SECRET", "NOMADNEST_FLASH_KEY", "NOMADNEST_DB_PATH", "NOMADNEST_BLOB_URL",
		"NOMADNEST_BLOB_TOKEN", "NOMADNEST_UPLOAD_DIR", "NOMADNEST_CERT_DIR",
		"NOMADNEST_REQUEST_TIMEOUT", "NOMADNEST_TLS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "", cfg.APIBaseURL)
	assert.False(t, cfg.Production())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "nomadnest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
port: "8443"
api_url: https://api.example.com/
request_timeout: 5s
tls: true
`), 0o600))

	t.Setenv("NOMADNEST_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.TLS)
}

func TestLoad_LegacyAPIVariable(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("NEXT_PUBLIC_API_URL", "http://legacy:5000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://legacy:5000", cfg.APIBaseURL)

	t.Setenv("NOMADNEST_API_URL", "http://primary:5000")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://primary:5000", cfg.APIBaseURL)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("NOMADNEST_REQUEST_TIMEOUT", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
