package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsKnownEnvironments(t *testing.T) {
	for _, env := range []string{"development", "staging", "production"} {
		cfg := &Config{
			App:     AppConfig{Environment: env},
			Logger:  LoggerConfig{Level: "info"},
			Data:    DataConfig{BasePath: "/var/lib/shelfmark"},
			Catalog: CatalogConfig{BaseURL: defaultCatalogBaseURL},
		}
		assert.NoError(t, cfg.Validate(), env)
	}
}

func TestValidate_RejectsUnknownEnvironment(t *testing.T) {
	cfg := &Config{
		App:     AppConfig{Environment: "testing"},
		Logger:  LoggerConfig{Level: "info"},
		Data:    DataConfig{BasePath: "/var/lib/shelfmark"},
		Catalog: CatalogConfig{BaseURL: defaultCatalogBaseURL},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "verbose"},
		Data:    DataConfig{BasePath: "/var/lib/shelfmark"},
		Catalog: CatalogConfig{BaseURL: defaultCatalogBaseURL},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresDataPath(t *testing.T) {
	cfg := &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Catalog: CatalogConfig{BaseURL: defaultCatalogBaseURL},
	}
	assert.Error(t, cfg.Validate())
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/shelfmark", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shelfmark"), got)
}

func TestExpandPath_EmptyUsesDefault(t *testing.T) {
	got, err := expandPath("", "/srv/default")
	require.NoError(t, err)
	assert.Equal(t, "/srv/default", got)
}

func TestLoadEnvFile_EnvVarsWin(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# comment\n"+
			"SHELFMARK_TEST_A=from_file\n"+
			"SHELFMARK_TEST_B=\"quoted\"\n",
	), 0o600))

	t.Setenv("SHELFMARK_TEST_A", "from_env")

	require.NoError(t, loadEnvFile(envFile))
	t.Cleanup(func() { os.Unsetenv("SHELFMARK_TEST_B") })

	assert.Equal(t, "from_env", os.Getenv("SHELFMARK_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("SHELFMARK_TEST_B"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("not a key value pair\n"), 0o600))

	assert.Error(t, loadEnvFile(envFile))
}
