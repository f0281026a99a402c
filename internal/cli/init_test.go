package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FEEDESK_TEST_KEY=from-file\n"), 0o600))
	t.Setenv("FEEDESK_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("FEEDESK_TEST_KEY"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("FEEDESK_TEST_KEY"))
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	require.NotNil(t, logger)
	assert.Equal(t, "app", logger.Component())
}
