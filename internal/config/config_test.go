package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanlambb/biaslens/internal/config"
)

// Config loading goes through the process-global viper, so these tests run
// serially and reset it between cases.

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	require.NoError(t, config.Init(writeConfigFile(t, "")))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Address)
	assert.Equal(t, "http://localhost:8000", cfg.Classifier.BaseURL)
	assert.True(t, cfg.Detection.Enabled)
	assert.InDelta(t, 0.5, cfg.Detection.Threshold, 1e-9)
	assert.Equal(t, 20, cfg.Detection.MinTextLength)
	assert.Equal(t, 500*time.Millisecond, cfg.Detection.Debounce)
}

func TestLoadFromFile(t *testing.T) {
	resetViper(t)

	path := writeConfigFile(t, `
server:
  address: ":9999"
classifier:
  base_url: "http://classifier:8000"
  timeout: 10s
detection:
  threshold: 0.8
  auto_remove: true
  min_text_length: 40
  debounce: 250ms
logger:
  level: debug
`)

	require.NoError(t, config.Init(path))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "http://classifier:8000", cfg.Classifier.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Classifier.Timeout)
	assert.InDelta(t, 0.8, cfg.Detection.Threshold, 1e-9)
	assert.True(t, cfg.Detection.AutoRemove)
	assert.Equal(t, 40, cfg.Detection.MinTextLength)
	assert.Equal(t, 250*time.Millisecond, cfg.Detection.Debounce)
}

func TestLoadEnvOverride(t *testing.T) {
	resetViper(t)
	t.Setenv("BIASLENS_DETECTION_THRESHOLD", "0.7")

	require.NoError(t, config.Init(writeConfigFile(t, "")))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cfg.Detection.Threshold, 1e-9)
}

func TestInitMissingFileIsNotFatal(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	require.NoError(t, config.Init(""))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Server.Address)
}

func TestValidateRejectsBadValues(t *testing.T) {
	resetViper(t)

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "threshold too high",
			content: `
detection:
  threshold: 0.95
`,
		},
		{
			name: "threshold too low",
			content: `
detection:
  threshold: 0.05
`,
		},
		{
			name: "zero min text length",
			content: `
detection:
  min_text_length: 0
`,
		},
		{
			name: "empty server address",
			content: `
server:
  address: ""
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			require.NoError(t, config.Init(writeConfigFile(t, tt.content)))

			_, err := config.Load()
			require.ErrorIs(t, err, config.ErrConfigInvalid)
		})
	}
}
