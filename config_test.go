package webparazzi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ChoiSG/webparazzi/pkg/screener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webparazzi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
capture_concurrency: 2
output_dir: /tmp/shots
imprint: true
resolver:
  concurrency: 20
  ignore_status_codes: [404, 503]
capture:
  engine: chromedp
  timeout: 30
`)

	options, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, options.CaptureConcurrency)
	assert.Equal(t, "/tmp/shots", options.OutputDir)
	assert.True(t, options.Imprint)
	assert.Equal(t, 20, options.Resolver.Concurrency)
	assert.Equal(t, []int{404, 503}, options.Resolver.IgnoreStatusCodes)
	assert.Equal(t, screener.EngineChromedp, options.Capture.Engine)
	assert.Equal(t, 30, options.Capture.Timeout)

	// untouched keys keep their defaults
	assert.Equal(t, 3, options.Resolver.Timeout)
	assert.Equal(t, 96, options.DuplicateThreshold)
	assert.True(t, options.Capture.Headless)
	assert.Equal(t, screener.DefaultUserAgent, options.Capture.UserAgent)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"engine":    "capture:\n  engine: firefox\n",
		"workers":   "resolver:\n  concurrency: 0\n",
		"threshold": "duplicate_threshold: 101\n",
		"syntax":    "capture: [",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigSharedProbeSettings(t *testing.T) {
	path := writeConfig(t, `
resolver:
  respect_cert_errors: true
capture:
  user_agent: webparazzi-test
`)

	options, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "webparazzi-test", options.Capture.UserAgent)
	assert.Equal(t, "webparazzi-test", options.Resolver.UserAgent)
	assert.True(t, options.Resolver.RespectCertificateErrors)
	assert.True(t, options.Capture.RespectCertificateErrors)

	for _, content := range []string{
		"resolver:\n  user_agent: other\n",
		"capture:\n  respect_cert_errors: true\n",
		"no_such_key: 1\n",
	} {
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err, content)
	}
}

func TestLoadConfigEmpty(t *testing.T) {
	options, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), options)
}

func TestDefaultOptionsAreValid(t *testing.T) {
	assert.NoError(t, ValidateOptions(DefaultOptions()))
}
