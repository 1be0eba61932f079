package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livecap.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	fc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, fc.Listen)
	assert.Equal(t, "./data", fc.DataDir)
	assert.Equal(t, filepath.Join("./data", "livecap.db"), fc.StorePath())
	assert.Equal(t, "info", fc.Log.Level)

	app := fc.AppConfig()
	assert.Equal(t, "ffmpeg", app.FFmpegPath)
	assert.Equal(t, "./recordings", app.SavePath)
	assert.Equal(t, uint64(60), app.LiveCheckInterval)
	assert.Empty(t, fc.SinkDSNs())
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
listen = "0.0.0.0:8080"
data_dir = "/var/lib/livecap"

[log]
level = "debug"
color = true

[capture_log]
dir = "/var/log/livecap"
max_size_mb = 50

[record]
ffmpeg_path = "/usr/local/bin/ffmpeg"
save_path = "/srv/recordings"
live_check_interval = 30

[[sinks]]
dsn = "postgres://user:pw@localhost:5432/livecap"

[[sinks]]
dsn = "clickhouse://localhost:9000/default"
`)
	fc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", fc.Listen)
	assert.Equal(t, filepath.Join("/var/lib/livecap", "livecap.db"), fc.StorePath())
	assert.Equal(t, "debug", fc.Log.Level)
	assert.True(t, fc.Log.Color)

	capLog := fc.CaptureLogConfig()
	assert.Equal(t, "/var/log/livecap", capLog.Dir)
	assert.Equal(t, 50, capLog.MaxSizeMB)

	app := fc.AppConfig()
	assert.Equal(t, "/usr/local/bin/ffmpeg", app.FFmpegPath)
	assert.Equal(t, "/srv/recordings", app.SavePath)
	assert.Equal(t, uint64(30), app.LiveCheckInterval)

	assert.Equal(t, []string{
		"postgres://user:pw@localhost:5432/livecap",
		"clickhouse://localhost:9000/default",
	}, fc.SinkDSNs())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "listen = [broken")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestGlobalEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "proxy.env")
	require.NoError(t, os.WriteFile(envFile, []byte("# proxy for cdn fetches\nHTTP_PROXY=http://file:3128\nNO_PROXY = localhost\n"), 0o644))

	path := writeConfig(t, `
env = ["HTTP_PROXY=http://inline:3128"]
env_files = ["`+envFile+`"]
`)
	fc, err := Load(path)
	require.NoError(t, err)

	env, err := fc.GlobalEnv()
	require.NoError(t, err)
	assert.Contains(t, env, "HTTP_PROXY=http://inline:3128")
	assert.Contains(t, env, "NO_PROXY=localhost")
}

func TestGlobalEnvUsesOSEnv(t *testing.T) {
	t.Setenv("LIVECAP_TEST_VAR", "from-os")
	path := writeConfig(t, "use_os_env = true\n")
	fc, err := Load(path)
	require.NoError(t, err)

	env, err := fc.GlobalEnv()
	require.NoError(t, err)
	assert.Contains(t, env, "LIVECAP_TEST_VAR=from-os")
}

func TestGlobalEnvMissingEnvFile(t *testing.T) {
	path := writeConfig(t, `env_files = ["/nonexistent/x.env"]`)
	fc, err := Load(path)
	require.NoError(t, err)
	_, err = fc.GlobalEnv()
	assert.Error(t, err)
}
