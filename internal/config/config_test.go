package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
env: "prod"
http_server:
  address: "0.0.0.0:9000"
  timeout: 2s
storage:
  driver: "mysql"
  dsn: "root:secret@tcp(db:3306)/boxes"
events:
  driver: "pusher"
  workers: 2
  queue_size: 10
  pusher:
    app_id: "1"
    key: "k"
    secret: "s"
    cluster: "eu"
rtp:
  tolerance: 0.002
  bands:
    - { name: "all", display_name: "All", color: "#fff", min_ratio: 0 }
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTPServer.Address)
	assert.Equal(t, 2*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, StorageMySQL, cfg.Storage.Driver)
	assert.Equal(t, EventsPusher, cfg.Events.Driver)
	assert.Equal(t, "eu", cfg.Events.Pusher.Cluster)
	assert.Equal(t, 0.002, cfg.RTP.Tolerance)
	require.Len(t, cfg.RTP.Bands, 1)
	assert.Equal(t, "all", cfg.RTP.Bands[0].Name)

	solver := cfg.RTP.SolverConfig()
	assert.Equal(t, cfg.RTP.Bands, solver.Bands)
}

func TestLoadKeepsDefaultBands(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: \"dev\"\n"))
	require.NoError(t, err)

	assert.Len(t, cfg.RTP.Bands, 4)
	assert.Equal(t, StorageBadger, cfg.Storage.Driver)
	assert.Equal(t, EventsNone, cfg.Events.Driver)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "UnknownEnv", content: "env: \"staging\"\n"},
		{name: "MySQLWithoutDSN", content: "storage:\n  driver: \"mysql\"\n"},
		{name: "UnknownStorage", content: "storage:\n  driver: \"redis\"\n"},
		{name: "WSWithoutURL", content: "events:\n  driver: \"ws\"\n  ws_secret: \"s\"\n"},
		{name: "WSWithoutSecret", content: "events:\n  driver: \"ws\"\n  ws_url: \"ws://hub/publish\"\n"},
		{name: "ToleranceTooLoose", content: "rtp:\n  tolerance: 0.01\n"},
		{name: "BandWithoutName", content: "rtp:\n  bands:\n    - { display_name: \"x\", color: \"#000\" }\n"},
		{name: "BadYAML", content: "env: [\n"},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalExampleLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "local.yaml"))
	require.NoError(t, err)
	assert.Equal(t, EventsWS, cfg.Events.Driver)
	assert.NotEmpty(t, cfg.Events.WSSecret)
	assert.Len(t, cfg.RTP.Bands, 4)
}
