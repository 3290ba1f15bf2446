package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEDADMIN_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.Poll.Interval)
	require.Equal(t, 20*time.Second, cfg.Actor.Timeout)
	require.Equal(t, "pinning", cfg.Upload.Provider)
	require.Equal(t, "medadmin-activity", cfg.Events.Topic)
	require.Empty(t, cfg.Events.Brokers)
	require.Equal(t, filepath.Join(DataDir(), "journal.db"), cfg.Journal.Path)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "medadmin.toml")
	data := `
[actor]
endpoint = "http://bridge.local"
canister_id = "rrkah-fqaaa-aaaaa-aaaaq-cai"
timeout = "5s"

[poll]
interval = "10s"

[upload]
provider = "s3"
s3_bucket = "records"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("MEDADMIN_CONFIG", path)
	t.Setenv("MEDADMIN_UPLOAD_S3_BUCKET", "override-bucket")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://bridge.local", cfg.Actor.Endpoint)
	require.Equal(t, "rrkah-fqaaa-aaaaa-aaaaq-cai", cfg.Actor.CanisterID)
	require.Equal(t, 5*time.Second, cfg.Actor.Timeout)
	require.Equal(t, 10*time.Second, cfg.Poll.Interval)
	require.Equal(t, "s3", cfg.Upload.Provider)
	require.Equal(t, "override-bucket", cfg.Upload.S3Bucket)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "out", "config.toml")
	t.Setenv("MEDADMIN_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Actor.Endpoint = "http://saved.local"
	cfg.Poll.Interval = 45 * time.Second
	require.NoError(t, Save(cfg))

	again, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://saved.local", again.Actor.Endpoint)
	require.Equal(t, 45*time.Second, again.Poll.Interval)
}
