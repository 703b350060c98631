package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "imap.mail.me.com", cfg.IMAP.Host)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.True(t, cfg.IMAP.TLS)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 100, cfg.Plan.CommitEvery)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
imap:
  host: imap.example.com
  port: 1993
  username: alice
database: /tmp/dedup.db
all_mail: Archive
batch_size: 10
retry:
  max_attempts: 3
  initial_delay: 10ms
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "imap.example.com", cfg.IMAP.Host)
	assert.Equal(t, 1993, cfg.IMAP.Port)
	assert.Equal(t, "alice", cfg.IMAP.Username)
	assert.Equal(t, "imap.example.com:1993", cfg.IMAP.Addr())
	assert.Equal(t, "/tmp/dedup.db", cfg.Database)
	assert.Equal(t, "Archive", cfg.AllMail)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, time.Second, cfg.Retry.MaxDelay)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("IMAPDEDUP_ALL_MAIL", "[Gmail]/All Mail")
	t.Setenv("IMAPDEDUP_IMAP_USERNAME", "bob")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "[Gmail]/All Mail", cfg.AllMail)
	assert.Equal(t, "bob", cfg.IMAP.Username)
}

func TestValidateRemote(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.ErrorIs(t, cfg.ValidateRemote(), ErrMissingUsername)

	cfg.IMAP.Username = "alice"
	assert.NoError(t, cfg.ValidateRemote())

	cfg.Database = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabase)
}
