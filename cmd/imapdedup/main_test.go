package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/nhle/imap-dedup/internal/app"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/store"
	"github.com/nhle/imap-dedup/tests/testutil"
)

type cliEnv struct {
	config   string
	database string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	return cliEnv{
		config:   filepath.Join(dir, "missing.yaml"),
		database: filepath.Join(dir, "imapdedup.db"),
	}
}

// run executes the CLI in-process and returns what it wrote to stdout.
func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	argv := append([]string{"imapdedup", "--config", e.config, "--database", e.database}, args...)
	err := newApp(&stdout, &stderr).RunContext(context.Background(), argv)
	return stdout.String(), err
}

func (e cliEnv) seed(t *testing.T, recs ...model.MessageRecord) {
	t.Helper()

	st, err := store.NewSQLiteStore(e.database)
	require.NoError(t, err)
	testutil.SeedMessages(t, st, recs...)
	require.NoError(t, st.Close())
}

func record(folder string, seq uint32, id string, size int64) model.MessageRecord {
	return model.MessageRecord{
		Folder:    folder,
		Seq:       seq,
		Subject:   model.OptionalString("subject " + id),
		MessageID: model.OptionalString(id),
		Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Size:      size,
	}
}

func TestVersionFlag(t *testing.T) {
	var stdout bytes.Buffer
	err := newApp(&stdout, &bytes.Buffer{}).Run([]string{"imapdedup", "-v"})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), version)
}

func TestStatusOnEmptyDatabase(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Messages mirrored: 0")
	assert.Contains(t, out, "No runs recorded yet.")

	_, err = os.Stat(env.database)
	assert.NoError(t, err, "the --database flag picks the store location")
}

func TestVerboseAndLogFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "--verbose", "status")
	require.NoError(t, err)

	_, err = env.run(t, "--log-format", "json", "status")
	require.NoError(t, err)

	_, err = env.run(t, "--log-format", "xml", "status")
	assert.ErrorContains(t, err, `unknown log format "xml"`)
}

func TestPlanPrintAndDryRun(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t,
		record("AllMail", 1, "m1", 10),
		record("AllMail", 2, "m1", 10),
		record("AllMail", 3, "m2", 20),
		record("INBOX", 1, "m2", 20),
	)

	out, err := env.run(t, "find-duplicates", "--all-mail", "AllMail")
	require.NoError(t, err)
	assert.Contains(t, out, "will perform 3 deletions")

	out, err = env.run(t, "print-duplicates")
	require.NoError(t, err)
	assert.Contains(t, out, "subject m1")
	assert.Contains(t, out, "DELETE")
	assert.Contains(t, out, "KEEP")

	out, err = env.run(t, "deduplicate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "3 messages will be deleted")

	out, err = env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Messages mirrored: 4")
	assert.Contains(t, out, "Pending actions:   3")
	assert.Contains(t, out, "plan")
}

func TestDeduplicateWithNothingPending(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "deduplicate")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to delete.\n", out)
}

func TestFindDuplicatesNeedsFolder(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "find-duplicates")
	assert.ErrorIs(t, err, app.ErrNoCanonicalFolder)
}

func TestRemoteCommandsNeedUsername(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "pull")
	assert.ErrorIs(t, err, model.ErrMissingUsername)

	_, err = env.run(t, "credentials", "set")
	assert.ErrorIs(t, err, model.ErrMissingUsername)

	_, err = env.run(t, "credentials", "delete")
	assert.ErrorIs(t, err, model.ErrMissingUsername)
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
imap:
  host: imap.example.com
  port: 143
  username: file-user
all_mail: Archive
database: /from/file.db
`), 0o600))

	capture := func(args ...string) *model.AppConfig {
		t.Helper()
		var cfg *model.AppConfig
		a := &cli.App{
			Flags: globalFlags(),
			Action: func(c *cli.Context) error {
				var err error
				cfg, err = loadConfig(c)
				return err
			},
		}
		require.NoError(t, a.Run(append([]string{"imapdedup", "--config", cfgPath}, args...)))
		return cfg
	}

	cfg := capture()
	assert.Equal(t, "imap.example.com", cfg.IMAP.Host)
	assert.Equal(t, 143, cfg.IMAP.Port)
	assert.Equal(t, "file-user", cfg.IMAP.Username)
	assert.Equal(t, "Archive", cfg.AllMail)
	assert.Equal(t, "/from/file.db", cfg.Database)

	override := filepath.Join(dir, "flag.db")
	cfg = capture(
		"--hostname", "imap.other.org",
		"--port", "993",
		"--username", "flag-user",
		"--password", "secret",
		"--database", override,
	)
	assert.Equal(t, "imap.other.org", cfg.IMAP.Host)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.Equal(t, "flag-user", cfg.IMAP.Username)
	assert.Equal(t, "secret", cfg.IMAP.Password)
	assert.Equal(t, override, cfg.Database)
	assert.Equal(t, "Archive", cfg.AllMail)
}
