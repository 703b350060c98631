package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	log = New(&buf, true)
	log.Debug().Str("folder", "INBOX").Msg("processing")
	assert.Contains(t, buf.String(), "processing")
	assert.Contains(t, buf.String(), "INBOX")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, false)
	log.Warn().Str("folder", "AllMail").Uint32("seq", 4).Msg("bad fetch")

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"folder":"AllMail"`)
	assert.Contains(t, buf.String(), `"seq":4`)
}

func TestForFormat(t *testing.T) {
	var buf bytes.Buffer

	log, err := ForFormat(&buf, FormatJSON, true)
	require.NoError(t, err)
	log.Debug().Str("folder", "INBOX").Msg("selected")
	assert.Contains(t, buf.String(), `"level":"debug"`)

	buf.Reset()
	log, err = ForFormat(&buf, "", false)
	require.NoError(t, err)
	log.Info().Msg("console")
	assert.Contains(t, buf.String(), "console")
	assert.NotContains(t, buf.String(), `"level"`)

	_, err = ForFormat(&buf, "xml", false)
	assert.ErrorContains(t, err, `unknown log format "xml"`)
}
