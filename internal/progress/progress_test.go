package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarCountsAndCaps(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(&buf)

	b.Start("AllMail", 52)
	b.Add(25)
	assert.Contains(t, buf.String(), "25/52")

	b.Add(100)
	assert.Equal(t, 52, b.done)
	assert.Contains(t, buf.String(), "52/52")

	b.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestBarEmptyTotalIsComplete(t *testing.T) {
	b := NewBar(&bytes.Buffer{})
	b.Start("Empty", 0)
	assert.Equal(t, 1.0, b.percent())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "INBOX", truncate("INBOX", 24))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
}
