package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: FormatJSON}, &buf)
	require.NoError(t, err)
	defer l.Close()

	l.WithField("project", "signal-server").Debug("cloning")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cloning", entry["msg"])
	assert.Equal(t, "signal-server", entry["project"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewTextForNonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{}, &buf)
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	l.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLogFileRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "harvest.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(logFile), 0755))
	require.NoError(t, os.WriteFile(logFile, []byte(strings.Repeat("x", 64)), 0644))

	l, err := New(Config{Format: FormatText, OutputFile: logFile, MaxSize: 32}, &bytes.Buffer{})
	require.NoError(t, err)
	l.Info("fresh")
	require.NoError(t, l.Close())

	backup, err := os.ReadFile(logFile + ".1")
	require.NoError(t, err)
	assert.Len(t, backup, 64)

	current, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(current), "fresh")
}
