package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"WARN", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input).String(), "level %q", tt.input)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docdex.log")

	logger, cleanup, err := Setup(Config{Level: "info", FilePath: path})
	require.NoError(t, err)

	logger.Info("indexing started", "root", "/docs")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	line := bytes.SplitN(data, []byte("\n"), 2)[0]
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "indexing started", entry["msg"])
	assert.Equal(t, "/docs", entry["root"])
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	// Given: a writer capped at 1 MB keeping 2 rotated files
	path := filepath.Join(t.TempDir(), "docdex.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	payload := bytes.Repeat([]byte("x"), 700*1024)

	// When: writes exceed the cap
	_, err = w.Write(payload)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)

	// Then: the old file rotated to .1 and the live file holds only
	// the second payload
	rotated, err := os.Stat(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), rotated.Size())

	live, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), live.Size())
}

func TestRotatingWriter_DropsOldestBeyondMaxFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docdex.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	payload := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 4; i++ {
		_, err = w.Write(payload)
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "only maxFiles rotations kept")
}
