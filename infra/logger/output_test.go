package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutput(t *testing.T) {
	t.Setenv("APP_ENV", "")
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	New("scheduler").Infof("cycle %s ok", "c1")
	assert.Contains(t, buf.String(), `"component":"scheduler"`)

	SetOutput(nil)
	assert.Equal(t, os.Stdout, currentOutput())
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rebalance.log")
	w, err := NewRotatingFile(FileConfig{Path: path, MaxBackups: 2})
	require.NoError(t, err)
	SetOutput(w)
	New("planner").Warnf("no path")
	SetOutput(nil)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"no path"`)

	_, err = NewRotatingFile(FileConfig{})
	assert.Error(t, err)
}
