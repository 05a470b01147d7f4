package serverinfofile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func newInfoFile(t *testing.T, path string) InfoFile {
	t.Helper()
	yaml := fmt.Sprintf("kernelInfoFilePath: %q\n", path)
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	m, err := New(Params{
		Config:    provider,
		Lifecycle: lc,
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	return m
}

func TestUpdateField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel-info.json")
	m := newInfoFile(t, path)

	require.NoError(t, m.UpdateField("langserverState", "ready"))
	require.NoError(t, m.UpdateField("installDir", "/home/u/.matlab-langserver"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var contents map[string]string
	require.NoError(t, json.Unmarshal(data, &contents))
	assert.Equal(t, "ready", contents["langserverState"])
	assert.Equal(t, "/home/u/.matlab-langserver", contents["installDir"])
}

func TestOnStopRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel-info.json")
	m := newInfoFile(t, path)
	require.NoError(t, m.UpdateField("langserverState", "ready"))

	require.NoError(t, m.(*module).OnStop(context.Background()))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// A second stop finds nothing to remove and stays quiet.
	require.NoError(t, m.(*module).OnStop(context.Background()))
}

func TestMissingConfig(t *testing.T) {
	provider, err := config.NewYAML(config.Source(strings.NewReader("other: 1\n")))
	require.NoError(t, err)

	_, err = New(Params{
		Config:    provider,
		Lifecycle: fxtest.NewLifecycle(t),
		Logger:    zap.NewNop().Sugar(),
	})
	assert.Error(t, err)
}
