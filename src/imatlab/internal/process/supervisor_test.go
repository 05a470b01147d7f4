package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	ierrors "github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/internal/executor"
	"github.com/djoshea/imatlab/src/imatlab/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testParams(t *testing.T, cfg map[string]interface{}) (Params, *observer.ObservedLogs) {
	t.Helper()
	provider, err := config.NewStaticProvider(map[string]interface{}{"langserver": cfg})
	require.NoError(t, err)
	core, observed := observer.New(zap.DebugLevel)
	return Params{
		Config:   provider,
		Logger:   zap.New(core).Sugar(),
		Executor: executor.NewExecutor(),
		FS:       fs.New(),
		Clock:    clock.New(),
	}, observed
}

func TestEnsureInstalledArtifactPresent(t *testing.T) {
	dir := t.TempDir()
	artifact := "out/index.js"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact), []byte("//"), 0644))

	params, _ := testParams(t, map[string]interface{}{
		"installDir": dir,
		"artifact":   artifact,
	})
	var ran []string
	params.Executor = executor.NewExecutor(
		executor.WithExecFunc(func(cmd *exec.Cmd) error {
			ran = append(ran, strings.Join(cmd.Args, " "))
			return nil
		}),
	)

	s, err := New(params)
	require.NoError(t, err)
	require.NoError(t, s.EnsureInstalled(context.Background()))
	assert.Empty(t, ran, "install steps should be skipped when the artifact exists")
}

func TestEnsureInstalledRunsSteps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "matlab-langserver")
	artifact := "out/index.js"

	params, _ := testParams(t, map[string]interface{}{
		"installDir": dir,
		"repoURL":    "https://example.com/langserver.git",
		"version":    "v1.3.0",
		"artifact":   artifact,
	})

	var ran []string
	params.Executor = executor.NewExecutor(
		executor.WithLookPathFunc(func(file string) (string, error) { return "/usr/bin/" + file, nil }),
		executor.WithExecFunc(func(cmd *exec.Cmd) error {
			ran = append(ran, strings.Join(cmd.Args, " "))
			// The compile step is what produces the artifact.
			if strings.Contains(ran[len(ran)-1], "compile") {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, artifact), []byte("//"), 0644))
			}
			return nil
		}),
	)

	s, err := New(params)
	require.NoError(t, err)
	require.NoError(t, s.EnsureInstalled(context.Background()))

	require.Len(t, ran, 3)
	assert.Contains(t, ran[0], "git clone --depth 1 --branch v1.3.0 https://example.com/langserver.git")
	assert.Contains(t, ran[1], "npm install")
	assert.Contains(t, ran[2], "npm run compile")

	// A second call finds the artifact and does nothing.
	ran = nil
	require.NoError(t, s.EnsureInstalled(context.Background()))
	assert.Empty(t, ran)
}

func TestEnsureInstalledMissingPrerequisite(t *testing.T) {
	params, _ := testParams(t, map[string]interface{}{
		"installDir": filepath.Join(t.TempDir(), "ls"),
		"artifact":   "out/index.js",
	})
	params.Executor = executor.NewExecutor(
		executor.WithLookPathFunc(func(file string) (string, error) {
			return "", exec.ErrNotFound
		}),
	)

	s, err := New(params)
	require.NoError(t, err)
	err = s.EnsureInstalled(context.Background())
	assert.ErrorIs(t, err, ierrors.ErrInstallFailed)
}

func TestEnsureInstalledArtifactMissingAfterBuild(t *testing.T) {
	params, _ := testParams(t, map[string]interface{}{
		"installDir": filepath.Join(t.TempDir(), "ls"),
		"repoURL":    "https://example.com/langserver.git",
		"version":    "v1.3.0",
		"artifact":   "out/index.js",
	})
	params.Executor = executor.NewExecutor(
		executor.WithLookPathFunc(func(file string) (string, error) { return "/usr/bin/" + file, nil }),
		executor.WithExecFunc(func(cmd *exec.Cmd) error { return nil }),
	)

	s, err := New(params)
	require.NoError(t, err)
	err = s.EnsureInstalled(context.Background())
	assert.ErrorIs(t, err, ierrors.ErrInstallFailed)
	assert.Contains(t, err.Error(), "missing after build")
}

func TestStartAndStop(t *testing.T) {
	params, _ := testParams(t, map[string]interface{}{
		"installDir":     t.TempDir(),
		"artifact":       "out/index.js",
		"startupGraceMs": 10,
	})

	s, err := New(params, WithCommandFunc(func(ctx context.Context) *exec.Cmd {
		// cat blocks on its stdin pipe, standing in for a healthy server.
		return exec.Command("cat")
	}))
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	assert.NotNil(t, s.Stdin())
	assert.NotNil(t, s.Stdout())

	require.NoError(t, s.Kill())
	require.NoError(t, s.Wait(2*time.Second))
	assert.False(t, s.Running())
}

func TestStartImmediateExitCapturesStderr(t *testing.T) {
	params, observed := testParams(t, map[string]interface{}{
		"installDir":     t.TempDir(),
		"artifact":       "out/index.js",
		"startupGraceMs": 200,
	})

	s, err := New(params, WithCommandFunc(func(ctx context.Context) *exec.Cmd {
		return exec.Command("sh", "-c", "echo cannot find module >&2; exit 3")
	}))
	require.NoError(t, err)

	err = s.Start(context.Background())
	assert.ErrorIs(t, err, ierrors.ErrServerCrashed)
	assert.False(t, s.Running())

	var logged bool
	for _, entry := range observed.All() {
		for _, field := range entry.Context {
			if field.Key == "stderr" && strings.Contains(field.String, "cannot find module") {
				logged = true
			}
		}
	}
	assert.True(t, logged, "startup failure should log the captured stderr")
}

func TestWaitBeforeStart(t *testing.T) {
	params, _ := testParams(t, map[string]interface{}{
		"installDir": t.TempDir(),
		"artifact":   "out/index.js",
	})
	s, err := New(params)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Wait(10*time.Millisecond), ierrors.ErrServerNotRunning)
	assert.False(t, s.Running())
	assert.NoError(t, s.Kill())
}
