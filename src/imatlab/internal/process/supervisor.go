// Package process installs, spawns, and supervises the MATLAB language
// server child process. It owns the process handle and its stdio pipes;
// the JSON-RPC conversation over those pipes belongs to internal/rpc.
package process

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	ierrors "github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/internal/executor"
	"github.com/djoshea/imatlab/src/imatlab/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -source=supervisor.go -destination=processmock/mock_supervisor.go -package=processmock

const _configKey = "langserver"

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(New),
)

// Supervisor manages the language server installation and process lifetime.
type Supervisor interface {
	// EnsureInstalled fetches and builds the language server if its launch
	// artifact is not already present. Safe to call repeatedly.
	EnsureInstalled(ctx context.Context) error

	// Start spawns the language server with piped stdio and verifies it
	// survives a short startup grace period.
	Start(ctx context.Context) error

	// Running reports whether the child process is alive.
	Running() bool

	// Stdin is the pipe carrying frames to the server. Nil before Start.
	Stdin() io.WriteCloser

	// Stdout is the pipe carrying frames from the server. Nil before Start.
	Stdout() io.Reader

	// Wait blocks until the process exits or the timeout elapses.
	Wait(timeout time.Duration) error

	// Kill forcibly terminates the process.
	Kill() error
}

// Config controls where the language server lives and how long each
// installation and startup step may take.
type Config struct {
	InstallDir        string `yaml:"installDir"`
	RepoURL           string `yaml:"repoURL"`
	Version           string `yaml:"version"`
	Artifact          string `yaml:"artifact"`
	CloneTimeoutSec   int    `yaml:"cloneTimeoutSec"`
	InstallTimeoutSec int    `yaml:"installTimeoutSec"`
	CompileTimeoutSec int    `yaml:"compileTimeoutSec"`
	StartupGraceMs    int    `yaml:"startupGraceMs"`
}

// Params defines the dependencies of this module.
type Params struct {
	fx.In

	Config   config.Provider
	Logger   *zap.SugaredLogger
	Executor executor.Executor
	FS       fs.KernelFS
	Clock    clock.Clock
}

type supervisor struct {
	cfg      Config
	logger   *zap.SugaredLogger
	executor executor.Executor
	fs       fs.KernelFS
	clock    clock.Clock

	// commandFunc builds the server launch command. Overridable in tests.
	commandFunc func(ctx context.Context) *exec.Cmd

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.Reader
	stderr  *prefixBuffer
	exited  chan struct{}
	exitErr error
}

// Option defines options to customize the supervisor's behavior.
type Option func(*supervisor)

// WithCommandFunc overrides how the server launch command is built.
func WithCommandFunc(f func(ctx context.Context) *exec.Cmd) Option {
	return func(s *supervisor) {
		s.commandFunc = f
	}
}

// New creates a Supervisor from the "langserver" configuration block.
func New(p Params, opts ...Option) (Supervisor, error) {
	cfg := Config{
		CloneTimeoutSec:   120,
		InstallTimeoutSec: 300,
		CompileTimeoutSec: 300,
		StartupGraceMs:    500,
	}
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("populating %s config: %w", _configKey, err)
	}

	installDir, err := expandHome(p.FS, cfg.InstallDir)
	if err != nil {
		return nil, err
	}
	cfg.InstallDir = installDir

	s := &supervisor{
		cfg:      cfg,
		logger:   p.Logger,
		executor: p.Executor,
		fs:       p.FS,
		clock:    p.Clock,
	}
	s.commandFunc = s.launchCommand
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(kfs fs.KernelFS, path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := kfs.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func (s *supervisor) artifactPath() string {
	return filepath.Join(s.cfg.InstallDir, s.cfg.Artifact)
}

// EnsureInstalled clones, installs, and compiles the language server.
// Build exit codes are advisory; the final verdict is whether the launch
// artifact exists afterwards.
func (s *supervisor) EnsureInstalled(ctx context.Context) error {
	exists, err := s.fs.FileExists(s.artifactPath())
	if err != nil {
		return fmt.Errorf("checking launch artifact: %w", err)
	}
	if exists {
		return nil
	}

	for _, bin := range []string{"git", "npm", "node"} {
		if _, err := s.executor.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %q not found on PATH", ierrors.ErrInstallFailed, bin)
		}
	}

	dirExists, err := s.fs.DirExists(s.cfg.InstallDir)
	if err != nil {
		return fmt.Errorf("checking install directory: %w", err)
	}
	if !dirExists {
		s.logger.Infow("Cloning language server", "repo", s.cfg.RepoURL, "version", s.cfg.Version, "dir", s.cfg.InstallDir)
		if err := s.runStep(ctx, s.cfg.CloneTimeoutSec, "", "git",
			"clone", "--depth", "1", "--branch", s.cfg.Version, s.cfg.RepoURL, s.cfg.InstallDir); err != nil {
			return err
		}
	}

	s.logger.Info("Installing language server dependencies")
	if err := s.runStep(ctx, s.cfg.InstallTimeoutSec, s.cfg.InstallDir, "npm", "install"); err != nil {
		return err
	}

	s.logger.Info("Compiling language server")
	// The compile script can report a nonzero exit even when the bundle is
	// produced; the artifact check below decides.
	if err := s.runStep(ctx, s.cfg.CompileTimeoutSec, s.cfg.InstallDir, "npm", "run", "compile"); err != nil {
		s.logger.Warnw("Compile step reported failure, checking artifact anyway", "error", err)
	}

	exists, err = s.fs.FileExists(s.artifactPath())
	if err != nil {
		return fmt.Errorf("checking launch artifact: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s missing after build", ierrors.ErrInstallFailed, s.artifactPath())
	}
	return nil
}

// runStep executes one installation command with its own timeout.
func (s *supervisor) runStep(ctx context.Context, timeoutSec int, dir string, name string, args ...string) error {
	stepCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(stepCtx, name, args...)
	cmd.Dir = dir
	_, stderr, exitCode, err := s.executor.Run(cmd)
	if err != nil {
		return fmt.Errorf("%w: %s: exit %d: %v: %s",
			ierrors.ErrInstallFailed, strings.Join(cmd.Args, " "), exitCode, err, strings.TrimSpace(stderr))
	}
	return nil
}

// launchCommand builds the default node invocation of the language server.
// The start context only scopes startup; the process outlives it, so the
// command is deliberately not bound to ctx.
func (s *supervisor) launchCommand(_ context.Context) *exec.Cmd {
	cmd := exec.Command("node", s.artifactPath(),
		"--stdio", "--matlabConnectionTiming=onDemand")
	cmd.Dir = s.cfg.InstallDir
	return cmd
}

// Start spawns the language server and confirms it survives the startup
// grace period. On an immediate exit the captured stderr is logged so the
// failure is diagnosable.
func (s *supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.running() {
		return nil
	}

	cmd := s.commandFunc(ctx)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr := &prefixBuffer{}
	cmd.Stderr = stderr

	s.logger.Infow("Starting language server", "path", cmd.Path, "args", cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting language server: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr
	s.exited = make(chan struct{})
	exited := s.exited
	go func() {
		s.exitErr = cmd.Wait()
		close(exited)
	}()

	s.mu.Unlock()
	s.clock.Sleep(time.Duration(s.cfg.StartupGraceMs) * time.Millisecond)
	s.mu.Lock()

	select {
	case <-exited:
		s.logger.Errorw("Language server exited during startup",
			"error", s.exitErr, "stderr", s.stderr.String())
		return fmt.Errorf("%w: exited during startup", ierrors.ErrServerCrashed)
	default:
	}
	return nil
}

// Running reports whether the child process is alive.
func (s *supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running()
}

func (s *supervisor) running() bool {
	if s.cmd == nil || s.exited == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Stdin returns the pipe carrying frames to the server.
func (s *supervisor) Stdin() io.WriteCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdin
}

// Stdout returns the pipe carrying frames from the server.
func (s *supervisor) Stdout() io.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdout
}

// Wait blocks until the process exits or the timeout elapses.
func (s *supervisor) Wait(timeout time.Duration) error {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()
	if exited == nil {
		return ierrors.ErrServerNotRunning
	}
	select {
	case <-exited:
		return nil
	case <-time.After(timeout):
		return ierrors.ErrStopTimeout
	}
}

// Kill forcibly terminates the process.
func (s *supervisor) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil || !s.running() {
		return nil
	}
	s.logger.Warn("Killing language server")
	return s.cmd.Process.Kill()
}

// prefixBuffer keeps a bounded copy of the child's stderr so startup
// failures can be reported with their cause.
type prefixBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const _stderrCaptureLimit = 8 << 10

func (b *prefixBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := _stderrCaptureLimit - len(b.buf); remaining > 0 {
		if len(p) < remaining {
			remaining = len(p)
		}
		b.buf = append(b.buf, p[:remaining]...)
	}
	return len(p), nil
}

func (b *prefixBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
