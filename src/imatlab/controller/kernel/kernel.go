// Package kernel orchestrates the notebook-facing operations: executing
// cells on the engine under the watchdog, answering completions with the
// language server (falling back to the engine), inspection, and shutdown.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/djoshea/imatlab/src/imatlab/controller/execwatch"
	"github.com/djoshea/imatlab/src/imatlab/entity"
	"github.com/djoshea/imatlab/src/imatlab/gateway/langserver"
	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	"github.com/djoshea/imatlab/src/imatlab/internal/engine"
	ierrors "github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/internal/fs"
	"github.com/djoshea/imatlab/src/imatlab/mapper"
)

const _configKey = "kernel"

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(New),
)

// CompletionReply is the completion answer sent back to the front-end.
type CompletionReply struct {
	Matches     []string
	CursorStart int
	CursorEnd   int
}

// InspectReply is the inspection answer sent back to the front-end.
type InspectReply struct {
	Found bool
	Text  string
}

// Controller exposes the kernel operations the front-end drives.
type Controller interface {
	// Execute runs one cell on the engine. Execution faults surface as an
	// error-status result; only engine-level failures return an error.
	Execute(ctx context.Context, code string) (entity.ExecResult, error)

	// Complete answers a completion request at the given byte offset.
	Complete(ctx context.Context, code string, cursorPos int) (CompletionReply, error)

	// Inspect looks up help for the identifier ending at the given offset.
	Inspect(ctx context.Context, code string, cursorPos int) (InspectReply, error)

	// IsComplete classifies whether a cell is ready to run. Cells are
	// always declared complete; the engine reports syntax faults itself.
	IsComplete(code string) string

	// Shutdown stops the language server and asks the engine to exit.
	Shutdown(ctx context.Context) error
}

// Config tunes kernel behavior.
type Config struct {
	// WarmupMs bounds the first-execution engine warmup probe.
	WarmupMs int `yaml:"warmupMs"`
}

// Params defines the dependencies of this module.
type Params struct {
	fx.In

	Config   config.Provider
	Logger   *zap.SugaredLogger
	Clock    clock.Clock
	FS       fs.KernelFS
	Stats    tally.Scope
	Gateway  langserver.Gateway
	Watchdog execwatch.Watchdog
	// Engine is absent when the kernel runs without an attached engine
	// handle; execution then reports unavailability while completions
	// still work through the language server.
	Engine engine.Engine `optional:"true"`
}

type controller struct {
	cfg      Config
	logger   *zap.SugaredLogger
	clock    clock.Clock
	fs       fs.KernelFS
	gateway  langserver.Gateway
	watchdog execwatch.Watchdog
	engine   engine.Engine
	stats    kernelStats

	// mu serializes executions: the engine runs one cell at a time.
	mu     sync.Mutex
	warmed bool
	// funcDir holds function files extracted from cells. Created on first
	// use, prepended to the engine path, removed on shutdown.
	funcDir string
}

type kernelStats struct {
	executions          tally.Counter
	executionErrors     tally.Counter
	completionFallbacks tally.Counter
	functionsExtracted  tally.Counter
}

// New creates a kernel Controller from the "kernel" configuration block.
func New(p Params) (Controller, error) {
	cfg := Config{WarmupMs: 1000}
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("populating %s config: %w", _configKey, err)
	}

	scope := p.Stats.SubScope("kernel")
	return &controller{
		cfg:      cfg,
		logger:   p.Logger,
		clock:    p.Clock,
		fs:       p.FS,
		gateway:  p.Gateway,
		watchdog: p.Watchdog,
		engine:   p.Engine,
		stats: kernelStats{
			executions:          scope.Counter("executions"),
			executionErrors:     scope.Counter("execution_errors"),
			completionFallbacks: scope.Counter("completion_fallbacks"),
			functionsExtracted:  scope.Counter("functions_extracted"),
		},
	}, nil
}

func (c *controller) Execute(ctx context.Context, code string) (entity.ExecResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return entity.ExecResult{}, ierrors.ErrEngineUnavailable
	}
	c.stats.executions.Inc(1)
	c.warmup()

	code, abort := c.extractFunctions(code)
	if abort != nil {
		c.stats.executionErrors.Inc(1)
		return *abort, nil
	}

	future, err := c.engine.CallAsync("eval", c.wrapForExecution(code))
	if err != nil {
		return entity.ExecResult{}, fmt.Errorf("submitting cell: %w", err)
	}

	result, err := c.watchdog.Await(ctx, c.engine, future)
	if err != nil {
		var execErr *engine.ExecutionError
		if errors.As(err, &execErr) {
			c.stats.executionErrors.Inc(1)
			return entity.ExecResult{
				Status:       entity.ExecStatusError,
				ErrorName:    execErr.Identifier,
				ErrorValue:   execErr.Message,
				DesktopShown: result.DesktopShown,
			}, nil
		}
		if engine.IsConnectionError(err) && !c.engineAlive() {
			return entity.ExecResult{}, fmt.Errorf("%w: %v", ierrors.ErrEngineUnavailable, err)
		}
		return entity.ExecResult{}, err
	}

	return entity.ExecResult{
		Status:       entity.ExecStatusOK,
		DesktopShown: result.DesktopShown,
	}, nil
}

// warmup runs once before the first execution. The engine's first
// background call is slow to schedule; issuing a throwaway query and
// cancelling it primes the connection.
func (c *controller) warmup() {
	if c.warmed {
		return
	}
	c.warmed = true
	future, err := c.engine.CallAsync("is_dbstop_if_error")
	if err != nil {
		return
	}
	c.clock.Sleep(time.Duration(c.cfg.WarmupMs) * time.Millisecond)
	if err := future.Cancel(); err != nil {
		c.logger.Debugw("Warmup probe cancel failed", "error", err)
	}
}

// extractFunctions asks the engine's mtree-based helper to split outer
// function definitions out of the cell. Each extracted function is written
// to a kernel-lifetime directory on the engine path so later cells can call
// it; the remaining code is what actually runs. A reported parse failure
// aborts the cell; a failure of the helper itself runs the cell unchanged.
func (c *controller) extractFunctions(code string) (string, *entity.ExecResult) {
	out, err := c.engine.Call("imatlab_extract_functions", code)
	if err != nil {
		c.logger.Debugw("Function extraction unavailable, running the cell as-is", "error", err)
		return code, nil
	}
	parts, ok := out.([]interface{})
	if !ok || len(parts) < 4 {
		return code, nil
	}
	names := toStrings(parts[0])
	codes := toStrings(parts[1])
	remaining, _ := parts[2].(string)
	parseErr, _ := parts[3].(string)

	if msg := strings.TrimSpace(parseErr); msg != "" {
		c.logger.Debugw("Cell failed to parse", "error", msg)
		return code, &entity.ExecResult{
			Status:     entity.ExecStatusError,
			ErrorName:  "SyntaxError",
			ErrorValue: msg,
		}
	}
	if len(names) == 0 || len(names) != len(codes) {
		return code, nil
	}

	dir, err := c.ensureFuncDir()
	if err != nil {
		c.logger.Warnw("Unable to store extracted functions", "error", err)
		return code, nil
	}
	for i, name := range names {
		if err := c.fs.WriteFile(filepath.Join(dir, name+".m"), codes[i]); err != nil {
			c.logger.Warnw("Unable to save extracted function", "function", name, "error", err)
		}
	}
	c.stats.functionsExtracted.Inc(int64(len(names)))
	return remaining, nil
}

// ensureFuncDir creates the directory that holds extracted function files
// and prepends it to the engine path.
func (c *controller) ensureFuncDir() (string, error) {
	if c.funcDir != "" {
		return c.funcDir, nil
	}
	dir, err := c.fs.MkdirTemp("", "imatlab_funcs_")
	if err != nil {
		return "", err
	}
	if _, err := c.engine.Call("addpath", dir, "-begin"); err != nil {
		_ = c.fs.RemoveAll(dir)
		return "", err
	}
	c.funcDir = dir
	return dir, nil
}

// wrapForExecution brackets the cell with the pre/post execution hooks.
// When dbstop-if-error is inactive the cell also runs inside try/catch so
// faults print their report instead of aborting the eval; with the
// debugger armed the raw code runs unguarded so a fault actually stops in
// the debugger.
func (c *controller) wrapForExecution(code string) string {
	if c.dbstopIfErrorActive() {
		return fmt.Sprintf("imatlab_pre_execute(); %s\n imatlab_post_execute();", code)
	}

	// Unique name so the handler variable cannot collide with user code.
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("imatlab_pre_execute(); %s\n imatlab_post_execute();", code)
	}
	me := "ME" + strings.ReplaceAll(id.String(), "-", "")
	// The newline after the code is required: the cell may end in a comment.
	return fmt.Sprintf(
		"imatlab_pre_execute(); try, %s\ncatch %s; fprintf('%%s\\n', %s.getReport); clear %s; imatlab_post_execute(); end; imatlab_post_execute();",
		code, me, me, me)
}

func (c *controller) dbstopIfErrorActive() bool {
	out, err := c.engine.Call("is_dbstop_if_error")
	if err != nil {
		c.logger.Debugw("Unable to query dbstop state, assuming inactive", "error", err)
		return false
	}
	active, ok := out.(bool)
	return ok && active
}

// engineAlive checks whether the engine still answers a trivial eval.
func (c *controller) engineAlive() bool {
	_, err := c.engine.Call("eval", "1")
	return err == nil
}

func (c *controller) Complete(ctx context.Context, code string, cursorPos int) (CompletionReply, error) {
	cursorPos = clamp(cursorPos, len(code))
	reply := CompletionReply{
		Matches:     []string{},
		CursorStart: cursorPos,
		CursorEnd:   cursorPos,
	}
	triggerLen := mapper.TriggerWordLen(code[:cursorPos])

	if c.gateway.Ready() {
		items, err := c.gateway.GetCompletions(ctx, code, mapper.PositionAt(code, cursorPos))
		if err != nil {
			c.logger.Debugw("Language server completion failed, falling back to the engine", "error", err)
		} else if texts := mapper.CompletionTexts(items); len(texts) > 0 {
			reply.Matches = texts
			reply.CursorStart = cursorPos - triggerLen
			return reply, nil
		}
	}

	if c.engine == nil {
		return reply, nil
	}
	c.stats.completionFallbacks.Inc(1)

	// mtFindAllTabCompletions returns the previously computed list for a
	// zero-length input, so only ask with actual text.
	if len(code) == 0 {
		return reply, nil
	}
	expr := fmt.Sprintf(
		"cell(com.mathworks.jmi.MatlabMCR().mtFindAllTabCompletions('%s', %d, 0))",
		strings.ReplaceAll(code, "'", "''"), cursorPos)
	out, err := c.engine.Call("eval", expr)
	if err != nil {
		c.logger.Debugw("Engine completion failed", "error", err)
		return reply, nil
	}
	if matches := toStrings(out); len(matches) > 0 {
		reply.Matches = matches
		reply.CursorStart = cursorPos - triggerLen
	}
	return reply, nil
}

func (c *controller) Inspect(ctx context.Context, code string, cursorPos int) (InspectReply, error) {
	cursorPos = clamp(cursorPos, len(code))
	token := mapper.TrailingToken(code[:cursorPos])
	if token == "" || c.engine == nil {
		return InspectReply{}, nil
	}

	out, err := c.engine.Call("help", token)
	if err != nil {
		c.logger.Debugw("Help lookup failed", "token", token, "error", err)
		return InspectReply{}, nil
	}
	text, _ := out.(string)
	return InspectReply{Found: text != "", Text: text}, nil
}

func (c *controller) IsComplete(code string) string {
	return "complete"
}

func (c *controller) Shutdown(ctx context.Context) error {
	err := c.gateway.Stop(ctx)
	if err != nil {
		c.logger.Warnw("Language server stop failed during shutdown", "error", err)
	}
	c.mu.Lock()
	if c.funcDir != "" {
		if rerr := c.fs.RemoveAll(c.funcDir); rerr != nil {
			c.logger.Debugw("Unable to remove function directory", "dir", c.funcDir, "error", rerr)
		}
		c.funcDir = ""
	}
	c.mu.Unlock()
	if c.engine != nil {
		// exit never returns a value; fire and forget.
		if _, exitErr := c.engine.CallAsync("exit"); exitErr != nil {
			c.logger.Debugw("Engine exit request failed", "error", exitErr)
		}
	}
	return err
}

func clamp(pos, max int) int {
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}
	return pos
}

// toStrings flattens the engine's cell-array result into strings.
func toStrings(out interface{}) []string {
	switch v := out.(type) {
	case []string:
		return v
	case []interface{}:
		strs := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				strs = append(strs, s)
			}
		}
		return strs
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
