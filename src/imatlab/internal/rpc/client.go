// Package rpc implements the JSON-RPC client side of the language server
// conversation: request/response correlation over the framed stdio stream,
// fire-and-forget notifications, and the server lifecycle state machine.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uber-go/tally"

	ierrors "github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/internal/framing"
	"go.uber.org/zap"
)

// State tracks the server lifecycle as seen by the client.
type State int32

const (
	// StateUninitialized means no initialize exchange has been attempted.
	StateUninitialized State = iota
	// StateInitializing means the initialize request is in flight.
	StateInitializing
	// StateReady means the server accepted initialize and may serve requests.
	StateReady
	// StateStopped means the shutdown sequence ran; the client is done.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

//go:generate mockgen -source=client.go -destination=rpcmock/mock_client.go -package=rpcmock

// _drainIdleGap is how long the drain loop waits without traffic before
// concluding the server has gone quiet.
const _drainIdleGap = 50 * time.Millisecond

// Client is a correlated JSON-RPC client over a framed byte stream.
type Client interface {
	// Request sends a request and blocks until the matching response
	// arrives or the timeout elapses. Frames for other ids received in the
	// meantime are counted and discarded.
	Request(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error)

	// Notify sends a notification. No response is expected.
	Notify(method string, params interface{}) error

	// DrainNotifications consumes buffered server traffic until an idle
	// gap or maxWait, returning the number of frames discarded.
	DrainNotifications(maxWait time.Duration) int

	// Initialize runs the initialize request plus initialized notification
	// and moves the client to StateReady.
	Initialize(ctx context.Context, params interface{}, timeout time.Duration) (json.RawMessage, error)

	// Shutdown runs the shutdown request plus exit notification and moves
	// the client to StateStopped. Best effort; errors are logged.
	Shutdown(ctx context.Context, timeout time.Duration) error

	// Close stops the client without the shutdown handshake. For tearing
	// down a client whose initialize never completed; the caller must also
	// end the server process so the decoder pump sees EOF.
	Close()

	// State reports the current lifecycle state.
	State() State
}

type client struct {
	logger *zap.SugaredLogger
	stats  clientStats

	writer  io.Writer
	writeMu sync.Mutex

	// requestMu serializes all correlated consumption of the frame stream:
	// one Request or DrainNotifications owns the frames channel at a time.
	requestMu sync.Mutex
	frames    chan framing.Message
	stopped   chan struct{}
	stopOnce  sync.Once

	state  atomic.Int32
	nextID atomic.Int64
}

type clientStats struct {
	unexpectedFrames tally.Counter
	requestTimeouts  tally.Counter
	responseErrors   tally.Counter
	drainedFrames    tally.Counter
}

// NewClient attaches a client to the given pipes and starts the decoder
// pump. The pump goroutine exits when the read side reaches EOF, which
// happens when the server process dies or is killed.
func NewClient(w io.Writer, r io.Reader, logger *zap.SugaredLogger, scope tally.Scope) Client {
	c := &client{
		logger:  logger,
		writer:  w,
		frames:  make(chan framing.Message, 64),
		stopped: make(chan struct{}),
		stats: clientStats{
			unexpectedFrames: scope.Counter("unexpected_frames"),
			requestTimeouts:  scope.Counter("request_timeouts"),
			responseErrors:   scope.Counter("response_errors"),
			drainedFrames:    scope.Counter("drained_notifications"),
		},
	}
	go c.pump(bufio.NewReader(r))
	return c
}

// pump decodes frames off the wire into the frames channel. Malformed
// frames are logged and skipped; a read failure ends the stream.
func (c *client) pump(r *bufio.Reader) {
	defer close(c.frames)
	for {
		msg, err := framing.DecodeOne(r)
		if err != nil {
			if errors.Is(err, framing.ErrMalformedHeader) || errors.Is(err, framing.ErrDecode) {
				c.logger.Warnw("Skipping malformed frame", "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				c.logger.Infow("Language server stream closed", "error", err)
			}
			return
		}
		select {
		case c.frames <- msg:
		case <-c.stopped:
			return
		}
	}
}

func (c *client) Request(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if s := c.State(); s != StateReady {
		return nil, fmt.Errorf("%w: state %s", ierrors.ErrNotReady, s)
	}
	return c.request(ctx, method, params, timeout)
}

func (c *client) request(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	id := c.nextID.Add(1)
	msg, err := framing.NewRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	if err := c.write(msg); err != nil {
		return nil, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case frame, ok := <-c.frames:
			if !ok {
				return nil, fmt.Errorf("%w: waiting for %s response", ierrors.ErrServerCrashed, method)
			}
			if !frame.IsResponse() || *frame.ID != id {
				c.stats.unexpectedFrames.Inc(1)
				c.logger.Debugw("Discarding frame while awaiting response",
					"method", method, "awaitingID", id, "frameMethod", frame.Method)
				continue
			}
			if frame.Error != nil {
				c.stats.responseErrors.Inc(1)
				c.logger.Warnw("Server rejected request",
					"method", method, "code", frame.Error.Code, "message", frame.Error.Message)
				return nil, fmt.Errorf("%w: %s: %s", ierrors.ErrResponseError, method, frame.Error.Message)
			}
			return frame.Result, nil
		case <-deadline.C:
			c.stats.requestTimeouts.Inc(1)
			c.logger.Warnw("Request timed out", "method", method, "timeout", timeout)
			return nil, fmt.Errorf("%w: %s after %s", ierrors.ErrRequestTimeout, method, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *client) Notify(method string, params interface{}) error {
	msg, err := framing.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("building %s notification: %w", method, err)
	}
	return c.write(msg)
}

func (c *client) write(msg framing.Message) error {
	encoded, err := framing.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(encoded); err != nil {
		return fmt.Errorf("%w: %v", ierrors.ErrServerCrashed, err)
	}
	return nil
}

func (c *client) DrainNotifications(maxWait time.Duration) int {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	overall := time.NewTimer(maxWait)
	defer overall.Stop()
	idle := time.NewTimer(_drainIdleGap)
	defer idle.Stop()

	drained := 0
	for {
		select {
		case _, ok := <-c.frames:
			if !ok {
				return drained
			}
			drained++
			c.stats.drainedFrames.Inc(1)
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(_drainIdleGap)
		case <-idle.C:
			return drained
		case <-overall.C:
			return drained
		}
	}
}

func (c *client) Initialize(ctx context.Context, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if !c.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return nil, fmt.Errorf("initialize from state %s", c.State())
	}

	result, err := c.request(ctx, "initialize", params, timeout)
	if err != nil {
		c.state.Store(int32(StateUninitialized))
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := c.Notify("initialized", struct{}{}); err != nil {
		c.state.Store(int32(StateUninitialized))
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	c.state.Store(int32(StateReady))
	return result, nil
}

func (c *client) Shutdown(ctx context.Context, timeout time.Duration) error {
	if c.State() == StateStopped {
		return nil
	}
	defer func() {
		c.state.Store(int32(StateStopped))
		c.stopOnce.Do(func() { close(c.stopped) })
	}()

	if _, err := c.request(ctx, "shutdown", nil, timeout); err != nil {
		c.logger.Warnw("Shutdown request failed", "error", err)
	}
	if err := c.Notify("exit", nil); err != nil {
		c.logger.Warnw("Exit notification failed", "error", err)
		return err
	}
	return nil
}

func (c *client) Close() {
	c.state.Store(int32(StateStopped))
	c.stopOnce.Do(func() { close(c.stopped) })
}

func (c *client) State() State {
	return State(c.state.Load())
}
