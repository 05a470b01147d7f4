// Package langserver is the outbound gateway to the MATLAB language
// server. It owns the server's lifecycle (install, spawn, initialize,
// shutdown) and runs ephemeral document sessions that answer completion
// and document symbol requests for notebook cells.
package langserver

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/djoshea/imatlab/src/imatlab/entity"
	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	ierrors "github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/internal/fs"
	"github.com/djoshea/imatlab/src/imatlab/internal/process"
	"github.com/djoshea/imatlab/src/imatlab/internal/rpc"
	"github.com/djoshea/imatlab/src/imatlab/internal/serverinfofile"
	"github.com/djoshea/imatlab/src/imatlab/mapper"
	documentrepo "github.com/djoshea/imatlab/src/imatlab/repository/document"
)

//go:generate mockgen -source=langserver.go -destination=langservermock/mock_langserver.go -package=langservermock

const _configKey = "langserver"

const _infoFileStateField = "langserverState"

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(New),
)

// Gateway drives the language server for code-intelligence requests.
type Gateway interface {
	// Start installs (if needed), spawns, and initializes the language
	// server. A failure leaves the gateway unavailable rather than failing
	// the kernel.
	Start(ctx context.Context) error

	// Stop shuts the server down gracefully, escalating to a kill if it
	// does not exit within the grace window.
	Stop(ctx context.Context) error

	// Ready reports whether the server can answer requests.
	Ready() bool

	// GetCompletions opens the given code as a temp document and requests
	// completions at the given position.
	GetCompletions(ctx context.Context, code string, pos protocol.Position) ([]protocol.CompletionItem, error)

	// GetDocumentSymbols opens the given code as a temp document and
	// requests its hierarchical symbols.
	GetDocumentSymbols(ctx context.Context, code string) ([]protocol.DocumentSymbol, error)
}

// Config tunes the per-request document session pacing and bounds.
type Config struct {
	CompletionSettleMs   int `yaml:"completionSettleMs"`
	SymbolsSettleMs      int `yaml:"symbolsSettleMs"`
	DrainMaxWaitMs       int `yaml:"drainMaxWaitMs"`
	CompletionTimeoutSec int `yaml:"completionTimeoutSec"`
	SymbolsTimeoutSec    int `yaml:"symbolsTimeoutSec"`
	InitializeTimeoutSec int `yaml:"initializeTimeoutSec"`
	StopTimeoutSec       int `yaml:"stopTimeoutSec"`
}

// Params defines the dependencies of this module.
type Params struct {
	fx.In

	Config     config.Provider
	Logger     *zap.SugaredLogger
	Clock      clock.Clock
	FS         fs.KernelFS
	Stats      tally.Scope
	Supervisor process.Supervisor
	Documents  documentrepo.Repository
	InfoFile   serverinfofile.InfoFile
	Lifecycle  fx.Lifecycle
}

type gateway struct {
	cfg        Config
	logger     *zap.SugaredLogger
	clock      clock.Clock
	fs         fs.KernelFS
	stats      tally.Scope
	supervisor process.Supervisor
	documents  documentrepo.Repository
	infoFile   serverinfofile.InfoFile

	// newClient builds the RPC client over the server pipes. Overridable
	// in tests.
	newClient func(p process.Supervisor) rpc.Client

	mu     sync.Mutex
	client rpc.Client
}

// Option defines options to customize the gateway's behavior.
type Option func(*gateway)

// WithClientFactory overrides how the RPC client is attached to the
// server's pipes.
func WithClientFactory(f func(p process.Supervisor) rpc.Client) Option {
	return func(g *gateway) {
		g.newClient = f
	}
}

// New creates a language server gateway.
func New(p Params, opts ...Option) (Gateway, error) {
	cfg := Config{
		CompletionSettleMs:   100,
		SymbolsSettleMs:      300,
		DrainMaxWaitMs:       500,
		CompletionTimeoutSec: 5,
		SymbolsTimeoutSec:    30,
		InitializeTimeoutSec: 10,
		StopTimeoutSec:       5,
	}
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("populating %s config: %w", _configKey, err)
	}

	g := &gateway{
		cfg:        cfg,
		logger:     p.Logger,
		clock:      p.Clock,
		fs:         p.FS,
		stats:      p.Stats.SubScope("langserver"),
		supervisor: p.Supervisor,
		documents:  p.Documents,
		infoFile:   p.InfoFile,
	}
	g.newClient = func(sup process.Supervisor) rpc.Client {
		return rpc.NewClient(sup.Stdin(), sup.Stdout(), p.Logger, g.stats.SubScope("rpc"))
	}
	for _, opt := range opts {
		opt(g)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Startup proceeds in the background: installation can take
			// minutes and the kernel must come up without it.
			go func() {
				if err := g.Start(context.Background()); err != nil {
					g.logger.Warnw("Language server unavailable, completions will fall back to the engine", "error", err)
				}
			}()
			return nil
		},
		OnStop: g.Stop,
	})
	return g, nil
}

// Start installs, spawns, and initializes the language server.
func (g *gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready() {
		return nil
	}
	g.updateInfoField(_infoFileStateField, "starting")

	if err := g.supervisor.EnsureInstalled(ctx); err != nil {
		g.updateInfoField(_infoFileStateField, "install failed")
		return fmt.Errorf("installing language server: %w", err)
	}
	if err := g.supervisor.Start(ctx); err != nil {
		g.updateInfoField(_infoFileStateField, "start failed")
		return fmt.Errorf("starting language server: %w", err)
	}

	client := g.newClient(g.supervisor)
	params := protocol.InitializeParams{
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
			},
		},
	}
	if _, err := client.Initialize(ctx, params, g.timeout(g.cfg.InitializeTimeoutSec)); err != nil {
		// The half-initialized client keeps a reader on the server's stdout.
		// Tear both down so a retry spawns a fresh process with one reader.
		client.Close()
		if kerr := g.supervisor.Kill(); kerr != nil {
			g.logger.Warnw("Unable to stop language server after failed initialize", "error", kerr)
		}
		g.updateInfoField(_infoFileStateField, "initialize failed")
		return fmt.Errorf("initializing language server: %w", err)
	}

	g.client = client
	g.updateInfoField(_infoFileStateField, "ready")
	g.logger.Info("Language server ready")
	return nil
}

// Stop shuts the language server down, escalating to a kill when the
// process outlives the grace window.
func (g *gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		if err := g.client.Shutdown(ctx, g.timeout(g.cfg.StopTimeoutSec)); err != nil {
			g.logger.Warnw("Graceful shutdown failed", "error", err)
		}
		g.client = nil
	}
	if g.supervisor.Running() {
		if err := g.supervisor.Wait(g.timeout(g.cfg.StopTimeoutSec)); err != nil {
			g.logger.Warnw("Language server did not exit, killing", "error", err)
			if err := g.supervisor.Kill(); err != nil {
				return err
			}
		}
	}
	g.updateInfoField(_infoFileStateField, "stopped")
	return nil
}

// Ready reports whether the server can answer requests.
func (g *gateway) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready()
}

func (g *gateway) ready() bool {
	return g.client != nil && g.client.State() == rpc.StateReady && g.supervisor.Running()
}

// GetCompletions requests completions for code at pos.
func (g *gateway) GetCompletions(ctx context.Context, code string, pos protocol.Position) (_ []protocol.CompletionItem, err error) {
	client, err := g.readyClient()
	if err != nil {
		return nil, err
	}

	doc, cleanup, err := g.openDocument(ctx, client, code)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, cleanup())
	}()

	g.settleAndDrain(client, g.cfg.CompletionSettleMs)

	params := protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
			Position:     pos,
		},
	}
	result, err := client.Request(ctx, protocol.MethodTextDocumentCompletion, params, g.timeout(g.cfg.CompletionTimeoutSec))
	if err != nil {
		return nil, err
	}
	return mapper.CompletionItemsFromResult(result)
}

// GetDocumentSymbols requests hierarchical symbols for code.
func (g *gateway) GetDocumentSymbols(ctx context.Context, code string) (_ []protocol.DocumentSymbol, err error) {
	client, err := g.readyClient()
	if err != nil {
		return nil, err
	}

	doc, cleanup, err := g.openDocument(ctx, client, code)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, cleanup())
	}()

	g.settleAndDrain(client, g.cfg.SymbolsSettleMs)

	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
	}
	result, err := client.Request(ctx, protocol.MethodTextDocumentDocumentSymbol, params, g.timeout(g.cfg.SymbolsTimeoutSec))
	if err != nil {
		return nil, err
	}
	return mapper.DocumentSymbolsFromResult(result)
}

func (g *gateway) readyClient() (rpc.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.ready() {
		return nil, ierrors.ErrNotReady
	}
	return g.client, nil
}

// openDocument writes code to a temp .m file and opens it on the server.
// The returned cleanup closes the document, forgets the session, and
// removes the temp file; it runs even when the request itself fails.
func (g *gateway) openDocument(ctx context.Context, client rpc.Client, code string) (entity.Document, func() error, error) {
	tmp, err := g.fs.TempFile("", "imatlab-*.m")
	if err != nil {
		return entity.Document{}, nil, fmt.Errorf("creating temp document: %w", err)
	}
	path, err := filepath.Abs(tmp.Name())
	if err != nil {
		path = tmp.Name()
	}
	werr := multierr.Combine(g.fs.WriteFile(path, code), tmp.Close())
	if werr != nil {
		_ = g.fs.Remove(path)
		return entity.Document{}, nil, fmt.Errorf("writing temp document: %w", werr)
	}

	id, err := uuid.NewV4()
	if err != nil {
		_ = g.fs.Remove(path)
		return entity.Document{}, nil, err
	}
	doc := entity.Document{
		UUID:       id,
		URI:        uri.File(path),
		TempPath:   path,
		LanguageID: entity.MatlabLanguageID,
		Text:       code,
	}
	if err := g.documents.Set(ctx, doc); err != nil {
		_ = g.fs.Remove(path)
		return entity.Document{}, nil, err
	}

	open := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        doc.URI,
			LanguageID: protocol.LanguageIdentifier(doc.LanguageID),
			Version:    1,
			Text:       code,
		},
	}
	if err := client.Notify(protocol.MethodTextDocumentDidOpen, open); err != nil {
		_ = g.documents.Delete(ctx, id)
		_ = g.fs.Remove(path)
		return entity.Document{}, nil, err
	}

	cleanup := func() error {
		closeParams := protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
		}
		return multierr.Combine(
			client.Notify(protocol.MethodTextDocumentDidClose, closeParams),
			g.documents.Delete(ctx, id),
			g.fs.Remove(path),
		)
	}
	return doc, cleanup, nil
}

// settleAndDrain gives the server a moment to process the fresh document
// and then discards its unsolicited traffic so the next response read is
// clean.
func (g *gateway) settleAndDrain(client rpc.Client, settleMs int) {
	g.clock.Sleep(time.Duration(settleMs) * time.Millisecond)
	if drained := client.DrainNotifications(time.Duration(g.cfg.DrainMaxWaitMs) * time.Millisecond); drained > 0 {
		g.logger.Debugw("Drained server notifications", "count", drained)
	}
}

func (g *gateway) timeout(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

func (g *gateway) updateInfoField(field, value string) {
	if g.infoFile == nil {
		return
	}
	if err := g.infoFile.UpdateField(field, value); err != nil {
		g.logger.Debugw("Unable to update info file", "field", field, "error", err)
	}
}
