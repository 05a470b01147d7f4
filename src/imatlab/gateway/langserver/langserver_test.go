package langserver

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/djoshea/imatlab/src/imatlab/internal/clock"
	ierrors "github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/internal/fs"
	"github.com/djoshea/imatlab/src/imatlab/internal/process"
	"github.com/djoshea/imatlab/src/imatlab/internal/process/processmock"
	"github.com/djoshea/imatlab/src/imatlab/internal/rpc"
	"github.com/djoshea/imatlab/src/imatlab/internal/rpc/rpcmock"
	documentrepo "github.com/djoshea/imatlab/src/imatlab/repository/document"
)

type testEnv struct {
	gateway    Gateway
	supervisor *processmock.MockSupervisor
	client     *rpcmock.MockClient
	documents  documentrepo.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	supervisor := processmock.NewMockSupervisor(ctrl)
	client := rpcmock.NewMockClient(ctrl)
	documents := documentrepo.New(tally.NoopScope)

	provider, err := config.NewStaticProvider(map[string]interface{}{
		"langserver": map[string]interface{}{
			"completionSettleMs":   0,
			"symbolsSettleMs":      0,
			"drainMaxWaitMs":       1,
			"completionTimeoutSec": 5,
			"symbolsTimeoutSec":    30,
		},
	})
	require.NoError(t, err)

	g, err := New(Params{
		Config:     provider,
		Logger:     zap.NewNop().Sugar(),
		Clock:      clock.New(),
		FS:         fs.New(),
		Stats:      tally.NoopScope,
		Supervisor: supervisor,
		Documents:  documents,
		Lifecycle:  fxtest.NewLifecycle(t),
	}, WithClientFactory(func(p process.Supervisor) rpc.Client {
		return client
	}))
	require.NoError(t, err)

	return &testEnv{gateway: g, supervisor: supervisor, client: client, documents: documents}
}

// startReady drives the gateway through a successful startup.
func (e *testEnv) startReady(t *testing.T) {
	t.Helper()
	e.supervisor.EXPECT().EnsureInstalled(gomock.Any()).Return(nil)
	e.supervisor.EXPECT().Start(gomock.Any()).Return(nil)
	e.client.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any()).Return(json.RawMessage(`{"capabilities":{}}`), nil)
	require.NoError(t, e.gateway.Start(context.Background()))

	e.client.EXPECT().State().Return(rpc.StateReady).AnyTimes()
	e.supervisor.EXPECT().Running().Return(true).AnyTimes()
}

func TestStartSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.startReady(t)
	assert.True(t, env.gateway.Ready())
}

func TestStartInstallFailure(t *testing.T) {
	env := newTestEnv(t)
	env.supervisor.EXPECT().EnsureInstalled(gomock.Any()).Return(ierrors.ErrInstallFailed)

	err := env.gateway.Start(context.Background())
	assert.ErrorIs(t, err, ierrors.ErrInstallFailed)
	assert.False(t, env.gateway.Ready())

	_, err = env.gateway.GetCompletions(context.Background(), "plo", protocol.Position{})
	assert.ErrorIs(t, err, ierrors.ErrNotReady)
}

func TestStartInitializeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.supervisor.EXPECT().EnsureInstalled(gomock.Any()).Return(nil)
	env.supervisor.EXPECT().Start(gomock.Any()).Return(nil)
	env.client.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, ierrors.ErrRequestTimeout)
	// The abandoned client and its process are torn down, not leaked.
	env.client.EXPECT().Close()
	env.supervisor.EXPECT().Kill().Return(nil)

	err := env.gateway.Start(context.Background())
	assert.ErrorIs(t, err, ierrors.ErrRequestTimeout)
	assert.False(t, env.gateway.Ready())
}

func TestStartRetryAfterInitializeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	supervisor := processmock.NewMockSupervisor(ctrl)
	first := rpcmock.NewMockClient(ctrl)
	second := rpcmock.NewMockClient(ctrl)
	clients := []rpc.Client{first, second}

	provider, err := config.NewStaticProvider(map[string]interface{}{
		"langserver": map[string]interface{}{"initializeTimeoutSec": 1},
	})
	require.NoError(t, err)

	g, err := New(Params{
		Config:     provider,
		Logger:     zap.NewNop().Sugar(),
		Clock:      clock.New(),
		FS:         fs.New(),
		Stats:      tally.NoopScope,
		Supervisor: supervisor,
		Documents:  documentrepo.New(tally.NoopScope),
		Lifecycle:  fxtest.NewLifecycle(t),
	}, WithClientFactory(func(p process.Supervisor) rpc.Client {
		c := clients[0]
		clients = clients[1:]
		return c
	}))
	require.NoError(t, err)

	// First attempt: initialize times out; the client and process must be
	// torn down so a retry does not race a second reader on the same pipe.
	supervisor.EXPECT().EnsureInstalled(gomock.Any()).Return(nil)
	supervisor.EXPECT().Start(gomock.Any()).Return(nil)
	first.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, ierrors.ErrRequestTimeout)
	first.EXPECT().Close()
	supervisor.EXPECT().Kill().Return(nil)

	err = g.Start(context.Background())
	require.ErrorIs(t, err, ierrors.ErrRequestTimeout)

	// Retry: a fresh process and a fresh client succeed.
	supervisor.EXPECT().EnsureInstalled(gomock.Any()).Return(nil)
	supervisor.EXPECT().Start(gomock.Any()).Return(nil)
	second.EXPECT().Initialize(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(json.RawMessage(`{"capabilities":{}}`), nil)

	require.NoError(t, g.Start(context.Background()))
	require.Empty(t, clients, "each attempt builds its own client")

	second.EXPECT().State().Return(rpc.StateReady).AnyTimes()
	supervisor.EXPECT().Running().Return(true).AnyTimes()
	assert.True(t, g.Ready())
}

func TestGetCompletions(t *testing.T) {
	env := newTestEnv(t)
	env.startReady(t)

	var tempPath string
	env.client.EXPECT().Notify(protocol.MethodTextDocumentDidOpen, gomock.Any()).
		DoAndReturn(func(method string, params interface{}) error {
			open := params.(protocol.DidOpenTextDocumentParams)
			tempPath = open.TextDocument.URI.Filename()
			assert.Equal(t, "y = plo", open.TextDocument.Text)
			assert.EqualValues(t, 1, open.TextDocument.Version)

			// The document is on disk and tracked while open.
			_, statErr := os.Stat(tempPath)
			assert.NoError(t, statErr)
			count, _ := env.documents.Count(context.Background())
			assert.Equal(t, 1, count)
			return nil
		})
	env.client.EXPECT().DrainNotifications(gomock.Any()).Return(2)
	env.client.EXPECT().Request(gomock.Any(), protocol.MethodTextDocumentCompletion, gomock.Any(), 5*time.Second).
		Return(json.RawMessage(`{"isIncomplete":false,"items":[{"label":"plot","insertText":"plot("}]}`), nil)
	env.client.EXPECT().Notify(protocol.MethodTextDocumentDidClose, gomock.Any()).Return(nil)

	items, err := env.gateway.GetCompletions(context.Background(), "y = plo", protocol.Position{Line: 0, Character: 7})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "plot(", items[0].InsertText)

	// Session fully cleaned up afterwards.
	count, err := env.documents.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	_, statErr := os.Stat(tempPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetCompletionsCleansUpOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.startReady(t)

	var tempPath string
	env.client.EXPECT().Notify(protocol.MethodTextDocumentDidOpen, gomock.Any()).
		DoAndReturn(func(method string, params interface{}) error {
			open := params.(protocol.DidOpenTextDocumentParams)
			tempPath = open.TextDocument.URI.Filename()
			return nil
		})
	env.client.EXPECT().DrainNotifications(gomock.Any()).Return(0)
	env.client.EXPECT().Request(gomock.Any(), protocol.MethodTextDocumentCompletion, gomock.Any(), gomock.Any()).
		Return(nil, ierrors.ErrRequestTimeout)
	env.client.EXPECT().Notify(protocol.MethodTextDocumentDidClose, gomock.Any()).Return(nil)

	_, err := env.gateway.GetCompletions(context.Background(), "y = plo", protocol.Position{})
	assert.ErrorIs(t, err, ierrors.ErrRequestTimeout)

	count, cerr := env.documents.Count(context.Background())
	require.NoError(t, cerr)
	assert.Equal(t, 0, count, "failed request must not leak its session")
	_, statErr := os.Stat(tempPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetDocumentSymbols(t *testing.T) {
	env := newTestEnv(t)
	env.startReady(t)

	env.client.EXPECT().Notify(protocol.MethodTextDocumentDidOpen, gomock.Any()).Return(nil)
	env.client.EXPECT().DrainNotifications(gomock.Any()).Return(0)
	env.client.EXPECT().Request(gomock.Any(), protocol.MethodTextDocumentDocumentSymbol, gomock.Any(), 30*time.Second).
		Return(json.RawMessage(`[{"name":"setup","kind":12,"range":{"start":{"line":0,"character":0},"end":{"line":1,"character":3}},"selectionRange":{"start":{"line":0,"character":9},"end":{"line":0,"character":14}}}]`), nil)
	env.client.EXPECT().Notify(protocol.MethodTextDocumentDidClose, gomock.Any()).Return(nil)

	symbols, err := env.gateway.GetDocumentSymbols(context.Background(), "function setup\nend")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "setup", symbols[0].Name)
}

func TestStopGraceful(t *testing.T) {
	env := newTestEnv(t)
	env.startReady(t)

	env.client.EXPECT().Shutdown(gomock.Any(), gomock.Any()).Return(nil)
	env.supervisor.EXPECT().Wait(gomock.Any()).Return(nil)
	require.NoError(t, env.gateway.Stop(context.Background()))
}

func TestStopEscalatesToKill(t *testing.T) {
	env := newTestEnv(t)
	env.startReady(t)

	env.client.EXPECT().Shutdown(gomock.Any(), gomock.Any()).Return(nil)
	env.supervisor.EXPECT().Wait(gomock.Any()).Return(ierrors.ErrStopTimeout)
	env.supervisor.EXPECT().Kill().Return(nil)
	require.NoError(t, env.gateway.Stop(context.Background()))
}
