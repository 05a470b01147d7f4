package document

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/uri"

	"github.com/djoshea/imatlab/src/imatlab/entity"
	"github.com/djoshea/imatlab/src/imatlab/internal/errors"
)

func sampleDocument(t *testing.T) entity.Document {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return entity.Document{
		UUID:       id,
		URI:        uri.File("/tmp/imatlab123.m"),
		TempPath:   "/tmp/imatlab123.m",
		LanguageID: entity.MatlabLanguageID,
		Text:       "x = 1;",
	}
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	scope := tally.NewTestScope("", nil)
	r := New(scope)

	doc := sampleDocument(t)
	require.NoError(t, r.Set(ctx, doc))

	got, err := r.Get(ctx, doc.UUID)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, r.Delete(ctx, doc.UUID))
	count, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = r.Get(ctx, doc.UUID)
	id, ok := errors.NotFoundUUID(err)
	assert.True(t, ok)
	assert.Equal(t, doc.UUID, id)
}

func TestSetRequiresUUID(t *testing.T) {
	r := New(tally.NoopScope)
	err := r.Set(context.Background(), entity.Document{})
	assert.Error(t, err)
}

func TestGaugeTracksOpenDocuments(t *testing.T) {
	ctx := context.Background()
	scope := tally.NewTestScope("", nil)
	r := New(scope)

	first := sampleDocument(t)
	second := sampleDocument(t)
	require.NoError(t, r.Set(ctx, first))
	require.NoError(t, r.Set(ctx, second))

	gauges := scope.Snapshot().Gauges()
	require.Contains(t, gauges, "open_documents+")
	assert.EqualValues(t, 2, gauges["open_documents+"].Value())

	require.NoError(t, r.Delete(ctx, first.UUID))
	gauges = scope.Snapshot().Gauges()
	assert.EqualValues(t, 1, gauges["open_documents+"].Value())
}
