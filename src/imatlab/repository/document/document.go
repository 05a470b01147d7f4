// Package document tracks the code-intelligence documents currently open
// on the language server. Entries are short-lived: one is created when a
// completion or symbol request opens a temp document and removed when the
// request's cleanup closes it.
package document

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/djoshea/imatlab/src/imatlab/entity"
	"github.com/djoshea/imatlab/src/imatlab/internal/errors"
	"github.com/djoshea/imatlab/src/imatlab/mapper"
	"github.com/djoshea/imatlab/src/imatlab/model"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(New),
)

// Repository is an entity-scoped repository.
type Repository interface {
	Get(context.Context, uuid.UUID) (entity.Document, error)
	Set(context.Context, entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[uuid.UUID]model.Document
	stats    tally.Scope
}

// New returns a repository to a key-value Document data store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[uuid.UUID]model.Document),
		stats:    stats,
	}
}

// Get returns the Document associated with the given id.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.memstore[id]
	if !ok {
		return entity.Document{}, &errors.UUIDNotFoundError{UUID: id}
	}
	return mapper.DocumentFromModel(doc), nil
}

// Set stores the Document under its uuid.
func (r *repository) Set(ctx context.Context, doc entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.UUID == uuid.Nil {
		return errors.New("can't save document without a uuid")
	}
	r.memstore[doc.UUID] = mapper.DocumentToModel(doc)
	r.stats.Gauge("open_documents").Update(float64(len(r.memstore)))
	return nil
}

// Delete removes the Document associated with the given id.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, id)
	r.stats.Gauge("open_documents").Update(float64(len(r.memstore)))
	return nil
}

// Count returns the number of documents currently open.
func (r *repository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}
