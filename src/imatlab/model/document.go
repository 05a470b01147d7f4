package model

import (
	"github.com/gofrs/uuid"
	"go.lsp.dev/uri"
)

// Document is the repository layer model for an open code-intelligence
// document session.
type Document struct {
	UUID       uuid.UUID
	URI        uri.URI
	TempPath   string
	LanguageID string
	Text       string
}
