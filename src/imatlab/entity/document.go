// Package entity contains the domain types for the kernel.
package entity

import (
	"github.com/gofrs/uuid"
	"go.lsp.dev/uri"
)

// MatlabLanguageID is the language identifier sent with didOpen.
const MatlabLanguageID = "matlab"

// Document is one ephemeral code-intelligence session: a snapshot of
// notebook code written to a temp file and opened on the language server
// for the duration of a single completion or symbol request.
type Document struct {
	UUID       uuid.UUID `json:"uuid" zap:"uuid"`
	URI        uri.URI   `json:"uri" zap:"uri"`
	TempPath   string    `json:"tempPath" zap:"tempPath"`
	LanguageID string    `json:"languageId" zap:"languageId"`
	Text       string    `json:"-" zap:"-"`
}

// ExecStatus is the terminal status of one execute request.
type ExecStatus string

const (
	// ExecStatusOK means the code ran to completion.
	ExecStatusOK ExecStatus = "ok"
	// ExecStatusError means the code raised an execution error.
	ExecStatusError ExecStatus = "error"
)

// ExecResult summarizes one execute request for the front-end.
type ExecResult struct {
	Status       ExecStatus `json:"status" zap:"status"`
	ErrorName    string     `json:"ename,omitempty" zap:"ename"`
	ErrorValue   string     `json:"evalue,omitempty" zap:"evalue"`
	DesktopShown bool       `json:"desktopShown" zap:"desktopShown"`
}
