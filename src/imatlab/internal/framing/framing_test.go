package framing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
)

func decodeString(t *testing.T, s string) (Message, error) {
	t.Helper()
	return DecodeOne(bufio.NewReader(strings.NewReader(s)))
}

func TestRoundTrip(t *testing.T) {
	id := int64(7)
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "request",
			msg: Message{
				JSONRPC: Version,
				ID:      &id,
				Method:  "textDocument/completion",
				Params:  json.RawMessage(`{"position":{"line":1,"character":4}}`),
			},
		},
		{
			name: "response with result",
			msg: Message{
				JSONRPC: Version,
				ID:      &id,
				Result:  json.RawMessage(`{"items":[]}`),
			},
		},
		{
			name: "response with error",
			msg: Message{
				JSONRPC: Version,
				ID:      &id,
				Error:   jsonrpc2.NewError(jsonrpc2.InternalError, "internal error"),
			},
		},
		{
			name: "notification",
			msg: Message{
				JSONRPC: Version,
				Method:  "textDocument/publishDiagnostics",
				Params:  json.RawMessage(`{"uri":"file:///tmp/a.m"}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(encoded, []byte("Content-Length: ")))

			decoded, err := DecodeOne(bufio.NewReader(bytes.NewReader(encoded)))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestDecodeOneSkipsExtraneousLines(t *testing.T) {
	msg, err := NewNotification("initialized", map[string]string{})
	require.NoError(t, err)
	encoded, err := Encode(msg)
	require.NoError(t, err)

	noise := "starting server...\nDebugger attached.\n\nContent-Type: application/json\n"
	decoded, err := decodeString(t, noise+string(encoded))
	require.NoError(t, err)

	want, err := DecodeOne(bufio.NewReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Equal(t, want, decoded)
}

func TestDecodeOneMalformedLength(t *testing.T) {
	_, err := decodeString(t, "Content-Length: banana\r\n\r\n{}")
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = decodeString(t, "Content-Length: -4\r\n\r\n{}")
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestDecodeOneMalformedBody(t *testing.T) {
	body := "{not json"
	_, err := decodeString(t, fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeOneEOF(t *testing.T) {
	_, err := decodeString(t, "")
	assert.ErrorIs(t, err, io.EOF)

	// Truncated body surfaces as an unexpected EOF, not a silent success.
	_, err = decodeString(t, "Content-Length: 100\r\n\r\n{}")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMessagePredicates(t *testing.T) {
	id := int64(1)
	req, err := NewRequest(id, "initialize", nil)
	require.NoError(t, err)
	assert.False(t, req.IsNotification())
	assert.False(t, req.IsResponse())

	notif, err := NewNotification("exit", nil)
	require.NoError(t, err)
	assert.True(t, notif.IsNotification())
	assert.False(t, notif.IsResponse())

	resp := Message{JSONRPC: Version, ID: &id, Result: json.RawMessage(`null`)}
	assert.True(t, resp.IsResponse())
	assert.False(t, resp.IsNotification())
}

func TestNewRequestMarshalsParams(t *testing.T) {
	req, err := NewRequest(3, "textDocument/documentSymbol", map[string]interface{}{
		"textDocument": map[string]string{"uri": "file:///tmp/a.m"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"textDocument":{"uri":"file:///tmp/a.m"}}`, string(req.Params))

	_, err = NewRequest(4, "bad", func() {})
	assert.Error(t, err)
}
