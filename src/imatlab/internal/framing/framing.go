// Package framing implements the length-prefixed envelope that delimits one
// JSON-RPC message within a byte stream. It is pure: callers own all I/O
// policy, including what to do on a desynchronized stream.
package framing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.lsp.dev/jsonrpc2"

	"github.com/djoshea/imatlab/src/imatlab/internal/errors"
)

// Version is the JSON-RPC version spoken on the wire.
const Version = "2.0"

const _headerContentLength = "Content-Length:"

var (
	// ErrMalformedHeader reports a Content-Length header whose value is not a valid length.
	ErrMalformedHeader = errors.New("malformed Content-Length header")
	// ErrDecode reports a frame body that is not valid JSON.
	ErrDecode = errors.New("malformed frame body")
)

// Message is one JSON-RPC message: a request (ID and Method set), a response
// (ID set, Method empty) or a notification (Method set, no ID). Unknown
// params/results are preserved opaquely as raw JSON.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m Message) IsRequest() bool {
	return m.ID != nil && m.Method != ""
}

// IsResponse reports whether the message answers a request.
func (m Message) IsResponse() bool {
	return m.ID != nil && m.Method == ""
}

// IsNotification reports whether the message expects no response.
func (m Message) IsNotification() bool {
	return m.ID == nil && m.Method != ""
}

// NewRequest builds a request message with the given id.
func NewRequest(id int64, method string, params interface{}) (Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return Message{}, err
	}
	return Message{JSONRPC: Version, ID: &id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification message.
func NewNotification(method string, params interface{}) (Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return Message{}, err
	}
	return Message{JSONRPC: Version, Method: method, Params: raw}, nil
}

func marshalParams(params interface{}) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return raw, nil
}

// Encode prefixes the UTF-8 JSON body with the ASCII Content-Length header.
func Encode(m Message) ([]byte, error) {
	if m.JSONRPC == "" {
		m.JSONRPC = Version
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %d\r\n\r\n", _headerContentLength, len(body))
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeOne reads one framed message from r. Lines that do not start with
// the Content-Length token are skipped rather than treated as fatal, since
// the remote process may emit extraneous output on the same stream. A
// malformed length or body fails the read with ErrMalformedHeader/ErrDecode.
func DecodeOne(r *bufio.Reader) (Message, error) {
	var msg Message
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return msg, err
		}
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, _headerContentLength) {
			continue
		}

		lenStr := strings.TrimSpace(strings.TrimPrefix(trimmed, _headerContentLength))
		n, err := strconv.Atoi(lenStr)
		if err != nil || n < 0 {
			return msg, fmt.Errorf("%w: %q", ErrMalformedHeader, lenStr)
		}

		// Blank separator line between header and body.
		if _, err := r.ReadString('\n'); err != nil {
			return msg, err
		}

		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return msg, err
		}
		if err := json.Unmarshal(body, &msg); err != nil {
			return msg, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return msg, nil
	}
}
