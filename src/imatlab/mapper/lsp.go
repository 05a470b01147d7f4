package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"
)

var _nullResult = []byte("null")

// CompletionItemsFromResult parses a textDocument/completion result body.
// Servers may answer with a CompletionList or a bare item array; a null
// result means no completions.
func CompletionItemsFromResult(result json.RawMessage) ([]protocol.CompletionItem, error) {
	if len(result) == 0 || bytes.Equal(result, _nullResult) {
		return nil, nil
	}

	var list protocol.CompletionList
	if err := json.Unmarshal(result, &list); err == nil {
		return list.Items, nil
	}

	var items []protocol.CompletionItem
	if err := json.Unmarshal(result, &items); err != nil {
		return nil, fmt.Errorf("parsing completion result: %w", err)
	}
	return items, nil
}

// DocumentSymbolsFromResult parses a textDocument/documentSymbol result
// body into hierarchical document symbols. A null result means the server
// found none.
func DocumentSymbolsFromResult(result json.RawMessage) ([]protocol.DocumentSymbol, error) {
	if len(result) == 0 || bytes.Equal(result, _nullResult) {
		return nil, nil
	}

	var symbols []protocol.DocumentSymbol
	if err := json.Unmarshal(result, &symbols); err != nil {
		return nil, fmt.Errorf("parsing document symbol result: %w", err)
	}
	return symbols, nil
}
