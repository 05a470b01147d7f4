package mapper

import (
	"regexp"

	"go.lsp.dev/protocol"
)

var (
	_triggerWordPattern   = regexp.MustCompile(`\w*$`)
	_trailingTokenPattern = regexp.MustCompile(`[A-Za-z_][\w.]*$`)
)

// CompletionTexts extracts the text to splice into the cell for each
// completion item: the insert text when the server provides one, the label
// otherwise. Items that yield an empty string are dropped.
func CompletionTexts(items []protocol.CompletionItem) []string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		text := item.InsertText
		if text == "" {
			text = item.Label
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

// PositionAt converts a byte offset within code to a zero-indexed LSP
// line/character position. Offsets past the end of code clamp to the end.
func PositionAt(code string, offset int) protocol.Position {
	if offset > len(code) {
		offset = len(code)
	}
	if offset < 0 {
		offset = 0
	}

	var line, character int
	for _, b := range []byte(code[:offset]) {
		if b == '\n' {
			line++
			character = 0
			continue
		}
		character++
	}
	return protocol.Position{Line: uint32(line), Character: uint32(character)}
}

// TriggerWordLen returns the length of the word-character run ending the
// given prefix. The front-end uses it to place the replacement start of a
// completion before the partially typed word.
func TriggerWordLen(prefix string) int {
	return len(_triggerWordPattern.FindString(prefix))
}

// TrailingToken returns the dotted identifier ending the given prefix, or
// the empty string when the prefix does not end in one.
func TrailingToken(prefix string) string {
	return _trailingTokenPattern.FindString(prefix)
}
