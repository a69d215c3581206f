package rust

import (
	"bytes"
	"unicode/utf8"

	"github.com/ben-ranford/unsafety/internal/tokens"
)

const bom = "\ufeff"

// edit replaces the bytes of one keyword in place.
type edit struct {
	line   int
	column int
	with   string
}

// RelaxEdition rewrites qualifiers from the 2024 edition and recent stable
// releases that the bundled grammar rejects:
//
//	unsafe extern "C" { ... }   unsafe is blanked
//	safe fn / safe static       safe is blanked
//	&raw const x / &raw mut x   raw (and const) are blanked
//	async |x| ... closures      async is blanked
//	#[unsafe(attr)]             unsafe becomes a plain identifier
//
// Every rewrite keeps the byte length, so offsets, lines and columns of the
// result match content. stream must be the token stream of content. The
// second result is false when nothing was rewritten.
func RelaxEdition(content []byte, stream tokens.Stream) ([]byte, bool) {
	var edits []edit
	pending := []tokens.Stream{stream}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for i := range current {
			if current[i].Kind == tokens.KindGroup {
				pending = append(pending, current[i].Stream)
			}
			edits = append(edits, editsAt(current, i)...)
		}
	}
	if len(edits) == 0 {
		return content, false
	}

	relaxed := bytes.Clone(content)
	starts := lineStarts(content)
	for _, e := range edits {
		offset, ok := byteOffset(content, starts, e.line, e.column)
		if !ok || offset+len(e.with) > len(relaxed) {
			continue
		}
		copy(relaxed[offset:], e.with)
	}
	return relaxed, true
}

func editsAt(stream tokens.Stream, i int) []edit {
	tree := stream[i]
	switch {
	case isIdent(tree, "unsafe") && isIdent(at(stream, i+1), "extern"):
		next := at(stream, i+2)
		if next.Kind == tokens.KindLiteral {
			next = at(stream, i+3)
		}
		if isGroup(next, tokens.DelimBrace) {
			return []edit{blank(tree)}
		}
	case isIdent(tree, "safe") && (isIdent(at(stream, i+1), "fn") || isIdent(at(stream, i+1), "static")):
		return []edit{blank(tree)}
	case isPunct(tree, '&') && isIdent(at(stream, i+1), "raw"):
		raw, qualifier := at(stream, i+1), at(stream, i+2)
		if isIdent(qualifier, "const") {
			return []edit{blank(raw), blank(qualifier)}
		}
		if isIdent(qualifier, "mut") {
			return []edit{blank(raw)}
		}
	case isIdent(tree, "async"):
		next := at(stream, i+1)
		if isIdent(next, "move") {
			next = at(stream, i+2)
		}
		if isPunct(next, '|') {
			return []edit{blank(tree)}
		}
	case isPunct(tree, '#'):
		attr := at(stream, i+1)
		if isPunct(attr, '!') {
			attr = at(stream, i+2)
		}
		if isGroup(attr, tokens.DelimBracket) && len(attr.Stream) >= 2 &&
			isIdent(attr.Stream[0], "unsafe") && isGroup(attr.Stream[1], tokens.DelimParenthesis) {
			head := attr.Stream[0]
			return []edit{{line: head.Line, column: head.Column, with: "_nsafe"}}
		}
	}
	return nil
}

func at(stream tokens.Stream, i int) tokens.Tree {
	if i < 0 || i >= len(stream) {
		return tokens.Tree{Kind: tokens.KindLiteral}
	}
	return stream[i]
}

func isIdent(tree tokens.Tree, text string) bool {
	return tree.Kind == tokens.KindIdent && tree.Text == text
}

func isPunct(tree tokens.Tree, char rune) bool {
	return tree.Kind == tokens.KindPunct && tree.Char == char
}

func isGroup(tree tokens.Tree, delim tokens.Delimiter) bool {
	return tree.Kind == tokens.KindGroup && tree.Delimiter == delim
}

func blank(tree tokens.Tree) edit {
	return edit{line: tree.Line, column: tree.Column, with: string(bytes.Repeat([]byte{' '}, len(tree.Text)))}
}

func lineStarts(content []byte) []int {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// byteOffset converts a 1-based line and rune column, as reported by the
// lexer, into a byte offset of content. A leading BOM is not part of line 1.
func byteOffset(content []byte, starts []int, line, column int) (int, bool) {
	if line < 1 || line > len(starts) {
		return 0, false
	}
	offset := starts[line-1]
	if line == 1 && bytes.HasPrefix(content, []byte(bom)) {
		offset += len(bom)
	}
	for range column - 1 {
		if offset >= len(content) {
			return 0, false
		}
		_, size := utf8.DecodeRune(content[offset:])
		offset += size
	}
	return offset, true
}
