package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ben-ranford/unsafety/internal/lang/rust"
	"github.com/ben-ranford/unsafety/internal/stats"
	"github.com/ben-ranford/unsafety/internal/tokens"
)

// ErrClassificationMismatch means the syntax tree attributed more unsafe
// qualifiers than the token stream contains.
var ErrClassificationMismatch = errors.New("unsafe token classification mismatch")

// ParseError reports source text that is not valid Rust.
type ParseError struct {
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Reason)
}

var sourceParser = rust.NewParser()

// Evaluate measures one file's text. A file that does not parse yields a
// *ParseError and no partial record.
func Evaluate(ctx context.Context, text string) (stats.Stats, error) {
	stream, lexErr := tokens.Lex(text)

	tree, content, err := parseSource(ctx, []byte(text), stream, lexErr == nil)
	if err != nil {
		return stats.Stats{}, err
	}
	if lexErr != nil {
		var positioned *tokens.LexError
		if errors.As(lexErr, &positioned) {
			return stats.Stats{}, &ParseError{Line: positioned.Line, Column: positioned.Column, Reason: positioned.Reason}
		}
		return stats.Stats{}, lexErr
	}

	visited, err := rust.Visit(tree, content)
	if err != nil {
		return stats.Stats{}, err
	}
	return reconcile(visited, tokens.Count(stream), countLines(text))
}

// parseSource returns an error-free tree and the bytes it was built from.
// Text the grammar rejects is parsed once more with newer edition qualifiers
// relaxed; the first syntax error of the original text is reported when
// that also fails.
func parseSource(ctx context.Context, content []byte, stream tokens.Stream, lexed bool) (*sitter.Tree, []byte, error) {
	tree, err := sourceParser.Parse(ctx, content)
	if err != nil {
		return nil, nil, fmt.Errorf("parse source: %w", err)
	}
	syntaxErr, found := rust.FindSyntaxError(tree, content)
	if !found {
		return tree, content, nil
	}

	if lexed {
		if relaxed, changed := rust.RelaxEdition(content, stream); changed {
			retry, err := sourceParser.Parse(ctx, relaxed)
			if err != nil {
				return nil, nil, fmt.Errorf("parse source: %w", err)
			}
			if _, found := rust.FindSyntaxError(retry, relaxed); !found {
				return retry, relaxed, nil
			}
		}
	}
	return nil, nil, &ParseError{Line: syntaxErr.Line, Column: syntaxErr.Column, Reason: syntaxErr.Reason}
}

func reconcile(visited rust.VisitorStats, counts tokens.Counts, lines uint64) (stats.Stats, error) {
	attributed := visited.UnsafeFns + visited.UnsafeBlocks + visited.UnsafeImpls
	if attributed > counts.Unsafe {
		return stats.Stats{}, fmt.Errorf("%w: %d unsafe tokens, %d attributed to fns, blocks and impls",
			ErrClassificationMismatch, counts.Unsafe, attributed)
	}
	other := counts.Unsafe - attributed

	return stats.Stats{
		TotalFiles:             1,
		TotalLines:             lines,
		TotalTokens:            counts.Tokens,
		TotalStatements:        visited.TotalStatements,
		UnsafeStatements:       visited.UnsafeStatements,
		UnsafeFns:              visited.UnsafeFns,
		UnsafePubFns:           visited.UnsafePubFns,
		UnsafeBlocks:           visited.UnsafeBlocks,
		UnsafeImpls:            visited.UnsafeImpls,
		UnsafeOther:            other,
		UnsafeScore:            visited.UnsafeStatements + visited.UnsafeImpls + other,
		UnsafeLinesLowFidelity: visited.UnsafeLines,
	}, nil
}

func countLines(text string) uint64 {
	var count uint64
	for line := range strings.Lines(text) {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
