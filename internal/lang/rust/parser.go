package rust

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

const maxErrorSnippet = 24

// Parser builds tree-sitter syntax trees for Rust source.
type Parser struct {
	language *sitter.Language
}

func NewParser() *Parser {
	return &Parser{language: rust.GetLanguage()}
}

func (p *Parser) Parse(ctx context.Context, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(p.language)

	return parser.ParseCtx(ctx, nil, content)
}

// SyntaxError describes the first ERROR or MISSING node of a tree, 1-based.
type SyntaxError struct {
	Line   int
	Column int
	Reason string
}

// FindSyntaxError reports the first syntax error in source order, if any.
func FindSyntaxError(tree *sitter.Tree, content []byte) (SyntaxError, bool) {
	root := tree.RootNode()
	if !root.HasError() {
		return SyntaxError{}, false
	}

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsMissing() {
			return newSyntaxError(node, fmt.Sprintf("missing %q", node.Type())), true
		}
		if node.Type() == "ERROR" {
			return newSyntaxError(node, fmt.Sprintf("unexpected %q", snippet(node, content))), true
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			child := node.Child(i)
			if child != nil && (child.HasError() || child.IsMissing()) {
				stack = append(stack, child)
			}
		}
	}
	return newSyntaxError(root, "syntax error"), true
}

func newSyntaxError(node *sitter.Node, reason string) SyntaxError {
	point := node.StartPoint()
	return SyntaxError{Line: int(point.Row) + 1, Column: int(point.Column) + 1, Reason: reason}
}

func snippet(node *sitter.Node, content []byte) string {
	text := nodeText(node, content)
	if line, _, found := strings.Cut(text, "\n"); found {
		text = line
	}
	if len(text) > maxErrorSnippet {
		text = text[:maxErrorSnippet] + "..."
	}
	return text
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}
