package rust

import (
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

var ErrMalformedTree = errors.New("malformed syntax tree")

// VisitorStats are the structural counts gathered from one syntax tree.
type VisitorStats struct {
	TotalStatements  uint64
	UnsafeStatements uint64
	UnsafeFns        uint64
	UnsafePubFns     uint64
	UnsafeBlocks     uint64
	UnsafeImpls      uint64
	UnsafeLines      uint64
}

type owner int

const (
	ownerNone owner = iota
	ownerImpl
	ownerTrait
)

// scope is copied into every call so nested regions cannot leak state
// back to their parents.
type scope struct {
	insideUnsafe    bool
	insideTraitImpl bool
	owner           owner
}

type visitor struct {
	content []byte
	stats   VisitorStats
	lines   int64
}

// Visit walks tree once in source order and tallies unsafe constructs.
func Visit(tree *sitter.Tree, content []byte) (VisitorStats, error) {
	v := &visitor{content: content}
	if err := v.visit(tree.RootNode(), scope{}); err != nil {
		return VisitorStats{}, err
	}
	if v.lines < 0 {
		return VisitorStats{}, fmt.Errorf("%w: unsafe line total went negative (%d)", ErrMalformedTree, v.lines)
	}
	v.stats.UnsafeLines = uint64(v.lines)
	return v.stats, nil
}

func (v *visitor) visit(node *sitter.Node, s scope) error {
	switch node.Type() {
	case "unsafe_block":
		return v.visitUnsafeBlock(node, s)
	case "function_item":
		switch s.owner {
		case ownerImpl:
			return v.visitFn(node, s, s.insideTraitImpl)
		case ownerTrait:
			return v.visitChildren(node, s)
		default:
			return v.visitFn(node, s, false)
		}
	case "impl_item":
		return v.visitImpl(node, s)
	case "trait_item":
		s.owner = ownerTrait
		return v.visitEach(node, s)
	case "block":
		return v.visitBlock(node, s)
	default:
		return v.visitChildren(node, s)
	}
}

// visitChildren is the default descent. Only a declaration list hands its
// owner to its direct members.
func (v *visitor) visitChildren(node *sitter.Node, s scope) error {
	if node.Type() != "declaration_list" {
		s.owner = ownerNone
	}
	return v.visitEach(node, s)
}

func (v *visitor) visitEach(node *sitter.Node, s scope) error {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if err := v.visit(node.NamedChild(i), s); err != nil {
			return err
		}
	}
	return nil
}

func (v *visitor) visitUnsafeBlock(node *sitter.Node, s scope) error {
	block := firstNamedChildOfType(node, "block")
	if block == nil {
		return malformed(node, "unsafe block without a body")
	}

	v.stats.UnsafeBlocks++
	if !s.insideUnsafe {
		v.lines += lineSpan(block)
	}

	s.insideUnsafe = true
	return v.visitChildren(node, s)
}

func (v *visitor) visitFn(node *sitter.Node, s scope, traitMethod bool) error {
	body := node.ChildByFieldName("body")
	if body == nil {
		return malformed(node, "function without a body")
	}

	unsafeFn := hasModifier(node, "unsafe")
	if unsafeFn {
		v.stats.UnsafeFns++
		if traitMethod || v.isPublic(node) {
			v.stats.UnsafePubFns++
		}
		if !s.insideUnsafe {
			v.lines += lineSpan(body)
		}
	} else if s.insideUnsafe {
		v.lines -= lineSpan(body)
	}

	s.insideUnsafe = unsafeFn
	return v.visitChildren(node, s)
}

func (v *visitor) visitImpl(node *sitter.Node, s scope) error {
	if hasToken(node, "unsafe") {
		v.stats.UnsafeImpls++
	}

	s.insideTraitImpl = node.ChildByFieldName("trait") != nil
	s.owner = ownerImpl
	return v.visitEach(node, s)
}

func (v *visitor) visitBlock(node *sitter.Node, s scope) error {
	s.owner = ownerNone
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if isStatement(child) {
			v.stats.TotalStatements++
			// A statement that is only an unsafe block is the region itself;
			// its body statements carry the unsafe count.
			if s.insideUnsafe && !isUnsafeBlockStatement(child) {
				v.stats.UnsafeStatements++
			}
		}
		if err := v.visit(child, s); err != nil {
			return err
		}
	}
	return nil
}

func (v *visitor) isPublic(node *sitter.Node) bool {
	vis := firstNamedChildOfType(node, "visibility_modifier")
	return vis != nil && nodeText(vis, v.content) == "pub"
}

func isStatement(node *sitter.Node) bool {
	switch node.Type() {
	case "line_comment", "block_comment", "comment", "attribute_item", "inner_attribute_item", "label", "empty_statement":
		return false
	default:
		return true
	}
}

func isUnsafeBlockStatement(node *sitter.Node) bool {
	if node.Type() == "unsafe_block" {
		return true
	}
	return node.Type() == "expression_statement" &&
		node.NamedChildCount() == 1 &&
		node.NamedChild(0).Type() == "unsafe_block"
}

func hasModifier(fn *sitter.Node, modifier string) bool {
	modifiers := firstNamedChildOfType(fn, "function_modifiers")
	return modifiers != nil && hasToken(modifiers, modifier)
}

func hasToken(node *sitter.Node, typ string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func firstNamedChildOfType(node *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		for _, typ := range types {
			if child.Type() == typ {
				return child
			}
		}
	}
	return nil
}

func lineSpan(node *sitter.Node) int64 {
	return int64(node.EndPoint().Row) - int64(node.StartPoint().Row) + 1
}

func malformed(node *sitter.Node, reason string) error {
	point := node.StartPoint()
	return fmt.Errorf("%w: %s at %d:%d", ErrMalformedTree, reason, point.Row+1, point.Column+1)
}
