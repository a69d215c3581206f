package tokens

// Kind tags the variant held by a Tree.
type Kind int

const (
	KindGroup Kind = iota
	KindPunct
	KindIdent
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindPunct:
		return "punct"
	case KindIdent:
		return "ident"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

type Delimiter int

const (
	DelimNone Delimiter = iota
	DelimParenthesis
	DelimBrace
	DelimBracket
)

// Spacing records whether a punctuation character is glued to the next one
// as part of a multi-character operator.
type Spacing int

const (
	Alone Spacing = iota
	Joint
)

const unsafeKeyword = "unsafe"

// Tree is one token tree: a delimited group or a single leaf token.
type Tree struct {
	Kind      Kind
	Delimiter Delimiter
	Stream    Stream
	Char      rune
	Spacing   Spacing
	Text      string
	Line      int
	Column    int
}

// Stream is an ordered sequence of token trees.
type Stream []Tree

// Counts holds the token-level totals of a stream.
type Counts struct {
	Tokens uint64
	Unsafe uint64
}

// Count walks stream and every nested group with an explicit worklist.
// Delimited groups count their open and close delimiters, joint punctuation
// counts once per operator, and every identifier spelled "unsafe" is tallied
// regardless of where it appears.
func Count(stream Stream) Counts {
	var counts Counts
	pending := []Stream{stream}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for i := range current {
			tree := &current[i]
			switch tree.Kind {
			case KindGroup:
				if tree.Delimiter != DelimNone {
					counts.Tokens += 2
				}
				pending = append(pending, tree.Stream)
			case KindPunct:
				if tree.Spacing == Alone {
					counts.Tokens++
				}
			case KindIdent:
				counts.Tokens++
				if tree.Text == unsafeKeyword {
					counts.Unsafe++
				}
			case KindLiteral:
				counts.Tokens++
			}
		}
	}
	return counts
}
