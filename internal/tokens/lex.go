package tokens

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const eof rune = -1

const punctChars = "~!@#$%^&*-=+|;:,.<>/?"

// Longest operators first; every character but the last is emitted Joint.
var operators = []string{
	"<<=", ">>=", "...", "..=",
	"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=",
	"<<", ">>", "..",
}

var openers = map[rune]Delimiter{
	'(': DelimParenthesis,
	'{': DelimBrace,
	'[': DelimBracket,
}

var closers = map[Delimiter]rune{
	DelimParenthesis: ')',
	DelimBrace:       '}',
	DelimBracket:     ']',
}

// LexError reports source text that does not form a valid token stream.
type LexError struct {
	Line   int
	Column int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Reason)
}

type frame struct {
	delim  Delimiter
	line   int
	column int
	stream Stream
}

type lexer struct {
	src    []rune
	pos    int
	line   int
	column int
}

// Lex tokenizes Rust source into nested token trees. Doc comments are
// rewritten to their #[doc = "..."] attribute form; other comments and
// whitespace produce nothing.
func Lex(src string) (Stream, error) {
	l := &lexer{src: []rune(strings.TrimPrefix(src, "\ufeff")), line: 1, column: 1}
	l.skipShebang()

	frames := []*frame{{delim: DelimNone, line: 1, column: 1}}
	for {
		top := frames[len(frames)-1]
		if err := l.skipTrivia(top); err != nil {
			return nil, err
		}
		if l.done() {
			break
		}

		line, column := l.line, l.column
		r := l.peek(0)
		if delim, ok := openers[r]; ok {
			l.advance()
			frames = append(frames, &frame{delim: delim, line: line, column: column})
			continue
		}
		if r == ')' || r == ']' || r == '}' {
			l.advance()
			if len(frames) == 1 {
				return nil, errorAt(line, column, "unexpected closing delimiter %q", r)
			}
			if closers[top.delim] != r {
				return nil, errorAt(line, column, "mismatched closing delimiter %q for %q opened at %d:%d", r, openerFor(top.delim), top.line, top.column)
			}
			frames = frames[:len(frames)-1]
			parent := frames[len(frames)-1]
			parent.stream = append(parent.stream, Tree{Kind: KindGroup, Delimiter: top.delim, Stream: top.stream, Line: top.line, Column: top.column})
			continue
		}

		leaves, err := l.leaf()
		if err != nil {
			return nil, err
		}
		top.stream = append(top.stream, leaves...)
	}

	if len(frames) > 1 {
		top := frames[len(frames)-1]
		return nil, errorAt(top.line, top.column, "unclosed delimiter %q", openerFor(top.delim))
	}
	return frames[0].stream, nil
}

func openerFor(delim Delimiter) rune {
	for r, d := range openers {
		if d == delim {
			return r
		}
	}
	return eof
}

func errorAt(line, column int, format string, args ...any) error {
	return &LexError{Line: line, Column: column, Reason: fmt.Sprintf(format, args...)}
}

func (l *lexer) done() bool {
	return l.pos >= len(l.src)
}

func (l *lexer) peek(offset int) rune {
	i := l.pos + offset
	if i < 0 || i >= len(l.src) {
		return eof
	}
	return l.src[i]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *lexer) skipLine() {
	for !l.done() && l.peek(0) != '\n' {
		l.advance()
	}
}

// A leading "#!" is a shebang unless it opens an inner attribute.
func (l *lexer) skipShebang() {
	if l.peek(0) != '#' || l.peek(1) != '!' {
		return
	}
	for i := l.pos + 2; i < len(l.src); i++ {
		if unicode.IsSpace(l.src[i]) {
			continue
		}
		if l.src[i] == '[' {
			return
		}
		break
	}
	l.skipLine()
}

func (l *lexer) skipTrivia(f *frame) error {
	for !l.done() {
		r := l.peek(0)
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peek(1) == '/':
			line, column := l.line, l.column
			inner := l.peek(2) == '!'
			outer := l.peek(2) == '/' && l.peek(3) != '/'
			start := l.pos
			l.skipLine()
			if inner || outer {
				f.stream = append(f.stream, docAttribute(string(l.src[start+3:l.pos]), inner, line, column)...)
			}
		case r == '/' && l.peek(1) == '*':
			line, column := l.line, l.column
			inner := l.peek(2) == '!'
			outer := l.peek(2) == '*' && l.peek(3) != '*' && l.peek(3) != '/'
			start := l.pos
			if err := l.blockComment(line, column); err != nil {
				return err
			}
			if inner || outer {
				f.stream = append(f.stream, docAttribute(string(l.src[start+3:l.pos-2]), inner, line, column)...)
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) blockComment(line, column int) error {
	l.advance()
	l.advance()
	depth := 1
	for depth > 0 {
		switch {
		case l.done():
			return errorAt(line, column, "unterminated block comment")
		case l.peek(0) == '/' && l.peek(1) == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek(0) == '*' && l.peek(1) == '/':
			l.advance()
			l.advance()
			depth--
		default:
			l.advance()
		}
	}
	return nil
}

func docAttribute(text string, inner bool, line, column int) []Tree {
	out := []Tree{{Kind: KindPunct, Char: '#', Spacing: Alone, Line: line, Column: column}}
	if inner {
		out = append(out, Tree{Kind: KindPunct, Char: '!', Spacing: Alone, Line: line, Column: column})
	}
	return append(out, Tree{
		Kind:      KindGroup,
		Delimiter: DelimBracket,
		Line:      line,
		Column:    column,
		Stream: Stream{
			{Kind: KindIdent, Text: "doc", Line: line, Column: column},
			{Kind: KindPunct, Char: '=', Spacing: Alone, Line: line, Column: column},
			{Kind: KindLiteral, Text: strconv.Quote(text), Line: line, Column: column},
		},
	})
}

func (l *lexer) leaf() ([]Tree, error) {
	line, column := l.line, l.column
	r := l.peek(0)
	switch {
	case r == '\'':
		return l.quote()
	case r == '"':
		start := l.pos
		if err := l.quoted('"'); err != nil {
			return nil, err
		}
		return []Tree{l.literal(start, line, column)}, nil
	case isDigit(r):
		start := l.pos
		l.number()
		return []Tree{l.literal(start, line, column)}, nil
	case isIdentStart(r):
		return l.word()
	case strings.ContainsRune(punctChars, r):
		return l.punct(), nil
	default:
		return nil, errorAt(line, column, "unexpected character %q", r)
	}
}

func (l *lexer) literal(start, line, column int) Tree {
	l.suffix()
	return Tree{Kind: KindLiteral, Text: string(l.src[start:l.pos]), Line: line, Column: column}
}

// quote handles a leading apostrophe: a char literal or a lifetime/label.
func (l *lexer) quote() ([]Tree, error) {
	line, column := l.line, l.column
	if l.peek(1) == '\\' || l.peek(2) == '\'' {
		start := l.pos
		if err := l.quoted('\''); err != nil {
			return nil, err
		}
		return []Tree{l.literal(start, line, column)}, nil
	}
	if !isIdentStart(l.peek(1)) {
		return nil, errorAt(line, column, "invalid character literal")
	}
	l.advance()
	identLine, identColumn := l.line, l.column
	start := l.pos
	l.identTail()
	return []Tree{
		{Kind: KindPunct, Char: '\'', Spacing: Joint, Line: line, Column: column},
		{Kind: KindIdent, Text: string(l.src[start:l.pos]), Line: identLine, Column: identColumn},
	}, nil
}

// quoted consumes a quote-delimited literal body honoring backslash escapes.
func (l *lexer) quoted(quote rune) error {
	line, column := l.line, l.column
	l.advance()
	for {
		if l.done() {
			return errorAt(line, column, "unterminated literal")
		}
		r := l.advance()
		if r == '\\' {
			if l.done() {
				return errorAt(line, column, "unterminated literal")
			}
			l.advance()
			continue
		}
		if r == quote {
			return nil
		}
		if quote == '\'' && r == '\n' {
			return errorAt(line, column, "unterminated character literal")
		}
	}
}

// rawAhead reports whether a raw string opens at offset: zero or more '#'
// followed by '"'.
func (l *lexer) rawAhead(offset int) bool {
	for l.peek(offset) == '#' {
		offset++
	}
	return l.peek(offset) == '"'
}

func (l *lexer) raw(line, column int) error {
	hashes := 0
	for l.peek(0) == '#' {
		l.advance()
		hashes++
	}
	l.advance()
	for {
		if l.done() {
			return errorAt(line, column, "unterminated raw string")
		}
		if l.advance() != '"' {
			continue
		}
		closed := true
		for i := range hashes {
			if l.peek(i) != '#' {
				closed = false
				break
			}
		}
		if closed {
			for range hashes {
				l.advance()
			}
			return nil
		}
	}
}

// word lexes identifiers, raw identifiers and prefixed literals
// (b'x', b"..", br"..", r"..", c"..", cr"..").
func (l *lexer) word() ([]Tree, error) {
	line, column := l.line, l.column
	start := l.pos
	r, next := l.peek(0), l.peek(1)

	prefix := 0
	switch {
	case r == 'r' && l.rawAhead(1):
		prefix = 1
	case (r == 'b' || r == 'c') && next == 'r' && l.rawAhead(2):
		prefix = 2
	}
	if prefix > 0 {
		for range prefix {
			l.advance()
		}
		if err := l.raw(line, column); err != nil {
			return nil, err
		}
		return []Tree{l.literal(start, line, column)}, nil
	}

	switch {
	case r == 'b' && (next == '\'' || next == '"'):
		l.advance()
		if err := l.quoted(next); err != nil {
			return nil, err
		}
		return []Tree{l.literal(start, line, column)}, nil
	case r == 'c' && next == '"':
		l.advance()
		if err := l.quoted('"'); err != nil {
			return nil, err
		}
		return []Tree{l.literal(start, line, column)}, nil
	case r == 'r' && next == '#' && isIdentStart(l.peek(2)):
		l.advance()
		l.advance()
	}
	l.identTail()
	return []Tree{{Kind: KindIdent, Text: string(l.src[start:l.pos]), Line: line, Column: column}}, nil
}

func (l *lexer) identTail() {
	for isIdentContinue(l.peek(0)) {
		l.advance()
	}
}

func (l *lexer) suffix() {
	if isIdentStart(l.peek(0)) {
		l.identTail()
	}
}

func (l *lexer) number() {
	if l.peek(0) == '0' && (l.peek(1) == 'x' || l.peek(1) == 'o' || l.peek(1) == 'b') {
		l.advance()
		l.advance()
		for isHexDigit(l.peek(0)) || l.peek(0) == '_' {
			l.advance()
		}
		return
	}

	l.digits()
	if l.peek(0) == '.' && l.peek(1) != '.' && !isIdentStart(l.peek(1)) {
		l.advance()
		l.digits()
	}
	if e := l.peek(0); e == 'e' || e == 'E' {
		sign := l.peek(1) == '+' || l.peek(1) == '-'
		if isDigit(l.peek(1)) || (sign && isDigit(l.peek(2))) {
			l.advance()
			if sign {
				l.advance()
			}
			l.digits()
		}
	}
}

func (l *lexer) digits() {
	for isDigit(l.peek(0)) || l.peek(0) == '_' {
		l.advance()
	}
}

func (l *lexer) punct() []Tree {
	width := 1
	for _, op := range operators {
		if l.lookingAt(op) {
			width = len(op)
			break
		}
	}
	out := make([]Tree, 0, width)
	for i := range width {
		line, column := l.line, l.column
		spacing := Joint
		if i == width-1 {
			spacing = Alone
		}
		out = append(out, Tree{Kind: KindPunct, Char: l.advance(), Spacing: spacing, Line: line, Column: column})
	}
	return out
}

func (l *lexer) lookingAt(op string) bool {
	for i := 0; i < len(op); i++ {
		if l.peek(i) != rune(op[i]) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}
