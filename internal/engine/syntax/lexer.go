package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"

	cerrors "nilscript/internal/core/errors"
)

// Lexer produces tokens on demand. The parser pulls one token at a time so
// regex and template scanning can depend on parser context.
type Lexer struct {
	src   string
	lines *LineIndex
	pos   int
	prev  Token
}

type lexerState struct {
	pos  int
	prev Token
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: src, lines: NewLineIndex(src), prev: Token{Kind: EOF}}
}

func (l *Lexer) save() lexerState {
	return lexerState{pos: l.pos, prev: l.prev}
}

func (l *Lexer) restore(s lexerState) {
	l.pos, l.prev = s.pos, s.prev
}

func (l *Lexer) Lines() *LineIndex {
	return l.lines
}

func (l *Lexer) errorf(offset int, format string, args ...interface{}) error {
	line, col := l.lines.Position(offset)
	return cerrors.NewParseIssue(line, col, format, args...)
}

// Next scans the next token.
func (l *Lexer) Next() (Token, error) {
	newline, err := l.skipTrivia()
	if err != nil {
		return Token{}, err
	}
	tok, err := l.scan()
	if err != nil {
		return Token{}, err
	}
	tok.NewlineBefore = newline
	l.prev = tok
	return tok, nil
}

// ContinueTemplate rescans from just after the '}' at offset that closes a
// template substitution.
func (l *Lexer) ContinueTemplate(offset int) (Token, error) {
	l.pos = offset + 1
	tok, err := l.scanTemplate(offset, false)
	if err != nil {
		return Token{}, err
	}
	l.prev = tok
	return tok, nil
}

func (l *Lexer) skipTrivia() (bool, error) {
	newline := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			newline = true
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.peekByte(1) == '*':
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return false, l.errorf(l.pos, "unterminated comment")
			}
			if strings.Contains(l.src[l.pos:l.pos+2+end], "\n") {
				newline = true
			}
			l.pos += end + 4
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r == '\u2028' || r == '\u2029' {
				newline = true
			} else if !unicode.IsSpace(r) && r != '\ufeff' {
				return newline, nil
			}
			l.pos += size
		default:
			return newline, nil
		}
	}
	return newline, nil
}

func (l *Lexer) peekByte(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *Lexer) scan() (Token, error) {
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Start: start, End: start}, nil
	}
	c := l.src[l.pos]
	switch {
	case isIdentStart(c) || c >= utf8.RuneSelf:
		return l.scanIdent()
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.scanNumber()
	case c == '"' || c == '\'':
		return l.scanString(c)
	case c == '`':
		l.pos++
		return l.scanTemplate(start, true)
	case c == '/' && l.regexAllowed():
		return l.scanRegex()
	}
	for _, p := range punctuators {
		if strings.HasPrefix(l.src[l.pos:], p) {
			if p == "?." && isDigit(l.peekByte(2)) {
				continue
			}
			l.pos += len(p)
			return Token{Kind: Punct, Text: p, Start: start, End: l.pos}, nil
		}
	}
	return Token{}, l.errorf(start, "unexpected character %q", c)
}

func (l *Lexer) regexAllowed() bool {
	switch l.prev.Kind {
	case EOF:
		return true
	case IdentToken:
		return operatorWords[l.prev.Text]
	case Punct:
		switch l.prev.Text {
		case ")", "]", "}":
			return false
		}
		return true
	case TemplateHead, TemplateMiddle:
		return true
	}
	return false
}

func (l *Lexer) scanIdent() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c < utf8.RuneSelf {
			if !isIdentPart(c) {
				break
			}
			l.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			break
		}
		l.pos += size
	}
	if l.pos == start {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return Token{}, l.errorf(start, "unexpected character %q", r)
	}
	return Token{Kind: IdentToken, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	if l.src[l.pos] == '0' && l.pos+1 < len(l.src) {
		switch l.src[l.pos+1] | 0x20 {
		case 'x', 'o', 'b':
			l.pos += 2
			for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
				l.pos++
			}
			if l.pos < len(l.src) && l.src[l.pos] == 'n' {
				l.pos++
			}
			return Token{Kind: Number, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
		}
	}
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos]|0x20) == 'e' {
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos >= len(l.src) || !isDigit(l.src[l.pos]) {
			return Token{}, l.errorf(start, "malformed number")
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && l.src[l.pos] == 'n' {
		l.pos++
	}
	if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) {
		return Token{}, l.errorf(l.pos, "identifier directly after number")
	}
	return Token{Kind: Number, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
}

func (l *Lexer) scanString(quote byte) (Token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '\\':
			l.pos += 2
			continue
		case '\n':
			return Token{}, l.errorf(start, "unterminated string")
		case quote:
			l.pos++
			return Token{Kind: String, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
		}
		l.pos++
	}
	return Token{}, l.errorf(start, "unterminated string")
}

// scanTemplate scans template characters up to a closing backtick or a
// substitution start. l.pos is just past the opening delimiter.
func (l *Lexer) scanTemplate(start int, head bool) (Token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\':
			l.pos += 2
			continue
		case c == '`':
			l.pos++
			kind := TemplateTail
			if head {
				kind = Template
			}
			return Token{Kind: kind, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
		case c == '$' && l.peekByte(1) == '{':
			l.pos += 2
			kind := TemplateMiddle
			if head {
				kind = TemplateHead
			}
			return Token{Kind: kind, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
		}
		l.pos++
	}
	return Token{}, l.errorf(start, "unterminated template literal")
}

func (l *Lexer) scanRegex() (Token, error) {
	start := l.pos
	l.pos++
	inClass := false
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return Token{}, l.errorf(start, "unterminated regular expression")
		}
		c := l.src[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}
		l.pos++
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			break
		}
	}
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return Token{Kind: Regex, Text: l.src[start:l.pos], Start: start, End: l.pos}, nil
}

func isIdentStart(c byte) bool {
	return c == '$' || c == '_' || (c|0x20) >= 'a' && (c|0x20) <= 'z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c|0x20) >= 'a' && (c|0x20) <= 'f'
}

// LineIndex maps byte offsets to 1-based line and column numbers.
type LineIndex struct {
	starts []int
}

func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Position returns the 1-based line and column of offset.
func (li *LineIndex) Position(offset int) (int, int) {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - li.starts[lo] + 1
}

// Line returns the 1-based line of offset.
func (li *LineIndex) Line(offset int) int {
	line, _ := li.Position(offset)
	return line
}

func (li *LineIndex) LineCount() int {
	return len(li.starts)
}
