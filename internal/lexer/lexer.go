// Package lexer converts raw JSON text into a sequence of typed tokens.
package lexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// TokenKind identifies a lexical unit.
type TokenKind int

const (
	LeftBracket  TokenKind = iota // [
	LeftBrace                     // {
	RightBracket                  // ]
	RightBrace                    // }
	Colon                         // :
	Comma                         // ,
	StringToken
	NumberToken
	TrueToken
	FalseToken
	NullToken
)

var tokenNames = [...]string{
	LeftBracket:  "'['",
	LeftBrace:    "'{'",
	RightBracket: "']'",
	RightBrace:   "'}'",
	Colon:        "':'",
	Comma:        "','",
	StringToken:  "string",
	NumberToken:  "number",
	TrueToken:    "true",
	FalseToken:   "false",
	NullToken:    "null",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(tokenNames) {
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
	return tokenNames[k]
}

// Token is one lexical unit. Str holds the decoded content of string tokens and
// Num the value of number tokens. Offset is the byte offset of the first
// character of the token in the input.
type Token struct {
	Kind   TokenKind
	Str    string
	Num    float64
	Offset int
}

// Reasons reported by Error.
var (
	ErrUnterminatedString  = errors.New("unterminated string")
	ErrInvalidEscape       = errors.New("invalid escape sequence")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrUnexpectedCharacter = errors.New("unexpected character")
)

// Error describes malformed input. It unwraps to one of the reasons above.
type Error struct {
	Reason error
	Offset int
	Line   int
	Column int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d:%d: %v: %s", e.Line, e.Column, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%d:%d: %v", e.Line, e.Column, e.Reason)
}

func (e *Error) Unwrap() error { return e.Reason }

// Position converts a byte offset into a 1-based line and column.
func Position(text string, offset int) (line, column int) {
	if offset > len(text) {
		offset = len(text)
	}
	line = 1 + strings.Count(text[:offset], "\n")
	column = offset + 1
	if i := strings.LastIndexByte(text[:offset], '\n'); i >= 0 {
		column = offset - i
	}
	return line, column
}

var keywords = [...]struct {
	literal string
	kind    TokenKind
}{
	{"true", TrueToken},
	{"false", FalseToken},
	{"null", NullToken},
}

// Tokenize consumes the whole input and returns its tokens in source order.
func Tokenize(text string) ([]Token, error) {
	t := tokenizer{text: text}
	return t.run()
}

type tokenizer struct {
	text   string
	pos    int
	tokens []Token
}

func (t *tokenizer) fail(reason error, offset int, detail string) error {
	line, col := Position(t.text, offset)
	return &Error{Reason: reason, Offset: offset, Line: line, Column: col, Detail: detail}
}

func (t *tokenizer) emit(tok Token) {
	t.tokens = append(t.tokens, tok)
}

func (t *tokenizer) run() ([]Token, error) {
	for t.pos < len(t.text) {
		c := t.text[t.pos]
		switch c {
		case ' ', '\t', '\n', '\r':
			t.pos++
			continue
		case '[':
			t.emit(Token{Kind: LeftBracket, Offset: t.pos})
			t.pos++
			continue
		case '{':
			t.emit(Token{Kind: LeftBrace, Offset: t.pos})
			t.pos++
			continue
		case ']':
			t.emit(Token{Kind: RightBracket, Offset: t.pos})
			t.pos++
			continue
		case '}':
			t.emit(Token{Kind: RightBrace, Offset: t.pos})
			t.pos++
			continue
		case ':':
			t.emit(Token{Kind: Colon, Offset: t.pos})
			t.pos++
			continue
		case ',':
			t.emit(Token{Kind: Comma, Offset: t.pos})
			t.pos++
			continue
		case '"':
			if err := t.lexString(); err != nil {
				return nil, err
			}
			continue
		}

		if c == '-' || isDigit(c) {
			if err := t.lexNumber(); err != nil {
				return nil, err
			}
			continue
		}

		if t.lexKeyword() {
			continue
		}

		r, _ := utf8.DecodeRuneInString(t.text[t.pos:])
		return nil, t.fail(ErrUnexpectedCharacter, t.pos, strconv.QuoteRune(r))
	}
	return t.tokens, nil
}

func (t *tokenizer) lexKeyword() bool {
	rest := t.text[t.pos:]
	for _, kw := range keywords {
		if strings.HasPrefix(rest, kw.literal) {
			t.emit(Token{Kind: kw.kind, Offset: t.pos})
			t.pos += len(kw.literal)
			return true
		}
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexNumber accepts -?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)? and stops at the
// first character that cannot continue it.
func (t *tokenizer) lexNumber() error {
	start := t.pos
	i := t.pos
	if t.text[i] == '-' {
		i++
	}

	digits := func() int {
		n := 0
		for i < len(t.text) && isDigit(t.text[i]) {
			i++
			n++
		}
		return n
	}

	if digits() == 0 {
		return t.fail(ErrInvalidNumber, start, strconv.Quote(t.text[start:i]))
	}
	if i < len(t.text) && t.text[i] == '.' {
		i++
		if digits() == 0 {
			return t.fail(ErrInvalidNumber, start, strconv.Quote(t.text[start:i]))
		}
	}
	if i < len(t.text) && (t.text[i] == 'e' || t.text[i] == 'E') {
		i++
		if i < len(t.text) && (t.text[i] == '+' || t.text[i] == '-') {
			i++
		}
		if digits() == 0 {
			return t.fail(ErrInvalidNumber, start, strconv.Quote(t.text[start:i]))
		}
	}

	literal := t.text[start:i]
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		// ParseFloat only fails here on overflow.
		return t.fail(ErrInvalidNumber, start, strconv.Quote(literal))
	}
	t.emit(Token{Kind: NumberToken, Num: value, Offset: start})
	t.pos = i
	return nil
}

func (t *tokenizer) lexString() error {
	start := t.pos
	i := t.pos + 1

	// Fast path: no escapes.
	for i < len(t.text) {
		c := t.text[i]
		if c == '"' {
			t.emit(Token{Kind: StringToken, Str: t.text[start+1 : i], Offset: start})
			t.pos = i + 1
			return nil
		}
		if c == '\\' {
			break
		}
		i++
	}

	var b strings.Builder
	b.WriteString(t.text[start+1 : i])
	for i < len(t.text) {
		c := t.text[i]
		switch c {
		case '"':
			t.emit(Token{Kind: StringToken, Str: b.String(), Offset: start})
			t.pos = i + 1
			return nil
		case '\\':
			n, err := t.unescape(&b, i)
			if err != nil {
				return err
			}
			i += n
		default:
			b.WriteByte(c)
			i++
		}
	}
	return t.fail(ErrUnterminatedString, start, "")
}

// unescape decodes the escape sequence starting at the backslash at i and
// returns the number of bytes consumed.
func (t *tokenizer) unescape(b *strings.Builder, i int) (int, error) {
	if i+1 >= len(t.text) {
		return 0, t.fail(ErrUnterminatedString, i, "")
	}
	switch t.text[i+1] {
	case '"':
		b.WriteByte('"')
	case '\\':
		b.WriteByte('\\')
	case '/':
		b.WriteByte('/')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'u':
		r, ok := t.hex4(i + 2)
		if !ok {
			return 0, t.fail(ErrInvalidEscape, i, strconv.Quote(t.snippet(i, 6)))
		}
		if utf16.IsSurrogate(r) {
			if lo, ok := t.lowSurrogate(i + 6); ok {
				if dec := utf16.DecodeRune(r, lo); dec != utf8.RuneError {
					b.WriteRune(dec)
					return 12, nil
				}
			}
			b.WriteRune(utf8.RuneError)
			return 6, nil
		}
		b.WriteRune(r)
		return 6, nil
	default:
		return 0, t.fail(ErrInvalidEscape, i, strconv.Quote(t.snippet(i, 2)))
	}
	return 2, nil
}

func (t *tokenizer) lowSurrogate(i int) (rune, bool) {
	if i+1 >= len(t.text) || t.text[i] != '\\' || t.text[i+1] != 'u' {
		return 0, false
	}
	return t.hex4(i + 2)
}

func (t *tokenizer) hex4(i int) (rune, bool) {
	if i+4 > len(t.text) {
		return 0, false
	}
	v, err := strconv.ParseUint(t.text[i:i+4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

func (t *tokenizer) snippet(i, n int) string {
	if i+n > len(t.text) {
		return t.text[i:]
	}
	return t.text[i : i+n]
}
