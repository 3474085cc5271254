package parser

import (
	stderrors "errors" // Standard errors package
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcncl/sqj/internal/errors" // Custom errors package
	"github.com/mcncl/sqj/internal/lexer"
	"github.com/mcncl/sqj/internal/models"
)

// Reasons reported by Error.
var (
	ErrUnexpectedToken = stderrors.New("unexpected token")
	ErrExpectedKey     = stderrors.New("expected string key")
	ErrExpectedColon   = stderrors.New("expected ':'")
	ErrUnexpectedEnd   = stderrors.New("unexpected end of input")
	ErrTrailingTokens  = stderrors.New("unexpected data after the root value")
	ErrMaxDepth        = stderrors.New("maximum nesting depth exceeded")
	ErrDuplicateKey    = stderrors.New("duplicate object key")
)

// Error describes the first grammar violation found in a token sequence.
type Error struct {
	Reason error
	// Token is the offending token. It is the zero Token when Reason is
	// ErrUnexpectedEnd.
	Token  lexer.Token
	Offset int
	Detail string
}

func (e *Error) Error() string {
	if e.Reason == ErrUnexpectedEnd {
		return fmt.Sprintf("offset %d: %v", e.Offset, e.Reason)
	}
	msg := fmt.Sprintf("offset %d: %v: got %v", e.Offset, e.Reason, e.Token.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Reason }

// Option configures a parse.
type Option func(*options)

type options struct {
	maxDepth   int
	strictKeys bool
}

// WithMaxDepth fails the parse when containers nest deeper than n. Zero
// disables the check.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithStrictKeys rejects objects that repeat a key.
func WithStrictKeys(strict bool) Option {
	return func(o *options) { o.strictKeys = strict }
}

// frame is a container under construction. key is the member name waiting for
// its value when the container is an object.
type frame struct {
	obj  *models.Object
	arr  *models.Array
	key  string
	seen map[string]struct{}
}

func (f *frame) node() models.Node {
	if f.obj != nil {
		return f.obj
	}
	return f.arr
}

type parser struct {
	tokens []lexer.Token
	pos    int
	end    int
	opts   options
	stack  []*frame
}

// Parse builds a tree from a complete token sequence. Containers are built on
// an explicit stack, so nesting is bounded by WithMaxDepth rather than by the
// goroutine stack.
func Parse(tokens []lexer.Token, opts ...Option) (models.Node, error) {
	p := &parser{tokens: tokens}
	for _, opt := range opts {
		opt(&p.opts)
	}
	if n := len(tokens); n > 0 {
		p.end = tokens[n-1].Offset + 1
	}

	root, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, p.fail(ErrTrailingTokens, p.tokens[p.pos], "")
	}
	return root, nil
}

func (p *parser) fail(reason error, tok lexer.Token, detail string) error {
	return &Error{Reason: reason, Token: tok, Offset: tok.Offset, Detail: detail}
}

func (p *parser) failEnd() error {
	return &Error{Reason: ErrUnexpectedEnd, Offset: p.end}
}

func (p *parser) next() (lexer.Token, bool) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

func (p *parser) push(f *frame) error {
	if p.opts.maxDepth > 0 && len(p.stack) >= p.opts.maxDepth {
		return p.fail(ErrMaxDepth, p.tokens[p.pos-1], fmt.Sprintf("limit %d", p.opts.maxDepth))
	}
	p.stack = append(p.stack, f)
	return nil
}

// parseValue parses one complete value starting at the current token.
func (p *parser) parseValue() (models.Node, error) {
	value, err := p.beginValue()
	if err != nil {
		return nil, err
	}

	for {
		if value != nil {
			// A finished value belongs to the innermost open container, or is
			// the result when no container is open.
			if len(p.stack) == 0 {
				return value, nil
			}
			top := p.stack[len(p.stack)-1]
			if top.obj != nil {
				top.obj.Members = append(top.obj.Members, models.Member{Name: top.key, Value: value})
			} else {
				top.arr.Values = append(top.arr.Values, value)
			}
			if value, err = p.afterElement(top); err != nil {
				return nil, err
			}
			continue
		}

		// A container was just opened: read its first element or its close.
		top := p.stack[len(p.stack)-1]
		if value, err = p.firstElement(top); err != nil {
			return nil, err
		}
	}
}

// beginValue consumes the first token of a value. Scalars are returned
// directly; containers are pushed and nil is returned.
func (p *parser) beginValue() (models.Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.failEnd()
	}

	switch tok.Kind {
	case lexer.LeftBrace:
		f := &frame{obj: &models.Object{}}
		if p.opts.strictKeys {
			f.seen = make(map[string]struct{})
		}
		return nil, p.push(f)
	case lexer.LeftBracket:
		return nil, p.push(&frame{arr: &models.Array{}})
	case lexer.NumberToken:
		return models.Number(tok.Num), nil
	case lexer.StringToken:
		return models.String(tok.Str), nil
	case lexer.TrueToken:
		return models.True{}, nil
	case lexer.FalseToken:
		return models.False{}, nil
	case lexer.NullToken:
		return models.Null{}, nil
	default:
		return nil, p.fail(ErrUnexpectedToken, tok, "expected a value")
	}
}

// firstElement handles the state right after '[' or '{'.
func (p *parser) firstElement(top *frame) (models.Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.failEnd()
	}

	if top.arr != nil {
		if tok.Kind == lexer.RightBracket {
			return p.pop(), nil
		}
		p.pos--
		return p.beginValue()
	}

	if tok.Kind == lexer.RightBrace {
		return p.pop(), nil
	}
	p.pos--
	return p.beginMember(top)
}

// afterElement handles the state after a complete element: ',' or the close.
// A comma must be followed by another element.
func (p *parser) afterElement(top *frame) (models.Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.failEnd()
	}

	closer := lexer.RightBracket
	if top.obj != nil {
		closer = lexer.RightBrace
	}

	switch tok.Kind {
	case lexer.Comma:
		if top.obj != nil {
			return p.beginMember(top)
		}
		return p.beginValue()
	case closer:
		return p.pop(), nil
	default:
		return nil, p.fail(ErrUnexpectedToken, tok, fmt.Sprintf("expected ',' or %v", closer))
	}
}

// beginMember reads `"key" :` and the first token of the member value.
func (p *parser) beginMember(top *frame) (models.Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.failEnd()
	}
	if tok.Kind != lexer.StringToken {
		return nil, p.fail(ErrExpectedKey, tok, "")
	}
	if top.seen != nil {
		if _, dup := top.seen[tok.Str]; dup {
			return nil, p.fail(ErrDuplicateKey, tok, fmt.Sprintf("%q", tok.Str))
		}
		top.seen[tok.Str] = struct{}{}
	}
	top.key = tok.Str

	colon, ok := p.next()
	if !ok {
		return nil, p.failEnd()
	}
	if colon.Kind != lexer.Colon {
		return nil, p.fail(ErrExpectedColon, colon, "")
	}
	return p.beginValue()
}

func (p *parser) pop() models.Node {
	top := p.stack[len(p.stack)-1]
	p.stack[len(p.stack)-1] = nil
	p.stack = p.stack[:len(p.stack)-1]
	return top.node()
}

// ParseString tokenizes and parses JSON text. Lexer and grammar failures are
// returned as parsing errors wrapping errors.ErrInvalidJSON and *lexer.Error
// or *Error.
func ParseString(jsonString string, opts ...Option) (models.Node, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}

	tokens, err := lexer.Tokenize(jsonString)
	if err != nil {
		var lerr *lexer.Error
		if stderrors.As(err, &lerr) {
			msg := fmt.Sprintf("%v at line %d, column %d", lerr.Reason, lerr.Line, lerr.Column)
			if lerr.Detail != "" {
				msg += ": " + lerr.Detail
			}
			return nil, errors.NewParsingError(msg, invalid(err))
		}
		return nil, errors.NewParsingError("failed to tokenize JSON", invalid(err))
	}

	root, err := Parse(tokens, opts...)
	if err != nil {
		var perr *Error
		if stderrors.As(err, &perr) {
			return nil, errors.NewParsingError(describe(jsonString, perr), invalid(err))
		}
		return nil, errors.NewParsingError("failed to parse JSON", invalid(err))
	}
	return root, nil
}

// invalid tags a lexer or grammar failure with errors.ErrInvalidJSON, keeping
// err reachable through errors.Is and errors.As.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrInvalidJSON, err)
}

// describe renders a grammar failure with a line and column.
func describe(text string, e *Error) string {
	line, col := lexer.Position(text, e.Offset)
	if e.Reason == ErrUnexpectedEnd {
		return fmt.Sprintf("%v at line %d, column %d", e.Reason, line, col)
	}
	return fmt.Sprintf("%v at line %d, column %d: got %v", e.Reason, line, col, e.Token.Kind)
}

// ParseReader reads all of r and parses it.
func ParseReader(reader io.Reader, opts ...Option) (models.Node, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewInputError("failed to read input", err)
	}
	return ParseString(string(data), opts...)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string, opts ...Option) (models.Node, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	return ParseString(string(data), opts...)
}
