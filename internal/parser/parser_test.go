package parser

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/sqj/internal/errors"
	"github.com/mcncl/sqj/internal/formatter"
	"github.com/mcncl/sqj/internal/lexer"
	"github.com/mcncl/sqj/internal/models"
)

func parse(t *testing.T, input string, opts ...Option) (models.Node, error) {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	require.NoError(t, err)
	return Parse(tokens, opts...)
}

func TestParse_SimpleObject(t *testing.T) {
	root, err := parse(t, `{"foo": 1, "bar": 3.14, "baz": true, "foobar": false, "foobaz": "hello, world"}`)
	require.NoError(t, err)

	obj, ok := root.(*models.Object)
	require.True(t, ok, "root is %T", root)
	require.Len(t, obj.Members, 5)

	names := make([]string, len(obj.Members))
	for i, m := range obj.Members {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"foo", "bar", "baz", "foobar", "foobaz"}, names)

	assert.Equal(t, models.Number(1), obj.Members[0].Value)
	assert.Equal(t, models.Number(3.14), obj.Members[1].Value)
	assert.Equal(t, models.True{}, obj.Members[2].Value)
	assert.Equal(t, models.False{}, obj.Members[3].Value)
	assert.Equal(t, models.String("hello, world"), obj.Members[4].Value)
}

func TestParse_SimpleArray(t *testing.T) {
	root, err := parse(t, `[1, "test", true, null, 3.14]`)
	require.NoError(t, err)

	expected := &models.Array{Values: []models.Node{
		models.Number(1),
		models.String("test"),
		models.True{},
		models.Null{},
		models.Number(3.14),
	}}
	assert.True(t, models.Equal(expected, root), "got %s", formatter.Compact(root))
}

func TestParse_NestedObject(t *testing.T) {
	root, err := parse(t, `{"user": {"name": "Jane Doe", "id": 123}, "active": true, "tags": ["go", "json"], "empty": {}, "none": []}`)
	require.NoError(t, err)

	expected := &models.Object{Members: []models.Member{
		{Name: "user", Value: &models.Object{Members: []models.Member{
			{Name: "name", Value: models.String("Jane Doe")},
			{Name: "id", Value: models.Number(123)},
		}}},
		{Name: "active", Value: models.True{}},
		{Name: "tags", Value: &models.Array{Values: []models.Node{models.String("go"), models.String("json")}}},
		{Name: "empty", Value: &models.Object{}},
		{Name: "none", Value: &models.Array{}},
	}}
	assert.True(t, models.Equal(expected, root), "got %s", formatter.Compact(root))
}

func TestParse_RootScalars(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Node
	}{
		{`42`, models.Number(42)},
		{`"hello"`, models.String("hello")},
		{`true`, models.True{}},
		{`false`, models.False{}},
		{`null`, models.Null{}},
		{`[]`, &models.Array{}},
		{`{}`, &models.Object{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root, err := parse(t, tt.input)
			require.NoError(t, err)
			assert.True(t, models.Equal(tt.expected, root))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason error
		kind   lexer.TokenKind
	}{
		{"trailing comma in array", `[1,2,]`, ErrUnexpectedToken, lexer.RightBracket},
		{"trailing comma in object", `{"a": 1,}`, ErrExpectedKey, lexer.RightBrace},
		{"unbalanced object", `{"a": 1`, ErrUnexpectedEnd, 0},
		{"unbalanced array", `[[1, 2]`, ErrUnexpectedEnd, 0},
		{"missing value", `{"a": }`, ErrUnexpectedToken, lexer.RightBrace},
		{"missing colon", `{"a" 1}`, ErrExpectedColon, lexer.NumberToken},
		{"number key", `{1: 2}`, ErrExpectedKey, lexer.NumberToken},
		{"missing comma", `[1 2]`, ErrUnexpectedToken, lexer.NumberToken},
		{"wrong closer", `[1}`, ErrUnexpectedToken, lexer.RightBrace},
		{"leading comma", `[,1]`, ErrUnexpectedToken, lexer.Comma},
		{"stray colon", `:`, ErrUnexpectedToken, lexer.Colon},
		{"two roots", `{} []`, ErrTrailingTokens, lexer.LeftBracket},
		{"no tokens", ``, ErrUnexpectedEnd, 0},
		{"key without colon at end", `{"a"`, ErrUnexpectedEnd, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.input)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.reason), "got %v", err)

			var perr *Error
			require.ErrorAs(t, err, &perr)
			if tt.reason != ErrUnexpectedEnd {
				assert.Equal(t, tt.kind, perr.Token.Kind)
			}
		})
	}
}

func TestParse_MaxDepth(t *testing.T) {
	input := strings.Repeat("[", 5) + strings.Repeat("]", 5)

	_, err := parse(t, input, WithMaxDepth(5))
	require.NoError(t, err)

	_, err = parse(t, input, WithMaxDepth(4))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrMaxDepth))
}

func TestParse_DeepNestingWithoutLimit(t *testing.T) {
	const depth = 100000
	input := strings.Repeat(`{"a":`, depth) + "1" + strings.Repeat("}", depth)

	root, err := parse(t, input)
	require.NoError(t, err)

	n := root
	for i := 0; i < depth; i++ {
		obj, ok := n.(*models.Object)
		require.True(t, ok)
		n = obj.Members[0].Value
	}
	assert.Equal(t, models.Number(1), n)
}

func TestParse_DuplicateKeys(t *testing.T) {
	input := `{"a": 1, "b": {"a": 2}, "a": 3}`

	root, err := parse(t, input)
	require.NoError(t, err)
	assert.Equal(t, 3, models.Len(root))

	_, err = parse(t, input, WithStrictKeys(true))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrDuplicateKey))

	// Equal keys in different objects are fine.
	_, err = parse(t, `{"a": {"a": {"a": 1}}}`, WithStrictKeys(true))
	require.NoError(t, err)
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"foo": 1, "bar": 3.14, "baz": true, "foobar": false, "foobaz": "hello, world"}`,
		`[{"empty": []}, {"nested": {"deep": [1, [2, [3]]]}}, null]`,
		`{"escapes": "quote \" backslash \\ tab \t newline \n", "unicode": "é世"}`,
		`[0.1, 1e-7, 1e21, -0, 123456789012345680000, 5e-324, 1.7976931348623157e308]`,
		`"just a string"`,
	}

	f := formatter.NewFormatter()
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := parse(t, input)
			require.NoError(t, err)

			for _, compact := range []bool{true, false} {
				second, err := parse(t, f.Format(first, compact))
				require.NoError(t, err)
				assert.True(t, models.Equal(first, second), "compact=%v: %s", compact, f.Format(second, true))
			}
		})
	}
}

func TestParseString_Errors(t *testing.T) {
	_, err := ParseString("   \n ")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))
	assert.False(t, stderrors.Is(err, errors.ErrInvalidJSON))

	_, err = ParseString(`{"a": @}`)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &errors.AppError{Type: errors.ErrorTypeParsing}))
	assert.True(t, stderrors.Is(err, lexer.ErrUnexpectedCharacter))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidJSON))
	var lerr *lexer.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 7, lerr.Column)
	assert.Equal(t, `JSON parsing error: unexpected character at line 1, column 7: '@'`, errors.UserFriendlyError(err))

	_, err = ParseString("{\n  \"a\": 1,\n}")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrExpectedKey))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidJSON))
	assert.Equal(t, `JSON parsing error: expected string key at line 3, column 1: got '}'`, errors.UserFriendlyError(err))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user": {"name": "Alice", "id": 42}}`), 0644))
	root, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, models.Len(root))

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.True(t, stderrors.Is(err, errors.ErrFileNotFound))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = ParseFile(empty)
	assert.True(t, stderrors.Is(err, errors.ErrFileEmpty))

	_, err = ParseFile(" ")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidFilePath))
}

func TestParseReader(t *testing.T) {
	root, err := ParseReader(strings.NewReader(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Equal(t, 3, models.Len(root))
}

func BenchmarkParseString(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 1000; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"id": 12345, "name": "benchmark record", "active": true, "score": 98.6, "tags": ["a", "b"], "about": {"city": "Anytown", "zip": "12345"}}`)
	}
	sb.WriteString("]")
	input := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseString(input); err != nil {
			b.Fatal(err)
		}
	}
}
