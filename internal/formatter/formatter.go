package formatter

import (
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mcncl/sqj/internal/models"
)

// DefaultIndent is the per-level indent of non-compact output.
const DefaultIndent = "  "

// Formatter renders JSON trees as text
type Formatter struct {
	Indent string
}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{Indent: DefaultIndent}
}

// Format renders a tree. Compact output has no insignificant whitespace and
// no trailing newline; indented output puts every element on its own line
// and ends with a newline.
func (f *Formatter) Format(n models.Node, compact bool) string {
	var b strings.Builder
	p := printer{b: &b, compact: compact, indent: f.Indent}
	p.value(n, 0)
	if !compact {
		b.WriteByte('\n')
	}
	return b.String()
}

// Write renders a tree to w.
func (f *Formatter) Write(w io.Writer, n models.Node, compact bool) error {
	_, err := io.WriteString(w, f.Format(n, compact))
	return err
}

// Compact renders a tree without whitespace.
func Compact(n models.Node) string {
	return NewFormatter().Format(n, true)
}

type printer struct {
	b       *strings.Builder
	compact bool
	indent  string
}

func (p *printer) newline(depth int) {
	if p.compact {
		return
	}
	p.b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		p.b.WriteString(p.indent)
	}
}

func (p *printer) value(n models.Node, depth int) {
	switch v := n.(type) {
	case *models.Object:
		if len(v.Members) == 0 {
			p.b.WriteString("{}")
			return
		}
		p.b.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				p.b.WriteByte(',')
			}
			p.newline(depth + 1)
			writeString(p.b, m.Name)
			p.b.WriteByte(':')
			if !p.compact {
				p.b.WriteByte(' ')
			}
			p.value(m.Value, depth+1)
		}
		p.newline(depth)
		p.b.WriteByte('}')
	case *models.Array:
		if len(v.Values) == 0 {
			p.b.WriteString("[]")
			return
		}
		p.b.WriteByte('[')
		for i, e := range v.Values {
			if i > 0 {
				p.b.WriteByte(',')
			}
			p.newline(depth + 1)
			p.value(e, depth+1)
		}
		p.newline(depth)
		p.b.WriteByte(']')
	case models.Number:
		p.b.WriteString(FormatNumber(float64(v)))
	case models.String:
		writeString(p.b, string(v))
	case models.True:
		p.b.WriteString("true")
	case models.False:
		p.b.WriteString("false")
	default:
		p.b.WriteString("null")
	}
}

// FormatNumber returns the shortest literal that parses back to f. Fixed
// notation is used between 1e-6 and 1e21.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// e-07 -> e-7
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}

const hex = "0123456789abcdef"

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			b.WriteString(s[start:i])
			switch c {
			case '"', '\\':
				b.WriteByte('\\')
				b.WriteByte(c)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteString(`\u00`)
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(s[start:i])
			b.WriteString(`\ufffd`)
			i++
			start = i
			continue
		}
		i += size
	}
	b.WriteString(s[start:])
	b.WriteByte('"')
}
