package paper

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseAuthorList parses a serialized literal sequence of strings, as written
// by Python's repr or by a JSON encoder:
//
//	['Alice', "O'Brien, B."]
//	["Alice", "Bob"]
//	('Alice',)
//
// None elements are skipped. An empty or blank input yields an empty list.
// Any other element type or a syntax error is reported as an error.
func ParseAuthorList(s string) ([]string, error) {
	p := &literalParser{src: strings.TrimSpace(s)}
	if p.src == "" {
		return []string{}, nil
	}
	return p.parseSequence()
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("author list: offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *literalParser) next() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	return r
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *literalParser) parseSequence() ([]string, error) {
	var closing rune
	switch p.next() {
	case '[':
		closing = ']'
	case '(':
		closing = ')'
	default:
		return nil, p.errorf("expected '[' or '('")
	}

	out := []string{}
	for {
		p.skipSpace()
		if p.peek() == closing {
			p.next()
			break
		}

		switch r := p.peek(); {
		case r == '\'' || r == '"':
			s, err := p.parseString()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		case strings.HasPrefix(p.src[p.pos:], "None"):
			p.pos += len("None")
		case strings.HasPrefix(p.src[p.pos:], "null"):
			p.pos += len("null")
		case r == 0:
			return nil, p.errorf("unterminated sequence")
		default:
			return nil, p.errorf("unexpected %q", r)
		}

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.next()
		case closing:
		default:
			return nil, p.errorf("expected ',' or %q", closing)
		}
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing characters")
	}
	return out, nil
}

func (p *literalParser) parseString() (string, error) {
	quote := p.next()
	var sb strings.Builder
	for {
		r := p.next()
		switch r {
		case 0:
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated string")
			}
			sb.WriteRune(r)
		case quote:
			return sb.String(), nil
		case '\\':
			if err := p.parseEscape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (p *literalParser) parseEscape(sb *strings.Builder) error {
	r := p.next()
	switch r {
	case '\\', '\'', '"', '/':
		sb.WriteRune(r)
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'x':
		return p.parseHex(sb, 2)
	case 'u':
		return p.parseHex(sb, 4)
	case 'U':
		return p.parseHex(sb, 8)
	case 0:
		return p.errorf("unterminated escape")
	default:
		sb.WriteByte('\\')
		sb.WriteRune(r)
	}
	return nil
}

func (p *literalParser) parseHex(sb *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("short hex escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits
	sb.WriteRune(rune(v))
	return nil
}

//Personal.AI order the ending
