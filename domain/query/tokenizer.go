package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/artifexhq/artifex/pkg/apperror"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokSlash
	tokDoubleSlash
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokComma
	tokAt
	tokQuestion
	tokIdent
	tokString
	tokNumber
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of query"
	}
	return fmt.Sprintf("%q", t.text)
}

type tokenizer struct {
	src string
	pos int
}

func newTokenizer(src string) *tokenizer {
	return &tokenizer{src: src}
}

func (tz *tokenizer) errorf(pos int, format string, args ...any) error {
	return apperror.ErrQuerySyntax.WithMessagef("query syntax error at offset %d: %s", pos, fmt.Sprintf(format, args...))
}

// next returns the next token, consuming it.
func (tz *tokenizer) next() (token, error) {
	for tz.pos < len(tz.src) && unicode.IsSpace(rune(tz.src[tz.pos])) {
		tz.pos++
	}
	start := tz.pos
	if tz.pos >= len(tz.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := tz.src[tz.pos]
	switch c {
	case '/':
		tz.pos++
		if tz.pos < len(tz.src) && tz.src[tz.pos] == '/' {
			tz.pos++
			return token{kind: tokDoubleSlash, text: "//", pos: start}, nil
		}
		return token{kind: tokSlash, text: "/", pos: start}, nil
	case '[':
		tz.pos++
		return token{kind: tokLBracket, text: "[", pos: start}, nil
	case ']':
		tz.pos++
		return token{kind: tokRBracket, text: "]", pos: start}, nil
	case '(':
		tz.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		tz.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ',':
		tz.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '@':
		tz.pos++
		return token{kind: tokAt, text: "@", pos: start}, nil
	case '?':
		tz.pos++
		return token{kind: tokQuestion, text: "?", pos: start}, nil
	case '=':
		tz.pos++
		return token{kind: tokOp, text: "=", pos: start}, nil
	case '!':
		tz.pos++
		if tz.pos < len(tz.src) && tz.src[tz.pos] == '=' {
			tz.pos++
			return token{kind: tokOp, text: "!=", pos: start}, nil
		}
		return token{}, tz.errorf(start, "unexpected character %q", "!")
	case '<', '>':
		tz.pos++
		op := string(c)
		if tz.pos < len(tz.src) && tz.src[tz.pos] == '=' {
			tz.pos++
			op += "="
		}
		return token{kind: tokOp, text: op, pos: start}, nil
	case '\'', '"':
		return tz.scanString(c)
	}

	if c >= '0' && c <= '9' || c == '-' && tz.pos+1 < len(tz.src) && tz.src[tz.pos+1] >= '0' && tz.src[tz.pos+1] <= '9' {
		return tz.scanNumber()
	}
	if isIdentStart(rune(c)) {
		return tz.scanIdent()
	}
	return token{}, tz.errorf(start, "unexpected character %q", string(c))
}

// scanString reads a quoted literal. A doubled quote escapes itself.
func (tz *tokenizer) scanString(quote byte) (token, error) {
	start := tz.pos
	tz.pos++
	var sb strings.Builder
	for tz.pos < len(tz.src) {
		c := tz.src[tz.pos]
		if c == quote {
			if tz.pos+1 < len(tz.src) && tz.src[tz.pos+1] == quote {
				sb.WriteByte(quote)
				tz.pos += 2
				continue
			}
			tz.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(c)
		tz.pos++
	}
	return token{}, tz.errorf(start, "unterminated string literal")
}

func (tz *tokenizer) scanNumber() (token, error) {
	start := tz.pos
	if tz.src[tz.pos] == '-' {
		tz.pos++
	}
	for tz.pos < len(tz.src) && (tz.src[tz.pos] >= '0' && tz.src[tz.pos] <= '9' || tz.src[tz.pos] == '.') {
		tz.pos++
	}
	text := tz.src[start:tz.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, tz.errorf(start, "invalid number %q", text)
	}
	return token{kind: tokNumber, text: text, num: n, pos: start}, nil
}

func (tz *tokenizer) scanIdent() (token, error) {
	start := tz.pos
	for tz.pos < len(tz.src) && isIdentPart(rune(tz.src[tz.pos])) {
		tz.pos++
	}
	return token{kind: tokIdent, text: tz.src[start:tz.pos], pos: start}, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}
