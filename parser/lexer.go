/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rulego/rulepipe/api/types"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord          // bare identifier or keyword
	tokQuotedIdent   // `quoted identifier`
	tokString
	tokInt
	tokFloat
	tokMessage // $message
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokWord, tokQuotedIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokMessage:
		return "$message"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string // identifier name, unescaped string or operator
	ival int64
	fval float64
	pos  types.Position
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return strconv.Quote(t.text)
	case tokQuotedIdent:
		return "`" + t.text + "`"
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// Multi-character operators, longest first.
var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "(", ")", ",", ";", ":", ".", "=", "<", ">", "+", "-", "*", "/", "%", "!"}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(pos types.Position, format string, args ...interface{}) error {
	return &types.ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peekRune(ahead int) rune {
	off := lx.off
	for i := 0; i < ahead; i++ {
		if off >= len(lx.src) {
			return 0
		}
		_, w := utf8.DecodeRuneInString(lx.src[off:])
		off += w
	}
	if off >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[off:])
	return r
}

func (lx *lexer) advance() rune {
	r, w := utf8.DecodeRuneInString(lx.src[lx.off:])
	lx.off += w
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) pos() types.Position {
	return types.Position{Line: lx.line, Column: lx.col}
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.off < len(lx.src) {
		r := lx.peekRune(0)
		switch {
		case unicode.IsSpace(r):
			lx.advance()
		case r == '/' && lx.peekRune(1) == '/':
			for lx.off < len(lx.src) && lx.peekRune(0) != '\n' {
				lx.advance()
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpaceAndComments()
	pos := lx.pos()
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, pos: pos}, nil
	}
	r := lx.peekRune(0)
	switch {
	case isIdentStart(r):
		return token{kind: tokWord, text: lx.word(), pos: pos}, nil
	case r >= '0' && r <= '9':
		return lx.number(pos)
	case r == '"' || r == '\'':
		s, err := lx.quoted(pos)
		return token{kind: tokString, text: s, pos: pos}, err
	case r == '`':
		return lx.quotedIdent(pos)
	case r == '$':
		lx.advance()
		if !isIdentStart(lx.peekRune(0)) {
			return token{}, lx.errorf(pos, "expected $message")
		}
		if w := lx.word(); w != "message" {
			return token{}, lx.errorf(pos, "unknown reference $%s, expected $message", w)
		}
		return token{kind: tokMessage, text: "$message", pos: pos}, nil
	}
	rest := lx.src[lx.off:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for range op {
				lx.advance()
			}
			return token{kind: tokPunct, text: op, pos: pos}, nil
		}
	}
	return token{}, lx.errorf(pos, "unexpected character %q", r)
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (lx *lexer) word() string {
	start := lx.off
	for lx.off < len(lx.src) && isIdentPart(lx.peekRune(0)) {
		lx.advance()
	}
	return lx.src[start:lx.off]
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func (lx *lexer) digits() {
	for isDigit(lx.peekRune(0)) {
		lx.advance()
	}
}

func (lx *lexer) number(pos types.Position) (token, error) {
	start := lx.off
	float := false
	lx.digits()
	if lx.peekRune(0) == '.' && isDigit(lx.peekRune(1)) {
		float = true
		lx.advance()
		lx.digits()
	}
	if r := lx.peekRune(0); r == 'e' || r == 'E' {
		next := lx.peekRune(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(lx.peekRune(2))) {
			float = true
			lx.advance()
			if next == '+' || next == '-' {
				lx.advance()
			}
			lx.digits()
		}
	}
	text := lx.src[start:lx.off]
	if isIdentStart(lx.peekRune(0)) {
		return token{}, lx.errorf(pos, "malformed number %s%c", text, lx.peekRune(0))
	}
	if float {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, lx.errorf(pos, "invalid float %s", text)
		}
		return token{kind: tokFloat, text: text, fval: f, pos: pos}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, lx.errorf(pos, "integer %s out of range", text)
	}
	return token{kind: tokInt, text: text, ival: i, pos: pos}, nil
}

func (lx *lexer) quoted(pos types.Position) (string, error) {
	quote := lx.advance()
	var sb strings.Builder
	for {
		if lx.off >= len(lx.src) {
			return "", lx.errorf(pos, "unterminated string")
		}
		r := lx.advance()
		switch r {
		case quote:
			return sb.String(), nil
		case '\n':
			return "", lx.errorf(pos, "unterminated string")
		case '\\':
			escPos := lx.pos()
			if lx.off >= len(lx.src) {
				return "", lx.errorf(pos, "unterminated string")
			}
			e := lx.advance()
			switch e {
			case '"', '\'', '\\', '/':
				sb.WriteRune(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'u':
				var code rune
				for i := 0; i < 4; i++ {
					h := lx.peekRune(0)
					v, ok := hexValue(h)
					if !ok {
						return "", lx.errorf(escPos, "invalid unicode escape")
					}
					lx.advance()
					code = code<<4 | v
				}
				sb.WriteRune(code)
			default:
				return "", lx.errorf(escPos, "unknown escape \\%c", e)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func hexValue(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r - '0', true
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10, true
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10, true
	}
	return 0, false
}

func (lx *lexer) quotedIdent(pos types.Position) (token, error) {
	lx.advance()
	var sb strings.Builder
	for {
		if lx.off >= len(lx.src) || lx.peekRune(0) == '\n' {
			return token{}, lx.errorf(pos, "unterminated quoted identifier")
		}
		r := lx.advance()
		if r == '`' {
			if lx.peekRune(0) == '`' {
				lx.advance()
				sb.WriteRune('`')
				continue
			}
			if sb.Len() == 0 {
				return token{}, lx.errorf(pos, "empty quoted identifier")
			}
			return token{kind: tokQuotedIdent, text: sb.String(), pos: pos}, nil
		}
		sb.WriteRune(r)
	}
}
