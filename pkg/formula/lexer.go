package formula

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenString
	tokenIdentifier
	tokenReference
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	emit := func(kind tokenKind, raw string, pos int) {
		tokens = append(tokens, token{kind: kind, raw: raw, pos: pos})
	}

	for i < len(input) {
		ch := input[i]
		start := i
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			i++
			emit(tokenLParen, "(", start)
			continue
		case ')':
			i++
			emit(tokenRParen, ")", start)
			continue
		case ',':
			i++
			emit(tokenComma, ",", start)
			continue
		case '+':
			i++
			emit(tokenPlus, "+", start)
			continue
		case '-':
			i++
			emit(tokenMinus, "-", start)
			continue
		case '*':
			i++
			emit(tokenStar, "*", start)
			continue
		case '/':
			i++
			emit(tokenSlash, "/", start)
			continue
		case '=':
			i++
			if next() == '=' {
				i++
			}
			emit(tokenEq, "=", start)
			continue
		case '!':
			i++
			if next() != '=' {
				return nil, syntaxError(input, start, "unexpected '!'; use '!=' or not()")
			}
			i++
			emit(tokenNeq, "!=", start)
			continue
		case '<':
			i++
			switch next() {
			case '=':
				i++
				emit(tokenLte, "<=", start)
			case '>':
				i++
				emit(tokenNeq, "!=", start)
			default:
				emit(tokenLt, "<", start)
			}
			continue
		case '>':
			i++
			if next() == '=' {
				i++
				emit(tokenGte, ">=", start)
				continue
			}
			emit(tokenGt, ">", start)
			continue
		case '[':
			end := strings.IndexByte(input[i+1:], ']')
			if end < 0 {
				return nil, syntaxError(input, start, "unterminated variable reference")
			}
			name := normalizeName(input[i+1 : i+1+end])
			if name == "" {
				return nil, syntaxError(input, start, "empty variable reference")
			}
			i += end + 2
			emit(tokenReference, name, start)
			continue
		case ']':
			return nil, syntaxError(input, start, "unexpected ']'")
		case '"', '\'':
			quote := ch
			i++
			var b strings.Builder
			closed := false
			for i < len(input) {
				c := input[i]
				i++
				if c == '\\' && i < len(input) {
					b.WriteByte(input[i])
					i++
					continue
				}
				if c == quote {
					closed = true
					break
				}
				b.WriteByte(c)
			}
			if !closed {
				return nil, syntaxError(input, start, "unterminated string literal")
			}
			emit(tokenString, b.String(), start)
			continue
		}

		if isDigit(ch) || (ch == '.' && i+1 < len(input) && isDigit(input[i+1])) {
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			raw := input[start:i]
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return nil, syntaxError(input, start, fmt.Sprintf("invalid number %q", raw))
			}
			emit(tokenNumber, raw, start)
			continue
		}

		if isIdentStart(ch) {
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			emit(tokenIdentifier, strings.ToLower(input[start:i]), start)
			continue
		}

		return nil, syntaxError(input, start, fmt.Sprintf("unexpected character %q", ch))
	}

	return tokens, nil
}

// normalizeName lower-cases and trims a variable or function name so lookups
// are case-insensitive.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
