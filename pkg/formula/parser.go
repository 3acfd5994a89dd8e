package formula

import (
	"fmt"
	"strconv"
)

// node is one element of a parsed formula.
type node interface {
	lower(b *lowering)
}

type numberNode struct {
	value float64
}

type stringNode struct {
	value string
}

type referenceNode struct {
	name string
}

type unaryNode struct {
	op      tokenKind
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

type callNode struct {
	name string
	args []node
	pos  int
}

// Program is a parsed formula.
type Program struct {
	source string
	root   node
}

// Source returns the text the program was parsed from.
func (prg *Program) Source() string {
	if prg == nil {
		return ""
	}
	return prg.source
}

// References returns the distinct variable names the formula reads, in order of
// first appearance.
func (prg *Program) References() []string {
	if prg == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	walk(prg.root, func(n node) {
		if ref, ok := n.(referenceNode); ok && !seen[ref.name] {
			seen[ref.name] = true
			out = append(out, ref.name)
		}
	})
	return out
}

func (prg *Program) calls() []callNode {
	if prg == nil {
		return nil
	}
	var out []callNode
	walk(prg.root, func(n node) {
		if call, ok := n.(callNode); ok {
			out = append(out, call)
		}
	})
	return out
}

func walk(n node, visit func(node)) {
	if n == nil {
		return
	}
	visit(n)
	switch typed := n.(type) {
	case unaryNode:
		walk(typed.operand, visit)
	case binaryNode:
		walk(typed.left, visit)
		walk(typed.right, visit)
	case callNode:
		for _, arg := range typed.args {
			walk(arg, visit)
		}
	}
}

// Parse tokenizes and parses a formula. Bracketed variable references are
// normalised to lower case.
func Parse(expression string) (*Program, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &EvaluationError{Expression: expression, Reason: ReasonSyntax, Err: errEmpty}
	}
	p := &parser{input: expression, tokens: tokens}
	root, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, syntaxError(expression, tok.pos, fmt.Sprintf("unexpected %q", tok.raw))
	}
	return &Program{source: expression, root: root}, nil
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) match(kinds ...tokenKind) (token, bool) {
	tok, ok := p.peek()
	if !ok {
		return token{}, false
	}
	for _, kind := range kinds {
		if tok.kind == kind {
			p.pos++
			return tok, true
		}
	}
	return token{}, false
}

func (p *parser) consume(kind tokenKind, what string) error {
	if _, ok := p.match(kind); ok {
		return nil
	}
	if tok, ok := p.peek(); ok {
		return syntaxError(p.input, tok.pos, fmt.Sprintf("expected %s, got %q", what, tok.raw))
	}
	return syntaxError(p.input, len(p.input), fmt.Sprintf("expected %s at end of formula", what))
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.match(tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte)
		if !ok {
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.match(tokenPlus, tokenMinus)
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.match(tokenStar, tokenSlash)
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if tok, ok := p.match(tokenMinus, tokenPlus); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokenPlus {
			return operand, nil
		}
		return unaryNode{op: tokenMinus, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, syntaxError(p.input, len(p.input), "unexpected end of formula")
	}
	p.pos++

	switch tok.kind {
	case tokenNumber:
		v, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, syntaxError(p.input, tok.pos, fmt.Sprintf("invalid number %q", tok.raw))
		}
		return numberNode{value: v}, nil
	case tokenString:
		return stringNode{value: tok.raw}, nil
	case tokenReference:
		return referenceNode{name: tok.raw}, nil
	case tokenLParen:
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if err := p.consume(tokenRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenIdentifier:
		if _, ok := p.match(tokenLParen); ok {
			return p.parseCall(tok)
		}
		switch tok.raw {
		case "true":
			return numberNode{value: 1}, nil
		case "false":
			return numberNode{value: 0}, nil
		}
		return nil, syntaxError(p.input, tok.pos, fmt.Sprintf("unknown identifier %q; variables are written as [name]", tok.raw))
	default:
		return nil, syntaxError(p.input, tok.pos, fmt.Sprintf("unexpected %q", tok.raw))
	}
}

func (p *parser) parseCall(name token) (node, error) {
	call := callNode{name: name.raw, pos: name.pos}
	if _, ok := p.match(tokenRParen); ok {
		return call, nil
	}
	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if _, ok := p.match(tokenComma); ok {
			continue
		}
		if err := p.consume(tokenRParen, "',' or ')'"); err != nil {
			return nil, err
		}
		return call, nil
	}
}
