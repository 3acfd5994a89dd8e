package formula

import (
	"strconv"
	"strings"
)

const (
	varsIdent      = "vars"
	functionPrefix = "fn_"
)

// lowering renders a parsed formula as expr-lang source. Variables read from
// the vars map, functions are called through prefixed env entries so names such
// as "if" never collide with expr keywords, and comparisons yield 1 or 0.
type lowering struct {
	sb strings.Builder
}

func lowerProgram(prg *Program) string {
	var b lowering
	prg.root.lower(&b)
	return b.sb.String()
}

func (n numberNode) lower(b *lowering) {
	b.sb.WriteString(formatFloat(n.value))
}

func (n stringNode) lower(b *lowering) {
	b.sb.WriteString(strconv.Quote(n.value))
}

func (n referenceNode) lower(b *lowering) {
	b.sb.WriteString(varsIdent)
	b.sb.WriteByte('[')
	b.sb.WriteString(strconv.Quote(n.name))
	b.sb.WriteByte(']')
}

func (n unaryNode) lower(b *lowering) {
	b.sb.WriteString("(-(")
	n.operand.lower(b)
	b.sb.WriteString("))")
}

func (n binaryNode) lower(b *lowering) {
	if op, ok := comparisonOps[n.op]; ok {
		b.sb.WriteString("((")
		n.left.lower(b)
		b.sb.WriteString(") " + op + " (")
		n.right.lower(b)
		b.sb.WriteString(") ? 1.0 : 0.0)")
		return
	}
	b.sb.WriteByte('(')
	n.left.lower(b)
	b.sb.WriteString(" " + arithmeticOps[n.op] + " ")
	n.right.lower(b)
	b.sb.WriteByte(')')
}

func (n callNode) lower(b *lowering) {
	b.sb.WriteString(functionPrefix + n.name)
	b.sb.WriteByte('(')
	for i, arg := range n.args {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		arg.lower(b)
	}
	b.sb.WriteByte(')')
}

var comparisonOps = map[tokenKind]string{
	tokenEq:  "==",
	tokenNeq: "!=",
	tokenLt:  "<",
	tokenLte: "<=",
	tokenGt:  ">",
	tokenGte: ">=",
}

var arithmeticOps = map[tokenKind]string{
	tokenPlus:  "+",
	tokenMinus: "-",
	tokenStar:  "*",
	tokenSlash: "/",
}

// formatFloat always emits a decimal point so expr treats literals as float64
// and integer division never happens.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
