package binding

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// Expand inlines the formula's custom variables and returns the lower-cased
// expression. Custom variables are processed in declaration order: each one is
// substituted into the formulas declared after it and into the main
// expression as a parenthesised group. Each name is substituted exactly once,
// so a reference reintroduced by a later body stays unbound.
func Expand(f model.Formula) string {
	expression := strings.ToLower(f.Expression)
	bodies := make([]string, len(f.CustomVariables))
	for i, cv := range f.CustomVariables {
		bodies[i] = strings.ToLower(cv.Formula)
	}

	for i, cv := range f.CustomVariables {
		name := strings.ToLower(strings.TrimSpace(cv.Name))
		if name == "" {
			continue
		}
		pattern := referencePattern(name)
		replacement := "(" + bodies[i] + ")"
		for j := i + 1; j < len(bodies); j++ {
			bodies[j] = substitute(pattern, bodies[j], replacement)
		}
		expression = substitute(pattern, expression, replacement)
	}
	return expression
}

func referencePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\[\s*` + regexp.QuoteMeta(name) + `\s*\]`)
}

func substitute(pattern *regexp.Regexp, text, replacement string) string {
	return pattern.ReplaceAllLiteralString(text, replacement)
}

// CustomNames returns the lower-cased custom variable names of f.
func CustomNames(f model.Formula) map[string]bool {
	out := make(map[string]bool, len(f.CustomVariables))
	for _, cv := range f.CustomVariables {
		if name := strings.ToLower(strings.TrimSpace(cv.Name)); name != "" {
			out[name] = true
		}
	}
	return out
}
