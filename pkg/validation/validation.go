package validation

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
)

// Severity ranks an authoring issue.
type Severity string

const (
	// SeverityError disables the affected formula until it is corrected.
	SeverityError Severity = "error"
	// SeverityWarning is reported but does not change runtime behaviour.
	SeverityWarning Severity = "warning"
)

// Issue is one authoring problem with an option definition.
type Issue struct {
	OptionID string   `json:"optionId,omitempty"`
	Field    string   `json:"field,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	if i.OptionID != "" {
		b.WriteString(" ")
		b.WriteString(i.OptionID)
	}
	if i.Field != "" {
		b.WriteString(".")
		b.WriteString(i.Field)
	}
	b.WriteString(": ")
	b.WriteString(i.Message)
	return b.String()
}

// Result captures the outcome of validating an option group.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Errors returns the error-severity issues.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Disabled returns the ids of options carrying error-severity issues, sorted.
// Formula options listed here contribute nothing to the price.
func (r Result) Disabled() []string {
	seen := map[string]bool{}
	var out []string
	for _, issue := range r.Errors() {
		if issue.OptionID == "" || seen[issue.OptionID] {
			continue
		}
		seen[issue.OptionID] = true
		out = append(out, issue.OptionID)
	}
	slices.Sort(out)
	return out
}

// Err returns a *DefinitionError when the result has errors.
func (r Result) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &DefinitionError{Issues: errs}
}

// DefinitionError reports a misconfigured option group.
type DefinitionError struct {
	Issues []Issue
}

func (e *DefinitionError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation: invalid definition"
	}
	if len(e.Issues) == 1 {
		return "validation: " + e.Issues[0].String()
	}
	return fmt.Sprintf("validation: %s (and %d more)", e.Issues[0].String(), len(e.Issues)-1)
}

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
})

// Struct validates a tagged struct with the shared validator. Field names in
// the returned errors use JSON names.
func Struct(v any) error {
	return structValidator().Struct(v)
}

// ValidateGroup checks an option group for authoring mistakes: malformed
// fields, broken formulas, conditions on unknown options or with operators
// the target cannot satisfy, and dependency cycles.
func ValidateGroup(group model.Group) Result {
	c := &checker{
		group:    group,
		resolver: value.NewResolver(),
		seen:     make(map[string]int, len(group.Options)),
	}
	for idx, opt := range group.Options {
		c.option(idx, opt)
	}
	c.visibilityCycles()
	c.formulaCycles()

	result := Result{Valid: true, Issues: c.issues}
	for _, issue := range c.issues {
		if issue.Severity == SeverityError {
			result.Valid = false
			break
		}
	}
	return result
}
