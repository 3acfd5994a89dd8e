package model

import "strings"

// VariableKind identifies which option type a formula variable binds to.
type VariableKind string

const (
	VariableKindNumber   VariableKind = "number"
	VariableKindChoice   VariableKind = "choice"
	VariableKindText     VariableKind = "text"
	VariableKindDate     VariableKind = "date"
	VariableKindFile     VariableKind = "file"
	VariableKindProduct  VariableKind = "product"
	VariableKindFormula  VariableKind = "formula"
	VariableKindProperty VariableKind = "property"
)

// Formula is the price formula of a computed-formula option.
type Formula struct {
	Expression       string           `json:"expression" yaml:"expression" validate:"required"`
	Variables        []Variable       `json:"variables,omitempty" yaml:"variables,omitempty" validate:"dive"`
	CustomVariables  []CustomVariable `json:"customVariables,omitempty" yaml:"customVariables,omitempty" validate:"dive"`
	ExcludeBasePrice bool             `json:"excludeBasePrice,omitempty" yaml:"excludeBasePrice,omitempty"`
}

// Variable binds a formula name to another option's resolved value. Path
// selects a sub-property of the resolved aggregate (for example "count" or
// "choices.choice2.value"). For property variables OptionID holds the property
// name (price, weight, ...).
type Variable struct {
	OptionID string       `json:"optionId" yaml:"optionId" validate:"required"`
	Name     string       `json:"name" yaml:"name" validate:"required,excludesall=[]"`
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Kind     VariableKind `json:"kind" yaml:"kind" validate:"required,oneof=number choice text date file product formula property"`
}

// Key returns the lower-cased lookup key used in bound variable maps.
func (v Variable) Key() string {
	return strings.ToLower(strings.TrimSpace(v.Name))
}

// NonePath reports whether the path selects the "none selected" flag.
func (v Variable) NonePath() bool {
	path := strings.ToLower(strings.TrimSpace(v.Path))
	return path == "none" || strings.HasSuffix(path, ".none")
}

// CustomVariable is a named sub-expression inlined before evaluation. It may
// only reference variables and custom variables declared before it.
type CustomVariable struct {
	Name    string `json:"name" yaml:"name" validate:"required,excludesall=[]"`
	Formula string `json:"formula" yaml:"formula" validate:"required"`
}
