package model

import "strings"

// Relation combines per-condition results.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// Visibility selects whether met conditions show or hide the option.
type Visibility string

const (
	VisibilityShow Visibility = "show"
	VisibilityHide Visibility = "hide"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OperatorEquals        Operator = "equals"
	OperatorNotEquals     Operator = "not_equals"
	OperatorContains      Operator = "contains"
	OperatorNotContains   Operator = "not_contains"
	OperatorGreater       Operator = "greater"
	OperatorLess          Operator = "less"
	OperatorEmpty         Operator = "empty"
	OperatorNotEmpty      Operator = "not_empty"
	OperatorDateEquals    Operator = "date_equals"
	OperatorDateNotEquals Operator = "date_not_equals"
	OperatorDateGreater   Operator = "date_greater"
	OperatorDateLess      Operator = "date_less"
)

// AnySentinel is the condition literal matching any selected value.
const AnySentinel = "any"

// ConditionalLogic is the show/hide rule attached to an option.
type ConditionalLogic struct {
	Relation   Relation    `json:"relation" yaml:"relation" validate:"required,oneof=AND OR"`
	Visibility Visibility  `json:"visibility" yaml:"visibility" validate:"required,oneof=show hide"`
	Conditions []Condition `json:"conditions" yaml:"conditions" validate:"required,min=1,dive"`
}

// Condition compares the current value of an option (or a synthetic catalog
// item property) with a literal.
type Condition struct {
	OptionID string   `json:"optionId" yaml:"optionId" validate:"required"`
	Operator Operator `json:"operator" yaml:"operator" validate:"required,oneof=equals not_equals contains not_contains greater less empty not_empty date_equals date_not_equals date_greater date_less"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Synthetic condition targets that read the catalog item instead of an option.
const (
	PropertyPrice    = "product_price"
	PropertyWeight   = "product_weight"
	PropertyWidth    = "product_width"
	PropertyLength   = "product_length"
	PropertyHeight   = "product_height"
	PropertyQuantity = "product_quantity"

	attributePrefix = "attribute:"
)

// IsItemProperty reports whether id names a synthetic catalog-item property.
func IsItemProperty(id string) bool {
	switch id {
	case PropertyPrice, PropertyWeight, PropertyWidth, PropertyLength, PropertyHeight, PropertyQuantity:
		return true
	}
	return strings.HasPrefix(id, attributePrefix)
}

// PropertyName maps a synthetic id to the property name understood by item
// lookups ("price", "weight", "attribute:color", ...).
func PropertyName(id string) string {
	if strings.HasPrefix(id, attributePrefix) {
		return id
	}
	return strings.TrimPrefix(id, "product_")
}

// AttributeName returns the attribute referenced by an "attribute:<name>" id.
func AttributeName(id string) (string, bool) {
	if !strings.HasPrefix(id, attributePrefix) {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimPrefix(id, attributePrefix))
	return name, name != ""
}
