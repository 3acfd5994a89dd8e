package model

import "strings"

// OptionType enumerates the configurable field kinds.
type OptionType string

const (
	OptionTypeNumber      OptionType = "number"
	OptionTypePrice       OptionType = "price"
	OptionTypeRadio       OptionType = "radio"
	OptionTypeSelect      OptionType = "select"
	OptionTypeCheckbox    OptionType = "checkbox"
	OptionTypeMultiSelect OptionType = "multiselect"
	OptionTypeText        OptionType = "text"
	OptionTypeTextarea    OptionType = "textarea"
	OptionTypeDate        OptionType = "date"
	OptionTypeFile        OptionType = "file"
	OptionTypeProduct     OptionType = "product"
	OptionTypeFormula     OptionType = "formula"
	OptionTypeHTML        OptionType = "html"
)

// Known reports whether t is one of the supported option types.
func (t OptionType) Known() bool {
	switch t {
	case OptionTypeNumber, OptionTypePrice, OptionTypeRadio, OptionTypeSelect,
		OptionTypeCheckbox, OptionTypeMultiSelect, OptionTypeText, OptionTypeTextarea,
		OptionTypeDate, OptionTypeFile, OptionTypeProduct, OptionTypeFormula, OptionTypeHTML:
		return true
	default:
		return false
	}
}

// SingleChoice reports whether the type selects at most one choice.
func (t OptionType) SingleChoice() bool {
	return t == OptionTypeRadio || t == OptionTypeSelect
}

// MultiChoice reports whether the type selects any number of choices.
func (t OptionType) MultiChoice() bool {
	return t == OptionTypeCheckbox || t == OptionTypeMultiSelect
}

// PriceType describes how a selected choice adjusts the item price.
type PriceType string

const (
	PriceTypeNone       PriceType = ""
	PriceTypeFixed      PriceType = "fixed"
	PriceTypePercentage PriceType = "percentage"
	PriceTypeQuantity   PriceType = "quantity"
)

// Choice is one selectable value of a choice-based option. Value is optional;
// unset values are ignored by min/max/sum aggregation.
type Choice struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Value       *float64  `json:"value,omitempty" yaml:"value,omitempty"`
	PriceType   PriceType `json:"priceType,omitempty" yaml:"priceType,omitempty" validate:"omitempty,oneof=fixed percentage quantity"`
	PriceAmount float64   `json:"priceAmount,omitempty" yaml:"priceAmount,omitempty"`
}

// Settings carries type-specific configuration.
type Settings struct {
	Formula       *Formula `json:"formula,omitempty" yaml:"formula,omitempty" validate:"omitempty"`
	Multiple      bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	ExcludeSpaces bool     `json:"excludeSpaces,omitempty" yaml:"excludeSpaces,omitempty"`
	ProductIDs    []string `json:"productIds,omitempty" yaml:"productIds,omitempty"`
}

// Option is a configurable field definition attached to a catalog item.
type Option struct {
	ID               string            `json:"id" yaml:"id" validate:"required"`
	Type             OptionType        `json:"type" yaml:"type" validate:"required"`
	Label            string            `json:"label,omitempty" yaml:"label,omitempty"`
	Required         bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Choices          []Choice          `json:"choices,omitempty" yaml:"choices,omitempty" validate:"dive"`
	Settings         Settings          `json:"settings,omitempty" yaml:"settings,omitempty"`
	ConditionalLogic *ConditionalLogic `json:"conditionalLogic,omitempty" yaml:"conditionalLogic,omitempty" validate:"omitempty"`
}

// Formula returns the option's formula definition, or nil when the option is not
// a computed-formula option.
func (o Option) Formula() *Formula {
	if o.Type != OptionTypeFormula {
		return nil
	}
	return o.Settings.Formula
}

// MultiValued reports whether conditions should treat the option as an array of
// selected values. The classification depends only on the type.
func (o Option) MultiValued() bool {
	if o.Type.MultiChoice() {
		return true
	}
	return o.Type == OptionTypeProduct && o.Settings.Multiple
}

// Choice returns the choice with the given id.
func (o Option) Choice(id string) (Choice, int, bool) {
	for idx, choice := range o.Choices {
		if choice.ID == id {
			return choice, idx, true
		}
	}
	return Choice{}, -1, false
}

// Group is the ordered option container a formula or condition may reference.
type Group struct {
	ID      string   `json:"id" yaml:"id"`
	ItemID  string   `json:"itemId,omitempty" yaml:"itemId,omitempty"`
	Options []Option `json:"options" yaml:"options" validate:"dive"`
}

// Option looks up an option by id.
func (g Group) Option(id string) (Option, bool) {
	id = strings.TrimSpace(id)
	for _, opt := range g.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// FormulaOptions returns the ids of computed-formula options in declaration order.
func (g Group) FormulaOptions() []string {
	var ids []string
	for _, opt := range g.Options {
		if opt.Type == OptionTypeFormula {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}
