package pricing

import (
	"strings"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
)

var priceValuedProductPaths = map[string]bool{
	"":      true,
	"total": true,
	"price": true,
	"min":   true,
	"max":   true,
}

// TaxSensitive reports whether a formula option reads a price-valued input,
// directly or through a nested formula: the item price, the price aggregates of
// a product option, or a choice priced as a percentage of the item price. Such
// formulas cannot be trusted when prices are entered and displayed with
// different tax treatment.
func TaxSensitive(group model.Group, optionID string) bool {
	return inspect(group, optionID, map[string]bool{}, func(v model.Variable, ref model.Option, found bool) bool {
		if v.Kind == model.VariableKindProperty {
			name := strings.ToLower(model.PropertyName(strings.TrimSpace(v.OptionID)))
			return name == value.PropertyPrice
		}
		if !found {
			return false
		}
		switch {
		case ref.Type == model.OptionTypeProduct:
			return priceValuedProductPaths[strings.ToLower(strings.TrimSpace(v.Path))]
		case ref.Type == model.OptionTypePrice:
			return true
		case ref.Type.SingleChoice() || ref.Type.MultiChoice():
			for _, choice := range ref.Choices {
				if choice.PriceType == model.PriceTypePercentage {
					return true
				}
			}
		}
		return false
	})
}

// NetworkDependent reports whether a formula option reads the size of uploaded
// files, which only the authoritative context can resolve.
func NetworkDependent(group model.Group, optionID string) bool {
	return inspect(group, optionID, map[string]bool{}, func(v model.Variable, ref model.Option, found bool) bool {
		if !found || ref.Type != model.OptionTypeFile {
			return false
		}
		path := strings.ToLower(strings.TrimSpace(v.Path))
		return path == "size" || strings.HasSuffix(path, ".size")
	})
}

// inspect walks the variables of a formula option and of every formula option
// it references, stopping at the first variable match accepts.
func inspect(group model.Group, optionID string, seen map[string]bool, match func(v model.Variable, ref model.Option, found bool) bool) bool {
	if seen[optionID] {
		return false
	}
	seen[optionID] = true

	opt, ok := group.Option(optionID)
	if !ok {
		return false
	}
	f := opt.Formula()
	if f == nil {
		return false
	}
	for _, v := range f.Variables {
		ref, found := group.Option(v.OptionID)
		if v.Kind == model.VariableKindProperty {
			found = false
		}
		if match(v, ref, found) {
			return true
		}
		if found && ref.Type == model.OptionTypeFormula && inspect(group, ref.ID, seen, match) {
			return true
		}
	}
	return false
}
