package value

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// Catalog item properties readable by variables and conditions.
const (
	PropertyPrice    = "price"
	PropertyWeight   = "weight"
	PropertyWidth    = "width"
	PropertyLength   = "length"
	PropertyHeight   = "height"
	PropertyQuantity = "quantity"
)

// Property reads a numeric property of the item being configured. Attribute
// references ("attribute:<name>") resolve to the first term parsed as a number.
func Property(name string, sub model.Submission, ectx model.EvaluationContext) (float64, bool) {
	item := ectx.Item
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PropertyPrice:
		return item.EffectivePrice(sub.VariationID), true
	case PropertyWeight:
		return item.Weight, true
	case PropertyWidth:
		return item.Width, true
	case PropertyLength:
		return item.Length, true
	case PropertyHeight:
		return item.Height, true
	case PropertyQuantity:
		if sub.Quantity <= 0 {
			return 1, true
		}
		return sub.Quantity, true
	}
	terms := Attribute(name, sub, ectx)
	if len(terms) == 0 {
		return 0, false
	}
	return parseNumber(terms[0])
}

// Attribute returns the attribute terms for an "attribute:<name>" reference.
// A selected variation's own attribute value takes precedence.
func Attribute(ref string, sub model.Submission, ectx model.EvaluationContext) []string {
	name, ok := model.AttributeName(ref)
	if !ok {
		return nil
	}
	if v, found := ectx.Item.Variation(sub.VariationID); found {
		for key, term := range v.Attributes {
			if strings.EqualFold(key, name) && strings.TrimSpace(term) != "" {
				return []string{term}
			}
		}
	}
	return ectx.Item.Attribute(name)
}

// ObserveProperty returns comparable values for a synthetic condition target.
// Attributes yield one value per term; dimensions and price yield one number.
func ObserveProperty(id string, sub model.Submission, ectx model.EvaluationContext) []Observed {
	if _, isAttr := model.AttributeName(id); isAttr {
		terms := Attribute(id, sub, ectx)
		out := make([]Observed, 0, len(terms))
		for _, term := range terms {
			out = append(out, observedNumber(term))
		}
		return out
	}
	n, ok := Property(model.PropertyName(id), sub, ectx)
	if !ok {
		return nil
	}
	return []Observed{{Text: strconv.FormatFloat(n, 'f', -1, 64), Number: n, Numeric: true}}
}

// Meta looks up item metadata for formulas. The host MetaLookup is consulted
// first. An underscore-prefixed key missing on the item falls back to the
// selected variation, trying the key as given and then without the prefix.
func Meta(key string, sub model.Submission, ectx model.EvaluationContext) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if ectx.Meta != nil {
		if v, ok := ectx.Meta.Meta(ectx.Item, sub.VariationID, key); ok {
			return v, true
		}
	}
	if v, ok := metaValue(ectx.Item.Meta, key); ok {
		return v, true
	}
	if !strings.HasPrefix(key, "_") {
		return "", false
	}
	variation, ok := ectx.Item.Variation(sub.VariationID)
	if !ok {
		return "", false
	}
	if v, ok := metaValue(variation.Meta, key); ok {
		return v, true
	}
	return metaValue(variation.Meta, strings.TrimPrefix(key, "_"))
}

func metaValue(meta map[string]string, key string) (string, bool) {
	if v, ok := meta[key]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	// keys differing only by case resolve to the first in sorted order
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		if v := meta[k]; strings.EqualFold(k, key) && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}
