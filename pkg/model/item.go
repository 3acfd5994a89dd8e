package model

import "strings"

// Item is the catalog item currently being configured.
type Item struct {
	ID         string              `json:"id" yaml:"id" validate:"required"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	Price      float64             `json:"price" yaml:"price"`
	Weight     float64             `json:"weight,omitempty" yaml:"weight,omitempty"`
	Width      float64             `json:"width,omitempty" yaml:"width,omitempty"`
	Length     float64             `json:"length,omitempty" yaml:"length,omitempty"`
	Height     float64             `json:"height,omitempty" yaml:"height,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Meta       map[string]string   `json:"meta,omitempty" yaml:"meta,omitempty"`
	Variations []Variation         `json:"variations,omitempty" yaml:"variations,omitempty"`
}

// Variation is a purchasable variant of an item.
type Variation struct {
	ID         string            `json:"id" yaml:"id"`
	Price      *float64          `json:"price,omitempty" yaml:"price,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Meta       map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Variation returns the variation with the given id.
func (i Item) Variation(id string) (Variation, bool) {
	if strings.TrimSpace(id) == "" {
		return Variation{}, false
	}
	for _, v := range i.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// Attribute returns the values of an attribute (taxonomy term names).
// Attribute names are matched case-insensitively.
func (i Item) Attribute(name string) []string {
	if len(i.Attributes) == 0 {
		return nil
	}
	if values, ok := i.Attributes[name]; ok {
		return values
	}
	for key, values := range i.Attributes {
		if strings.EqualFold(key, name) {
			return values
		}
	}
	return nil
}

// EffectivePrice returns the variation price when the variation overrides it.
func (i Item) EffectivePrice(variationID string) float64 {
	if v, ok := i.Variation(variationID); ok && v.Price != nil {
		return *v.Price
	}
	return i.Price
}
