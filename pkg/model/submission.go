package model

import "strings"

// File is an uploaded file attached to a file option. Size is zero when it is
// only known remotely.
type File struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
	Size int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

// Submission is the raw value snapshot for every option on the page (or the
// persisted values of an order line). Choice options store choice ids, product
// options store referenced item ids. The engines never mutate it.
type Submission struct {
	Values      map[string][]string `json:"values,omitempty" yaml:"values,omitempty"`
	Files       map[string][]File   `json:"files,omitempty" yaml:"files,omitempty"`
	Products    map[string]Item     `json:"products,omitempty" yaml:"products,omitempty"`
	VariationID string              `json:"variationId,omitempty" yaml:"variationId,omitempty"`
	Quantity    float64             `json:"quantity,omitempty" yaml:"quantity,omitempty"`
}

// All returns the non-empty raw values submitted for an option.
func (s Submission) All(optionID string) []string {
	raw := s.Values[optionID]
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

// First returns the first raw value submitted for an option.
func (s Submission) First(optionID string) string {
	raw := s.Values[optionID]
	if len(raw) == 0 {
		return ""
	}
	return raw[0]
}

// Has reports whether any non-empty value or file was submitted for an option.
func (s Submission) Has(optionID string) bool {
	return len(s.All(optionID)) > 0 || len(s.Files[optionID]) > 0
}

// Product returns a referenced catalog item carried by the submission.
func (s Submission) Product(id string) (Item, bool) {
	item, ok := s.Products[id]
	return item, ok
}

// With returns a copy of the submission with one option's values replaced. The
// receiver is left untouched so callers can keep earlier snapshots.
func (s Submission) With(optionID string, values ...string) Submission {
	next := s
	next.Values = make(map[string][]string, len(s.Values)+1)
	for key, vals := range s.Values {
		next.Values[key] = vals
	}
	next.Values[optionID] = append([]string(nil), values...)
	return next
}
