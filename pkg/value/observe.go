package value

import (
	"context"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// Observed is one comparable value of a field as seen by condition operators.
// Text is the canonical form (choice id, typed text, date string, item id);
// Aliases hold alternative spellings such as choice labels.
type Observed struct {
	Text    string
	Aliases []string
	Number  float64
	Numeric bool
}

// Matches reports whether literal equals the observed value or one of its
// aliases, ignoring case and surrounding whitespace. Numeric values also match
// numerically equal literals ("5" vs "5.0").
func (o Observed) Matches(literal string) bool {
	literal = strings.TrimSpace(literal)
	if strings.EqualFold(strings.TrimSpace(o.Text), literal) {
		return true
	}
	for _, alias := range o.Aliases {
		if strings.EqualFold(strings.TrimSpace(alias), literal) {
			return true
		}
	}
	if o.Numeric {
		if n, ok := parseNumber(literal); ok && n == o.Number {
			return true
		}
	}
	return false
}

func observedNumber(text string) Observed {
	n, ok := parseNumber(text)
	return Observed{Text: text, Number: n, Numeric: ok}
}

// Observe returns the comparable values of opt for condition evaluation. An
// empty slice means nothing was entered or selected.
func (r *Resolver) Observe(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) []Observed {
	switch {
	case opt.Type.SingleChoice() || opt.Type.MultiChoice():
		raw := sub.All(opt.ID)
		if opt.Type.SingleChoice() && len(raw) > 1 {
			raw = raw[:1]
		}
		var out []Observed
		for _, value := range raw {
			idx := choiceIndex(opt, value)
			if idx < 0 {
				out = append(out, observedNumber(strings.TrimSpace(value)))
				continue
			}
			choice := opt.Choices[idx]
			obs := Observed{Text: choice.ID, Aliases: []string{choice.Label}}
			if choice.Value != nil {
				obs.Number, obs.Numeric = *choice.Value, true
				obs.Aliases = append(obs.Aliases, strconv.FormatFloat(*choice.Value, 'f', -1, 64))
			}
			out = append(out, obs)
		}
		return out
	case opt.Type == model.OptionTypeText || opt.Type == model.OptionTypeTextarea:
		text := strings.TrimSpace(html.UnescapeString(r.sanitize(sub.First(opt.ID))))
		if text == "" {
			return nil
		}
		return []Observed{observedNumber(text)}
	case opt.Type == model.OptionTypeFile:
		var out []Observed
		for _, f := range sub.Files[opt.ID] {
			out = append(out, Observed{Text: f.Name})
		}
		return out
	case opt.Type == model.OptionTypeProduct:
		ids := sub.All(opt.ID)
		if !opt.Settings.Multiple && len(ids) > 1 {
			ids = ids[:1]
		}
		out := make([]Observed, 0, len(ids))
		for _, id := range ids {
			obs := Observed{Text: strings.TrimSpace(id)}
			if item, ok := sub.Product(id); ok {
				obs.Aliases = []string{item.Name}
				obs.Number, obs.Numeric = item.Price, true
			}
			out = append(out, obs)
		}
		return out
	case opt.Type == model.OptionTypeFormula:
		v, ok := r.evaluateFormula(ctx, opt, sub, ectx)
		if !ok {
			return nil
		}
		text := strconv.FormatFloat(v, 'f', -1, 64)
		return []Observed{{Text: text, Number: v, Numeric: true}}
	case opt.Type == model.OptionTypeHTML:
		return nil
	default:
		raw := strings.TrimSpace(sub.First(opt.ID))
		if raw == "" {
			return nil
		}
		return []Observed{observedNumber(raw)}
	}
}
