package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// Source identifies what produced a breakdown entry.
type Source string

const (
	SourceChoice  Source = "choice"
	SourceFormula Source = "formula"
)

// Entry is the adjustment one visible option contributes to the line. A nil
// Amount is an unknown contribution, never a zero one. Quantity-priced choices
// report the line amount; UnitAmount carries their per-unit share.
type Entry struct {
	OptionID   string   `json:"optionId"`
	Source     Source   `json:"source"`
	Amount     *float64 `json:"amount"`
	UnitAmount *float64 `json:"unitAmount,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Known reports whether the entry produced an amount.
func (e Entry) Known() bool {
	return e.Amount != nil
}

// Breakdown is the priced line for one item and submission.
type Breakdown struct {
	ItemID           string  `json:"itemId"`
	BasePrice        float64 `json:"basePrice"`
	ExcludeBasePrice bool    `json:"excludeBasePrice,omitempty"`
	Quantity         float64 `json:"quantity"`
	Entries          []Entry `json:"entries"`
	Adjustments      float64 `json:"adjustments"`
	UnitPrice        float64 `json:"unitPrice"`
	Total            float64 `json:"total"`
	// Unknown lists formula options that produced no value.
	Unknown []string `json:"unknown,omitempty"`
}

// Complete reports whether every visible formula produced a value.
func (b Breakdown) Complete() bool {
	return len(b.Unknown) == 0
}

// Amounts returns the known entry amounts keyed by option id.
func (b Breakdown) Amounts() map[string]float64 {
	out := make(map[string]float64, len(b.Entries))
	for _, entry := range b.Entries {
		if entry.Amount != nil {
			out[entry.OptionID] = *entry.Amount
		}
	}
	return out
}

// Breakdown prices every visible option of the group. Hidden options never
// contribute and disabled formulas are listed as unknown. Adjustments and
// UnitPrice are per unit; Total is UnitPrice times the quantity. A visible
// formula option with ExcludeBasePrice drops the item's base price from the
// line. Totals are rounded to the configured decimals.
func (c *Calculator) Breakdown(ctx context.Context, sub model.Submission, ectx model.EvaluationContext) (Breakdown, error) {
	quantity := sub.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	out := Breakdown{
		ItemID:    ectx.Item.ID,
		BasePrice: ectx.Item.EffectivePrice(sub.VariationID),
		Quantity:  quantity,
	}

	visible := c.visibility.Map(ctx, sub, ectx)
	adjustments := decimal.Zero
	for _, opt := range c.group.Options {
		if !visible[opt.ID] {
			continue
		}
		if opt.Type != model.OptionTypeFormula {
			adj, priced := c.choiceAdjustment(opt, sub, ectx)
			if !priced {
				continue
			}
			entry := Entry{OptionID: opt.ID, Source: SourceChoice, Amount: &adj.line}
			if adj.unit != adj.line {
				entry.UnitAmount = &adj.unit
			}
			out.Entries = append(out.Entries, entry)
			adjustments = adjustments.Add(decimal.NewFromFloat(adj.unit))
			continue
		}

		if f := opt.Formula(); f != nil && f.ExcludeBasePrice && !c.disabled[opt.ID] {
			out.ExcludeBasePrice = true
		}
		entry := Entry{OptionID: opt.ID, Source: SourceFormula}
		amount, err := c.Formula(ctx, opt, sub, ectx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Breakdown{}, ctxErr
			}
			entry.Error = err.Error()
			out.Unknown = append(out.Unknown, opt.ID)
		} else {
			entry.Amount = &amount
			adjustments = adjustments.Add(decimal.NewFromFloat(amount))
		}
		out.Entries = append(out.Entries, entry)
	}

	unit := adjustments
	if !out.ExcludeBasePrice {
		unit = unit.Add(decimal.NewFromFloat(out.BasePrice))
	}
	out.Adjustments = round(adjustments, c.decimals)
	out.UnitPrice = round(unit, c.decimals)
	out.Total = round(unit.Mul(decimal.NewFromFloat(quantity)), c.decimals)
	return out, nil
}

func round(d decimal.Decimal, places int32) float64 {
	f, _ := d.Round(places).Float64()
	return f
}
