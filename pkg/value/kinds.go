package value

import (
	"context"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-productoptions/pkg/model"
)

type numberKind struct{}

func (numberKind) Resolve(_ context.Context, opt model.Option, sub model.Submission, _ model.EvaluationContext) Value {
	return Scalar(ParseNumber(sub.First(opt.ID)))
}

func (numberKind) Neutral(model.Option) Value { return Scalar(0) }

func (numberKind) DefaultPath(model.Option) string { return "" }

type choiceKind struct {
	multi bool
}

func (k choiceKind) Resolve(_ context.Context, opt model.Option, sub model.Submission, _ model.EvaluationContext) Value {
	raw := sub.All(opt.ID)
	if !k.multi && len(raw) > 1 {
		raw = raw[:1]
	}
	return k.aggregate(opt, selectedChoices(opt, raw))
}

func (k choiceKind) Neutral(opt model.Option) Value {
	return k.aggregate(opt, nil)
}

func (k choiceKind) DefaultPath(model.Option) string {
	if k.multi {
		return "sum"
	}
	return "value"
}

func (k choiceKind) aggregate(opt model.Option, selected map[int]bool) Value {
	count := len(selected)
	var (
		sum, minV, maxV float64
		seen            bool
		single          float64
	)
	perChoice := make(map[string]any, len(opt.Choices))
	for idx, choice := range opt.Choices {
		checked := selected[idx]
		entry := map[string]any{"checked": checked, "value": 0.0}
		if checked && choice.Value != nil {
			v := *choice.Value
			entry["value"] = v
			sum += v
			if !seen || v < minV {
				minV = v
			}
			if !seen || v > maxV {
				maxV = v
			}
			seen = true
			single = v
		}
		perChoice["choice"+strconv.Itoa(idx+1)] = entry
	}

	fields := map[string]any{
		"count":   float64(count),
		"any":     count > 0,
		"all":     len(opt.Choices) > 0 && count == len(opt.Choices),
		"none":    count == 0,
		"min":     minV,
		"max":     maxV,
		"sum":     sum,
		"choices": perChoice,
	}
	if !k.multi {
		fields["selected"] = count > 0
		fields["value"] = single
	}
	return Aggregate(fields)
}

// selectedChoices maps submitted values (choice ids, falling back to labels)
// to choice indexes.
func selectedChoices(opt model.Option, raw []string) map[int]bool {
	if len(raw) == 0 {
		return nil
	}
	selected := make(map[int]bool, len(raw))
	for _, value := range raw {
		if idx := choiceIndex(opt, value); idx >= 0 {
			selected[idx] = true
		}
	}
	return selected
}

func choiceIndex(opt model.Option, raw string) int {
	raw = strings.TrimSpace(raw)
	if _, idx, ok := opt.Choice(raw); ok {
		return idx
	}
	for idx, choice := range opt.Choices {
		if strings.EqualFold(strings.TrimSpace(choice.Label), raw) {
			return idx
		}
	}
	return -1
}

var whitespaceRun = regexp.MustCompile(`\s+`)

type textKind struct {
	resolver  *Resolver
	multiline bool
}

func (k textKind) Resolve(_ context.Context, opt model.Option, sub model.Submission, _ model.EvaluationContext) Value {
	raw := html.UnescapeString(k.resolver.sanitize(sub.First(opt.ID)))
	trimmed := strings.TrimSpace(raw)
	collapsed := whitespaceRun.ReplaceAllString(trimmed, " ")

	characters := collapsed
	if opt.Settings.ExcludeSpaces {
		characters = strings.ReplaceAll(collapsed, " ", "")
	}

	fields := map[string]any{
		"characters": float64(len([]rune(characters))),
		"words":      float64(len(strings.Fields(trimmed))),
	}
	if k.multiline {
		lines := 0
		if trimmed != "" {
			lines = strings.Count(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\n") + 1
		}
		fields["lines"] = float64(lines)
	}
	return Aggregate(fields)
}

func (k textKind) Neutral(model.Option) Value {
	fields := map[string]any{"characters": 0.0, "words": 0.0}
	if k.multiline {
		fields["lines"] = 0.0
	}
	return Aggregate(fields)
}

func (textKind) DefaultPath(model.Option) string { return "characters" }

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseDate parses a submitted date in the store's location.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Weekday returns the 1-indexed weekday of t counted from firstDay.
func Weekday(t time.Time, firstDay time.Weekday) int {
	return (int(t.Weekday())-int(firstDay)+7)%7 + 1
}

// DayCount returns the calendar days from now to t, inclusive.
func DayCount(now, t time.Time) int {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(to.Sub(from).Hours()/24)) + 1
}

type dateKind struct{}

func (k dateKind) Resolve(_ context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) Value {
	t, ok := ParseDate(sub.First(opt.ID), ectx.Zone())
	if !ok {
		return k.Neutral(opt)
	}
	return Aggregate(map[string]any{
		"daycount": float64(DayCount(ectx.Clock(), t)),
		"weekday":  float64(Weekday(t, ectx.FirstDayOfWeek)),
		"day":      float64(t.Day()),
		"month":    float64(t.Month()),
		"year":     float64(t.Year()),
	})
}

func (dateKind) Neutral(model.Option) Value {
	return Aggregate(map[string]any{
		"daycount": 0.0,
		"weekday":  0.0,
		"day":      0.0,
		"month":    0.0,
		"year":     0.0,
	})
}

func (dateKind) DefaultPath(model.Option) string { return "daycount" }

type fileKind struct{}

// Resolve exposes size only in the authoritative context, where remote sizes
// can be fetched; presentation formulas reading it therefore never evaluate.
func (fileKind) Resolve(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) Value {
	files := sub.Files[opt.ID]
	fields := map[string]any{"count": float64(len(files))}
	if ectx.Authoritative() {
		var total int64
		for _, f := range files {
			size := f.Size
			if size <= 0 && ectx.Files != nil {
				if remote, err := ectx.Files.Size(ctx, f); err == nil {
					size = remote
				}
			}
			if size > 0 {
				total += size
			}
		}
		fields["size"] = float64(total)
	}
	return Aggregate(fields)
}

func (fileKind) Neutral(model.Option) Value {
	return Aggregate(map[string]any{"count": 0.0, "size": 0.0})
}

func (fileKind) DefaultPath(model.Option) string { return "count" }

type productKind struct{}

func (k productKind) Resolve(_ context.Context, opt model.Option, sub model.Submission, _ model.EvaluationContext) Value {
	ids := sub.All(opt.ID)
	if !opt.Settings.Multiple && len(ids) > 1 {
		ids = ids[:1]
	}
	var (
		total, minP, maxP float64
		count             int
	)
	for _, id := range ids {
		item, ok := sub.Product(id)
		if !ok {
			continue
		}
		price := item.Price
		total += price
		if count == 0 || price < minP {
			minP = price
		}
		if count == 0 || price > maxP {
			maxP = price
		}
		count++
	}
	return k.aggregate(opt, count, minP, maxP, total)
}

func (k productKind) Neutral(opt model.Option) Value {
	return k.aggregate(opt, 0, 0, 0, 0)
}

func (productKind) DefaultPath(model.Option) string { return "total" }

func (productKind) aggregate(opt model.Option, count int, minP, maxP, total float64) Value {
	available := len(opt.Settings.ProductIDs)
	return Aggregate(map[string]any{
		"count":    float64(count),
		"any":      count > 0,
		"all":      available > 0 && count >= available,
		"none":     count == 0,
		"selected": count > 0,
		"min":      minP,
		"max":      maxP,
		"total":    total,
		"price":    total,
	})
}

type formulaKind struct {
	resolver *Resolver
}

func (k formulaKind) Resolve(ctx context.Context, opt model.Option, sub model.Submission, ectx model.EvaluationContext) Value {
	v, ok := k.resolver.evaluateFormula(ctx, opt, sub, ectx)
	if !ok {
		return Unavailable()
	}
	return Scalar(v)
}

func (formulaKind) Neutral(model.Option) Value { return Scalar(0) }

func (formulaKind) DefaultPath(model.Option) string { return "" }

type displayKind struct{}

func (displayKind) Resolve(context.Context, model.Option, model.Submission, model.EvaluationContext) Value {
	return Scalar(0)
}

func (displayKind) Neutral(model.Option) Value { return Scalar(0) }

func (displayKind) DefaultPath(model.Option) string { return "" }
