package formula

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-productoptions/pkg/value"
)

// Scope carries the context-bound inputs the function library reads: the
// clock, the store's week start and the item metadata lookup.
type Scope struct {
	Now            time.Time
	Location       *time.Location
	FirstDayOfWeek time.Weekday
	Meta           func(key string) (string, bool)
}

func (s Scope) clock() time.Time {
	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(s.zone())
}

func (s Scope) zone() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

type function struct {
	min, max int
	// pairs requires the arguments after the first two to come in pairs.
	pairs bool
	call  func(s Scope, args []any) (any, error)
}

func (f function) checkArity(name string, n int) error {
	if n < f.min {
		return argumentError(ReasonArity, "%s expects at least %d argument(s), got %d", name, f.min, n)
	}
	if f.max >= 0 && n > f.max {
		return argumentError(ReasonArity, "%s expects at most %d argument(s), got %d", name, f.max, n)
	}
	if f.pairs && (n-2)%2 != 0 {
		return argumentError(ReasonArity, "%s expects threshold/value pairs, got %d trailing argument(s)", name, n-2)
	}
	return nil
}

const variadic = -1

var library = map[string]function{
	// logical
	"if":      {min: 3, max: 3, call: fnIf},
	"and":     {min: 1, max: variadic, call: fnAnd},
	"or":      {min: 1, max: variadic, call: fnOr},
	"not":     {min: 1, max: 1, call: fnNot},
	"eq":      {min: 2, max: 2, call: comparator("=")},
	"neq":     {min: 2, max: 2, call: comparator("!=")},
	"lt":      {min: 2, max: 2, call: comparator("<")},
	"lte":     {min: 2, max: 2, call: comparator("<=")},
	"gt":      {min: 2, max: 2, call: comparator(">")},
	"gte":     {min: 2, max: 2, call: comparator(">=")},
	"compare": {min: 2, max: 3, call: fnCompare},

	// business
	"bulkprice":   {min: 2, max: variadic, pairs: true, call: bulk(false)},
	"bulkrate":    {min: 2, max: variadic, pairs: true, call: bulk(true)},
	"year":        {min: 0, max: 1, call: dateComponent(func(s Scope, t time.Time) float64 { return float64(t.Year()) })},
	"month":       {min: 0, max: 1, call: dateComponent(func(s Scope, t time.Time) float64 { return float64(t.Month()) })},
	"day":         {min: 0, max: 1, call: dateComponent(func(s Scope, t time.Time) float64 { return float64(t.Day()) })},
	"weekday":     {min: 0, max: 1, call: dateComponent(func(s Scope, t time.Time) float64 { return float64(value.Weekday(t, s.FirstDayOfWeek)) })},
	"productmeta": {min: 1, max: 2, call: fnProductMeta},

	// math
	"abs":   {min: 1, max: 1, call: unaryMath(math.Abs)},
	"ceil":  {min: 1, max: 1, call: unaryMath(math.Ceil)},
	"floor": {min: 1, max: 1, call: unaryMath(math.Floor)},
	"sqrt":  {min: 1, max: 1, call: unaryMath(math.Sqrt)},
	"round": {min: 1, max: 2, call: fnRound},
	"min":   {min: 1, max: variadic, call: extremum(math.Min)},
	"max":   {min: 1, max: variadic, call: extremum(math.Max)},
	"pow":   {min: 2, max: 2, call: fnPow},
}

// Functions lists the names of the built-in functions.
func Functions() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fnIf(_ Scope, args []any) (any, error) {
	if truthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func fnAnd(_ Scope, args []any) (any, error) {
	for _, arg := range args {
		if !truthy(arg) {
			return 0.0, nil
		}
	}
	return 1.0, nil
}

func fnOr(_ Scope, args []any) (any, error) {
	for _, arg := range args {
		if truthy(arg) {
			return 1.0, nil
		}
	}
	return 0.0, nil
}

func fnNot(_ Scope, args []any) (any, error) {
	return boolFloat(!truthy(args[0])), nil
}

func comparator(op string) func(Scope, []any) (any, error) {
	return func(_ Scope, args []any) (any, error) {
		return compareValues(args[0], args[1], op)
	}
}

func fnCompare(_ Scope, args []any) (any, error) {
	op := ">"
	if len(args) == 3 {
		raw, ok := args[2].(string)
		if !ok {
			return nil, argumentError(ReasonArgument, "compare operator must be a string literal")
		}
		op = strings.TrimSpace(raw)
	}
	return compareValues(args[0], args[1], op)
}

// CompareOperators lists the operators accepted by compare().
var CompareOperators = []string{"=", "==", "!=", "<>", "<", "<=", ">", ">="}

func compareValues(a, b any, op string) (any, error) {
	x, xerr := toNumber(a)
	y, yerr := toNumber(b)
	if xerr != nil || yerr != nil {
		as, aok := a.(string)
		bs, bok := b.(string)
		if !aok || !bok {
			if xerr != nil {
				return nil, xerr
			}
			return nil, yerr
		}
		switch op {
		case "=", "==":
			return boolFloat(strings.EqualFold(as, bs)), nil
		case "!=", "<>":
			return boolFloat(!strings.EqualFold(as, bs)), nil
		default:
			return nil, argumentError(ReasonArgument, "operator %q needs numeric operands", op)
		}
	}
	switch op {
	case "=", "==":
		return boolFloat(x == y), nil
	case "!=", "<>":
		return boolFloat(x != y), nil
	case "<":
		return boolFloat(x < y), nil
	case "<=":
		return boolFloat(x <= y), nil
	case ">":
		return boolFloat(x > y), nil
	case ">=":
		return boolFloat(x >= y), nil
	default:
		return nil, argumentError(ReasonArgument, "unknown compare operator %q", op)
	}
}

type tier struct {
	threshold float64
	amount    float64
}

// bulk implements bulkPrice and bulkRate: tiers are sorted by descending
// threshold and the first one the quantity meets wins.
func bulk(rate bool) func(Scope, []any) (any, error) {
	return func(_ Scope, args []any) (any, error) {
		nums, err := toNumbers(args)
		if err != nil {
			return nil, err
		}
		price, qty := nums[0], nums[1]
		tiers := make([]tier, 0, (len(nums)-2)/2)
		for i := 2; i+1 < len(nums); i += 2 {
			tiers = append(tiers, tier{threshold: nums[i], amount: nums[i+1]})
		}
		sort.SliceStable(tiers, func(i, j int) bool {
			return tiers[i].threshold > tiers[j].threshold
		})
		for _, t := range tiers {
			if qty >= t.threshold {
				if rate {
					return price * t.amount, nil
				}
				return t.amount, nil
			}
		}
		return price, nil
	}
}

func dateComponent(component func(Scope, time.Time) float64) func(Scope, []any) (any, error) {
	return func(s Scope, args []any) (any, error) {
		t := s.clock()
		if len(args) == 1 {
			parsed, err := toDate(s, args[0])
			if err != nil {
				return nil, err
			}
			t = parsed
		}
		return component(s, t), nil
	}
}

func toDate(s Scope, arg any) (time.Time, error) {
	if raw, ok := arg.(string); ok {
		if t, ok := value.ParseDate(raw, s.zone()); ok {
			return t, nil
		}
		return time.Time{}, argumentError(ReasonArgument, "cannot parse date %q", raw)
	}
	n, err := toNumber(arg)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(n), 0).In(s.zone()), nil
}

func fnProductMeta(s Scope, args []any) (any, error) {
	key, ok := args[0].(string)
	if !ok {
		return nil, argumentError(ReasonArgument, "productMeta key must be a string literal")
	}
	fallback := func() (any, error) {
		if len(args) == 2 {
			return args[1], nil
		}
		return 0.0, nil
	}
	if s.Meta == nil {
		return fallback()
	}
	raw, found := s.Meta(key)
	if !found {
		return fallback()
	}
	if n, ok := value.TryNumber(raw); ok {
		return n, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return nil, argumentError(ReasonNotNumeric, "product meta %q is not numeric: %q", key, raw)
}

func unaryMath(fn func(float64) float64) func(Scope, []any) (any, error) {
	return func(_ Scope, args []any) (any, error) {
		x, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func fnRound(_ Scope, args []any) (any, error) {
	x, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	places := 0.0
	if len(args) == 2 {
		if places, err = toNumber(args[1]); err != nil {
			return nil, err
		}
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x, nil
	}
	rounded, _ := decimal.NewFromFloat(x).Round(int32(places)).Float64()
	return rounded, nil
}

func extremum(pick func(a, b float64) float64) func(Scope, []any) (any, error) {
	return func(_ Scope, args []any) (any, error) {
		nums, err := toNumbers(args)
		if err != nil {
			return nil, err
		}
		out := nums[0]
		for _, n := range nums[1:] {
			out = pick(out, n)
		}
		return out, nil
	}
}

func fnPow(_ Scope, args []any) (any, error) {
	nums, err := toNumbers(args)
	if err != nil {
		return nil, err
	}
	return math.Pow(nums[0], nums[1]), nil
}

func toNumbers(args []any) ([]float64, error) {
	out := make([]float64, len(args))
	for i, arg := range args {
		n, err := toNumber(arg)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func toNumber(v any) (float64, error) {
	switch typed := v.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case uint:
		return float64(typed), nil
	case uint64:
		return float64(typed), nil
	case bool:
		return boolFloat(typed), nil
	case string:
		if n, ok := value.TryNumber(typed); ok {
			return n, nil
		}
		return 0, argumentError(ReasonNotNumeric, "%q is not a number", typed)
	case nil:
		return 0, argumentError(ReasonNotNumeric, "missing value")
	default:
		return 0, argumentError(ReasonNotNumeric, "unsupported value of type %T", v)
	}
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case bool:
		return typed
	case string:
		if n, ok := value.TryNumber(typed); ok {
			return n != 0 && !math.IsNaN(n)
		}
		return strings.TrimSpace(typed) != ""
	case nil:
		return false
	}
	n, err := toNumber(v)
	return err == nil && n != 0 && !math.IsNaN(n)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
