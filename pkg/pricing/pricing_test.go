package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/goliatone/go-productoptions/pkg/binding"
	"github.com/goliatone/go-productoptions/pkg/formula"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/testsupport"
)

func fixtureGroup() model.Group {
	size := testsupport.Radio("size",
		model.Choice{ID: "small", Label: "Small", PriceType: model.PriceTypeFixed, PriceAmount: 2},
		model.Choice{ID: "large", Label: "Large", PriceType: model.PriceTypePercentage, PriceAmount: 10},
	)
	engraving := testsupport.Show(testsupport.Text("engraving"), model.RelationAnd,
		testsupport.When("size", model.OperatorEquals, "large"))
	engraveCost := testsupport.Show(
		testsupport.Formula("engrave_cost", "[chars] * 0.5",
			testsupport.Var("chars", "engraving", model.VariableKindText, "characters")),
		model.RelationAnd,
		testsupport.When("size", model.OperatorEquals, "large"),
	)
	area := testsupport.Formula("area", "[w] * [h] / 100",
		testsupport.Var("w", "width", model.VariableKindNumber, ""),
		testsupport.Var("h", "height", model.VariableKindNumber, ""))
	areaPrice := testsupport.Formula("area_price", "[area] * 2",
		testsupport.Var("area", "area", model.VariableKindFormula, ""))
	loop := testsupport.Formula("loop", "[self] + 1",
		testsupport.Var("self", "loop", model.VariableKindFormula, ""))
	broken := testsupport.Formula("broken", "[w] * [rate]",
		testsupport.Var("w", "width", model.VariableKindNumber, ""))
	itemShare := testsupport.Formula("item_share", "[price] * 0.1",
		testsupport.Var("price", "price", model.VariableKindProperty, ""))

	return testsupport.Group("g",
		size, engraving, engraveCost,
		testsupport.Number("width"), testsupport.Number("height"),
		area, areaPrice, loop, broken, itemShare,
	)
}

func TestEvaluatePriceFormulas(t *testing.T) {
	t.Parallel()

	calc := New(fixtureGroup())
	ectx := testsupport.Context(testsupport.Item("frame", 50))
	sub := testsupport.Submit("width", "10", "height", "20", "size", "large", "engraving", "Hi there")
	ctx := context.Background()

	cases := map[string]float64{
		"area":         2,
		"area_price":   4,
		"engrave_cost": 4,
		"item_share":   5,
		"size":         5,
	}
	for optionID, want := range cases {
		got, err := calc.EvaluatePrice(ctx, optionID, sub, 0, ectx)
		if err != nil {
			t.Fatalf("EvaluatePrice(%s) returned error: %v", optionID, err)
		}
		if got == nil || math.Abs(*got-want) > 1e-9 {
			t.Fatalf("EvaluatePrice(%s) = %v, want %v", optionID, got, want)
		}
	}
}

func TestEvaluatePriceReturnsNilForNoValue(t *testing.T) {
	t.Parallel()

	calc := New(fixtureGroup())
	ectx := testsupport.Context(testsupport.Item("frame", 50))
	ctx := context.Background()
	sub := testsupport.Submit("width", "10", "size", "small", "engraving", "Hi there")

	got, err := calc.EvaluatePrice(ctx, "engrave_cost", sub, 0, ectx)
	if err != nil || got != nil {
		t.Fatalf("expected hidden option to add nothing, got %v (err=%v)", got, err)
	}

	got, err = calc.EvaluatePrice(ctx, "broken", sub, 0, ectx)
	if got != nil {
		t.Fatalf("expected nil for an incomplete formula, got %v", *got)
	}
	if !errors.Is(err, binding.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}

	got, err = calc.EvaluatePrice(ctx, "loop", sub, 0, ectx)
	if got != nil {
		t.Fatalf("expected nil for a self-referencing formula, got %v", *got)
	}
	if _, ok := formula.IsEvaluationError(err); !ok {
		t.Fatalf("expected EvaluationError, got %v", err)
	}

	got, err = calc.EvaluatePrice(ctx, "width", sub, 0, ectx)
	if err != nil || got != nil {
		t.Fatalf("expected an unpriced option to add nothing, got %v (err=%v)", got, err)
	}

	if _, err := calc.EvaluatePrice(ctx, "missing", sub, 0, ectx); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
}

func TestEvaluatePriceQuantityOverride(t *testing.T) {
	t.Parallel()

	group := testsupport.Group("g",
		testsupport.Formula("tiered", "bulkPrice(10, [qty], 10, 8, 20, 6)",
			testsupport.Var("qty", "quantity", model.VariableKindProperty, "")),
		testsupport.Radio("setup", testsupport.PricedChoice("yes", model.PriceTypeQuantity, 1.5)),
	)
	calc := New(group)
	ectx := testsupport.Context(testsupport.Item("card", 1))
	sub := testsupport.Submit("setup", "yes")

	got, err := calc.EvaluatePrice(context.Background(), "tiered", sub, 15, ectx)
	if err != nil || got == nil || *got != 8 {
		t.Fatalf("expected tier price 8, got %v (err=%v)", got, err)
	}
	got, err = calc.EvaluatePrice(context.Background(), "setup", sub, 4, ectx)
	if err != nil || got == nil || *got != 6 {
		t.Fatalf("expected quantity-priced choice 6, got %v (err=%v)", got, err)
	}
}

func TestBreakdown(t *testing.T) {
	t.Parallel()

	calc := New(fixtureGroup())
	ectx := testsupport.Context(testsupport.Item("frame", 50))
	sub := testsupport.Submit("width", "10", "height", "20", "size", "large", "engraving", "Hi there")
	sub.Quantity = 2

	got, err := calc.Breakdown(context.Background(), sub, ectx)
	if err != nil {
		t.Fatalf("Breakdown returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"loop", "broken"}, got.Unknown); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}
	if got.Complete() {
		t.Fatalf("expected incomplete breakdown")
	}
	wantAmounts := map[string]float64{
		"size":         5,
		"engrave_cost": 4,
		"area":         2,
		"area_price":   4,
		"item_share":   5,
	}
	if diff := cmp.Diff(wantAmounts, got.Amounts()); diff != "" {
		t.Fatalf("amounts mismatch (-want +got):\n%s", diff)
	}
	if got.Adjustments != 20 || got.UnitPrice != 70 || got.Total != 140 {
		t.Fatalf("unexpected totals: adjustments=%v unit=%v total=%v", got.Adjustments, got.UnitPrice, got.Total)
	}
}

func TestBreakdownQuantityPricedChoice(t *testing.T) {
	t.Parallel()

	group := testsupport.Group("g",
		testsupport.Radio("setup", testsupport.PricedChoice("yes", model.PriceTypeQuantity, 2)),
		testsupport.Checkbox("extras",
			testsupport.PricedChoice("gift", model.PriceTypeFixed, 1),
			testsupport.PricedChoice("clips", model.PriceTypeQuantity, 0.5)),
	)
	calc := New(group)
	ectx := testsupport.Context(testsupport.Item("card", 10))
	sub := testsupport.Submit("setup", "yes", "extras", "gift", "extras", "clips")
	sub.Quantity = 3

	amount, err := calc.EvaluatePrice(context.Background(), "setup", sub, 0, ectx)
	if err != nil || amount == nil || *amount != 6 {
		t.Fatalf("expected line amount 6, got %v (err=%v)", amount, err)
	}

	got, err := calc.Breakdown(context.Background(), sub, ectx)
	if err != nil {
		t.Fatalf("Breakdown returned error: %v", err)
	}
	// per unit: 10 + 2 + 1 + 0.5
	if got.Adjustments != 3.5 || got.UnitPrice != 13.5 || got.Total != 40.5 {
		t.Fatalf("unexpected totals: adjustments=%v unit=%v total=%v", got.Adjustments, got.UnitPrice, got.Total)
	}
	wantLine := map[string]float64{"setup": 6, "extras": 2.5}
	if diff := cmp.Diff(wantLine, got.Amounts()); diff != "" {
		t.Fatalf("line amounts mismatch (-want +got):\n%s", diff)
	}
	for _, entry := range got.Entries {
		want := map[string]float64{"setup": 2, "extras": 1.5}[entry.OptionID]
		if entry.UnitAmount == nil || *entry.UnitAmount != want {
			t.Fatalf("expected %s unit amount %v, got %v", entry.OptionID, want, entry.UnitAmount)
		}
	}
}

func TestDisabledFormulasAddNothing(t *testing.T) {
	t.Parallel()

	calc := New(fixtureGroup(), WithDisabled("area"))
	ectx := testsupport.Context(testsupport.Item("frame", 50))
	sub := testsupport.Submit("width", "10", "height", "20", "size", "small")

	if !calc.Disabled("area") || calc.Disabled("item_share") {
		t.Fatalf("expected only area to be disabled")
	}
	amount, err := calc.EvaluatePrice(context.Background(), "area", sub, 0, ectx)
	if amount != nil || !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled and no amount, got %v (err=%v)", amount, err)
	}
	if amount, _ := calc.EvaluatePrice(context.Background(), "area_price", sub, 0, ectx); amount != nil {
		t.Fatalf("expected formulas built on a disabled one to have no value, got %v", *amount)
	}

	got, err := calc.Breakdown(context.Background(), sub, ectx)
	if err != nil {
		t.Fatalf("Breakdown returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"area", "area_price", "loop", "broken"}, got.Unknown); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]float64{"size": 2, "item_share": 5}, got.Amounts()); diff != "" {
		t.Fatalf("amounts mismatch (-want +got):\n%s", diff)
	}
	if got.UnitPrice != 57 {
		t.Fatalf("expected unit price 57, got %v", got.UnitPrice)
	}
}

func TestBreakdownExcludeBasePriceAndRounding(t *testing.T) {
	t.Parallel()

	custom := testsupport.Formula("custom", "[len] / 3",
		testsupport.Var("len", "length", model.VariableKindNumber, ""))
	custom.Settings.Formula.ExcludeBasePrice = true
	group := testsupport.Group("g", testsupport.Number("length"), custom)

	calc := New(group, WithPriceDecimals(2))
	ectx := testsupport.Context(testsupport.Item("rope", 99))
	got, err := calc.Breakdown(context.Background(), testsupport.Submit("length", "10"), ectx)
	if err != nil {
		t.Fatalf("Breakdown returned error: %v", err)
	}
	if !got.ExcludeBasePrice {
		t.Fatalf("expected base price to be excluded")
	}
	if got.UnitPrice != 3.33 || got.Total != 3.33 {
		t.Fatalf("expected rounded unit 3.33, got unit=%v total=%v", got.UnitPrice, got.Total)
	}
}

func TestTaxSensitivity(t *testing.T) {
	t.Parallel()

	group := fixtureGroup()
	nested := testsupport.Formula("nested_share", "[share] + 1",
		testsupport.Var("share", "item_share", model.VariableKindFormula, ""))
	sized := testsupport.Formula("sized", "[size] * 3",
		testsupport.Var("size", "size", model.VariableKindChoice, "count"))
	upload := model.Option{ID: "upload", Type: model.OptionTypeFile}
	bySize := testsupport.Formula("by_size", "[bytes] / 1000",
		testsupport.Var("bytes", "upload", model.VariableKindFile, "size"))
	group.Options = append(group.Options, nested, sized, upload, bySize)

	got := map[string]bool{}
	for _, id := range []string{"area", "area_price", "item_share", "nested_share", "sized", "by_size", "loop"} {
		got[id] = TaxSensitive(group, id)
	}
	want := map[string]bool{
		"area":         false,
		"area_price":   false,
		"item_share":   true,
		"nested_share": true,
		"sized":        true,
		"by_size":      false,
		"loop":         false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tax sensitivity mismatch (-want +got):\n%s", diff)
	}

	if !NetworkDependent(group, "by_size") || NetworkDependent(group, "area") {
		t.Fatalf("expected only by_size to depend on remote file sizes")
	}
}

func TestEvaluatePriceIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	calc := New(fixtureGroup())
	ectx := testsupport.Context(testsupport.Item("frame", 50))

	properties.Property("evaluating twice yields identical amounts", prop.ForAll(
		func(width, height float64, large bool) bool {
			size := "small"
			if large {
				size = "large"
			}
			sub := testsupport.Submit(
				"width", strconv.FormatFloat(width, 'f', -1, 64),
				"height", strconv.FormatFloat(height, 'f', -1, 64),
				"size", size,
			)
			for _, id := range []string{"area", "area_price", "size", "broken"} {
				first, _ := calc.EvaluatePrice(context.Background(), id, sub, 0, ectx)
				second, _ := calc.EvaluatePrice(context.Background(), id, sub, 0, ectx)
				if (first == nil) != (second == nil) {
					return false
				}
				if first != nil && (*first != *second || math.IsNaN(*first)) {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 10000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestBreakdownGolden(t *testing.T) {
	t.Parallel()

	group := testsupport.MustLoadGroup(t, "testdata/frame.yaml")
	calc := New(group)
	sub := testsupport.Submit("width", "10", "height", "20", "finish", "gloss", "engraving", "Hello", "mounting", "hooks")
	sub.Quantity = 3

	got, err := calc.Breakdown(context.Background(), sub, testsupport.Context(testsupport.Item("frame", 50)))
	if err != nil {
		t.Fatalf("Breakdown returned error: %v", err)
	}

	const golden = "testdata/frame_breakdown.golden.json"
	testsupport.WriteGolden(t, golden, got)
	data, err := os.ReadFile(golden)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var want Breakdown
	if err := json.Unmarshal(data, &want); err != nil {
		t.Fatalf("decode golden: %v", err)
	}
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
}
