package value

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/testsupport"
)

func TestResolverChoicePaths(t *testing.T) {
	t.Parallel()

	resolver := NewResolver()
	opt := testsupport.Checkbox("extras",
		testsupport.Choice("gift", 5),
		testsupport.Choice("rush", 12),
		testsupport.Choice("card", 2),
	)
	sub := testsupport.Submit("extras", "gift", "extras", "CARD")
	ectx := testsupport.Context(testsupport.Item("mug", 20))

	v := resolver.Resolve(context.Background(), opt, sub, ectx)
	got := map[string]float64{}
	for _, path := range []string{"count", "sum", "min", "max", "any", "all", "none", "choices.choice1.checked", "choices.choice2.checked", "choices.choice2.value", "choices.choice3.value"} {
		n, ok := v.Path(path)
		if !ok {
			t.Fatalf("path %q not numeric", path)
		}
		got[path] = n
	}
	want := map[string]float64{
		"count":                   2,
		"sum":                     7,
		"min":                     2,
		"max":                     5,
		"any":                     1,
		"all":                     0,
		"none":                    0,
		"choices.choice1.checked": 1,
		"choices.choice2.checked": 0,
		"choices.choice2.value":   0,
		"choices.choice3.value":   2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("choice paths mismatch (-want +got):\n%s", diff)
	}
	if resolver.DefaultPath(opt) != "sum" {
		t.Fatalf("expected multi-choice default path sum, got %q", resolver.DefaultPath(opt))
	}
}

func TestResolverSingleChoiceKeepsFirstSelection(t *testing.T) {
	t.Parallel()

	resolver := NewResolver()
	opt := testsupport.Radio("size", testsupport.Choice("s", 1), testsupport.Choice("l", 3))
	sub := testsupport.Submit("size", "l", "size", "s")

	v := resolver.Resolve(context.Background(), opt, sub, testsupport.Context(model.Item{}))
	n, ok := v.Path(resolver.DefaultPath(opt))
	if !ok || n != 3 {
		t.Fatalf("expected value 3, got %v (ok=%v)", n, ok)
	}
	if count, _ := v.Path("count"); count != 1 {
		t.Fatalf("expected count 1, got %v", count)
	}
}

func TestResolverTextMetrics(t *testing.T) {
	t.Parallel()

	resolver := NewResolver()
	text := testsupport.Text("engraving")
	sub := testsupport.Submit("engraving", "  Hello   <b>big</b> world ")
	v := resolver.Resolve(context.Background(), text, sub, model.EvaluationContext{})

	if n, _ := v.Path("characters"); n != 15 {
		t.Fatalf("expected 15 characters, got %v", n)
	}
	if n, _ := v.Path("words"); n != 3 {
		t.Fatalf("expected 3 words, got %v", n)
	}

	text.Settings.ExcludeSpaces = true
	v = resolver.Resolve(context.Background(), text, sub, model.EvaluationContext{})
	if n, _ := v.Path("characters"); n != 13 {
		t.Fatalf("expected 13 characters without spaces, got %v", n)
	}

	area := model.Option{ID: "notes", Type: model.OptionTypeTextarea}
	v = resolver.Resolve(context.Background(), area, testsupport.Submit("notes", "one\ntwo\r\nthree"), model.EvaluationContext{})
	if n, _ := v.Path("lines"); n != 3 {
		t.Fatalf("expected 3 lines, got %v", n)
	}
}

func TestResolverDateFields(t *testing.T) {
	t.Parallel()

	resolver := NewResolver()
	opt := model.Option{ID: "delivery", Type: model.OptionTypeDate}
	ectx := testsupport.Context(model.Item{})
	v := resolver.Resolve(context.Background(), opt, testsupport.Submit("delivery", "2024-05-12"), ectx)

	got := map[string]float64{}
	for _, path := range []string{"daycount", "weekday", "day", "month", "year"} {
		got[path], _ = v.Path(path)
	}
	want := map[string]float64{"daycount": 7, "weekday": 7, "day": 12, "month": 5, "year": 2024}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("date fields mismatch (-want +got):\n%s", diff)
	}

	ectx.FirstDayOfWeek = time.Sunday
	v = resolver.Resolve(context.Background(), opt, testsupport.Submit("delivery", "2024-05-12"), ectx)
	if n, _ := v.Path("weekday"); n != 1 {
		t.Fatalf("expected Sunday to be day 1 when the week starts on Sunday, got %v", n)
	}
}

func TestResolverFileSizeOnlyInAuthoritativeContext(t *testing.T) {
	t.Parallel()

	resolver := NewResolver()
	opt := model.Option{ID: "artwork", Type: model.OptionTypeFile}
	sub := model.Submission{Files: map[string][]model.File{
		"artwork": {{Name: "a.png", Size: 100}, {Name: "b.png", URL: "https://cdn.example/b.png"}},
	}}
	ectx := testsupport.Context(model.Item{})
	ectx.Files = model.FileSizerFunc(func(context.Context, model.File) (int64, error) {
		return 50, nil
	})

	v := resolver.Resolve(context.Background(), opt, sub, ectx)
	if n, _ := v.Path("count"); n != 2 {
		t.Fatalf("expected count 2, got %v", n)
	}
	if _, ok := v.Path("size"); ok {
		t.Fatalf("expected size to be unavailable in the presentation context")
	}

	v = resolver.Resolve(context.Background(), opt, sub, ectx.WithRole(model.RoleAuthoritative))
	if n, ok := v.Path("size"); !ok || n != 150 {
		t.Fatalf("expected size 150, got %v (ok=%v)", n, ok)
	}
}

func TestResolverProductAggregates(t *testing.T) {
	t.Parallel()

	resolver := NewResolver()
	opt := model.Option{ID: "addons", Type: model.OptionTypeProduct, Settings: model.Settings{Multiple: true, ProductIDs: []string{"a", "b", "c"}}}
	sub := testsupport.Submit("addons", "a", "addons", "b")
	sub.Products = map[string]model.Item{
		"a": {ID: "a", Price: 4},
		"b": {ID: "b", Price: 10},
	}
	v := resolver.Resolve(context.Background(), opt, sub, model.EvaluationContext{})

	got := map[string]float64{}
	for _, path := range []string{"count", "min", "max", "total", "all", "none"} {
		got[path], _ = v.Path(path)
	}
	want := map[string]float64{"count": 2, "min": 4, "max": 10, "total": 14, "all": 0, "none": 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("product aggregates mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverNestedFormula(t *testing.T) {
	t.Parallel()

	opt := testsupport.Formula("inner", "1")
	failing := NewResolver()
	v := failing.Resolve(context.Background(), opt, model.Submission{}, model.EvaluationContext{})
	if v.Available() {
		t.Fatalf("expected unavailable value without a formula evaluator")
	}
	if _, ok := v.Path(""); ok {
		t.Fatalf("expected path lookups on unavailable values to fail")
	}

	wired := NewResolver(WithFormulaEvaluator(func(context.Context, model.Option, model.Submission, model.EvaluationContext) (float64, bool) {
		return 42, true
	}))
	v = wired.Resolve(context.Background(), opt, model.Submission{}, model.EvaluationContext{})
	if n, ok := v.Path(""); !ok || n != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", n, ok)
	}
}

func TestNumberParsing(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{"12": 12, " 3.5 ": 3.5, "2,5": 2.5, "abc": 0, "": 0}
	for raw, want := range cases {
		if got := ParseNumber(raw); got != want {
			t.Fatalf("ParseNumber(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestPropertyAndMetaLookup(t *testing.T) {
	t.Parallel()

	variationPrice := 25.0
	item := testsupport.Item("shirt", 20)
	item.Attributes = map[string][]string{"Size": {"10", "12"}}
	item.Meta = map[string]string{"_base": "3"}
	item.Variations = []model.Variation{{
		ID:         "v1",
		Price:      &variationPrice,
		Attributes: map[string]string{"size": "14"},
		Meta:       map[string]string{"extra": "9"},
	}}
	ectx := testsupport.Context(item)
	sub := model.Submission{VariationID: "v1"}

	if n, _ := Property(PropertyPrice, sub, ectx); n != 25 {
		t.Fatalf("expected variation price 25, got %v", n)
	}
	if n, _ := Property(PropertyQuantity, sub, ectx); n != 1 {
		t.Fatalf("expected default quantity 1, got %v", n)
	}
	if n, ok := Property("attribute:size", sub, ectx); !ok || n != 14 {
		t.Fatalf("expected variation attribute 14, got %v (ok=%v)", n, ok)
	}

	if v, ok := Meta("_base", sub, ectx); !ok || v != "3" {
		t.Fatalf("expected item meta 3, got %q (ok=%v)", v, ok)
	}
	if v, ok := Meta("_extra", sub, ectx); !ok || v != "9" {
		t.Fatalf("expected variation fallback 9, got %q (ok=%v)", v, ok)
	}
	if _, ok := Meta("extra", sub, ectx); ok {
		t.Fatalf("expected non-prefixed key to skip the variation fallback")
	}
}

func TestMetaCaseInsensitiveLookupIsDeterministic(t *testing.T) {
	t.Parallel()

	item := testsupport.Item("shirt", 20)
	item.Meta = map[string]string{"Rate": "1", "RATE": "2", "rAtE": " "}
	ectx := testsupport.Context(item)

	for i := 0; i < 50; i++ {
		if v, ok := Meta("rate", model.Submission{}, ectx); !ok || v != "2" {
			t.Fatalf("run %d: expected the first sorted key RATE, got %q (ok=%v)", i, v, ok)
		}
	}
	if v, _ := Meta("Rate", model.Submission{}, ectx); v != "1" {
		t.Fatalf("expected the exact key to win, got %q", v)
	}
}
