package productoptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/testsupport"
)

func frameGroup() model.Group {
	return testsupport.Group("frame-options",
		testsupport.Number("width"),
		testsupport.Number("height"),
		testsupport.Radio("finish",
			testsupport.Choice("matte", 0),
			testsupport.PricedChoice("gloss", model.PriceTypeFixed, 4)),
		testsupport.Show(testsupport.Text("engraving"), model.RelationAnd,
			testsupport.When("finish", model.OperatorEquals, "gloss")),
		testsupport.Formula("area", "[w] * [h] / 100",
			testsupport.Var("w", "width", model.VariableKindNumber, ""),
			testsupport.Var("h", "height", model.VariableKindNumber, "")),
		testsupport.Formula("insurance", "[price] * 0.1",
			testsupport.Var("price", "price", model.VariableKindProperty, "")),
		testsupport.Formula("broken", "[w] *", testsupport.Var("w", "width", model.VariableKindNumber, "")),
	)
}

func TestEngineVisibilityAndPrice(t *testing.T) {
	t.Parallel()

	item := testsupport.Item("frame", 50)
	engine := New(frameGroup(), WithContext(testsupport.Context(item)))
	ctx := context.Background()
	sub := testsupport.Submit("width", "10", "height", "20", "finish", "matte")

	visible, err := engine.EvaluateVisibility(ctx, "engraving", sub)
	if err != nil || visible {
		t.Fatalf("expected engraving hidden for matte, got %v (err=%v)", visible, err)
	}
	if !engine.Visibility(ctx, sub.With("finish", "gloss"))["engraving"] {
		t.Fatalf("expected engraving visible for gloss")
	}

	amount, err := engine.EvaluatePrice(ctx, "area", sub, 1)
	if err != nil || amount == nil || *amount != 2 {
		t.Fatalf("expected area 2, got %v (err=%v)", amount, err)
	}

	if _, err := engine.EvaluateVisibility(ctx, "ghost", sub); err == nil {
		t.Fatalf("expected an error for an unknown option")
	}
}

func TestEngineDisablesBrokenFormulas(t *testing.T) {
	t.Parallel()

	engine := New(frameGroup(), WithContext(testsupport.Context(testsupport.Item("frame", 50))))
	if engine.Validate().Valid {
		t.Fatalf("expected the broken formula to invalidate the group")
	}
	if diff := cmp.Diff([]string{"broken"}, engine.Validate().Disabled()); diff != "" {
		t.Fatalf("disabled mismatch (-want +got):\n%s", diff)
	}

	amount, err := engine.EvaluatePrice(context.Background(), "broken", testsupport.Submit("width", "3"), 1)
	if amount != nil || !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled and no amount, got %v (err=%v)", amount, err)
	}

	preview := engine.PreviewOrDefer(context.Background(), []string{"area", "broken"}, testsupport.Submit("width", "10", "height", "10"))
	if len(preview.Immediate) != 1 || preview.Immediate[0].OptionID != "area" {
		t.Fatalf("expected only area to be previewed, got %+v", preview.Immediate)
	}
}

func TestEngineDefersUnderTaxConflict(t *testing.T) {
	t.Parallel()

	group := frameGroup()
	item := testsupport.Item("frame", 50)
	ectx := testsupport.Context(item)
	ectx.TaxConflict = true
	authority := coordinator.NewLocalAuthority(testsupport.Catalog(group, item), testsupport.Context(model.Item{}))

	engine := New(group, WithContext(ectx), WithAuthority(authority), WithPriceDecimals(2))
	sub := testsupport.Submit("width", "10", "height", "20", "finish", "gloss")

	preview := engine.PreviewOrDefer(context.Background(), []string{"area", "insurance"}, sub)
	if preview.Pending == nil {
		t.Fatalf("expected insurance to be deferred")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	amounts, err := preview.Pending.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(amounts) != 1 || amounts[0].Amount == nil || *amounts[0].Amount != 5 {
		t.Fatalf("expected insurance 5, got %+v", amounts)
	}
	if engine.State().CheckoutBlocked() {
		t.Fatalf("expected checkout to be allowed after the round-trip")
	}

	breakdown, err := engine.Commit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	// gloss 4 + area 2 + insurance 5
	if breakdown.Adjustments != 11 || breakdown.UnitPrice != 61 {
		t.Fatalf("unexpected breakdown %+v", breakdown)
	}
}

func TestEngineCommitSkipsDisabledFormulas(t *testing.T) {
	t.Parallel()

	group := testsupport.Group("g",
		testsupport.Radio("size", testsupport.Choice("small", 5), testsupport.Choice("large", 8)),
		testsupport.Formula("fee", "[s] * 2",
			testsupport.Var("s", "size", model.VariableKindNumber, "")),
	)
	engine := New(group, WithContext(testsupport.Context(testsupport.Item("frame", 10))))
	if diff := cmp.Diff([]string{"fee"}, engine.Validate().Disabled()); diff != "" {
		t.Fatalf("disabled mismatch (-want +got):\n%s", diff)
	}

	breakdown, err := engine.Commit(context.Background(), testsupport.Submit("size", "small"))
	if err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if _, charged := breakdown.Amounts()["fee"]; charged {
		t.Fatalf("expected the disabled formula to add nothing, got %+v", breakdown.Entries)
	}
	if diff := cmp.Diff([]string{"fee"}, breakdown.Unknown); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}
	if breakdown.Total != 10 {
		t.Fatalf("expected the base price only, got %+v", breakdown)
	}
}
