package visibility

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/testsupport"
)

func TestEvaluatorRelationAndVisibility(t *testing.T) {
	t.Parallel()

	conditions := []model.Condition{
		testsupport.When("size", model.OperatorEquals, "large"),
		testsupport.When("size", model.OperatorEquals, "small"),
	}
	size := testsupport.Radio("size", model.Choice{ID: "large", Label: "Large"}, model.Choice{ID: "small", Label: "Small"})
	shown := testsupport.Show(testsupport.Text("shown"), model.RelationOr, conditions...)
	hidden := testsupport.Hide(testsupport.Text("hidden"), model.RelationOr, conditions...)
	both := testsupport.Show(testsupport.Text("both"), model.RelationAnd, conditions...)

	eval := New(testsupport.Group("g", size, shown, hidden, both), nil)
	got := eval.Map(context.Background(), testsupport.Submit("size", "large"), testsupport.Context(model.Item{}))

	want := map[string]bool{"size": true, "shown": true, "hidden": false, "both": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("visibility mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorHiddenReferenceUsesAbsentSemantics(t *testing.T) {
	t.Parallel()

	gate := testsupport.Radio("gate", model.Choice{ID: "on"}, model.Choice{ID: "off"})
	detail := testsupport.Show(testsupport.Text("detail"), model.RelationAnd,
		testsupport.When("gate", model.OperatorEquals, "on"))
	notEquals := testsupport.Show(testsupport.Text("ne"), model.RelationAnd,
		testsupport.When("detail", model.OperatorNotEquals, "hello"))
	equals := testsupport.Show(testsupport.Text("eq"), model.RelationAnd,
		testsupport.When("detail", model.OperatorEquals, "hello"))
	empty := testsupport.Show(testsupport.Text("empty"), model.RelationAnd,
		testsupport.When("detail", model.OperatorEmpty, ""))

	eval := New(testsupport.Group("g", gate, detail, notEquals, equals, empty), nil)
	// detail carries a stale value but is hidden, so the value is never read.
	sub := testsupport.Submit("gate", "off", "detail", "hello")
	got := eval.Map(context.Background(), sub, testsupport.Context(model.Item{}))

	want := map[string]bool{"gate": true, "detail": false, "ne": true, "eq": false, "empty": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("visibility mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorSelfReferenceTerminates(t *testing.T) {
	t.Parallel()

	self := testsupport.Show(testsupport.Text("a"), model.RelationAnd,
		testsupport.When("a", model.OperatorNotEmpty, ""))
	eval := New(testsupport.Group("g", self), nil)
	ectx := testsupport.Context(model.Item{})

	visible, err := eval.Decide(context.Background(), "a", testsupport.Submit("a", "x"), ectx)
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if !visible {
		t.Fatalf("expected a visible when it has a value")
	}
	visible, _ = eval.Decide(context.Background(), "a", model.Submission{}, ectx)
	if visible {
		t.Fatalf("expected a hidden when it is empty")
	}
}

func TestEvaluatorTwoHopCycle(t *testing.T) {
	t.Parallel()

	// a depends on b and b depends on a. Each nested decision excludes its
	// immediate caller, so both chains terminate after one hop.
	a := testsupport.Show(testsupport.Text("a"), model.RelationAnd,
		testsupport.When("b", model.OperatorEquals, "yes"))
	b := testsupport.Show(testsupport.Text("b"), model.RelationAnd,
		testsupport.When("a", model.OperatorNotEmpty, ""))
	eval := New(testsupport.Group("g", a, b), nil)
	ectx := testsupport.Context(model.Item{})

	got := eval.Map(context.Background(), testsupport.Submit("a", "text", "b", "yes"), ectx)
	if diff := cmp.Diff(map[string]bool{"a": true, "b": true}, got); diff != "" {
		t.Fatalf("visibility mismatch (-want +got):\n%s", diff)
	}

	got = eval.Map(context.Background(), testsupport.Submit("b", "yes"), ectx)
	if diff := cmp.Diff(map[string]bool{"a": true, "b": false}, got); diff != "" {
		t.Fatalf("visibility mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorDeepCycleFallsBackToVisible(t *testing.T) {
	t.Parallel()

	a := testsupport.Show(testsupport.Text("a"), model.RelationAnd, testsupport.When("b", model.OperatorEquals, "yes"))
	b := testsupport.Show(testsupport.Text("b"), model.RelationAnd, testsupport.When("c", model.OperatorEquals, "yes"))
	c := testsupport.Show(testsupport.Text("c"), model.RelationAnd, testsupport.When("a", model.OperatorEquals, "yes"))
	eval := New(testsupport.Group("g", a, b, c), nil)
	ectx := testsupport.Context(model.Item{})

	got := eval.Map(context.Background(), testsupport.Submit("a", "yes", "b", "yes", "c", "yes"), ectx)
	if diff := cmp.Diff(map[string]bool{"a": true, "b": true, "c": true}, got); diff != "" {
		t.Fatalf("visibility mismatch (-want +got):\n%s", diff)
	}

	visible, err := eval.Decide(context.Background(), "a", testsupport.Submit("a", "yes", "b", "yes", "c", "no"), ectx)
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if visible {
		t.Fatalf("expected a hidden once c breaks the chain")
	}
}

func TestEvaluatorItemProperties(t *testing.T) {
	t.Parallel()

	item := testsupport.Item("poster", 20)
	item.Attributes = map[string][]string{"color": {"Red", "Blue"}}

	expensive := testsupport.Show(testsupport.Text("expensive"), model.RelationAnd,
		testsupport.When(model.PropertyPrice, model.OperatorGreater, "10"))
	heavy := testsupport.Show(testsupport.Text("heavy"), model.RelationAnd,
		testsupport.When(model.PropertyWeight, model.OperatorGreater, "5"))
	red := testsupport.Show(testsupport.Text("red"), model.RelationAnd,
		testsupport.When("attribute:color", model.OperatorContains, "red"))
	green := testsupport.Show(testsupport.Text("green"), model.RelationAnd,
		testsupport.When("attribute:color", model.OperatorContains, "green"))

	eval := New(testsupport.Group("g", expensive, heavy, red, green), nil)
	got := eval.Map(context.Background(), model.Submission{}, testsupport.Context(item))

	want := map[string]bool{"expensive": true, "heavy": false, "red": true, "green": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("visibility mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorUnknownOption(t *testing.T) {
	t.Parallel()

	eval := New(testsupport.Group("g"), nil)
	_, err := eval.Decide(context.Background(), "missing", model.Submission{}, model.EvaluationContext{})
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
}

func TestOperators(t *testing.T) {
	t.Parallel()

	extras := testsupport.Checkbox("extras", testsupport.Choice("gift", 5), testsupport.Choice("rush", 10))
	qty := testsupport.Number("qty")
	date := model.Option{ID: "date", Type: model.OptionTypeDate}
	name := testsupport.Text("name")

	cases := []struct {
		name string
		cond model.Condition
		sub  model.Submission
		want bool
	}{
		{"multi contains", testsupport.When("extras", model.OperatorContains, "rush"), testsupport.Submit("extras", "gift", "extras", "rush"), true},
		{"multi contains label", testsupport.When("extras", model.OperatorContains, "GIFT"), testsupport.Submit("extras", "gift"), true},
		{"multi not contains", testsupport.When("extras", model.OperatorNotContains, "rush"), testsupport.Submit("extras", "gift"), true},
		{"multi any", testsupport.When("extras", model.OperatorEquals, "any"), testsupport.Submit("extras", "gift"), true},
		{"multi any empty", testsupport.When("extras", model.OperatorEquals, "any"), model.Submission{}, false},
		{"multi not any", testsupport.When("extras", model.OperatorNotEquals, "any"), model.Submission{}, true},
		{"multi empty", testsupport.When("extras", model.OperatorEmpty, ""), model.Submission{}, true},
		{"single any always", testsupport.When("name", model.OperatorEquals, "any"), model.Submission{}, true},
		{"single not any", testsupport.When("name", model.OperatorNotEquals, "any"), testsupport.Submit("name", "x"), false},
		{"single equals", testsupport.When("name", model.OperatorEquals, "Ada"), testsupport.Submit("name", "ada"), true},
		{"single not empty", testsupport.When("name", model.OperatorNotEmpty, ""), testsupport.Submit("name", "ada"), true},
		{"greater", testsupport.When("qty", model.OperatorGreater, "3"), testsupport.Submit("qty", "4"), true},
		{"less", testsupport.When("qty", model.OperatorLess, "3"), testsupport.Submit("qty", "4"), false},
		{"greater non numeric", testsupport.When("qty", model.OperatorGreater, "abc"), testsupport.Submit("qty", "4"), false},
		{"date equals ignores time", testsupport.When("date", model.OperatorDateEquals, "2024-05-12 18:30"), testsupport.Submit("date", "2024-05-12"), true},
		{"date greater", testsupport.When("date", model.OperatorDateGreater, "2024-01-01"), testsupport.Submit("date", "2024-05-12"), true},
		{"date less", testsupport.When("date", model.OperatorDateLess, "2024-01-01"), testsupport.Submit("date", "2024-05-12"), false},
		{"date not equals missing", testsupport.When("date", model.OperatorDateNotEquals, "2024-01-01"), model.Submission{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			target := testsupport.Show(testsupport.Text("target"), model.RelationAnd, tc.cond)
			eval := New(testsupport.Group("g", extras, qty, date, name, target), nil)
			got, err := eval.Decide(context.Background(), "target", tc.sub, testsupport.Context(model.Item{}))
			if err != nil {
				t.Fatalf("Decide returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
