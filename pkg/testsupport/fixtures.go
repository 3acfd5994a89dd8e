package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// Now is the fixed clock used by fixture evaluation contexts (a Monday).
var Now = time.Date(2024, time.May, 6, 10, 0, 0, 0, time.UTC)

// MustLoadGroup reads a JSON or YAML option group fixture.
func MustLoadGroup(t *testing.T, path string) model.Group {
	t.Helper()

	group, err := LoadGroup(path)
	if err != nil {
		t.Fatalf("load group: %v", err)
	}
	return group
}

// LoadGroup reads an option group fixture, returning an error for callers
// managing setup outside of *testing.T.
func LoadGroup(path string) (model.Group, error) {
	if path == "" {
		return model.Group{}, errors.New("testsupport: group path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Group{}, fmt.Errorf("testsupport: read group: %w", err)
	}
	var out model.Group
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	default:
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("testsupport: unmarshal group: %w", err)
	}
	return out, nil
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a presentation evaluation context pinned to Now and bound to
// item.
func Context(item model.Item) model.EvaluationContext {
	return model.EvaluationContext{
		Now:            Now,
		Location:       time.UTC,
		FirstDayOfWeek: time.Monday,
		Role:           model.RolePresentation,
		Item:           item,
	}
}

// Item returns a catalog item with a base price and simple dimensions.
func Item(id string, price float64) model.Item {
	return model.Item{
		ID:     id,
		Name:   strings.ToUpper(id[:1]) + id[1:],
		Price:  price,
		Weight: 2,
		Width:  30,
		Length: 40,
		Height: 10,
	}
}

// Background returns a background context for tests.
func Background() context.Context {
	return context.Background()
}

// Group assembles options into a group.
func Group(id string, options ...model.Option) model.Group {
	return model.Group{ID: id, Options: options}
}

// Number returns a numeric option.
func Number(id string) model.Option {
	return model.Option{ID: id, Type: model.OptionTypeNumber, Label: id}
}

// Text returns a single-line text option.
func Text(id string) model.Option {
	return model.Option{ID: id, Type: model.OptionTypeText, Label: id}
}

// Radio returns a single-choice option with one choice per id.
func Radio(id string, choices ...model.Choice) model.Option {
	return model.Option{ID: id, Type: model.OptionTypeRadio, Label: id, Choices: choices}
}

// Checkbox returns a multi-choice option with one choice per id.
func Checkbox(id string, choices ...model.Choice) model.Option {
	return model.Option{ID: id, Type: model.OptionTypeCheckbox, Label: id, Choices: choices}
}

// Choice returns a choice with a numeric value.
func Choice(id string, value float64) model.Choice {
	v := value
	return model.Choice{ID: id, Label: strings.ToUpper(id), Value: &v}
}

// PricedChoice returns a choice that adjusts the price.
func PricedChoice(id string, priceType model.PriceType, amount float64) model.Choice {
	return model.Choice{ID: id, Label: strings.ToUpper(id), PriceType: priceType, PriceAmount: amount}
}

// Formula returns a computed-formula option.
func Formula(id, expression string, variables ...model.Variable) model.Option {
	return model.Option{
		ID:    id,
		Type:  model.OptionTypeFormula,
		Label: id,
		Settings: model.Settings{Formula: &model.Formula{
			Expression: expression,
			Variables:  variables,
		}},
	}
}

// Var binds name to an option's value at path.
func Var(name, optionID string, kind model.VariableKind, path string) model.Variable {
	return model.Variable{Name: name, OptionID: optionID, Kind: kind, Path: path}
}

// Show attaches conditional logic that shows opt when the conditions hold.
func Show(opt model.Option, relation model.Relation, conditions ...model.Condition) model.Option {
	opt.ConditionalLogic = &model.ConditionalLogic{
		Relation:   relation,
		Visibility: model.VisibilityShow,
		Conditions: conditions,
	}
	return opt
}

// Hide attaches conditional logic that hides opt when the conditions hold.
func Hide(opt model.Option, relation model.Relation, conditions ...model.Condition) model.Option {
	opt.ConditionalLogic = &model.ConditionalLogic{
		Relation:   relation,
		Visibility: model.VisibilityHide,
		Conditions: conditions,
	}
	return opt
}

// When builds a condition.
func When(optionID string, op model.Operator, literal string) model.Condition {
	return model.Condition{OptionID: optionID, Operator: op, Value: literal}
}

// Submit builds a submission from option id and value pairs.
func Submit(pairs ...string) model.Submission {
	sub := model.Submission{Values: map[string][]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		sub.Values[pairs[i]] = append(sub.Values[pairs[i]], pairs[i+1])
	}
	return sub
}

// ErrNotFound is returned by StaticCatalog for unknown item ids.
var ErrNotFound = errors.New("testsupport: not found")

// StaticCatalog serves one option group for every listed item.
type StaticCatalog struct {
	Items       map[string]model.Item
	OptionGroup model.Group
}

// Catalog returns a StaticCatalog holding items priced with group.
func Catalog(group model.Group, items ...model.Item) StaticCatalog {
	out := StaticCatalog{Items: map[string]model.Item{}, OptionGroup: group}
	for _, item := range items {
		out.Items[item.ID] = item
	}
	return out
}

// Item returns a listed item.
func (c StaticCatalog) Item(_ context.Context, id string) (model.Item, error) {
	item, ok := c.Items[id]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: item %q", ErrNotFound, id)
	}
	return item, nil
}

// Group returns the shared option group for a listed item.
func (c StaticCatalog) Group(ctx context.Context, itemID string) (model.Group, error) {
	if _, err := c.Item(ctx, itemID); err != nil {
		return model.Group{}, err
	}
	return c.OptionGroup, nil
}
