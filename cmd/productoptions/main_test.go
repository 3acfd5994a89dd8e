package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-productoptions/internal/config"
	"github.com/goliatone/go-productoptions/pkg/prompt"
)

const shop = "../../internal/catalog/testdata/shop"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLintCatalog(t *testing.T) {
	out, err := run(t, "--catalog", shop, "lint")
	if err != nil {
		t.Fatalf("lint returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 groups checked") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLintReportsErrors(t *testing.T) {
	dir := t.TempDir()
	doc := `groups:
  broken:
    options:
      - id: cost
        type: formula
        settings:
          formula:
            expression: "[w] +"
            variables:
              - { name: w, optionId: ghost, kind: number }
items:
  - id: thing
    price: 1
    group: broken
`
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := run(t, "lint", dir)
	if !errors.Is(err, errLintFailed) {
		t.Fatalf("expected errLintFailed, got %v", err)
	}
	if !strings.Contains(out, "broken: error cost.settings.formula.variables[0].optionId") {
		t.Fatalf("expected the unknown option to be reported, got:\n%s", out)
	}
}

func TestEvalCommand(t *testing.T) {
	out, err := run(t, "--catalog", shop, "eval", "frame", "--set", "width=10", "--set", "height=20", "--quantity", "2")
	if err != nil {
		t.Fatalf("eval returned error: %v", err)
	}
	var report evalReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if got := report.Prices["area_cost"]; got == nil || *got != 2 {
		t.Fatalf("expected area_cost 2, got %v", got)
	}
	if got, ok := report.Prices["engraving_cost"]; !ok || got != nil {
		t.Fatalf("expected a null engraving_cost, got %v (present=%v)", got, ok)
	}
	if report.Visibility["engraving"] {
		t.Fatalf("expected engraving to be hidden")
	}
	if report.Breakdown.UnitPrice != 53 || report.Breakdown.Total != 106 {
		t.Fatalf("unexpected breakdown %+v", report.Breakdown)
	}
}

func TestEvalUnknownItem(t *testing.T) {
	if _, err := run(t, "--catalog", shop, "eval", "ghost"); err == nil {
		t.Fatalf("expected an error for an unknown item")
	}
}

func TestReadSubmission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.yaml")
	if err := os.WriteFile(path, []byte("values:\n  width: [10]\n  extras: [gift]\nquantity: 3\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	sub, err := readSubmission(path, []string{"extras=card", "extras=bow"})
	if err != nil {
		t.Fatalf("readSubmission returned error: %v", err)
	}
	if sub.First("width") != "10" || sub.Quantity != 3 {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if got := strings.Join(sub.Values["extras"], ","); got != "card,bow" {
		t.Fatalf("expected --set to replace file values, got %q", got)
	}
	if _, err := readSubmission("", []string{"novalue"}); err == nil {
		t.Fatalf("expected an error for a malformed pair")
	}
}

type answers struct {
	inputs  map[string]string
	selects map[string]int
}

func (d answers) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	return d.inputs[cfg.Message], nil
}

func (d answers) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	return d.selects[cfg.Message], nil
}

func (d answers) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	return nil, nil
}

func (d answers) TextArea(_ context.Context, cfg prompt.TextAreaConfig) (string, error) {
	return d.inputs[cfg.Message], nil
}

func (d answers) Info(context.Context, string) error {
	return nil
}

func TestPreview(t *testing.T) {
	a := &app{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	a.cfg.Catalog = shop
	store, err := a.catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	driver := answers{
		inputs:  map[string]string{"Width (cm)": "10", "Height (cm)": "20"},
		selects: map[string]int{"Finish": 1},
	}
	var out bytes.Buffer
	if err := a.preview(context.Background(), store, "frame", driver, &out); err != nil {
		t.Fatalf("preview returned error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Picture frame (50)", "area_cost = 2", "insurance = 1", "unit price           53"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}
