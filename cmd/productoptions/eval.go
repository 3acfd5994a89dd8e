package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	productoptions "github.com/goliatone/go-productoptions"
	"github.com/goliatone/go-productoptions/internal/catalog"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/validation"
)

type evalReport struct {
	Item       string                   `json:"item"`
	Visibility map[string]bool          `json:"visibility"`
	Prices     map[string]*float64      `json:"prices"`
	Breakdown  productoptions.Breakdown `json:"breakdown"`
	Issues     []validation.Issue       `json:"issues,omitempty"`
}

func newEvalCmd(a *app) *cobra.Command {
	var (
		submissionPath string
		values         []string
		quantity       float64
		authoritative  bool
	)
	cmd := &cobra.Command{
		Use:   "eval ITEM",
		Short: "Print visibility and prices of an item for one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := readSubmission(submissionPath, values)
			if err != nil {
				return err
			}
			if quantity > 0 {
				sub.Quantity = quantity
			}
			store, err := a.catalog()
			if err != nil {
				return err
			}
			role := model.RolePresentation
			if authoritative {
				role = model.RoleAuthoritative
			}
			report, err := a.evaluate(cmd.Context(), store, args[0], sub, role)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVarP(&submissionPath, "submission", "s", "", "JSON or YAML submission file")
	cmd.Flags().StringArrayVar(&values, "set", nil, "option value as id=value (repeatable)")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "line quantity")
	cmd.Flags().BoolVar(&authoritative, "authoritative", false, "evaluate in the authoritative context")
	return cmd
}

func (a *app) evaluate(ctx context.Context, store *catalog.Store, itemID string, sub model.Submission, role model.Role) (evalReport, error) {
	item, err := store.Item(ctx, itemID)
	if err != nil {
		return evalReport{}, err
	}
	group, err := store.Group(ctx, itemID)
	if err != nil {
		return evalReport{}, err
	}
	ectx, err := a.context(role)
	if err != nil {
		return evalReport{}, err
	}
	ectx.Item = item

	engine := productoptions.New(group,
		productoptions.WithContext(ectx),
		productoptions.WithLogger(a.logger),
		productoptions.WithPriceDecimals(a.cfg.Store.PriceDecimals),
	)
	report := evalReport{
		Item:       item.ID,
		Visibility: engine.Visibility(ctx, sub),
		Prices:     make(map[string]*float64, len(group.Options)),
		Issues:     engine.Validate().Issues,
	}
	for _, opt := range group.Options {
		amount, err := engine.EvaluatePrice(ctx, opt.ID, sub, 0)
		if err != nil {
			a.logger.Debug("no price", "option", opt.ID, "error", err)
		}
		if amount != nil || opt.Type == model.OptionTypeFormula {
			report.Prices[opt.ID] = amount
		}
	}
	report.Breakdown, err = engine.Commit(ctx, sub)
	if err != nil {
		return evalReport{}, err
	}
	return report, nil
}

// readSubmission loads path (JSON is valid YAML) and applies id=value pairs on
// top. Repeated ids collect multiple values.
func readSubmission(path string, pairs []string) (model.Submission, error) {
	var sub model.Submission
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Submission{}, fmt.Errorf("read submission: %w", err)
		}
		if err := yaml.Unmarshal(data, &sub); err != nil {
			return model.Submission{}, fmt.Errorf("parse submission %s: %w", path, err)
		}
	}
	if sub.Values == nil {
		sub.Values = map[string][]string{}
	}
	overridden := map[string]bool{}
	for _, pair := range pairs {
		id, val, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return model.Submission{}, fmt.Errorf("invalid --set %q: want id=value", pair)
		}
		if !overridden[id] {
			sub.Values[id] = nil
			overridden[id] = true
		}
		sub.Values[id] = append(sub.Values[id], strings.TrimSpace(val))
	}
	return sub, nil
}
