package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	productoptions "github.com/goliatone/go-productoptions"
	"github.com/goliatone/go-productoptions/internal/catalog"
	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
	"github.com/goliatone/go-productoptions/pkg/prompt"
	"github.com/goliatone/go-productoptions/pkg/transport"
)

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview ITEM",
		Short: "Configure an item interactively and watch its price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.catalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.preview(cmd.Context(), store, args[0], prompt.NewSurveyDriver(out), out)
		},
	}
}

func (a *app) preview(ctx context.Context, store *catalog.Store, itemID string, driver prompt.Driver, out io.Writer) error {
	item, err := store.Item(ctx, itemID)
	if err != nil {
		return err
	}
	group, err := store.Group(ctx, itemID)
	if err != nil {
		return err
	}
	ectx, err := a.context(model.RolePresentation)
	if err != nil {
		return err
	}
	ectx.Item = item
	authority, err := a.authority(store)
	if err != nil {
		return err
	}

	engine := productoptions.New(group,
		productoptions.WithContext(ectx),
		productoptions.WithAuthority(authority),
		productoptions.WithLogger(a.logger),
		productoptions.WithPriceDecimals(a.cfg.Store.PriceDecimals),
	)
	var formulas []string
	for _, opt := range group.Options {
		if opt.Type == model.OptionTypeFormula {
			formulas = append(formulas, opt.ID)
		}
	}

	session := prompt.NewSession(engine.Calculator(), ectx,
		prompt.WithDriver(driver),
		prompt.WithCatalog(store),
		prompt.WithLogger(a.logger),
		prompt.WithAfterAnswer(func(ctx context.Context, sub model.Submission) {
			if len(formulas) > 0 {
				a.printPreview(ctx, out, engine, formulas, sub)
			}
		}),
	)
	fmt.Fprintf(out, "%s (%s)\n", item.Name, formatPrice(item.Price))
	sub, err := session.Run(ctx)
	if err != nil {
		return err
	}

	breakdown, err := engine.Commit(ctx, sub)
	if err != nil {
		return err
	}
	printBreakdown(out, breakdown)
	return nil
}

// authority prefers the configured remote server and falls back to an
// in-process authoritative context over the same catalog.
func (a *app) authority(store *catalog.Store) (coordinator.Authority, error) {
	if a.cfg.Server.AuthorityURL != "" {
		return transport.NewClient(a.cfg.Server.AuthorityURL, transport.WithTimeout(a.cfg.Server.Timeout))
	}
	ectx, err := a.context(model.RoleAuthoritative)
	if err != nil {
		return nil, err
	}
	return coordinator.NewLocalAuthority(store, ectx,
		coordinator.WithPricingOptions(pricing.WithPriceDecimals(a.cfg.Store.PriceDecimals)),
		coordinator.WithAuthorityLogger(a.logger),
	), nil
}

func (a *app) printPreview(ctx context.Context, out io.Writer, engine *productoptions.Engine, formulas []string, sub model.Submission) {
	preview := engine.PreviewOrDefer(ctx, formulas, sub)
	lines := map[string]string{}
	for _, amount := range preview.Immediate {
		lines[amount.OptionID] = amountText(amount.Amount)
	}
	if preview.Pending != nil {
		waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.Timeout)
		amounts, err := preview.Pending.Wait(waitCtx)
		cancel()
		if err != nil {
			for _, id := range preview.Pending.Formulas() {
				lines[id] = "pending"
			}
			a.logger.Warn("authoritative prices unavailable", "error", err)
		}
		for _, amount := range amounts {
			lines[amount.OptionID] = amountText(amount.Amount) + " (authoritative)"
		}
	}

	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s = %s\n", id, lines[id])
	}
	if engine.State().CheckoutBlocked() {
		fmt.Fprintln(out, "  checkout blocked until prices are confirmed")
	}
}

func printBreakdown(out io.Writer, b productoptions.Breakdown) {
	fmt.Fprintln(out, "---")
	for _, entry := range b.Entries {
		if entry.Amount == nil {
			fmt.Fprintf(out, "%-20s unknown\n", entry.OptionID)
			continue
		}
		fmt.Fprintf(out, "%-20s %s\n", entry.OptionID, formatPrice(*entry.Amount))
	}
	if !b.ExcludeBasePrice {
		fmt.Fprintf(out, "%-20s %s\n", "base price", formatPrice(b.BasePrice))
	}
	fmt.Fprintf(out, "%-20s %s\n", "unit price", formatPrice(b.UnitPrice))
	fmt.Fprintf(out, "%-20s %s (qty %s)\n", "total", formatPrice(b.Total), strconv.FormatFloat(b.Quantity, 'f', -1, 64))
}

func amountText(amount *float64) string {
	if amount == nil {
		return "-"
	}
	return formatPrice(*amount)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
