package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-productoptions/pkg/validation"
)

// errLintFailed is returned after violations were printed.
var errLintFailed = errors.New("lint failed")

type violation struct {
	group string
	issue validation.Issue
}

func newLintCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint [catalog-dir]",
		Short: "Report definition errors in every option group of a catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Catalog = args[0]
			}
			store, err := a.catalog()
			if err != nil {
				return err
			}

			var (
				violations []violation
				failed     bool
			)
			for _, group := range store.Groups() {
				result := validation.ValidateGroup(group)
				for _, issue := range result.Issues {
					violations = append(violations, violation{group: group.ID, issue: issue})
					if issue.Severity == validation.SeverityError || strict {
						failed = true
					}
				}
			}

			sort.SliceStable(violations, func(i, j int) bool {
				if violations[i].group != violations[j].group {
					return violations[i].group < violations[j].group
				}
				if violations[i].issue.OptionID != violations[j].issue.OptionID {
					return violations[i].issue.OptionID < violations[j].issue.OptionID
				}
				return violations[i].issue.Field < violations[j].issue.Field
			})
			out := cmd.OutOrStdout()
			for _, v := range violations {
				fmt.Fprintf(out, "%s: %s\n", v.group, v.issue)
			}
			if failed {
				return errLintFailed
			}
			fmt.Fprintf(out, "%d groups checked, %d warnings\n", len(store.Groups()), len(violations))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}
