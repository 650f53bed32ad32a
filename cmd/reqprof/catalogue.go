package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/reqprof/internal/app"
	"codeberg.org/mutker/reqprof/internal/errors"
)

func newCatalogueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogue",
		Short: "List the demo catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, ok := app.ScopeFrom(cmd.Context())
			if !ok {
				return errors.New().WithMessage(errors.ErrCommandFailed, "command runs outside of an application scope")
			}

			products, err := listProducts(cmd.Context(), scope)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SKU\tNAME\tSTOCK")
			for _, p := range products {
				fmt.Fprintf(w, "%v\t%v\t%v\n", p["sku"], p["name"], p["stock"])
			}
			return w.Flush()
		},
	}
}
