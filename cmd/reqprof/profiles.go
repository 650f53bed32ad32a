package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/profile"
)

func newProfilesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect stored profiles",
	}
	cmd.AddCommand(newProfilesListCmd(rt), newProfilesShowCmd(rt), newProfilesClearCmd(rt))
	return cmd
}

func newProfilesListCmd(rt *runtime) *cobra.Command {
	var (
		limit  int
		offset int
		method string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := profile.Query{Limit: &profile.Limit{Count: limit, Offset: offset}}
			if method != "" {
				q.Where = map[string]any{"method": method}
			}

			profiles, err := rt.repo.FindAll(cmd.Context(), q)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tMETHOD\tSTATUS\tURI")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID(), formatTime(p), p.Method(), p.StatusCode(), p.URI())
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", profile.DefaultLimit, "Maximum number of profiles")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of profiles to skip")
	cmd.Flags().StringVar(&method, "method", "", "Only list profiles of this request method")
	return cmd
}

func newProfilesShowCmd(rt *runtime) *cobra.Command {
	var collector string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := rt.repo.FindByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return errors.New().WithData(errors.ErrResourceNotFound, struct {
					ID string
				}{
					ID: args[0],
				})
			}

			var out any = p
			if collector != "" {
				data, ok := p.Collected(collector)
				if !ok {
					return errors.New().WithData(errors.ErrResourceNotFound, struct {
						Collector string
					}{
						Collector: collector,
					})
				}
				out = data
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&collector, "collector", "", "Only print the data of this collector")
	return cmd
}

func newProfilesClearCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.repo.Clear(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Profiles cleared")
			return nil
		},
	}
}

func formatTime(p *profile.Profile) string {
	ts, ok := p.Time()
	if !ok {
		return "-"
	}
	return time.Unix(ts, 0).Format(time.DateTime)
}
