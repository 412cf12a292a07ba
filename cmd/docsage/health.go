package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	healthuc "github.com/kailas-cloud/docsage/internal/usecase/health"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the vector index and the model providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.Health.Check(ctx)

			names := make([]string, 0, len(report.Checks))
			for name := range report.Checks {
				names = append(names, name)
			}
			sort.Strings(names)

			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			for _, name := range names {
				res := report.Checks[name]
				mark := ok(string(res))
				if res != healthuc.CheckOK {
					mark = bad(string(res))
				}
				cmd.Printf("%-12s %s\n", name, mark)
			}

			if report.Status != healthuc.Healthy {
				return fmt.Errorf("status %s", report.Status)
			}
			cmd.Println("status       " + ok(string(report.Status)))
			return nil
		},
	}
}
