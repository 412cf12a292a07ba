package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docsage/internal/app"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a release note from a design document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd, opts, file, func(ctx context.Context, a *app.App, input string) (string, error) {
				return a.Pipeline.Draft(ctx, input)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "design document to draft from (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review an edited release note against past review comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd, opts, file, func(ctx context.Context, a *app.App, input string) (string, error) {
				return a.Pipeline.Review(ctx, input)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "release note to review (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runWorkflow(
	cmd *cobra.Command,
	opts *rootOptions,
	file string,
	fn func(ctx context.Context, a *app.App, input string) (string, error),
) error {
	input, err := readInput(cmd, file)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := fn(ctx, a, input)
	if err != nil {
		return err
	}
	cmd.Println(text)
	return nil
}
