package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docsage/internal/app"
	"github.com/kailas-cloud/docsage/internal/config"
	"github.com/kailas-cloud/docsage/internal/domain"
)

// newAppFunc matches app.New so tests can inject factories.
type newAppFunc func(ctx context.Context, env string, opts app.Options) (*app.App, error)

type rootOptions struct {
	configPath string
	env        string
	newApp     newAppFunc
}

func newRootCmd(newApp newAppFunc) *cobra.Command {
	opts := &rootOptions{newApp: newApp}

	cmd := &cobra.Command{
		Use:   "docsage",
		Short: "Draft and review release notes with retrieval-augmented generation",
		Long: `docsage indexes past release notes and review comments, then uses them as
context to draft a release note from a design document or to review an edited one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(),
		"environment: local or cloud")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newReviewCmd(opts),
		newIngestCmd(opts),
		newServeCmd(opts),
		newHealthCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) open(ctx context.Context) (*app.App, error) {
	return o.newApp(ctx, o.env, app.Options{ConfigPath: o.configPath})
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrInvalidArgument, path)
	}
	return text, nil
}
