package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docsage/internal/app"
	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/loader/file"
	"github.com/kailas-cloud/docsage/internal/loader/github"
	ingestuc "github.com/kailas-cloud/docsage/internal/usecase/ingest"
)

type ingestOptions struct {
	file   string
	repo   string
	limit  int
	orphan bool
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	o := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index past release notes and review comments",
		Long: `Reads corpus records from a JSON file or from merged pull requests of a GitHub
repository, embeds them and writes the chunks to the configured vector index.
Re-ingesting the same records overwrites their chunks.`,
		Example: `  docsage ingest --file corpus.json
  docsage ingest --github acme/webapp --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts, o)
		},
	}
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "JSON corpus file")
	cmd.Flags().StringVar(&o.repo, "github", "", "GitHub repository as owner/repo")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 0, "max merged pull requests to read (0 = all)")
	cmd.Flags().BoolVar(&o.orphan, "index-orphan-comments", false,
		"also index comments of records missing a release note or design document")
	cmd.MarkFlagsMutuallyExclusive("file", "github")
	cmd.MarkFlagsOneRequired("file", "github")
	return cmd
}

func runIngest(cmd *cobra.Command, opts *rootOptions, o *ingestOptions) error {
	ctx := cmd.Context()
	a, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	loader, err := newLoader(cmd, a, o)
	if err != nil {
		return err
	}

	svc := a.Ingest
	if cmd.Flags().Changed("index-orphan-comments") {
		svc = svc.WithOrphanComments(o.orphan)
	}

	res, err := svc.Run(ctx, loader)
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d chunks (records: %d, skipped: %d)\n", res.Chunks, res.Records, res.Skipped)
	return nil
}

func newLoader(cmd *cobra.Command, a *app.App, o *ingestOptions) (ingestuc.Loader, error) {
	if o.file != "" {
		return file.New(o.file, a.Logger), nil
	}
	if o.repo == "" {
		return nil, errors.New("one of --file or --github is required")
	}

	owner, repo, err := github.ParseRepo(o.repo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	gh := a.Config.Ingest.GitHub
	return github.New(cmd.Context(), github.Config{
		Owner:           owner,
		Repo:            repo,
		Token:           gh.Token,
		ReleaseNoteFile: gh.ReleaseNoteFile,
		DesignFile:      gh.DesignFile,
		Limit:           o.limit,
		Rate:            gh.RatePerSecond,
		BaseURL:         gh.BaseURL,
	}, a.Logger)
}
