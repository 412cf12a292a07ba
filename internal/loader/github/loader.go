// Package github builds corpus records from merged pull requests.
// Each PR must carry a release note file and a design document at its head commit;
// its conversation and inline review comments become the record's review history.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

const (
	// DefaultReleaseNoteFile is the release note path read at the PR head.
	DefaultReleaseNoteFile = "10-release.txt"
	// DefaultDesignFile is the design document path read at the PR head.
	DefaultDesignFile = "20-design.md"
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultRate is the proactive request rate (~4300/hour, under the authenticated 5000/hour limit).
	DefaultRate = 1.2

	perPage = 100
)

// Config selects the repository and the files that make up a record.
type Config struct {
	Owner           string
	Repo            string
	Token           string // empty for anonymous access to public repositories
	ReleaseNoteFile string
	DesignFile      string
	Limit           int     // max merged PRs to inspect, 0 means all
	Rate            float64 // requests per second, 0 means DefaultRate
	BaseURL         string  // GitHub Enterprise or test server, empty for api.github.com
}

// Loader reads merged pull requests through the GitHub REST API.
type Loader struct {
	gh      *gh.Client
	limiter *rate.Limiter
	cfg     Config
	logger  *zap.Logger
}

// New creates a loader. A token authenticates through an oauth2 static token source.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Loader, error) {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = DefaultTimeout
	}
	return newWithHTTPClient(httpClient, cfg, logger)
}

func newWithHTTPClient(httpClient *http.Client, cfg Config, logger *zap.Logger) (*Loader, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github repository must be owner/repo, got %q/%q", cfg.Owner, cfg.Repo)
	}
	if cfg.ReleaseNoteFile == "" {
		cfg.ReleaseNoteFile = DefaultReleaseNoteFile
	}
	if cfg.DesignFile == "" {
		cfg.DesignFile = DefaultDesignFile
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Loader{
		gh:      client,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// ParseRepo splits "owner/repo".
func ParseRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("github repository must be owner/repo, got %q", s)
	}
	return owner, repo, nil
}

// Load walks merged PRs newest first and returns one record per PR that has both files.
func (l *Loader) Load(ctx context.Context) ([]corpus.Record, error) {
	prs, err := l.mergedPullRequests(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]corpus.Record, 0, len(prs))
	for _, pr := range prs {
		rec, ok, err := l.record(ctx, pr)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}

	l.logger.Info("Loaded pull requests",
		zap.String("repo", l.cfg.Owner+"/"+l.cfg.Repo),
		zap.Int("merged", len(prs)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (l *Loader) mergedPullRequests(ctx context.Context) ([]*gh.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       "closed",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var merged []*gh.PullRequest
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		prs, resp, err := l.gh.PullRequests.List(ctx, l.cfg.Owner, l.cfg.Repo, opts)
		if err != nil {
			return nil, wrapError("list pull requests", err)
		}
		for _, pr := range prs {
			if pr.MergedAt == nil {
				continue
			}
			merged = append(merged, pr)
			if l.cfg.Limit > 0 && len(merged) >= l.cfg.Limit {
				return merged, nil
			}
		}
		if resp.NextPage == 0 {
			return merged, nil
		}
		opts.Page = resp.NextPage
	}
}

// record assembles a PR. ok is false when either file is missing at the head commit.
func (l *Loader) record(ctx context.Context, pr *gh.PullRequest) (corpus.Record, bool, error) {
	number := pr.GetNumber()
	sha := pr.GetHead().GetSHA()
	log := l.logger.With(zap.Int("pr", number), zap.String("sha", sha))

	note, found, err := l.fileAt(ctx, l.cfg.ReleaseNoteFile, sha)
	if err != nil {
		return corpus.Record{}, false, err
	}
	if !found {
		log.Warn("Skipping pull request without release note", zap.String("file", l.cfg.ReleaseNoteFile))
		return corpus.Record{}, false, nil
	}
	design, found, err := l.fileAt(ctx, l.cfg.DesignFile, sha)
	if err != nil {
		return corpus.Record{}, false, err
	}
	if !found {
		log.Warn("Skipping pull request without design document", zap.String("file", l.cfg.DesignFile))
		return corpus.Record{}, false, nil
	}

	comments, err := l.comments(ctx, number)
	if err != nil {
		return corpus.Record{}, false, err
	}

	return corpus.Record{
		TicketID:         fmt.Sprintf("PR-%d", number),
		FinalReleaseNote: note,
		DesignDocument:   design,
		ReviewComments:   comments,
	}, true, nil
}

// fileAt reads path at ref. found is false on 404.
func (l *Loader) fileAt(ctx context.Context, path, ref string) (string, bool, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", false, fmt.Errorf("rate limit wait: %w", err)
	}
	content, _, _, err := l.gh.Repositories.GetContents(ctx, l.cfg.Owner, l.cfg.Repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapError("get contents "+path, err)
	}
	if content == nil {
		return "", false, nil // a directory
	}
	text, err := content.GetContent()
	if err != nil {
		return "", false, fmt.Errorf("decode %s: %w", path, err)
	}
	return text, true, nil
}

type timedComment struct {
	at time.Time
	corpus.ReviewComment
}

// comments merges conversation comments and inline review comments in creation order.
func (l *Loader) comments(ctx context.Context, number int) ([]corpus.ReviewComment, error) {
	var all []timedComment

	issueOpts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		page, resp, err := l.gh.Issues.ListComments(ctx, l.cfg.Owner, l.cfg.Repo, number, issueOpts)
		if err != nil {
			return nil, wrapError("list issue comments", err)
		}
		for _, c := range page {
			all = append(all, timedComment{
				at:            c.GetCreatedAt().Time,
				ReviewComment: corpus.ReviewComment{CommentText: c.GetBody()},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		issueOpts.Page = resp.NextPage
	}

	reviewOpts := &gh.PullRequestListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		page, resp, err := l.gh.PullRequests.ListComments(ctx, l.cfg.Owner, l.cfg.Repo, number, reviewOpts)
		if err != nil {
			return nil, wrapError("list review comments", err)
		}
		for _, c := range page {
			all = append(all, timedComment{
				at: c.GetCreatedAt().Time,
				ReviewComment: corpus.ReviewComment{
					CommentText: c.GetBody(),
					ContextLine: contextLine(c),
				},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		reviewOpts.Page = resp.NextPage
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	out := make([]corpus.ReviewComment, len(all))
	for i, c := range all {
		out[i] = c.ReviewComment
	}
	return out, nil
}

// contextLine renders "File: <path>, Line: <n>". Outdated comments fall back to the original line.
func contextLine(c *gh.PullRequestComment) string {
	if c.GetPath() == "" {
		return ""
	}
	line := c.GetLine()
	if line == 0 {
		line = c.GetOriginalLine()
	}
	if line == 0 {
		return "File: " + c.GetPath()
	}
	return fmt.Sprintf("File: %s, Line: %d", c.GetPath(), line)
}

func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

func wrapError(op string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return fmt.Errorf("github %s: %d %s: %w", op, ghErr.Response.StatusCode, ghErr.Message, err)
	}
	var rlErr *gh.RateLimitError
	if errors.As(err, &rlErr) {
		return fmt.Errorf("github %s: rate limited until %s: %w", op, rlErr.Rate.Reset.Time.Format(time.RFC3339), err)
	}
	return fmt.Errorf("github %s: %w", op, err)
}
