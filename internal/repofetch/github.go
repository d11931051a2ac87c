// File: internal/repofetch/github.go
// Description: Resolves a public GitHub repository into a single combined
// code payload ready for model analysis.
package repofetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/config"
)

// repoURLPattern accepts both https://github.com/owner/repo and bare
// github.com/owner/repo forms.
var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// codeExtensions is the allowlist of analyzable file types.
var codeExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".cpp", ".c",
	".go", ".rb", ".php", ".cs", ".swift",
}

// ParseRepoURL extracts (owner, repo) from a GitHub URL. A trailing ".git"
// suffix is stripped. Returns ErrInvalidRequest for anything else.
func ParseRepoURL(rawURL string) (string, string, error) {
	m := repoURLPattern.FindStringSubmatch(strings.Trim(rawURL, "/"))
	if m == nil {
		return "", "", fmt.Errorf("%w: invalid GitHub URL format, expected https://github.com/owner/repo", schemas.ErrInvalidRequest)
	}
	owner := m[1]
	repo := strings.TrimSuffix(m[2], ".git")
	return owner, repo, nil
}

// Fetcher retrieves repository trees and file contents via the GitHub REST
// API, with client-side rate limiting and bounded concurrency.
type Fetcher struct {
	client  *github.Client
	cfg     config.GitHubConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Fetcher. An API token is optional; without one the shared
// unauthenticated rate limits apply.
func New(cfg config.GitHubConfig, logger *zap.Logger) *Fetcher {
	client := github.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	return NewWithClient(client, cfg, logger)
}

// NewWithClient creates a Fetcher around an existing GitHub client. Used by
// tests to point at a stub server.
func NewWithClient(client *github.Client, cfg config.GitHubConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger.Named("repofetch"),
	}
}

// FetchRepo resolves the repository tree (main, falling back to master),
// selects up to MaxFiles code files and returns the combined payload.
func (f *Fetcher) FetchRepo(ctx context.Context, owner, repo string) (string, error) {
	tree, err := f.getTree(ctx, owner, repo)
	if err != nil {
		return "", err
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		if !hasCodeExtension(entry.GetPath()) {
			continue
		}
		paths = append(paths, entry.GetPath())
		if len(paths) == f.cfg.MaxFiles {
			break
		}
	}
	if len(paths) == 0 {
		return "", schemas.ErrNoCodeFiles
	}

	sections, err := f.fetchContents(ctx, owner, repo, paths)
	if err != nil {
		return "", err
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("%w: failed to read any files", schemas.ErrNoCodeFiles)
	}

	f.logger.Info("Fetched repository contents",
		zap.String("owner", owner), zap.String("repo", repo),
		zap.Int("files", len(sections)))

	var b strings.Builder
	fmt.Fprintf(&b, "GitHub Repository: %s/%s\n\nAnalyzing %d code files:\n", owner, repo, len(sections))
	b.WriteString(strings.Join(sections, "\n"))
	return b.String(), nil
}

// getTree resolves the recursive git tree on main, then master.
func (f *Fetcher) getTree(ctx context.Context, owner, repo string) (*github.Tree, error) {
	for _, branch := range []string{"main", "master"} {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.FetchTimeout)
		tree, resp, err := f.client.Git.GetTree(callCtx, owner, repo, branch, true)
		cancel()
		if err == nil {
			return tree, nil
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			continue
		}
		return nil, fmt.Errorf("failed to fetch repository tree: %w", err)
	}
	return nil, fmt.Errorf("%w: %s/%s has no main or master branch, or is not public", schemas.ErrRepoNotFound, owner, repo)
}

// fetchContents downloads file contents concurrently, preserving tree order.
// Files that cannot be read or decoded are skipped.
func (f *Fetcher) fetchContents(ctx context.Context, owner, repo string, paths []string) ([]string, error) {
	results := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.FetchConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := f.limiter.Wait(gctx); err != nil {
				return err
			}
			callCtx, cancel := context.WithTimeout(gctx, f.cfg.FetchTimeout)
			defer cancel()

			fileContent, _, _, err := f.client.Repositories.GetContents(callCtx, owner, repo, path, nil)
			if err != nil || fileContent == nil {
				f.logger.Debug("Skipping unreadable file", zap.String("path", path), zap.Error(err))
				return nil
			}
			content, err := fileContent.GetContent()
			if err != nil {
				f.logger.Debug("Skipping undecodable file", zap.String("path", path), zap.Error(err))
				return nil
			}
			results[i] = fmt.Sprintf("\n\n=== File: %s ===\n%s", path, content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := make([]string, 0, len(results))
	for _, s := range results {
		if s != "" {
			sections = append(sections, s)
		}
	}
	return sections, nil
}

func hasCodeExtension(path string) bool {
	for _, ext := range codeExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
