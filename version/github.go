package version

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubSource resolves the latest version as the tag of the latest release
// of a GitHub repository.
type GitHubSource struct {
	owner string
	repo  string

	token   string
	baseurl string
	client  *http.Client
}

// GitHubOption configures a [GitHubSource].
type GitHubOption func(s *GitHubSource)

// WithGitHubToken authenticates api requests, raising the rate limit.
// An empty token keeps requests anonymous.
func WithGitHubToken(token string) GitHubOption {
	return func(s *GitHubSource) {
		s.token = token
	}
}

// WithGitHubBaseURL points the source at a different api endpoint,
// e.g. a GitHub Enterprise instance or a test server.
func WithGitHubBaseURL(baseurl string) GitHubOption {
	return func(s *GitHubSource) {
		s.baseurl = baseurl
	}
}

// WithGitHubHTTPClient sets the http client used for unauthenticated requests
// and as the base transport for authenticated ones.
func WithGitHubHTTPClient(client *http.Client) GitHubOption {
	return func(s *GitHubSource) {
		s.client = client
	}
}

// NewGitHubSource creates a source for repository, in "owner/repo" format.
func NewGitHubSource(repository string, options ...GitHubOption) (*GitHubSource, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("invalid repository %q: expected owner/repo", repository)
	}

	src := GitHubSource{
		owner: owner,
		repo:  repo,
	}

	for _, opt := range options {
		opt(&src)
	}

	return &src, nil
}

func (s *GitHubSource) String() string {
	return fmt.Sprintf("github.com/%s/%s releases", s.owner, s.repo)
}

// Latest returns the tag name of the latest release.
func (s *GitHubSource) Latest(ctx context.Context) (string, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return "", err
	}

	release, _, err := client.Repositories.GetLatestRelease(ctx, s.owner, s.repo)
	if err != nil {
		var ratelimit *github.RateLimitError
		if errors.As(err, &ratelimit) {
			return "", fmt.Errorf("github rate limit exceeded, resets at %s: %w", ratelimit.Rate.Reset.Time, err)
		}
		return "", fmt.Errorf("failed to get latest release: %w", err)
	}

	tag := strings.TrimSpace(release.GetTagName())
	if tag == "" {
		return "", errors.New("latest release has no tag")
	}

	return tag, nil
}

func (s *GitHubSource) newClient(ctx context.Context) (*github.Client, error) {
	httpclient := s.client

	if s.token != "" {
		if httpclient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpclient)
		}
		httpclient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.token}))
	}

	client := github.NewClient(httpclient)

	if s.baseurl != "" {
		base, err := url.Parse(strings.TrimSuffix(s.baseurl, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %s: %w", s.baseurl, err)
		}
		client.BaseURL = base
	}

	return client, nil
}
