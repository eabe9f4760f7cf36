// Package version turns requested version tokens into concrete versions.
//
// Concrete tokens are passed through, optionally with a distributor specific
// prefix trimmed. The "latest" alias is resolved on every call by asking a
// [Source], such as the latest release of a GitHub repository or a plain text
// version endpoint.
package version

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// MaxAttempts bounds the retries a resolver can be configured with.
const MaxAttempts = 5

// Source provides the latest version published by a distributor.
type Source interface {
	// Latest returns the raw version token published upstream.
	Latest(ctx context.Context) (string, error)
	// String names the source in error messages.
	String() string
}

// Resolver resolves [Token] values into concrete versions.
type Resolver struct {
	source   Source
	prefix   string
	attempts int
	backoff  time.Duration
}

// Option configures a [Resolver].
type Option func(r *Resolver)

// WithTrimPrefix strips prefix from every resolved version.
// Useful when the distributor tags releases as "vX.Y.Z" but expects "X.Y.Z"
// in download urls.
func WithTrimPrefix(prefix string) Option {
	return func(r *Resolver) {
		r.prefix = prefix
	}
}

// WithRetry allows querying the source up to attempts times, waiting backoff
// between attempts. Values above [MaxAttempts] are clamped.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Resolver) {
		r.attempts = min(max(attempts, 1), MaxAttempts)
		r.backoff = backoff
	}
}

// NewResolver builds a resolver for the given source.
// A nil source is valid as long as only concrete tokens are resolved.
func NewResolver(source Source, options ...Option) *Resolver {
	r := Resolver{
		source:   source,
		attempts: 1,
	}

	for _, opt := range options {
		opt(&r)
	}

	return &r
}

// Resolve returns the concrete version for token.
// Concrete tokens never touch the source. The alias is resolved on every call,
// results are not cached.
func (r *Resolver) Resolve(ctx context.Context, token Token) (string, error) {
	if !token.IsLatest() {
		if token.IsZero() {
			return "", errors.New("empty version token")
		}
		return r.normalize(token.String()), nil
	}

	if r.source == nil {
		return "", &ResolutionError{Source: "none", Err: errors.New("no release source configured")}
	}

	var lasterr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			logdetail(fmt.Sprintf("retrying %s (attempt %d/%d)", r.source, attempt, r.attempts))
			select {
			case <-ctx.Done():
				return "", &ResolutionError{Source: r.source.String(), Err: ctx.Err()}
			case <-time.After(r.backoff):
			}
		}

		raw, err := r.source.Latest(ctx)
		if err != nil {
			lasterr = err
			continue
		}

		resolved := r.normalize(strings.TrimSpace(raw))
		if _, err := semver.NewVersion(resolved); err != nil {
			// a malformed response won't get better by asking again
			return "", &ResolutionError{
				Source: r.source.String(),
				Err:    fmt.Errorf("unexpected version token %q: %w", raw, err),
			}
		}

		logdetail(fmt.Sprintf("resolved latest to %s via %s", resolved, r.source))
		return resolved, nil
	}

	return "", &ResolutionError{Source: r.source.String(), Err: lasterr}
}

func (r *Resolver) normalize(version string) string {
	if r.prefix == "" {
		return version
	}
	return strings.TrimPrefix(version, r.prefix)
}

// ResolutionError is returned when the latest alias can't be turned into a
// concrete version.
type ResolutionError struct {
	Source string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve latest version from %s: %v", e.Source, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
