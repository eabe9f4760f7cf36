package binary

import (
	"net/http"

	"github.com/aexvir/toolsetup/cache"
	"github.com/aexvir/toolsetup/platform"
	"github.com/aexvir/toolsetup/version"
)

type Option func(b *Binary)

// WithPlatforms sets the table mapping each supported platform to the
// artifact published by the distributor.
// Requests for a platform missing from the table fail before any network
// access with a [platform.UnsupportedPlatformError].
// Without a table the artifact is assumed to be named after the binary.
func WithPlatforms(table platform.Table) Option {
	return func(b *Binary) {
		b.platforms = table
	}
}

// WithTarget overrides the platform the binary is installed for.
// Defaults to the platform the code is running on.
func WithTarget(target platform.Target) Option {
	return func(b *Binary) {
		b.target = target
	}
}

// WithResolver sets the resolver used to turn the version token into a
// concrete version. Needed when the binary is pinned to "latest".
func WithResolver(resolver *version.Resolver) Option {
	return func(b *Binary) {
		if resolver != nil {
			b.resolver = resolver
		}
	}
}

// WithCache sets the cache index entries are looked up in and committed to.
// Defaults to ./bin.
func WithCache(index *cache.Index) Option {
	return func(b *Binary) {
		if index != nil {
			b.cache = index
		}
	}
}

// WithCacheRoot is a shorthand for WithCache(cache.New(root)).
func WithCacheRoot(root string) Option {
	return WithCache(cache.New(root))
}

// WithTempDir sets the parent directory of the per install work directories.
// Defaults to the system temporary directory.
func WithTempDir(dir string) Option {
	return func(b *Binary) {
		b.tmpdir = dir
	}
}

// WithHTTPClient sets the client used to download artifacts.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Binary) {
		if client != nil {
			b.client = client
		}
	}
}

// WithFetcher replaces the downloader entirely.
func WithFetcher(fetch Fetcher) Option {
	return func(b *Binary) {
		b.fetch = fetch
	}
}

// WithPathEnv sets where the installed tool is published.
// Defaults to the PATH of the running process; pass an [Env] to keep the
// process environment untouched.
func WithPathEnv(env PathEnv) Option {
	return func(b *Binary) {
		if env != nil {
			b.env = env
		}
	}
}
