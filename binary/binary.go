package binary

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aexvir/toolsetup/cache"
	"github.com/aexvir/toolsetup/platform"
	"github.com/aexvir/toolsetup/version"
)

// Binary is a tool that has to be available at a given version.
type Binary struct {
	name   string
	token  version.Token
	origin Origin

	resolver  *version.Resolver
	platforms platform.Table
	target    platform.Target
	cache     *cache.Index
	tmpdir    string
	client    *http.Client
	fetch     Fetcher
	env       PathEnv

	// set once Ensure succeeds
	version string
	dir     string
	cmd     string
}

// New returns a binary named name, pinned to version, obtained from origin.
// The version can be a concrete version or the "latest" alias, which requires
// a resolver with a release source, see [WithResolver].
func New(name, ver string, origin Origin, options ...Option) (*Binary, error) {
	if name == "" {
		return nil, fmt.Errorf("name must be set")
	}

	token := version.Parse(ver)
	if token.IsZero() {
		return nil, fmt.Errorf("version must be set")
	}

	if origin == nil {
		return nil, fmt.Errorf("origin must be set")
	}

	bin := Binary{
		name:   name,
		token:  token,
		origin: origin,

		resolver: version.NewResolver(nil),
		target:   platform.Current(),
		cache:    cache.New(filepath.FromSlash("./bin")),
		client:   NewHTTPClient(0),
		env:      ProcessEnv(),
	}

	for _, opt := range options {
		opt(&bin)
	}

	if bin.fetch == nil {
		bin.fetch = func(ctx context.Context, url, destination string) error {
			return download(ctx, bin.client, url, destination)
		}
	}

	return &bin, nil
}

// Name returns the command name of the binary.
func (b *Binary) Name() string {
	return b.name
}

// Version returns the concrete version made available by the last successful
// [Binary.Ensure], or the requested token before that.
func (b *Binary) Version() string {
	if b.version != "" {
		return b.version
	}
	return b.token.String()
}

// Dir returns the cache entry directory that was published to the search path.
// Empty until [Binary.Ensure] succeeds.
func (b *Binary) Dir() string {
	return b.dir
}

// BinPath returns the full path of the executable.
// Empty until [Binary.Ensure] succeeds.
func (b *Binary) BinPath() string {
	return b.cmd
}

// Ensure makes the binary available: the version is resolved, the cache is
// checked and on a miss the artifact is fetched, unpacked and committed.
// Finally the entry directory is prepended to the search path.
//
// Errors are returned as produced; no fallback version is ever used.
func (b *Binary) Ensure(ctx context.Context) (err error) {
	logstep(fmt.Sprintf("ensuring %s@%s for %s", b.name, b.token, b.target))

	start := time.Now()
	defer logtiming(start, &err)

	descriptor, err := b.describe()
	if err != nil {
		return err
	}

	resolved, err := b.resolver.Resolve(ctx, b.token)
	if err != nil {
		return err
	}

	key, err := b.key(resolved)
	if err != nil {
		return err
	}

	dir, ok := b.cache.Lookup(key)
	if ok {
		logdetail(fmt.Sprintf("found %s in cache", key))
	} else {
		dir, err = b.install(ctx, key, descriptor)
		if err != nil {
			return err
		}
	}

	if err := b.env.PrependPath(dir); err != nil {
		return fmt.Errorf("failed to publish %s: %w", dir, err)
	}

	b.version = resolved
	b.dir = dir
	b.cmd = filepath.Join(dir, b.executable())

	logdetail(fmt.Sprintf("%s available at %s", b.name, b.cmd))
	return nil
}

// Installed reports whether a completed cache entry exists for the binary,
// without installing it. Resolving "latest" still queries the release source.
func (b *Binary) Installed(ctx context.Context) (bool, error) {
	if _, err := b.describe(); err != nil {
		return false, err
	}

	resolved, err := b.resolver.Resolve(ctx, b.token)
	if err != nil {
		return false, err
	}

	key, err := b.key(resolved)
	if err != nil {
		return false, err
	}

	_, ok := b.cache.Lookup(key)
	return ok, nil
}

func (b *Binary) install(ctx context.Context, key cache.Key, descriptor platform.Descriptor) (string, error) {
	logdetail(fmt.Sprintf("installing %s", key))

	workdir, err := os.MkdirTemp(b.tmpdir, b.name+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workdir)

	entry := filepath.Join(workdir, "entry")
	scratch := filepath.Join(workdir, "scratch")
	for _, dir := range []string{entry, scratch} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create work directory: %w", err)
		}
	}

	template := Template{
		OS:   string(b.target.OS),
		Arch: string(b.target.Arch),

		Name:      b.name,
		Version:   key.Version,
		Extension: b.target.ExecutableExtension(),

		Artifact:         descriptor.Artifact,
		ArchiveExtension: descriptor.ArchiveExtension,
		ExecutablePath:   descriptor.ExecutablePath,

		Directory: entry,
		Cmd:       filepath.Join(entry, b.executable()),
		Workdir:   scratch,
	}

	template.Artifact, err = template.Resolve(descriptor.Artifact)
	if err != nil {
		return "", fmt.Errorf("failed to resolve artifact name: %w", err)
	}

	if err := b.origin.Install(ctx, template, b.fetch); err != nil {
		return "", err
	}

	if err := makeExecutable(template.Cmd); err != nil {
		return "", err
	}

	return b.cache.Commit(key, template.Directory)
}

func (b *Binary) describe() (platform.Descriptor, error) {
	if b.platforms == nil {
		return platform.Descriptor{Artifact: b.executable()}, nil
	}
	return b.platforms.Describe(b.target)
}

// key returns the cache key of the resolved version, rejecting versions that
// can't be a path element before anything is fetched.
func (b *Binary) key(resolved string) (cache.Key, error) {
	key := cache.Key{
		Tool:    b.name,
		Version: resolved,
		Arch:    string(b.target.Arch),
	}

	if err := key.Validate(); err != nil {
		return cache.Key{}, fmt.Errorf("invalid request for %s@%s: %w", b.name, resolved, err)
	}

	return key, nil
}

func (b *Binary) executable() string {
	return b.name + b.target.ExecutableExtension()
}
