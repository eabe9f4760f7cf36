package binary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/toolsetup/cache"
	"github.com/aexvir/toolsetup/platform"
	"github.com/aexvir/toolsetup/version"
)

// MockOrigin is a testify mock implementation of Origin interface
type MockOrigin struct {
	mock.Mock
}

func (m *MockOrigin) Install(ctx context.Context, template Template, fetch Fetcher) error {
	args := m.Called(ctx, template, fetch)
	return args.Error(0)
}

// distributor serves artifacts and counts the requests received per path.
type distributor struct {
	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func newDistributor(t *testing.T, files map[string][]byte) (*distributor, *httptest.Server) {
	t.Helper()

	dist := &distributor{files: files, hits: make(map[string]int)}
	server := httptest.NewServer(dist)
	t.Cleanup(server.Close)

	return dist, server
}

func (d *distributor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.hits[r.URL.Path]++
	body, ok := d.files[r.URL.Path]
	d.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write(body)
}

func (d *distributor) count(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hits[path]
}

func (d *distributor) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var total int
	for _, n := range d.hits {
		total += n
	}
	return total
}

type staticsource string

func (s staticsource) Latest(context.Context) (string, error) {
	if s == "" {
		return "", errors.New("release feed unavailable")
	}
	return string(s), nil
}

func (s staticsource) String() string {
	return "static"
}

var (
	linux   = platform.Target{OS: platform.Linux, Arch: platform.AMD64}
	windows = platform.Target{OS: platform.Windows, Arch: platform.AMD64}

	ossutilPlatforms = platform.Table{
		linux: {Artifact: "ossutil64"},
		windows: {
			Artifact:         "ossutil64",
			ArchiveExtension: ".zip",
			ExecutablePath:   "ossutil64/ossutil64.exe",
		},
	}
)

const ossutilURL = "/{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}"

// fixture builds an ossutil binary against the test server, publishing to an
// isolated environment.
func fixture(t *testing.T, server *httptest.Server, root, ver string, options ...Option) (*Binary, *Env) {
	t.Helper()

	env := NewEnv([]string{"HOME=/home/runner", "PATH=/usr/bin"})

	options = append(
		[]Option{
			WithPlatforms(ossutilPlatforms),
			WithTarget(linux),
			WithCacheRoot(root),
			WithTempDir(t.TempDir()),
			WithHTTPClient(server.Client()),
			WithPathEnv(env),
		},
		options...,
	)

	bin, err := New("ossutil", ver, RemoteDownload(server.URL+ossutilURL), options...)
	require.NoError(t, err)

	return bin, env
}

func TestNew(t *testing.T) {
	origin := &MockOrigin{}

	bin, err := New("ossutil", " 1.7.0 ", origin)
	require.NoError(t, err)

	assert.Equal(t, "ossutil", bin.Name())
	assert.Equal(t, "1.7.0", bin.Version())
	assert.Equal(t, platform.Current(), bin.target)
	assert.Equal(t, filepath.FromSlash("./bin"), bin.cache.Root())
	assert.Empty(t, bin.BinPath())
	assert.Empty(t, bin.Dir())
	assert.NotNil(t, bin.fetch)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		command string
		version string
		origin  Origin
		err     string
	}{
		{name: "missing name", version: "1.7.0", origin: &MockOrigin{}, err: "name must be set"},
		{name: "missing version", command: "ossutil", origin: &MockOrigin{}, err: "version must be set"},
		{name: "blank version", command: "ossutil", version: "  ", origin: &MockOrigin{}, err: "version must be set"},
		{name: "missing origin", command: "ossutil", version: "1.7.0", err: "origin must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.command, tt.version, tt.origin)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestBinary_Ensure(t *testing.T) {
	dist, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64": []byte("#!/bin/sh\necho ossutil 1.7.0\n"),
	})
	root := t.TempDir()

	bin, env := fixture(t, server, root, "1.7.0")
	require.NoError(t, bin.Ensure(context.Background()))

	assert.Equal(t, 1, dist.count("/1.7.0/ossutil64"))
	assert.Equal(t, 1, dist.total())

	dir := filepath.Join(root, "ossutil", "1.7.0", "amd64")
	assert.Equal(t, dir, bin.Dir())
	assert.Equal(t, filepath.Join(dir, "ossutil"), bin.BinPath())
	assert.Equal(t, "1.7.0", bin.Version())
	assert.FileExists(t, dir+".complete")

	content, err := os.ReadFile(bin.BinPath())
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho ossutil 1.7.0\n", string(content))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(bin.BinPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}

	assert.True(t, strings.HasPrefix(env.Get("PATH"), dir+string(os.PathListSeparator)))
	found, err := env.LookPath("ossutil")
	require.NoError(t, err)
	assert.Equal(t, bin.BinPath(), found)
}

func TestBinary_Ensure_Idempotent(t *testing.T) {
	dist, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64": []byte("ossutil"),
	})
	root := t.TempDir()

	first, _ := fixture(t, server, root, "1.7.0")
	require.NoError(t, first.Ensure(context.Background()))

	second, env := fixture(t, server, root, "1.7.0")
	require.NoError(t, second.Ensure(context.Background()))

	assert.Equal(t, 1, dist.total())
	assert.Equal(t, first.BinPath(), second.BinPath())
	assert.True(t, strings.HasPrefix(env.Get("PATH"), second.Dir()))
}

func TestBinary_Ensure_NonexistentVersion(t *testing.T) {
	dist, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64": []byte("ossutil"),
	})
	root := t.TempDir()

	bin, env := fixture(t, server, root, "1000.0.0")
	err := bin.Ensure(context.Background())
	require.Error(t, err)

	var downloaderr *DownloadError
	require.ErrorAs(t, err, &downloaderr)
	assert.Equal(t, http.StatusNotFound, downloaderr.StatusCode)
	assert.Contains(t, downloaderr.URL, "/1000.0.0/ossutil64")

	assert.Equal(t, 1, dist.count("/1000.0.0/ossutil64"))
	assert.NoDirExists(t, filepath.Join(root, "ossutil", "1000.0.0", "amd64"))
	assert.NoFileExists(t, filepath.Join(root, "ossutil", "1000.0.0", "amd64.complete"))
	assert.Equal(t, "/usr/bin", env.Get("PATH"))
	assert.Empty(t, bin.BinPath())
}

func TestBinary_Ensure_UnsupportedPlatform(t *testing.T) {
	dist, server := newDistributor(t, nil)
	root := t.TempDir()

	target := platform.Target{OS: platform.Linux, Arch: platform.ARM64}
	bin, env := fixture(t, server, root, "latest",
		WithTarget(target),
		WithResolver(version.NewResolver(staticsource("1.7.0"))),
	)

	err := bin.Ensure(context.Background())

	var unsupported *platform.UnsupportedPlatformError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, target, unsupported.Target)
	assert.Equal(t, 0, dist.total())
	assert.Equal(t, "/usr/bin", env.Get("PATH"))
}

func TestBinary_Ensure_Latest(t *testing.T) {
	dist, server := newDistributor(t, map[string][]byte{
		"/1.8.0/ossutil64": []byte("ossutil"),
	})
	root := t.TempDir()

	bin, _ := fixture(t, server, root, "LATEST",
		WithResolver(version.NewResolver(staticsource("v1.8.0"), version.WithTrimPrefix("v"))),
	)
	require.NoError(t, bin.Ensure(context.Background()))

	assert.Equal(t, "1.8.0", bin.Version())
	assert.Equal(t, 1, dist.count("/1.8.0/ossutil64"))
	assert.FileExists(t, filepath.Join(root, "ossutil", "1.8.0", "amd64.complete"))
}

func TestBinary_Ensure_ResolutionFailure(t *testing.T) {
	dist, server := newDistributor(t, nil)

	bin, env := fixture(t, server, t.TempDir(), "latest",
		WithResolver(version.NewResolver(staticsource(""))),
	)

	err := bin.Ensure(context.Background())

	var resolutionerr *version.ResolutionError
	require.ErrorAs(t, err, &resolutionerr)
	assert.Equal(t, "static", resolutionerr.Source)
	assert.Equal(t, 0, dist.total())
	assert.Equal(t, "/usr/bin", env.Get("PATH"))
}

func TestBinary_Ensure_LatestWithoutSource(t *testing.T) {
	_, server := newDistributor(t, nil)

	bin, _ := fixture(t, server, t.TempDir(), "latest")

	var resolutionerr *version.ResolutionError
	require.ErrorAs(t, bin.Ensure(context.Background()), &resolutionerr)
}

func TestBinary_Ensure_InvalidVersion(t *testing.T) {
	for _, ver := range []string{"1.0/extra", "../..", ".."} {
		t.Run(ver, func(t *testing.T) {
			dist, server := newDistributor(t, nil)
			root := t.TempDir()

			bin, env := fixture(t, server, root, ver)

			err := bin.Ensure(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not a valid path element")

			var cacheerr *cache.CacheWriteError
			assert.False(t, errors.As(err, &cacheerr))

			installed, err := bin.Installed(context.Background())
			assert.Error(t, err)
			assert.False(t, installed)

			assert.Equal(t, 0, dist.total())
			assert.Equal(t, "/usr/bin", env.Get("PATH"))

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestBinary_Ensure_VersionedArtifact(t *testing.T) {
	dist, server := newDistributor(t, map[string][]byte{
		"/1.8.0/ossutil-v1.8.0-linux-amd64.zip": zipArchive(t,
			entry{name: "ossutil-v1.8.0-linux-amd64/ossutil", content: "ossutil 1.8.0", mode: 0o755},
		),
	})
	root := t.TempDir()

	bin, _ := fixture(t, server, root, "latest",
		WithResolver(version.NewResolver(staticsource("1.8.0"))),
		WithPlatforms(platform.Table{
			linux: {
				Artifact:         "ossutil-v{{.Version}}-{{.OS}}-{{.Arch}}",
				ArchiveExtension: ".zip",
				ExecutablePath:   "{{.Artifact}}/ossutil",
			},
		}),
	)
	require.NoError(t, bin.Ensure(context.Background()))

	assert.Equal(t, 1, dist.count("/1.8.0/ossutil-v1.8.0-linux-amd64.zip"))
	assert.Equal(t, 1, dist.total())

	content, err := os.ReadFile(bin.BinPath())
	require.NoError(t, err)
	assert.Equal(t, "ossutil 1.8.0", string(content))
}

func TestBinary_Ensure_InvalidArtifactTemplate(t *testing.T) {
	dist, server := newDistributor(t, nil)

	bin, _ := fixture(t, server, t.TempDir(), "1.8.0",
		WithPlatforms(platform.Table{linux: {Artifact: "ossutil-{{.Flavour}}"}}),
	)

	err := bin.Ensure(context.Background())
	assert.ErrorContains(t, err, "failed to resolve artifact name")
	assert.Equal(t, 0, dist.total())
}

func TestBinary_Ensure_Archive(t *testing.T) {
	archive := zipArchive(t,
		entry{name: "ossutil64/ossutil64.exe", content: "MZ ossutil", mode: 0o644},
		entry{name: "ossutil64/README", content: "readme", mode: 0o644},
	)
	dist, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64.zip": archive,
	})
	root := t.TempDir()

	bin, _ := fixture(t, server, root, "1.7.0", WithTarget(windows))
	require.NoError(t, bin.Ensure(context.Background()))

	assert.Equal(t, 1, dist.count("/1.7.0/ossutil64.zip"))

	dir := filepath.Join(root, "ossutil", "1.7.0", "amd64")
	assert.Equal(t, filepath.Join(dir, "ossutil.exe"), bin.BinPath())

	content, err := os.ReadFile(bin.BinPath())
	require.NoError(t, err)
	assert.Equal(t, "MZ ossutil", string(content))

	// only the executable is committed
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "ossutil.exe", files[0].Name())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(bin.BinPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}
}

func TestBinary_Ensure_ArchiveLayout(t *testing.T) {
	archive := zipArchive(t,
		entry{name: "ossutil/ossutil.exe", content: "MZ ossutil", mode: 0o644},
	)
	_, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64.zip": archive,
	})
	root := t.TempDir()

	bin, env := fixture(t, server, root, "1.7.0", WithTarget(windows))
	err := bin.Ensure(context.Background())

	var layouterr *ArchiveLayoutError
	require.ErrorAs(t, err, &layouterr)
	assert.Equal(t, "ossutil64/ossutil64.exe", layouterr.Path)
	assert.NoFileExists(t, filepath.Join(root, "ossutil", "1.7.0", "amd64.complete"))
	assert.Equal(t, "/usr/bin", env.Get("PATH"))
}

func TestBinary_Ensure_ArchKeyed(t *testing.T) {
	dist, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64":    []byte("amd64"),
		"/1.7.0/ossutilarm64": []byte("arm64"),
	})
	root := t.TempDir()

	arm := platform.Target{OS: platform.Linux, Arch: platform.ARM64}
	table := platform.Table{
		linux: {Artifact: "ossutil64"},
		arm:   {Artifact: "ossutilarm64"},
	}

	amdbin, _ := fixture(t, server, root, "1.7.0", WithPlatforms(table))
	require.NoError(t, amdbin.Ensure(context.Background()))

	armbin, _ := fixture(t, server, root, "1.7.0", WithPlatforms(table), WithTarget(arm))
	require.NoError(t, armbin.Ensure(context.Background()))

	assert.Equal(t, 2, dist.total())
	assert.NotEqual(t, amdbin.Dir(), armbin.Dir())

	content, err := os.ReadFile(armbin.BinPath())
	require.NoError(t, err)
	assert.Equal(t, "arm64", string(content))
}

func TestBinary_Installed(t *testing.T) {
	_, server := newDistributor(t, map[string][]byte{
		"/1.7.0/ossutil64": []byte("ossutil"),
	})
	root := t.TempDir()

	bin, _ := fixture(t, server, root, "1.7.0")

	installed, err := bin.Installed(context.Background())
	require.NoError(t, err)
	assert.False(t, installed)

	require.NoError(t, bin.Ensure(context.Background()))

	installed, err = bin.Installed(context.Background())
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestBinary_Ensure_Origin(t *testing.T) {
	t.Run("executable bit is always set", func(t *testing.T) {
		origin := &MockOrigin{}
		origin.
			On("Install", mock.Anything, mock.AnythingOfType("binary.Template"), mock.Anything).
			Run(func(args mock.Arguments) {
				template := args.Get(1).(Template)
				require.NoError(t, os.WriteFile(template.Cmd, []byte("tool"), 0o600))
			}).
			Return(nil)

		env := NewEnv(nil)
		bin, err := New("tool", "2.0.0", origin,
			WithTarget(linux),
			WithCacheRoot(t.TempDir()),
			WithTempDir(t.TempDir()),
			WithPathEnv(env),
		)
		require.NoError(t, err)

		require.NoError(t, bin.Ensure(context.Background()))
		origin.AssertExpectations(t)

		template := origin.Calls[0].Arguments.Get(1).(Template)
		assert.Equal(t, "tool", template.Artifact)
		assert.Equal(t, "2.0.0", template.Version)
		assert.Equal(t, "linux", template.OS)
		assert.Equal(t, "amd64", template.Arch)

		if runtime.GOOS != "windows" {
			info, err := os.Stat(bin.BinPath())
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
		}
		assert.Equal(t, bin.Dir(), env.Get("PATH"))
	})

	t.Run("missing executable", func(t *testing.T) {
		origin := &MockOrigin{}
		origin.On("Install", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		root := t.TempDir()
		bin, err := New("tool", "2.0.0", origin,
			WithTarget(linux),
			WithCacheRoot(root),
			WithTempDir(t.TempDir()),
			WithPathEnv(NewEnv(nil)),
		)
		require.NoError(t, err)

		err = bin.Ensure(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "was not produced by the install")
		assert.NoFileExists(t, filepath.Join(root, "tool", "2.0.0", "amd64.complete"))
	})

	t.Run("origin error propagates unchanged", func(t *testing.T) {
		failure := &DownloadError{URL: "https://example.com/tool", Err: errors.New("boom")}

		origin := &MockOrigin{}
		origin.On("Install", mock.Anything, mock.Anything, mock.Anything).Return(failure)

		bin, err := New("tool", "2.0.0", origin,
			WithTarget(linux),
			WithCacheRoot(t.TempDir()),
			WithTempDir(t.TempDir()),
			WithPathEnv(NewEnv(nil)),
		)
		require.NoError(t, err)

		assert.Same(t, failure, bin.Ensure(context.Background()))
	})
}
