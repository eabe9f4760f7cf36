// Package cache implements the durable tool cache.
//
// Entries live under <root>/<tool>/<version>/<arch>/ and are only considered
// present once the sibling completion marker <arch>.complete exists. Entries
// are staged in a private directory, renamed into place and only then marked
// complete, so an interrupted install is indistinguishable from a missing one.
package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/mod/semver"
)

const (
	markerSuffix = ".complete"
	lockSuffix   = ".lock"
)

// Key identifies a cache entry.
type Key struct {
	Tool    string
	Version string
	Arch    string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s (%s)", k.Tool, k.Version, k.Arch)
}

// Validate checks every field of the key is usable as a single path element.
func (k Key) Validate() error {
	for field, value := range map[string]string{"tool": k.Tool, "version": k.Version, "arch": k.Arch} {
		if value == "" {
			return fmt.Errorf("cache key %s must be set", field)
		}
		if value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("cache key %s %q is not a valid path element", field, value)
		}
	}
	return nil
}

// Index is a handle over a cache root directory.
// It holds no state besides the root, so several processes can use the same
// root at once.
type Index struct {
	root string
}

// New returns an index rooted at root. The directory is created lazily on the
// first commit.
func New(root string) *Index {
	return &Index{root: root}
}

// Root returns the cache root directory.
func (i *Index) Root() string {
	return i.root
}

// Dir returns the entry directory for key, whether it exists or not.
func (i *Index) Dir(key Key) string {
	return filepath.Join(i.root, key.Tool, key.Version, key.Arch)
}

func (i *Index) marker(key Key) string {
	return i.Dir(key) + markerSuffix
}

// Lookup returns the entry directory for key if a completed entry exists.
// A directory without completion marker is reported as absent.
func (i *Index) Lookup(key Key) (string, bool) {
	if key.Validate() != nil {
		return "", false
	}

	if _, err := os.Stat(i.marker(key)); err != nil {
		return "", false
	}

	dir := i.Dir(key)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}

	return dir, true
}

// Commit copies the fully prepared directory source into the cache under key
// and marks the entry complete.
//
// Commits for the same key are serialized across processes; when another
// commit already completed the entry, the existing directory is returned and
// source is left untouched.
func (i *Index) Commit(key Key, source string) (dir string, err error) {
	if err := key.Validate(); err != nil {
		return "", &CacheWriteError{Key: key, Op: "validate key", Err: err}
	}

	parent := filepath.Dir(i.Dir(key))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &CacheWriteError{Key: key, Op: "create directory", Err: err}
	}

	lock := flock.New(i.Dir(key) + lockSuffix)
	if err := lock.Lock(); err != nil {
		return "", &CacheWriteError{Key: key, Op: "lock entry", Err: err}
	}
	defer lock.Unlock()

	if existing, ok := i.Lookup(key); ok {
		logdetail(fmt.Sprintf("%s already cached by another process", key))
		return existing, nil
	}

	staging, err := os.MkdirTemp(parent, "."+key.Arch+"-")
	if err != nil {
		return "", &CacheWriteError{Key: key, Op: "create staging directory", Err: err}
	}
	defer os.RemoveAll(staging)

	if err := os.Chmod(staging, 0o755); err != nil {
		return "", &CacheWriteError{Key: key, Op: "create staging directory", Err: err}
	}

	if err := copyDir(source, staging); err != nil {
		return "", &CacheWriteError{Key: key, Op: "copy files", Err: err}
	}

	dir = i.Dir(key)

	// leftovers of an interrupted install, never marked complete
	if err := os.RemoveAll(dir); err != nil {
		return "", &CacheWriteError{Key: key, Op: "remove stale entry", Err: err}
	}

	if err := os.Rename(staging, dir); err != nil {
		return "", &CacheWriteError{Key: key, Op: "move entry into place", Err: err}
	}

	if err := os.WriteFile(i.marker(key), nil, 0o644); err != nil {
		return "", &CacheWriteError{Key: key, Op: "write completion marker", Err: err}
	}

	return dir, nil
}

// Remove deletes the entry for key. The marker goes first so a concurrent
// lookup never sees a half deleted entry as complete.
func (i *Index) Remove(key Key) error {
	if err := key.Validate(); err != nil {
		return &CacheWriteError{Key: key, Op: "validate key", Err: err}
	}

	lock := flock.New(i.Dir(key) + lockSuffix)
	if err := lock.Lock(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &CacheWriteError{Key: key, Op: "lock entry", Err: err}
	}
	defer lock.Unlock()

	if err := os.Remove(i.marker(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &CacheWriteError{Key: key, Op: "remove completion marker", Err: err}
	}

	if err := os.RemoveAll(i.Dir(key)); err != nil {
		return &CacheWriteError{Key: key, Op: "remove entry", Err: err}
	}

	return nil
}

// Versions lists the completed versions of tool cached for arch, newest first.
// Versions that aren't semver are listed after the rest in lexical order.
func (i *Index) Versions(tool, arch string) []string {
	entries, err := os.ReadDir(filepath.Join(i.root, tool))
	if err != nil {
		return nil
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := i.Lookup(Key{Tool: tool, Version: entry.Name(), Arch: arch}); ok {
			versions = append(versions, entry.Name())
		}
	}

	sort.SliceStable(versions, func(a, b int) bool {
		va, vb := canonical(versions[a]), canonical(versions[b])
		switch {
		case va != "" && vb != "":
			return semver.Compare(va, vb) > 0
		case va != "":
			return true
		case vb != "":
			return false
		default:
			return versions[a] < versions[b]
		}
	})

	return versions
}

func canonical(version string) string {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return ""
	}
	return version
}

// copyDir copies the regular files and directories under src into dst,
// keeping file modes.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("unsupported file type for %s", path)
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	// umask may have dropped bits from perm
	return os.Chmod(dst, perm)
}

// CacheWriteError is returned when a filesystem operation fails while
// committing or removing an entry.
type CacheWriteError struct {
	Key Key
	Op  string
	Err error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("failed to cache %s: %s: %v", e.Key, e.Op, e.Err)
}

func (e *CacheWriteError) Unwrap() error {
	return e.Err
}
