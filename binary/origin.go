package binary

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Origin defines the interface for provisioning binaries from different sources.
type Origin interface {
	// Install places the executable at template.Cmd.
	// The template contains information about the target platform and the
	// resolved version; fetch is the downloader configured on the [Binary].
	Install(ctx context.Context, template Template, fetch Fetcher) error
}

// remote implements [Origin] for artifacts published on a distribution endpoint.
// Depending on the platform descriptor the artifact is either the executable
// itself or an archive containing it.
type remote struct {
	urlformat string
}

// RemoteDownload creates a new Origin that downloads the artifact from a URL.
// The URL can contain template variables that will be resolved using the [Template]
// values during installation.
// e.g. "https://gosspublic.alicdn.com/ossutil/{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}"
//
// When the template carries an archive extension the artifact is extracted and
// the executable is taken from the template ExecutablePath; otherwise the
// downloaded file is the executable.
func RemoteDownload(url string) Origin {
	return &remote{
		urlformat: url,
	}
}

func (r *remote) Install(ctx context.Context, template Template, fetch Fetcher) error {
	url, err := template.Resolve(r.urlformat)
	if err != nil {
		return fmt.Errorf("failed to resolve URL: %w", err)
	}

	artifact := filepath.Join(template.Workdir, template.Artifact+template.ArchiveExtension)
	if err := fetch(ctx, url, artifact); err != nil {
		return err
	}

	if template.ArchiveExtension == "" {
		return move(artifact, template.Cmd)
	}

	extracted := filepath.Join(template.Workdir, "extracted")
	if err := extract(artifact, template.ArchiveExtension, extracted); err != nil {
		return fmt.Errorf("failed to extract %s: %w", url, err)
	}

	inner := template.ExecutablePath
	if inner == "" {
		inner = template.Name + template.Extension
	}

	inner, err = template.Resolve(inner)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	executable := filepath.Join(extracted, filepath.FromSlash(inner))
	info, err := os.Stat(executable)
	if err != nil || !info.Mode().IsRegular() {
		return &ArchiveLayoutError{Archive: url, Path: inner}
	}

	logdetail(fmt.Sprintf("  resolved %s to %s", inner, filepath.Base(template.Cmd)))
	return move(executable, template.Cmd)
}

func move(source, destination string) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("failed to create destination folder %s: %w", filepath.Dir(destination), err)
	}

	if err := os.Rename(source, destination); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", source, destination, err)
	}

	return nil
}

// makeExecutable sets the executable bits on path.
// Done on every platform, even where the bits carry no meaning.
func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("executable %s was not produced by the install", path)
		}
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}

	return nil
}
