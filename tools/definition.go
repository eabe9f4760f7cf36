// Package tools holds the definitions of the tools that can be installed,
// both builtin and loaded from a manifest file, and turns them into
// [binary.Binary] values ready to be ensured.
package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aexvir/toolsetup/binary"
	"github.com/aexvir/toolsetup/platform"
	"github.com/aexvir/toolsetup/version"
)

// PlatformEntry is the artifact published for a single os/arch pair.
type PlatformEntry struct {
	OS               string `toml:"os"`
	Arch             string `toml:"arch"`
	Artifact         string `toml:"artifact"`
	ArchiveExtension string `toml:"archive_extension"`
	ExecutablePath   string `toml:"executable_path"`
}

// Definition describes where a tool is published and how its versions are named.
type Definition struct {
	Name string `toml:"name"`
	// URL is the download url template, see [binary.Template] for the fields.
	URL string `toml:"url"`
	// TrimPrefix is removed from versions, e.g. "v" when tags are "v1.2.3"
	// but artifacts are published under "1.2.3".
	TrimPrefix string `toml:"trim_prefix"`

	// GitHub is the "owner/repo" whose latest release is the latest version.
	GitHub string `toml:"github"`
	// LatestURL is a plain text endpoint answering with the latest version.
	LatestURL string `toml:"latest_url"`

	Platforms []PlatformEntry `toml:"platform"`
}

// Validate checks the definition is usable.
func (d Definition) Validate() error {
	var errs []error

	if d.Name == "" || strings.ContainsAny(d.Name, `/\ `) || d.Name == "." || d.Name == ".." {
		errs = append(errs, fmt.Errorf("invalid name %q", d.Name))
	}

	if d.URL == "" {
		errs = append(errs, errors.New("url must be set"))
	} else if _, err := (binary.Template{}).Resolve(d.URL); err != nil {
		errs = append(errs, fmt.Errorf("invalid url template: %w", err))
	}

	if d.GitHub != "" && d.LatestURL != "" {
		errs = append(errs, errors.New("github and latest_url are mutually exclusive"))
	}

	if len(d.Platforms) == 0 {
		errs = append(errs, errors.New("at least one platform must be defined"))
	}

	seen := make(map[platform.Target]bool, len(d.Platforms))
	for _, entry := range d.Platforms {
		target := entry.target()
		switch {
		case entry.OS == "" || entry.Arch == "":
			errs = append(errs, fmt.Errorf("platform %s: os and arch must be set", target))
		case entry.Artifact == "":
			errs = append(errs, fmt.Errorf("platform %s: artifact must be set", target))
		case !resolvable(entry.Artifact) || !resolvable(entry.ExecutablePath):
			errs = append(errs, fmt.Errorf("platform %s: invalid artifact or executable path template", target))
		case seen[target]:
			errs = append(errs, fmt.Errorf("platform %s defined more than once", target))
		}
		seen[target] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("tool %q: %w", d.Name, errors.Join(errs...))
	}

	return nil
}

// Table returns the platform table of the tool.
func (d Definition) Table() platform.Table {
	table := make(platform.Table, len(d.Platforms))
	for _, entry := range d.Platforms {
		table[entry.target()] = platform.Descriptor{
			Artifact:         entry.Artifact,
			ArchiveExtension: entry.ArchiveExtension,
			ExecutablePath:   entry.ExecutablePath,
		}
	}
	return table
}

// Source returns where the latest version is looked up, or nil when the
// tool can only be installed at concrete versions.
func (d Definition) Source(conf Config) (version.Source, error) {
	client := binary.NewHTTPClient(conf.Timeout)

	switch {
	case d.GitHub != "":
		options := []version.GitHubOption{
			version.WithGitHubToken(conf.GitHubToken),
			version.WithGitHubHTTPClient(client),
		}
		if conf.GitHubAPI != "" {
			options = append(options, version.WithGitHubBaseURL(conf.GitHubAPI))
		}
		return version.NewGitHubSource(d.GitHub, options...)

	case d.LatestURL != "":
		return version.NewTextSource(d.LatestURL, client), nil
	}

	return nil, nil
}

// Binary returns the binary for the tool pinned at ver.
// The options are applied after the ones derived from conf, so they can
// override any of them.
func (d Definition) Binary(ver string, conf Config, options ...binary.Option) (*binary.Binary, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	source, err := d.Source(conf)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", d.Name, err)
	}

	var resolveropts []version.Option
	if d.TrimPrefix != "" {
		resolveropts = append(resolveropts, version.WithTrimPrefix(d.TrimPrefix))
	}
	if conf.Retries > 1 {
		resolveropts = append(resolveropts, version.WithRetry(conf.Retries, conf.RetryBackoff))
	}

	opts := []binary.Option{
		binary.WithPlatforms(d.Table()),
		binary.WithResolver(version.NewResolver(source, resolveropts...)),
		binary.WithHTTPClient(binary.NewHTTPClient(conf.Timeout)),
	}
	if conf.CacheDir != "" {
		opts = append(opts, binary.WithCacheRoot(conf.CacheDir))
	}
	if conf.TempDir != "" {
		opts = append(opts, binary.WithTempDir(conf.TempDir))
	}

	return binary.New(d.Name, ver, binary.RemoteDownload(d.URL), append(opts, options...)...)
}

func resolvable(format string) bool {
	_, err := (binary.Template{}).Resolve(format)
	return err == nil
}

func (e PlatformEntry) target() platform.Target {
	return platform.Target{OS: platform.OS(e.OS), Arch: platform.Arch(e.Arch)}
}
