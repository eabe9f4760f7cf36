package binary

import (
	"strings"
	"text/template"
)

// Template contains the metadata of a single install request.
// Origins use it to build download urls and to know where the executable
// has to end up.
type Template struct {
	// OS is the operating system target (e.g., "linux", "darwin", "windows")
	OS string
	// Arch is the architecture target (e.g., "amd64", "arm64")
	Arch string

	// Name of the tool
	Name string
	// Version is the resolved version string
	Version string
	// Extension is the file extension for the executable.
	// Usually it's empty on unix systems and ".exe" on windows.
	Extension string

	// Artifact is the distributor file name for the target platform.
	// It can contain template variables as well, e.g. "tool-{{.Version}}-linux";
	// origins receive it already resolved.
	Artifact string
	// ArchiveExtension is set when the artifact is an archive, e.g. ".zip"
	ArchiveExtension string
	// ExecutablePath is the location of the executable inside the archive.
	// It can contain template variables as well.
	ExecutablePath string

	// Directory is the tool directory that will be committed to the cache
	Directory string
	// Cmd is the qualified path where the executable has to be placed
	Cmd string
	// Workdir is scratch space for downloads and extraction.
	// It's removed once the install finishes.
	Workdir string
}

// funcs are available to every format, e.g. {{.OS | title}} for
// distributors naming their artifacts "Darwin" or "Linux".
var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"trimprefix": func(prefix, s string) string { return strings.TrimPrefix(s, prefix) },
	"replace":    func(old, replacement, s string) string { return strings.ReplaceAll(s, old, replacement) },
}

// Resolve renders format with the Template fields.
// Referencing a field that doesn't exist is an error.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("bin").Funcs(funcs).Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}
