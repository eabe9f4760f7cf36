package tools

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Registry indexes tool definitions by name.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Builtin returns a registry holding the tools known out of the box.
func Builtin() *Registry {
	reg := NewRegistry()
	for _, def := range []Definition{Ossutil(), Coscli()} {
		if err := reg.Register(def); err != nil {
			panic(err)
		}
	}
	return reg
}

// Register adds def, replacing any definition with the same name.
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the definition named name.
func (r *Registry) Lookup(name string) (Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown tool %q, available: %s", name, strings.Join(r.Names(), ", "))
	}
	return def, nil
}

// Names lists the registered tools alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load registers every tool of the manifest at path.
func (r *Registry) Load(path string) error {
	defs, err := LoadManifest(path)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return nil
}

type manifest struct {
	Tools []Definition `toml:"tool"`
}

// LoadManifest reads tool definitions from a TOML file.
//
//	[[tool]]
//	name = "rclone"
//	url = "https://downloads.rclone.org/{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}"
//	github = "rclone/rclone"
//
//	[[tool.platform]]
//	os = "linux"
//	arch = "amd64"
//	artifact = "rclone-current-linux-amd64"
//	archive_extension = ".zip"
//	executable_path = "rclone-current-linux-amd64/rclone"
//
// Unknown keys are rejected so typos don't silently drop settings.
func LoadManifest(path string) ([]Definition, error) {
	var m manifest

	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("manifest %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if len(m.Tools) == 0 {
		return nil, fmt.Errorf("manifest %s: no tools defined", path)
	}

	var errs []error
	for _, def := range m.Tools {
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, errors.Join(errs...))
	}

	return m.Tools, nil
}
