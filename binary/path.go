package binary

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// PathEnv is the command search path an installed tool is published to.
type PathEnv interface {
	// PrependPath puts dir in front of the search path.
	PrependPath(dir string) error
}

type processenv struct{}

// ProcessEnv publishes to the PATH of the running process.
// The change lasts for the lifetime of the process and is inherited by the
// commands it spawns; nothing is persisted.
func ProcessEnv() PathEnv {
	return processenv{}
}

func (processenv) PrependPath(dir string) error {
	return os.Setenv("PATH", prependPath(dir, os.Getenv("PATH")))
}

// Env is an explicit environment, in the KEY=value form used by [exec.Cmd].
// It allows publishing tools without touching the process environment and
// handing the result to child processes.
type Env struct {
	vars []string
}

// NewEnv builds an environment from a list of KEY=value entries,
// typically [os.Environ].
func NewEnv(environ []string) *Env {
	return &Env{vars: append([]string(nil), environ...)}
}

// Get returns the value of the variable name, or an empty string.
func (e *Env) Get(name string) string {
	if idx := e.index(name); idx >= 0 {
		_, value, _ := strings.Cut(e.vars[idx], "=")
		return value
	}
	return ""
}

// Set defines the variable name, replacing any previous value.
func (e *Env) Set(name, value string) {
	entry := name + "=" + value
	if idx := e.index(name); idx >= 0 {
		e.vars[idx] = entry
		return
	}
	e.vars = append(e.vars, entry)
}

// PrependPath puts dir in front of the PATH variable.
func (e *Env) PrependPath(dir string) error {
	if dir == "" {
		return fmt.Errorf("empty path can't be published")
	}

	name := "PATH"
	if idx := e.index(name); idx >= 0 {
		// keep the original spelling, windows uses "Path"
		name, _, _ = strings.Cut(e.vars[idx], "=")
	}

	e.Set(name, prependPath(dir, e.Get(name)))
	return nil
}

// Environ returns a copy of the environment entries.
func (e *Env) Environ() []string {
	return append([]string(nil), e.vars...)
}

// LookPath searches for an executable named file in the directories of the
// environment PATH, like [exec.LookPath] does for the process environment.
func (e *Env) LookPath(file string) (string, error) {
	candidates := []string{file}
	if runtime.GOOS == "windows" && filepath.Ext(file) == "" {
		candidates = append([]string{file + ".exe"}, candidates...)
	}

	for _, dir := range filepath.SplitList(e.Get("PATH")) {
		if dir == "" {
			continue
		}
		for _, candidate := range candidates {
			path := filepath.Join(dir, candidate)
			if isExecutable(path) {
				return path, nil
			}
		}
	}

	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func (e *Env) index(name string) int {
	for idx, entry := range e.vars {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if key == name || (runtime.GOOS == "windows" && strings.EqualFold(key, name)) {
			return idx
		}
	}
	return -1
}

func prependPath(dir, current string) string {
	if current == "" {
		return dir
	}

	first, _, _ := strings.Cut(current, string(os.PathListSeparator))
	if first == dir {
		return current
	}

	return dir + string(os.PathListSeparator) + current
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}
