package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the settings shared by every tool installed in a run.
type Config struct {
	// CacheDir is the root of the tool cache.
	CacheDir string
	// TempDir is where downloads and extraction happen; empty means the
	// system temporary directory.
	TempDir string

	// GitHubToken authenticates release lookups.
	GitHubToken string
	// GitHubAPI overrides the GitHub api endpoint, e.g. for enterprise instances.
	GitHubAPI string

	// Timeout bounds every network phase up to the response headers.
	Timeout time.Duration
	// Retries is the number of attempts made to resolve "latest".
	Retries int
	// RetryBackoff is the wait between resolution attempts.
	RetryBackoff time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
// The cache lives in the user cache directory, falling back to ./bin when
// there's none.
func DefaultConfig() Config {
	conf := Config{
		CacheDir:     filepath.FromSlash("./bin"),
		Timeout:      30 * time.Second,
		Retries:      1,
		RetryBackoff: 2 * time.Second,
	}

	if dir, err := os.UserCacheDir(); err == nil {
		conf.CacheDir = filepath.Join(dir, "toolsetup")
	}

	// shared runners hit api rate limits and flaky networks more often
	if IsCIEnv() {
		conf.Retries = 3
	}

	return conf
}

// ConfigFromEnv returns the default config overridden by the environment.
//
//   - RUNNER_TOOL_CACHE and RUNNER_TEMP, as set by pipeline runners
//   - TOOLSETUP_CACHE, which wins over RUNNER_TOOL_CACHE
//   - GITHUB_TOKEN and GITHUB_API_URL
//   - TOOLSETUP_TIMEOUT, a duration like "45s"
//   - TOOLSETUP_RETRIES
func ConfigFromEnv() (Config, error) {
	conf := DefaultConfig()

	if dir := os.Getenv("RUNNER_TOOL_CACHE"); dir != "" {
		conf.CacheDir = dir
	}
	if dir := os.Getenv("TOOLSETUP_CACHE"); dir != "" {
		conf.CacheDir = dir
	}
	if dir := os.Getenv("RUNNER_TEMP"); dir != "" {
		conf.TempDir = dir
	}

	conf.GitHubToken = os.Getenv("GITHUB_TOKEN")
	conf.GitHubAPI = os.Getenv("GITHUB_API_URL")

	if raw := os.Getenv("TOOLSETUP_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return Config{}, fmt.Errorf("invalid TOOLSETUP_TIMEOUT %q: expected a positive duration", raw)
		}
		conf.Timeout = timeout
	}

	if raw := os.Getenv("TOOLSETUP_RETRIES"); raw != "" {
		retries, err := strconv.Atoi(raw)
		if err != nil || retries < 1 {
			return Config{}, fmt.Errorf("invalid TOOLSETUP_RETRIES %q: expected a positive number", raw)
		}
		conf.Retries = retries
	}

	return conf, nil
}

// IsCIEnv returns true if the current environment is a known ci system.
func IsCIEnv() bool {
	return os.Getenv("CI") != ""
}
