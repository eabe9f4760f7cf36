package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aexvir/toolsetup/platform"
	"github.com/aexvir/toolsetup/tools"
)

// settings holds everything the commands need, resolved from flags,
// TOOLSETUP_* variables and the runner environment, in that order.
type settings struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	s := &settings{v: viper.New()}

	root := &cobra.Command{
		Use:   "toolsetup",
		Short: "Install command line tools into a versioned cache and put them on PATH",
		Long: `toolsetup ensures a command line tool of a given version is available,
downloading it only when the tool cache doesn't hold it yet.

Examples:
  toolsetup install ossutil@1.7.19      # install a concrete version
  toolsetup install coscli              # install the latest release
  toolsetup exec ossutil -- ls oss://b  # run a tool, installing it first
  toolsetup list ossutil                # cached versions
  toolsetup platforms coscli            # supported platforms`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	s.register(root.PersistentFlags())

	root.AddCommand(
		newInstallCmd(s),
		newExecCmd(s),
		newListCmd(s),
		newPlatformsCmd(s),
	)

	return root
}

// register defines the settings flags and binds them, so every setting can
// also come from a TOOLSETUP_* variable.
func (s *settings) register(flags *pflag.FlagSet) {
	flags.String("cache", "", "tool cache root (default: $RUNNER_TOOL_CACHE or the user cache directory)")
	flags.String("temp", "", "directory for downloads (default: $RUNNER_TEMP or the system temp directory)")
	flags.Duration("timeout", 0, "network timeout per request phase")
	flags.Int("retries", 0, "attempts made to resolve the latest version, at most 5")
	flags.String("github-token", "", "token used for GitHub release lookups (default: $GITHUB_TOKEN)")
	flags.String("manifest", "", "TOML file with additional tool definitions")
	flags.String("target", "", "install for another platform, as os/arch")

	s.v.SetEnvPrefix("TOOLSETUP")
	s.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.v.AutomaticEnv()

	if err := s.v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// config returns the tools configuration, the runner environment overridden
// by anything set explicitly.
func (s *settings) config() (tools.Config, error) {
	conf, err := tools.ConfigFromEnv()
	if err != nil {
		return tools.Config{}, err
	}

	if dir := s.v.GetString("cache"); dir != "" {
		conf.CacheDir = dir
	}
	if dir := s.v.GetString("temp"); dir != "" {
		conf.TempDir = dir
	}
	if token := s.v.GetString("github-token"); token != "" {
		conf.GitHubToken = token
	}
	if timeout := s.v.GetDuration("timeout"); timeout > 0 {
		conf.Timeout = timeout
	}
	if retries := s.v.GetInt("retries"); retries > 0 {
		conf.Retries = retries
	}

	if conf.Retries > 1 && conf.RetryBackoff == 0 {
		conf.RetryBackoff = 2 * time.Second
	}

	return conf, nil
}

// registry returns the builtin tools plus the ones in the manifest, if any.
func (s *settings) registry() (*tools.Registry, error) {
	reg := tools.Builtin()

	if path := s.v.GetString("manifest"); path != "" {
		if err := reg.Load(path); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// target returns the platform to install for.
func (s *settings) target() (platform.Target, error) {
	raw := s.v.GetString("target")
	if raw == "" {
		return platform.Current(), nil
	}

	goos, goarch, ok := strings.Cut(raw, "/")
	if !ok || goos == "" || goarch == "" {
		return platform.Target{}, fmt.Errorf("invalid target %q: expected os/arch, e.g. linux/amd64", raw)
	}

	return platform.Target{OS: platform.OS(goos), Arch: platform.Arch(goarch)}, nil
}

// parseRef splits "tool@version"; the version defaults to latest.
func parseRef(ref string) (string, string, error) {
	name, ver, found := strings.Cut(ref, "@")
	if name == "" {
		return "", "", fmt.Errorf("invalid tool reference %q", ref)
	}
	if !found {
		return name, "latest", nil
	}
	if strings.TrimSpace(ver) == "" {
		return "", "", fmt.Errorf("invalid tool reference %q: empty version", ref)
	}
	return name, ver, nil
}
