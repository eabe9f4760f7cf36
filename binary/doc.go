// Package binary provides utilities to provision external command line tools
// at a given version and make them available on the command search path.
//
// At the core, a [Binary] is a description holding the tool name,
// the desired version and an origin pointing at where to obtain the
// tool from.
//
// Ensuring a binary goes through a fixed sequence of steps:
//   - the platform table is consulted, unsupported platforms fail right away
//   - the version token is resolved; "latest" asks the configured release source
//   - the cache is checked for a completed entry of (name, version, arch)
//   - on a miss the origin fetches and unpacks the artifact in a work directory,
//     the executable gets its permission bits and the result is committed to the cache
//   - the entry directory is prepended to the search path
//
// Origins implement the logic needed to place the executable. Currently only
// [RemoteDownload] is implemented, for tools published as plain executables or
// archives on a distribution endpoint. If any other source is needed, a new
// origin can be implemented by just fulfilling the [Origin] interface.
//
// The template passed as argument to the Install function contains all the
// information about the target platform and the resolved version, to tailor the
// installation process, e.g. using the Artifact value to point to the file built
// for the platform.
//
// example usage
//
//	ossutil, err := binary.New(
//		"ossutil",
//		"latest",
//		binary.RemoteDownload("https://gosspublic.alicdn.com/ossutil/{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}"),
//		binary.WithPlatforms(platform.Table{
//			{OS: platform.Linux, Arch: platform.AMD64}:   {Artifact: "ossutil64"},
//			{OS: platform.Windows, Arch: platform.AMD64}: {Artifact: "ossutil64", ArchiveExtension: ".zip", ExecutablePath: "ossutil64/ossutil64.exe"},
//		}),
//		binary.WithResolver(version.NewResolver(
//			version.NewTextSource("https://gosspublic.alicdn.com/ossutil/version.txt", nil),
//			version.WithTrimPrefix("v"),
//		)),
//	)
//
//	// download, cache and publish the tool if necessary
//	if err := ossutil.Ensure(ctx); err != nil {
//		return fmt.Errorf("failed to provision ossutil: %w", err)
//	}
//
//	// use via the root package
//	toolsetup.Run(ctx, ossutil.BinPath(), toolsetup.WithArgs("--help"))
//
//	// or via os/exec
//	exec.Command(ossutil.BinPath(), "--help").Run()
package binary
