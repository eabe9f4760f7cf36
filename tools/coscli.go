package tools

// Coscli is the Tencent Cloud COS command line tool, published as bare
// executables on GitHub releases. Release tags are used verbatim.
func Coscli() Definition {
	return Definition{
		Name:   "coscli",
		URL:    "https://github.com/tencentyun/coscli/releases/download/{{.Version}}/{{.Artifact}}",
		GitHub: "tencentyun/coscli",
		Platforms: []PlatformEntry{
			{OS: "linux", Arch: "amd64", Artifact: "coscli-linux"},
			{OS: "windows", Arch: "amd64", Artifact: "coscli-windows.exe"},
			{OS: "darwin", Arch: "amd64", Artifact: "coscli-mac"},
			// there's no native build, the amd64 one runs under rosetta
			{OS: "darwin", Arch: "arm64", Artifact: "coscli-mac"},
		},
	}
}
