package tools

// Ossutil is the Alibaba Cloud OSS command line tool.
// Published as a bare executable everywhere except windows, where it's a zip
// holding a folder with the executable.
func Ossutil() Definition {
	return Definition{
		Name:       "ossutil",
		URL:        "https://gosspublic.alicdn.com/ossutil/{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}",
		TrimPrefix: "v",
		LatestURL:  "https://gosspublic.alicdn.com/ossutil/version.txt",
		Platforms: []PlatformEntry{
			{OS: "linux", Arch: "amd64", Artifact: "ossutil64"},
			{OS: "linux", Arch: "arm64", Artifact: "ossutilarm64"},
			{OS: "darwin", Arch: "amd64", Artifact: "ossutilmac64"},
			{OS: "darwin", Arch: "arm64", Artifact: "ossutilmacarm64"},
			{
				OS:               "windows",
				Arch:             "amd64",
				Artifact:         "ossutil64",
				ArchiveExtension: ".zip",
				ExecutablePath:   "ossutil64/ossutil64.exe",
			},
		},
	}
}
