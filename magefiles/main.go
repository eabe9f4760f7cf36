//go:build mage

package main

import (
	"context"
	"fmt"

	"github.com/aexvir/toolsetup"
	"github.com/aexvir/toolsetup/tools"
)

const golangcilintVersion = "1.64.8"

var h = toolsetup.New(
	toolsetup.WithPreExecFunc(
		func(ctx context.Context) error { // ensure go mod download is run before any task
			return toolsetup.Run(ctx, "go", toolsetup.WithArgs("mod", "download"))
		},
	),
)

// golangci-lint releases, installed with toolsetup itself
func golangcilint() tools.Definition {
	def := tools.Definition{
		Name:       "golangci-lint",
		URL:        "https://github.com/golangci/golangci-lint/releases/download/v{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}",
		GitHub:     "golangci/golangci-lint",
		TrimPrefix: "v",
	}

	for _, os := range []string{"linux", "darwin", "windows"} {
		for _, arch := range []string{"amd64", "arm64"} {
			ext, exe := ".tar.gz", ""
			if os == "windows" {
				ext, exe = ".zip", ".exe"
			}

			def.Platforms = append(def.Platforms, tools.PlatformEntry{
				OS:               os,
				Arch:             arch,
				Artifact:         fmt.Sprintf("golangci-lint-{{.Version}}-%s-%s", os, arch),
				ArchiveExtension: ext,
				ExecutablePath:   fmt.Sprintf("{{.Artifact}}/golangci-lint%s", exe),
			})
		}
	}

	return def
}

// format codebase using gofmt
func Format(ctx context.Context) error {
	return h.Execute(
		ctx,
		func(ctx context.Context) error {
			return toolsetup.Run(ctx, "gofmt", toolsetup.WithArgs("-l", "-w", "."))
		},
	)
}

// lint the code using go mod tidy and golangci-lint
func Lint(ctx context.Context) error {
	conf, err := tools.ConfigFromEnv()
	if err != nil {
		return err
	}
	conf.CacheDir = "./bin"

	lint, err := golangcilint().Binary(golangcilintVersion, conf)
	if err != nil {
		return err
	}

	return h.Execute(
		ctx,
		goModTidy,
		tools.Provision(lint),
		func(ctx context.Context) error {
			args := []string{"run", "./..."}
			if tools.IsCIEnv() {
				args = append(args, "--out-format", "colored-line-number,code-climate:code-quality-report.json")
			}
			return toolsetup.Run(ctx, lint.BinPath(), toolsetup.WithArgs(args...))
		},
	)
}

// run unit tests
func Test(ctx context.Context) error {
	return h.Execute(
		ctx,
		func(ctx context.Context) error {
			return toolsetup.Run(ctx, "go", toolsetup.WithArgs("test", "-race", "-cover", "./..."))
		},
	)
}

// run go mod tidy
func Tidy(ctx context.Context) error {
	return h.Execute(ctx, goModTidy)
}

func goModTidy(ctx context.Context) error {
	return toolsetup.Run(ctx, "go", toolsetup.WithArgs("mod", "tidy"))
}
