package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Resolve(t *testing.T) {
	tmpl := Template{
		OS:               "windows",
		Arch:             "amd64",
		Name:             "ossutil",
		Version:          "1.7.19",
		Extension:        ".exe",
		Artifact:         "ossutil-v1.7.19-windows-amd64",
		ArchiveExtension: ".zip",
		ExecutablePath:   "ossutil-v1.7.19-windows-amd64/ossutil.exe",
	}

	tests := map[string]struct {
		format   string
		expected string
		err      bool
	}{
		"ossutil distribution url": {
			format:   "https://gosspublic.alicdn.com/ossutil/{{.Version}}/{{.Artifact}}{{.ArchiveExtension}}",
			expected: "https://gosspublic.alicdn.com/ossutil/1.7.19/ossutil-v1.7.19-windows-amd64.zip",
		},
		"github release url": {
			format:   "https://github.com/tencentyun/coscli/releases/download/v{{.Version}}/{{.Name}}-{{.OS}}{{.Extension}}",
			expected: "https://github.com/tencentyun/coscli/releases/download/v1.7.19/ossutil-windows.exe",
		},
		"executable path": {
			format:   "{{.Artifact}}/{{.Name}}{{.Extension}}",
			expected: "ossutil-v1.7.19-windows-amd64/ossutil.exe",
		},
		"title": {
			format:   "{{.Name}}_{{.OS | title}}_x86_64",
			expected: "ossutil_Windows_x86_64",
		},
		"upper and lower": {
			format:   "{{.Arch | upper}}-{{\"EXE\" | lower}}",
			expected: "AMD64-exe",
		},
		"trimprefix": {
			format:   "{{.Artifact | trimprefix \"ossutil-\"}}",
			expected: "v1.7.19-windows-amd64",
		},
		"replace": {
			format:   "{{.Arch | replace \"amd64\" \"x86_64\"}}",
			expected: "x86_64",
		},
		"plain text": {
			format:   "ossutil",
			expected: "ossutil",
		},
		"unknown field": {
			format: "{{.Platform}}",
			err:    true,
		},
		"unknown function": {
			format: "{{.OS | capitalize}}",
			err:    true,
		},
		"malformed": {
			format: "{{.OS",
			err:    true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := tmpl.Resolve(test.format)
			if test.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, result)
		})
	}
}

func TestTemplate_ResolveEmpty(t *testing.T) {
	// definitions validate their url formats against a zero template
	result, err := Template{}.Resolve("{{.Version}}/{{.OS | title}}/{{.Artifact}}")
	require.NoError(t, err)
	assert.Equal(t, "//", result)
}
