package platform

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var table = Table{
	{Linux, AMD64}:   {Artifact: "tool-linux"},
	{Linux, ARM64}:   {Artifact: "tool-linux-arm64"},
	{MacOS, AMD64}:   {Artifact: "tool-mac"},
	{Windows, AMD64}: {Artifact: "tool-windows", ArchiveExtension: ".zip", ExecutablePath: "tool/tool.exe"},
}

func TestCurrent(t *testing.T) {
	current := Current()

	assert.Equal(t, OS(runtime.GOOS), current.OS)
	assert.Equal(t, Arch(runtime.GOARCH), current.Arch)
}

func TestTable_Describe(t *testing.T) {
	t.Run("every supported target has an artifact", func(t *testing.T) {
		for _, target := range table.Targets() {
			desc, err := table.Describe(target)
			require.NoError(t, err, target.String())
			assert.NotEmpty(t, desc.Artifact, target.String())
		}
	})

	t.Run("archive descriptor", func(t *testing.T) {
		desc, err := table.Describe(Target{Windows, AMD64})
		require.NoError(t, err)

		assert.True(t, desc.IsArchive())
		assert.Equal(t, ".zip", desc.ArchiveExtension)
		assert.Equal(t, "tool/tool.exe", desc.ExecutablePath)
	})

	t.Run("bare executable descriptor", func(t *testing.T) {
		desc, err := table.Describe(Target{Linux, AMD64})
		require.NoError(t, err)
		assert.False(t, desc.IsArchive())
	})

	t.Run("unsupported target", func(t *testing.T) {
		target := Target{Windows, ARM64}

		_, err := table.Describe(target)
		require.Error(t, err)

		var unsupported *UnsupportedPlatformError
		require.True(t, errors.As(err, &unsupported))
		assert.Equal(t, target, unsupported.Target)
		assert.Equal(t, "unsupported platform windows/arm64", err.Error())
	})

	t.Run("unknown os", func(t *testing.T) {
		_, err := table.Describe(Target{"plan9", AMD64})
		assert.Error(t, err)
	})

	t.Run("row without artifact is unsupported", func(t *testing.T) {
		broken := Table{{Linux, AMD64}: {}}
		_, err := broken.Describe(Target{Linux, AMD64})
		assert.Error(t, err)
	})
}

func TestTable_Targets(t *testing.T) {
	assert.Equal(
		t,
		[]Target{
			{MacOS, AMD64},
			{Linux, AMD64},
			{Linux, ARM64},
			{Windows, AMD64},
		},
		table.Targets(),
	)
}

func TestTarget_ExecutableExtension(t *testing.T) {
	assert.Equal(t, ".exe", Target{Windows, AMD64}.ExecutableExtension())
	assert.Equal(t, "", Target{Linux, AMD64}.ExecutableExtension())
	assert.Equal(t, "", Target{MacOS, ARM64}.ExecutableExtension())
}
