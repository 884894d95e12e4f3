//go:build linux

package rootfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountOverlay_RejectsIncompleteSpec(t *testing.T) {
	err := MountOverlay(OverlaySpec{LowerDir: "/tmp"})
	assert.ErrorIs(t, err, ErrOverlayMount)
}

func TestMountOverlay_RequiresPrivilege(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("test expects an unprivileged mount(2) failure")
	}

	dir := t.TempDir()
	spec := OverlaySpec{
		LowerDir: filepath.Join(dir, "lower"),
		UpperDir: filepath.Join(dir, "upper"),
		WorkDir:  filepath.Join(dir, "work"),
		Target:   filepath.Join(dir, "merged"),
	}
	require.NoError(t, os.MkdirAll(spec.LowerDir, 0700))
	require.NoError(t, os.MkdirAll(spec.Target, 0700))

	err := MountOverlay(spec)
	assert.ErrorIs(t, err, ErrOverlayMount)
}

func TestUnmountOverlay_DiscardsUpperAndWorkDirs(t *testing.T) {
	dir := t.TempDir()
	spec := OverlaySpec{
		LowerDir: filepath.Join(dir, "lower"),
		UpperDir: filepath.Join(dir, "upper"),
		WorkDir:  filepath.Join(dir, "work"),
		Target:   filepath.Join(dir, "merged"),
	}
	require.NoError(t, os.MkdirAll(spec.UpperDir, 0700))
	require.NoError(t, os.MkdirAll(spec.WorkDir, 0700))
	require.NoError(t, os.MkdirAll(spec.Target, 0700))

	require.NoError(t, UnmountOverlay(spec))

	_, err := os.Stat(spec.UpperDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(spec.WorkDir)
	assert.True(t, os.IsNotExist(err))
}
