//go:build linux

package hypervisor

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForSocket_SucceedsOnceListening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	assert.NoError(t, waitForSocket(context.Background(), path, time.Second))
}

func TestWaitForSocket_TimesOutWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-appears.sock")
	err := waitForSocket(context.Background(), path, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitForSocket_RespectsContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-appears.sock")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitForSocket(ctx, path, time.Second)
	assert.Error(t, err)
}

func TestLinuxBackend_Name(t *testing.T) {
	assert.Equal(t, "firecracker", NewLinuxBackend().Name())
}
