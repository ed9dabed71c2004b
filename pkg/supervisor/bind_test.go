package supervisor

import (
	"net"
	"testing"

	"github.com/app-tools/appwarden/pkg/errors"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPortAvailable_FreePort(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	assert.NoError(t, checkPortAvailable("127.0.0.1", port))
}

func TestCheckPortAvailable_OccupiedPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	err = checkPortAvailable("127.0.0.1", port)
	require.Error(t, err)
	assert.True(t, errors.IsBindError(err))
	assert.Contains(t, err.Error(), "not available")
}
