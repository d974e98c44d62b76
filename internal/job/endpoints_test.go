package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEndpointsAdvertisesConfiguredBindHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	workerAddr, workerSock := fakePeer(t, func(tag string, parts [][]byte) (string, [][]byte) {
		return TagNormal, nil
	})
	t.Cleanup(workerSock.Destroy)

	e, err := newEndpoints("198.51.100.7", workerAddr, "127.0.0.1:1", time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(e.closeAll)

	assert.Contains(t, e.identity().RequestAddress, "198.51.100.7:")
}

func TestNewEndpointsFallsBackToPrimaryIPForUnsetBindHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	workerAddr, workerSock := fakePeer(t, func(tag string, parts [][]byte) (string, [][]byte) {
		return TagNormal, nil
	})
	t.Cleanup(workerSock.Destroy)

	e, err := newEndpoints("0.0.0.0", workerAddr, "127.0.0.1:1", time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(e.closeAll)

	assert.NotContains(t, e.identity().RequestAddress, "0.0.0.0:")
}
