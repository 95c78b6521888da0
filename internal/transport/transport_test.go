package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumiprobe/internal/logging"
	"lumiprobe/internal/protocol"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(&logging.Config{Level: logging.LevelError, Output: "stderr"})
	require.NoError(t, err)
	return logger
}

// listenUDP opens a local UDP listener standing in for the device.
func listenUDP(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func TestSendDeliversPayload(t *testing.T) {
	listener, port := listenUDP(t)

	sess, err := Open(context.Background(), Config{
		Host:         "127.0.0.1",
		Port:         port,
		WriteTimeout: time.Second,
	}, testLogger(t))
	require.NoError(t, err)
	defer sess.Close()

	payload := []byte(`{"msg":{"cmd":"razer","data":{"pt":"uwABsQEK"}}}`)
	accepted, err := sess.Send(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, accepted)

	require.NoError(t, listener.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 256)
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func TestSetRazerModeSendsKnownFrames(t *testing.T) {
	listener, port := listenUDP(t)

	sess, err := Open(context.Background(), Config{
		Host:         "127.0.0.1",
		Port:         port,
		WriteTimeout: time.Second,
	}, testLogger(t))
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.SetRazerMode(context.Background(), true))
	require.NoError(t, sess.SetRazerMode(context.Background(), false))

	want := [][]byte{
		[]byte(`{"msg":{"cmd":"razer","data":{"pt":"uwABsQEK"}}}`),
		[]byte(`{"msg":{"cmd":"razer","data":{"pt":"uwABsQAL"}}}`),
	}
	buf := make([]byte, 256)
	for i, expect := range want {
		require.NoError(t, listener.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := listener.ReadFromUDP(buf)
		require.NoError(t, err, "frame %d", i)

		wantPkt, err := protocol.RazerModePacket(i == 0)
		require.NoError(t, err)
		assert.Equal(t, wantPkt, buf[:n])
		assert.Equal(t, expect, buf[:n])
	}
}

func TestAddr(t *testing.T) {
	_, port := listenUDP(t)
	sess, err := Open(context.Background(), Config{
		Host:         "127.0.0.1",
		Port:         port,
		WriteTimeout: time.Second,
	}, testLogger(t))
	require.NoError(t, err)
	defer sess.Close()
	assert.Contains(t, sess.Addr(), "127.0.0.1:")
}

func TestOpenBadHost(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Host:         "not a host name",
		Port:         4003,
		WriteTimeout: time.Second,
	}, testLogger(t))
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestErrorKindStrings(t *testing.T) {
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "connection refused", ConnectionRefused.String())
	assert.Equal(t, "send failed", SendFailed.String())
}
