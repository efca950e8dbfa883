package stun

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/pion/stun/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func startTestServer(t *testing.T, software string) (*Server, *net.UDPAddr) {
	t.Helper()
	server, err := Listen([]string{"127.0.0.1:0"}, software)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()
	t.Cleanup(func() {
		require.NoError(t, server.Shutdown())
		assert.ErrorIs(t, <-errCh, ErrServerClosed)
	})

	return server, server.Addrs()[0].(*net.UDPAddr)
}

// roundTrip retries the request because the read loop may not be running yet.
func roundTrip(t *testing.T, serverAddr *net.UDPAddr, request *stun.Message) (*stun.Message, *net.UDPAddr) {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, serverAddr)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, maxMessageSize)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err = conn.Write(request.Raw)
		require.NoError(t, err)

		_ = conn.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			continue
		}

		response := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
		require.NoError(t, response.Decode())
		return response, conn.LocalAddr().(*net.UDPAddr)
	}
	t.Fatal("no STUN response")
	return nil, nil
}

func TestServer_BindingRequest(t *testing.T) {
	_, serverAddr := startTestServer(t, "iceagent test")

	request, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	require.NoError(t, err)

	response, clientAddr := roundTrip(t, serverAddr, request)
	assert.Equal(t, stun.BindingSuccess, response.Type)
	assert.Equal(t, request.TransactionID, response.TransactionID)

	var mapped stun.XORMappedAddress
	require.NoError(t, mapped.GetFrom(response))
	assert.Equal(t, clientAddr.Port, mapped.Port)
	assert.True(t, mapped.IP.Equal(clientAddr.IP))

	var software stun.Software
	require.NoError(t, software.GetFrom(response))
	assert.Equal(t, "iceagent test", string(software))

	assert.NoError(t, stun.Fingerprint.Check(response))
}

func TestServer_IgnoresGarbage(t *testing.T) {
	_, serverAddr := startTestServer(t, "")

	conn, err := net.DialUDP("udp", nil, serverAddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not stun at all"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err = conn.Read(make([]byte, maxMessageSize))
	assert.Error(t, err)

	request, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	require.NoError(t, err)
	response, _ := roundTrip(t, serverAddr, request)
	assert.Equal(t, stun.BindingSuccess, response.Type)

	var software stun.Software
	assert.ErrorIs(t, software.GetFrom(response), stun.ErrAttributeNotFound)
}

func TestServer_URLs(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	require.NoError(t, err)
	server := NewServer([]net.PacketConn{conn}, "")
	defer server.Shutdown()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	assert.Equal(t, []string{"stun:" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port))}, server.URLs())
}

func TestServer_NoListeners(t *testing.T) {
	server := NewServer(nil, "")
	assert.ErrorIs(t, server.Serve(), ErrNoListeners)
}

func TestServer_ResponseRate(t *testing.T) {
	server, err := Listen([]string{"127.0.0.1:0"}, "")
	require.NoError(t, err)
	server.SetResponseRate(rate.Every(time.Hour), 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()
	defer func() {
		require.NoError(t, server.Shutdown())
		assert.ErrorIs(t, <-errCh, ErrServerClosed)
	}()

	request, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	require.NoError(t, err)
	response, _ := roundTrip(t, server.Addrs()[0].(*net.UDPAddr), request)
	assert.Equal(t, stun.BindingSuccess, response.Type)

	conn, err := net.DialUDP("udp", nil, server.Addrs()[0].(*net.UDPAddr))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(request.Raw)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = conn.Read(make([]byte, maxMessageSize))
	assert.Error(t, err, "second request is over the limit")
}
