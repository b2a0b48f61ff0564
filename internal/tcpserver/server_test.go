package tcpserver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/flowlog/internal/model"
)

func TestNewServer_DefaultLocalhostAddress(t *testing.T) {
	t.Parallel()

	s := NewServer("")
	assert.Equal(t, DefaultAddr, s.Addr())
}

func TestNewServer_UsesConfiguredAddressAndBuffers(t *testing.T) {
	t.Parallel()

	s := NewServer("0.0.0.0:5000", ServerConfig{
		LineChannelSize: 64,
		MaxLineSize:     2048,
	})

	assert.Equal(t, "0.0.0.0:5000", s.Addr())
	assert.Equal(t, 64, cap(s.lineChan))
	assert.Equal(t, 2048, s.maxLineSize)
}

func TestServer_ReceivesLines(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())

	conn, err := net.Dial("tcp", s.Addr())
	require.NoError(t, err)
	_, err = conn.Write([]byte("first\n\nsecond\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	var got []model.IngestEnvelope
	for len(got) < 2 {
		select {
		case env := <-s.Lines():
			got = append(got, env)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	stream := conn.LocalAddr().String()
	assert.Equal(t, []model.IngestEnvelope{
		{Source: "tcp", Stream: stream, Line: "first"},
		{Source: "tcp", Stream: stream, Line: "second"},
	}, got)

	require.NoError(t, s.Stop())
	_, ok := <-s.Lines()
	assert.False(t, ok)
}

func TestServer_StreamPerConnection(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	a, err := net.Dial("tcp", s.Addr())
	require.NoError(t, err)
	defer a.Close()
	b, err := net.Dial("tcp", s.Addr())
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Write([]byte("from a\n"))
	require.NoError(t, err)
	_, err = b.Write([]byte("from b\n"))
	require.NoError(t, err)

	streams := map[string]string{}
	for len(streams) < 2 {
		select {
		case env := <-s.Lines():
			streams[env.Line] = env.Stream
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", streams)
		}
	}
	assert.Equal(t, a.LocalAddr().String(), streams["from a"])
	assert.Equal(t, b.LocalAddr().String(), streams["from b"])
	assert.NotEqual(t, streams["from a"], streams["from b"])
}

func TestServer_StopWithOpenConnection(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())

	conn, err := net.Dial("tcp", s.Addr())
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		_ = s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an idle connection")
	}
	assert.NoError(t, s.Stop())
}
