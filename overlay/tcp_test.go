package overlay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startOverlay(t *testing.T) *TCPOverlay {
	t.Helper()
	o, err := NewTCPOverlay(TCPOverlayOptions{Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	go o.Start()
	t.Cleanup(o.Stop)
	require.Eventually(t, func() bool {
		return o.Addr() != ""
	}, time.Second, 10*time.Millisecond)
	return o
}

func TestTCPOverlay_sendAndReply(t *testing.T) {
	a := startOverlay(t)
	b := startOverlay(t)

	var mu sync.Mutex
	var gotAtB [][]byte
	b.RegisterHandler(func(peer string, msg []byte) bool {
		mu.Lock()
		gotAtB = append(gotAtB, append([]byte(nil), msg...))
		mu.Unlock()
		// Reply on the same connection.
		assert.NoError(t, b.Send(peer, []byte("pong")))
		return true
	})

	var gotAtA [][]byte
	a.RegisterHandler(func(peer string, msg []byte) bool {
		mu.Lock()
		gotAtA = append(gotAtA, append([]byte(nil), msg...))
		mu.Unlock()
		return true
	})

	require.NoError(t, a.Send(b.Addr(), []byte("ping")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotAtB) == 1 && len(gotAtA) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []byte("ping"), gotAtB[0])
	assert.Equal(t, []byte("pong"), gotAtA[0])
}

func TestTCPOverlay_ordering(t *testing.T) {
	a := startOverlay(t)
	b := startOverlay(t)

	var mu sync.Mutex
	var got []byte
	b.RegisterHandler(func(peer string, msg []byte) bool {
		mu.Lock()
		got = append(got, msg[0])
		mu.Unlock()
		return true
	})

	for i := byte(0); i < 10; i++ {
		require.NoError(t, a.Send(b.Addr(), []byte{i}))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 10
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

// A panicking handler must cost only the offending message; later
// messages on the same connection still get through.
func TestTCPOverlay_handlerPanicContained(t *testing.T) {
	a := startOverlay(t)
	b := startOverlay(t)

	var mu sync.Mutex
	var got [][]byte
	b.RegisterHandler(func(peer string, msg []byte) bool {
		if string(msg) == "boom" {
			panic("boom")
		}
		mu.Lock()
		got = append(got, append([]byte(nil), msg...))
		mu.Unlock()
		return true
	})

	require.NoError(t, a.Send(b.Addr(), []byte("boom")))
	require.NoError(t, a.Send(b.Addr(), []byte("after")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []byte("after"), got[0])
}

func TestFrameBounds(t *testing.T) {
	o := startOverlay(t)
	assert.Error(t, o.Send(o.Addr(), nil))
	assert.Error(t, o.Send(o.Addr(), make([]byte, maxFrameSize+1)))
}
