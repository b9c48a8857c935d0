package processing

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetectionServer(t *testing.T, reply string, received *atomic.Int32) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			kind, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			received.Add(1)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteDetector_RoundTrip(t *testing.T) {
	var received atomic.Int32
	srv := newDetectionServer(t, `[{"label":"cup","confidence":0.7,"box":[0,0,0.5,0.5]}]`, &received)

	det := NewRemoteDetector(strings.TrimPrefix(srv.URL, "http://"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	det.retryDelay = 10 * time.Millisecond
	det.Start()
	defer det.Close()

	require.Eventually(t, func() bool {
		det.Submit([]byte{0xff, 0xd8, 0xff, 0xd9})
		return len(det.Latest()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := det.Latest()[0]
	assert.Equal(t, "cup", got.Label)
	assert.InDelta(t, 0.7, got.Confidence, 1e-6)
	assert.Positive(t, received.Load())
}

func TestRemoteDetector_IgnoresBadJSON(t *testing.T) {
	var received atomic.Int32
	srv := newDetectionServer(t, `not json`, &received)

	det := NewRemoteDetector(strings.TrimPrefix(srv.URL, "http://"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	det.Start()
	defer det.Close()

	require.Eventually(t, func() bool {
		det.Submit([]byte{1})
		return received.Load() > 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, det.Latest())
}

func TestRemoteDetector_CloseWhileUnreachable(t *testing.T) {
	det := NewRemoteDetector("127.0.0.1:1", slog.New(slog.NewTextHandler(io.Discard, nil)))
	det.Start()

	done := make(chan struct{})
	go func() {
		det.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while the server was unreachable")
	}
}

func TestRemoteDetector_SubmitDropsWhenFull(t *testing.T) {
	det := NewRemoteDetector("localhost:0", nil)

	for i := 0; i < cap(det.frames)+3; i++ {
		det.Submit([]byte{byte(i)})
	}

	assert.Len(t, det.frames, cap(det.frames))
}

func TestRemoteDetector_ForgetsResultsWhenConnectionLost(t *testing.T) {
	var conns atomic.Int32
	drop := make(chan struct{})

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if conns.Add(1) > 1 {
			// later connections stay silent
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		reply := `[{"label":"cup","confidence":0.7,"box":[0,0,0.5,0.5]}]`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return
		}
		<-drop
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	det := NewRemoteDetector(strings.TrimPrefix(srv.URL, "http://"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	det.retryDelay = 10 * time.Millisecond
	det.Start()
	defer det.Close()

	require.Eventually(t, func() bool {
		det.Submit([]byte{0xff, 0xd8, 0xff, 0xd9})
		return len(det.Latest()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	close(drop)

	assert.Eventually(t, func() bool { return det.Latest() == nil }, 2*time.Second, 10*time.Millisecond)
}
