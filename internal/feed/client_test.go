package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades connections and echoes every text message back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_ConnectSendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	cfg := DefaultClientConfig()
	cfg.URL = wsURL(srv)
	cfg.BufferSize = 10

	c := NewClient(cfg, discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	if err := c.Send([]byte(`{"type":"subscribe"}`)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case msg := <-c.Messages():
		if string(msg.Data) != `{"type":"subscribe"}` {
			t.Errorf("echoed = %q", msg.Data)
		}
		if msg.ReceivedAt.IsZero() {
			t.Error("ReceivedAt is zero")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestClient_SendBeforeConnect(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.URL = "ws://127.0.0.1:1" // never dialed
	c := NewClient(cfg, discardLogger())

	if err := c.Send([]byte("x")); err != ErrNotConnected {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	cfg := DefaultClientConfig()
	cfg.URL = wsURL(srv)
	c := NewClient(cfg, discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.URL = "ws://127.0.0.1:1"
	c := NewClient(cfg, discardLogger())

	c.Close()
	if err := c.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("Connect() error = %v, want ErrAlreadyClosed", err)
	}
}
