package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// bridgeServer is a fake bridge process: it upgrades the connection and
// exposes the raw conn to the test body.
func bridgeServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBridge_ReceivesInboundMessages(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(frame{
			Type:     "message",
			From:     "user@test",
			PushName: "Ada",
			Text:     "alpha hello",
		})
		// Keep the session open until the client closes it.
		conn.ReadMessage()
	})

	b, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()

	select {
	case msg := <-b.Messages():
		if msg.From != "user@test" || msg.PushName != "Ada" || msg.Text != "alpha hello" {
			t.Fatalf("message = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestBridge_SendWritesFrame(t *testing.T) {
	got := make(chan frame, 1)
	url := bridgeServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		json.Unmarshal(data, &f)
		got <- f
		conn.ReadMessage()
	})

	b, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()

	if err := b.Send(context.Background(), "user@test", "hi there"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case f := <-got:
		if f.Type != "send" || f.To != "user@test" || f.Text != "hi there" {
			t.Fatalf("frame = %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send frame")
	}
}

func TestBridge_DownloadAudioCorrelatesReply(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		json.Unmarshal(data, &f)
		if f.Type != "fetch_media" || f.MediaID != "m-1" {
			conn.WriteJSON(frame{Type: "media", ID: f.ID, Error: "unexpected request"})
			return
		}
		conn.WriteJSON(frame{Type: "media", ID: f.ID, Data: []byte("opus-bytes")})
		conn.ReadMessage()
	})

	b, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()

	data, err := b.DownloadAudio(context.Background(), Message{Audio: true, MediaID: "m-1"})
	if err != nil {
		t.Fatalf("DownloadAudio() error = %v", err)
	}
	if string(data) != "opus-bytes" {
		t.Fatalf("payload = %q, want opus-bytes", data)
	}
}

func TestBridge_DownloadAudioBridgeError(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		json.Unmarshal(data, &f)
		conn.WriteJSON(frame{Type: "media", ID: f.ID, Error: "media expired"})
		conn.ReadMessage()
	})

	b, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()

	if _, err := b.DownloadAudio(context.Background(), Message{MediaID: "gone"}); err == nil {
		t.Fatal("DownloadAudio() error = nil, want bridge error")
	}
}

func TestBridge_MessagesClosedWhenServerHangsUp(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn) {
		// Hang up immediately.
	})

	b, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()

	select {
	case _, ok := <-b.Messages():
		if ok {
			t.Fatal("got a message from a hung-up bridge")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBridge_CloseIsIdempotent(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	b, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := b.Send(context.Background(), "user@test", "late"); err == nil {
		t.Fatal("Send() after Close succeeded, want error")
	}
}
