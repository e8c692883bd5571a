package notifiers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daniacca/mcreact/internal/kinet"
)

func TestWebSocketNotifier_Identity(t *testing.T) {
	notifier := NewWebSocketNotifier("events")
	defer notifier.Close()

	if notifier.ID() != "events" {
		t.Errorf("Expected ID 'events', got %q", notifier.ID())
	}
	if notifier.Type() != "websocket" {
		t.Errorf("Expected type 'websocket', got %q", notifier.Type())
	}
}

func TestWebSocketNotifier_Broadcast(t *testing.T) {
	notifier := NewWebSocketNotifier("events")
	defer notifier.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := notifier.Upgrader()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		notifier.RegisterClient(conn)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// give the hub a moment to register the client
	time.Sleep(50 * time.Millisecond)

	event := kinet.FireEvent{ReactionID: "R1", Educt: "A", Product: "B"}
	if err := notifier.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var got kinet.FireEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to decode broadcast event: %v", err)
	}
	if got.ReactionID != "R1" || got.Product != "B" {
		t.Errorf("Expected the broadcast event, got %+v", got)
	}
}

func TestWebSocketNotifier_NotifyAfterClose(t *testing.T) {
	notifier := NewWebSocketNotifier("events")
	if err := notifier.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := notifier.Notify(context.Background(), kinet.FireEvent{})
	if err == nil {
		t.Errorf("Expected Notify after Close to fail")
	}
}
