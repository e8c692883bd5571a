package notifiers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daniacca/mcreact/internal/kinet"
)

// WebSocketNotifier broadcasts fire events to connected WebSocket clients.
// A single hub goroutine owns the client set; registration and broadcast go
// through channels so Notify never touches connections directly.
type WebSocketNotifier struct {
	id         string
	upgrader   websocket.Upgrader
	broadcast  chan kinet.FireEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	wg         sync.WaitGroup

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWebSocketNotifier creates the notifier and starts its hub goroutine.
func NewWebSocketNotifier(id string) *WebSocketNotifier {
	wsn := &WebSocketNotifier{
		id:         id,
		broadcast:  make(chan kinet.FireEvent, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	wsn.wg.Add(1)
	go wsn.run()
	return wsn
}

// ID returns the notifier ID.
func (wsn *WebSocketNotifier) ID() string {
	return wsn.id
}

// Type returns the notifier type.
func (wsn *WebSocketNotifier) Type() string {
	return "websocket"
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (wsn *WebSocketNotifier) Upgrader() websocket.Upgrader {
	return wsn.upgrader
}

// RegisterClient hands a freshly upgraded connection to the hub.
func (wsn *WebSocketNotifier) RegisterClient(conn *websocket.Conn) {
	select {
	case wsn.register <- conn:
	case <-wsn.done:
	}
}

// UnregisterClient removes a connection from the hub and closes it.
func (wsn *WebSocketNotifier) UnregisterClient(conn *websocket.Conn) {
	select {
	case wsn.unregister <- conn:
	case <-wsn.done:
	}
}

// Notify queues the event for broadcast to all connected clients.
func (wsn *WebSocketNotifier) Notify(ctx context.Context, event kinet.FireEvent) error {
	select {
	case <-wsn.done:
		return fmt.Errorf("websocket notifier closed")
	default:
	}
	select {
	case wsn.broadcast <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wsn.done:
		return fmt.Errorf("websocket notifier closed")
	}
}

func (wsn *WebSocketNotifier) run() {
	defer wsn.wg.Done()
	for {
		select {
		case <-wsn.done:
			return

		case conn := <-wsn.register:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			wsn.clients[conn] = struct{}{}
			wsn.mu.Unlock()

		case conn := <-wsn.unregister:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			if _, ok := wsn.clients[conn]; ok {
				delete(wsn.clients, conn)
				conn.Close()
			}
			wsn.mu.Unlock()

		case event := <-wsn.broadcast:
			wsn.send(event)
		}
	}
}

// send writes one event to every client, dropping connections whose write
// fails.
func (wsn *WebSocketNotifier) send(event kinet.FireEvent) {
	body, err := event.JSON()
	if err != nil {
		return
	}

	wsn.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(wsn.clients))
	for conn := range wsn.clients {
		conns = append(conns, conn)
	}
	wsn.mu.Unlock()

	var failed []*websocket.Conn
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			conn.Close()
			failed = append(failed, conn)
		}
	}

	if len(failed) > 0 {
		wsn.mu.Lock()
		for _, conn := range failed {
			delete(wsn.clients, conn)
		}
		wsn.mu.Unlock()
	}
}

// Close stops the hub and closes all client connections.
func (wsn *WebSocketNotifier) Close() error {
	close(wsn.done)
	wsn.wg.Wait()

	wsn.mu.Lock()
	for conn := range wsn.clients {
		conn.Close()
		delete(wsn.clients, conn)
	}
	wsn.mu.Unlock()
	return nil
}
