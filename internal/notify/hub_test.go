package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, srv
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readNotification(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n Notification
	if err := conn.ReadJSON(&n); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	return n
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	h, srv := newTestHub(t)

	c1 := dialHub(t, srv.URL)
	c2 := dialHub(t, srv.URL)
	waitClients(t, h, 2)

	executed, _ := h.Hooks()
	a := action.New(action.TypePointer, action.PointerClick)
	executed(a, engine.Result{Success: true, ActionID: a.ID, Message: "ok"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		n := readNotification(t, conn)
		if n.Event != "executed" {
			t.Errorf("event = %q, want executed", n.Event)
		}
		if n.ActionID != a.ID || n.Action != a.Label() {
			t.Errorf("unexpected notification: %+v", n)
		}
		if !n.Result.Success {
			t.Error("result must be carried through")
		}
	}
}

func TestHubEvictsClosedClientWithoutStallingOthers(t *testing.T) {
	h, srv := newTestHub(t)

	c1 := dialHub(t, srv.URL)
	c2 := dialHub(t, srv.URL)
	waitClients(t, h, 2)

	// Клиент отваливается; хаб замечает это по read-циклу
	c1.Close()
	waitClients(t, h, 1)

	_, failed := h.Hooks()
	a := action.New(action.TypeKeyboard, action.KeyboardKeyPress)
	failed(a, engine.Result{Success: false, ActionID: a.ID, Message: "boom"})

	// Оставшийся клиент получает уведомление как ни в чём не бывало
	n := readNotification(t, c2)
	if n.Event != "failed" || n.ActionID != a.ID {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestBroadcastShedsSlowClientWithoutBlocking(t *testing.T) {
	h := NewHub(zap.NewNop())

	// Синтетический клиент с буфером на одно сообщение и без
	// writeLoop: второй Broadcast обязан не зависнуть, а отцепить его
	c := &client{send: make(chan Notification, 1)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.Broadcast(Notification{Event: "executed"})

	done := make(chan struct{})
	go func() {
		h.Broadcast(Notification{Event: "executed"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}

	if h.Clients() != 0 {
		t.Errorf("clients = %d, slow client must be evicted", h.Clients())
	}

	// Буферизованное сообщение доступно, затем канал закрыт
	if _, ok := <-c.send; !ok {
		t.Error("buffered notification lost")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel must be closed after eviction")
	}
}
