// Package notify — push-канал итогов исполнения для UI-клиентов.
// Хаб рассылает каждому подключённому websocket-клиенту JSON-уведомление
// об успехе или отказе действия.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
)

// Notification — то, что уходит клиенту на каждую диспетчеризацию.
type Notification struct {
	Event    string        `json:"event"` // "executed" или "failed"
	Action   string        `json:"action"`
	ActionID string        `json:"action_id"`
	Result   engine.Result `json:"result"`
	SentAt   time.Time     `json:"sent_at"`
}

const (
	// Глубина буфера на клиента; переполнение — признак мёртвого
	// или безнадёжно отставшего потребителя
	sendBuffer = 16

	writeTimeout = 2 * time.Second
)

// client — одно websocket-подключение. Весь сетевой вывод идёт
// через send: единственный писатель соединения — writeLoop клиента.
type client struct {
	conn *websocket.Conn
	send chan Notification
}

type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.Named("notify"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Клиенты локальные (UI на той же машине)
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWS апгрейдит HTTP-запрос и регистрирует клиента.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan Notification, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("notification client connected", zap.Int("clients", n))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop — единственный писатель соединения: выгребает буфер
// клиента и завершается, когда remove закрывает канал.
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for n := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(n); err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop читает и выбрасывает входящие кадры: он нужен только
// чтобы вовремя заметить закрытие со стороны клиента.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// remove снимает клиента с рассылки. Идемпотентен: канал закрывается
// ровно один раз, под тем же мьютексом, что и все отправки в него.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("notification client disconnected", zap.Int("clients", n))
	}
}

// Hooks возвращает пару хуков для движка.
func (h *Hub) Hooks() (engine.Hook, engine.Hook) {
	executed := func(a action.Action, r engine.Result) {
		h.Broadcast(Notification{
			Event:    "executed",
			Action:   a.Label(),
			ActionID: a.ID,
			Result:   r,
			SentAt:   time.Now(),
		})
	}
	failed := func(a action.Action, r engine.Result) {
		h.Broadcast(Notification{
			Event:    "failed",
			Action:   a.Label(),
			ActionID: a.ID,
			Result:   r,
			SentAt:   time.Now(),
		})
	}
	return executed, failed
}

// Broadcast раскладывает уведомление по буферам клиентов.
// Хук движка вызывает его синхронно, поэтому сетевого I/O здесь нет —
// только неблокирующая отправка в канал. Клиент с переполненным
// буфером отключается: дальше копить не в кого.
func (h *Hub) Broadcast(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- n:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		delete(h.clients, c)
		close(c.send)
		h.logger.Warn("notification client evicted: send buffer overflow")
	}
}

// Clients — текущее число подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
