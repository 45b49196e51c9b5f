package websocket

import (
	"log"
	"sync"
)

// Hub ведет реестр активных соединений и доставляет сообщения адресно
// по ID пользователя. Один пользователь может держать несколько
// соединений (вкладок) одновременно.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub создает новый hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обрабатывает регистрацию и отключение клиентов. Запускается
// одной горутиной при старте приложения.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			count := len(h.clients[client.userID])
			h.mu.Unlock()
			log.Printf("[WebSocket] Пользователь #%d подключен (соединений: %d)", client.userID, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.userID]; ok {
				if _, registered := conns[client]; registered {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

// Shutdown останавливает цикл обработки hub
func (h *Hub) Shutdown() {
	close(h.done)
}

// SendToUser доставляет сообщение всем соединениям пользователя.
// Соединение с переполненным буфером пропускается: события сессии
// устаревают быстро, копить их нет смысла.
func (h *Hub) SendToUser(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
			log.Printf("[WebSocket] Буфер соединения пользователя #%d переполнен, сообщение пропущено", userID)
		}
	}
}

// ConnectionCount возвращает число активных соединений
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
