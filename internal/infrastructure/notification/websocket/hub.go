package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// MessageTypeReport тип сообщения со сводкой нового отчета
const MessageTypeReport = "report"

// Hub управляет WebSocket клиентами и рассылает сводки отчетов
// Реализует интерфейс port.NotificationService
type Hub struct {
	clients map[*Client]bool

	// Канал для broadcast сообщений
	broadcast chan Message

	register   chan *Client
	unregister chan *Client

	// Mutex для защиты clients map
	mu sync.RWMutex

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine).
// При отмене ctx все клиенты отключаются.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// deliver отправляет сообщение всем клиентам; медленные клиенты отключаются
func (h *Hub) deliver(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("Client channel full, disconnected")
		}
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastReport отправляет сводку отчета всем клиентам (реализация port.NotificationService)
func (h *Hub) BroadcastReport(summary *dto.ReportSummaryDTO) {
	if summary == nil {
		return
	}
	select {
	case h.broadcast <- Message{Type: MessageTypeReport, Data: summary}:
	default:
		h.logger.Warn("Broadcast channel full, dropping report summary", "day_range", summary.DayRange)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
