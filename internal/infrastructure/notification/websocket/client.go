package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dreschagin/limit-monitor/pkg/logger"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Клиент только читает сводки, входящие сообщения ограничены control-фреймами
	maxMessageSize = 512

	sendBufferSize = 16
)

// Client представляет WebSocket подписчика на сводки отчетов
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	// Канал для отправки сообщений
	send chan Message

	logger *logger.Logger
}

// NewClient создает нового WebSocket клиента
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendBufferSize),
		logger: logger,
	}
}

// ID возвращает идентификатор соединения для логов
func (c *Client) ID() string {
	return c.id
}

// ReadPump читает control-фреймы клиента и отслеживает разрыв соединения
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err, "client_id", c.id)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err, "client_id", c.id)
			}
			return
		}
	}
}

// WritePump отправляет сводки клиенту, склеивая накопившиеся сообщения
// в один JSON-массив на фрейм
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			batch := c.drain(message)
			payload, err := json.Marshal(batch)
			if err != nil {
				c.logger.Error("WebSocket encode error", err, "client_id", c.id)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn("WebSocket write failed", "client_id", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain забирает из очереди все уже готовые сообщения, не блокируясь
func (c *Client) drain(first Message) []Message {
	batch := []Message{first}
	for {
		select {
		case next, ok := <-c.send:
			if !ok {
				return batch
			}
			batch = append(batch, next)
		default:
			return batch
		}
	}
}
