package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReport(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	client := NewClient(hub, nil, hub.logger)
	hub.Register(client)
	waitClients(t, hub, 1)

	hub.BroadcastReport(&dto.ReportSummaryDTO{DayRange: "2024064-2024071", ViolationCount: 2})

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeReport {
			t.Errorf("Type = %q, want %q", msg.Type, MessageTypeReport)
		}
		summary, ok := msg.Data.(*dto.ReportSummaryDTO)
		if !ok || summary.DayRange != "2024064-2024071" {
			t.Errorf("Data = %#v", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("report summary not delivered")
	}
}

func TestHub_BroadcastNilIgnored(t *testing.T) {
	hub := NewHub(logger.New("error"))
	hub.BroadcastReport(nil)
	if len(hub.broadcast) != 0 {
		t.Errorf("queued %d messages, want 0", len(hub.broadcast))
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	client := NewClient(hub, nil, hub.logger)
	hub.Register(client)
	waitClients(t, hub, 1)

	hub.Unregister(client)
	waitClients(t, hub, 0)

	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	hub := NewHub(logger.New("error"))
	client := NewClient(hub, nil, hub.logger)
	hub.clients[client] = true

	for i := 0; i < sendBufferSize; i++ {
		hub.deliver(Message{Type: MessageTypeReport})
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client dropped before buffer filled")
	}

	hub.deliver(Message{Type: MessageTypeReport})
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, cancel := startHub(t)

	client := NewClient(hub, nil, hub.logger)
	hub.Register(client)
	waitClients(t, hub, 1)

	cancel()
	waitClients(t, hub, 0)
}

func TestClient_DrainBatchesQueuedMessages(t *testing.T) {
	client := NewClient(nil, nil, logger.New("error"))
	client.send <- Message{Type: "b"}
	client.send <- Message{Type: "c"}

	batch := client.drain(Message{Type: "a"})
	if len(batch) != 3 || batch[0].Type != "a" || batch[2].Type != "c" {
		t.Errorf("batch = %+v", batch)
	}
	if client.ID() == "" {
		t.Error("expected client id")
	}
}
