package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []string
	done  chan struct{}
}

func (s *recordingSaver) CreateNotification(_ context.Context, userID uuid.UUID, event string, _ interface{}) error {
	s.mu.Lock()
	s.saved = append(s.saved, event)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{hub: hub, userID: userID, send: make(chan []byte, 4)}
}

func TestHub_BroadcastToUser_DeliversAndSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	saver := &recordingSaver{done: make(chan struct{}, 1)}
	hub.SetNotificationSaver(saver)
	go hub.Run()

	userID := uuid.New()
	client := newTestClient(hub, userID)
	other := newTestClient(hub, uuid.New())
	hub.Register(client)
	hub.Register(other)

	require.NoError(t, hub.BroadcastToUser(userID, "shift_completed", map[string]string{"shift_id": "s-1"}))

	select {
	case raw := <-client.send:
		var msg struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "shift_completed", msg.Type)
		assert.Equal(t, "s-1", msg.Data["shift_id"])
	case <-time.After(time.Second):
		t.Fatal("сообщение не доставлено")
	}

	select {
	case <-saver.done:
	case <-time.After(time.Second):
		t.Fatal("уведомление не сохранено")
	}
	assert.Empty(t, other.send)
	assert.Equal(t, 2, hub.ConnectedUsers())
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(ctx)
	go hub.Run()

	client := newTestClient(hub, uuid.New())
	hub.Register(client)
	client.Close()
	client.Close()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("канал отправки не закрыт")
	}
	assert.Equal(t, 0, hub.ConnectedUsers())
}

func TestHub_BroadcastAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	cancel()

	for i := 0; i < cap(hub.broadcast)+1; i++ {
		if err := hub.BroadcastToUser(uuid.New(), "rating_received", nil); err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			return
		}
	}
	t.Fatal("ожидалась ошибка после остановки хаба")
}
