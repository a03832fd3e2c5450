package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, rooms ...string) *Client {
	return &Client{Hub: hub, Send: make(chan []byte, 16), Rooms: rooms}
}

func TestHub_BroadcastReachesOnlySubscribedRooms(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	subscriber := newTestClient(hub, ChatRoom(1), UserRoom(5))
	bystander := newTestClient(hub, ChatRoom(2))
	hub.Register <- subscriber
	hub.Register <- bystander

	require.Eventually(t, func() bool {
		return hub.RoomSize(ChatRoom(1)) == 1 && hub.RoomSize(ChatRoom(2)) == 1
	}, time.Second, 5*time.Millisecond)

	hub.BroadcastToRoom(ChatRoom(1), Event{Type: EventMessageCreated, Payload: map[string]int{"chat_id": 1}})

	select {
	case data := <-subscriber.Send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventMessageCreated, event.Type)
		assert.Equal(t, ChatRoom(1), event.Room)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}

	select {
	case <-bystander.Send:
		t.Fatal("bystander must not receive events from another room")
	default:
	}
}

func TestHub_UnregisterClosesSendAndEmptiesRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, UserRoom(7))
	hub.Register <- client
	require.Eventually(t, func() bool { return hub.RoomSize(UserRoom(7)) == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister <- client
	require.Eventually(t, func() bool { return hub.RoomSize(UserRoom(7)) == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open, "send channel closed on unregister")

	// рассылка в опустевшую комнату безопасна
	hub.BroadcastToRoom(UserRoom(7), Event{Type: EventChatUpdated})
}

func TestHub_SlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{Hub: hub, Send: make(chan []byte, 1), Rooms: []string{ChatRoom(3)}}
	fast := newTestClient(hub, ChatRoom(3))
	hub.Register <- slow
	hub.Register <- fast
	require.Eventually(t, func() bool { return hub.RoomSize(ChatRoom(3)) == 2 }, time.Second, 5*time.Millisecond)

	// Забиваем буфер медленного клиента: следующие рассылки для него
	// отбрасываются, но быстрый получает всё.
	for i := 0; i < 3; i++ {
		hub.BroadcastToRoom(ChatRoom(3), Event{Type: EventRosterUpdated, Payload: i})
	}

	assert.Len(t, slow.Send, 1)
	assert.Len(t, fast.Send, 3)
}
