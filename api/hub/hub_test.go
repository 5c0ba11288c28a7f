package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleConnect))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	h := New(nil)
	go h.Run()

	conn := dialTestHub(t, h)

	// Registration races the broadcast; give the hub a beat.
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(Event{Type: EventAlertCreated, MonitorID: "mon-1", Payload: map[string]string{"id": "a1"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got Event
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventAlertCreated || got.MonitorID != "mon-1" {
		t.Errorf("event = %+v", got)
	}
}

func TestBroadcastDoesNotBlockWithoutSubscribers(t *testing.T) {
	h := New(nil)
	// No Run loop and no clients: the buffered channel absorbs what it
	// can and the rest is dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Broadcast(Event{Type: EventOutcome})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked with no consumers")
	}
}

func TestBroadcastUnmarshalableEvent(t *testing.T) {
	h := New(nil)
	// Channels cannot be marshaled; the event is dropped, not panicked on.
	h.Broadcast(Event{Type: EventSample, Payload: make(chan int)})
}
