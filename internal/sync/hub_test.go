package sync

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startServer(t *testing.T) (*Hub, *Server) {
	t.Helper()
	hub := NewHub(zerolog.New(io.Discard))
	srv := NewServer("127.0.0.1:0", hub)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	t.Cleanup(func() {
		_ = srv.Close()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for srv.ListenAddr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("server never started listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return hub, srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTCPSubscriberReceivesEvents(t *testing.T) {
	hub, srv := startServer(t)

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	welcome, err := r.ReadString('\n')
	if err != nil || !strings.Contains(welcome, `"welcome"`) {
		t.Fatalf("welcome = %q, %v", welcome, err)
	}
	waitFor(t, func() bool { return hub.Stats().TCPClients == 1 })

	hub.Publish(NewEvent(ReleaseCreated, 7, map[string]any{"title": "Discovery"}))

	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev RecordEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if ev.Type != ReleaseCreated || ev.ID != 7 || ev.At.IsZero() {
		t.Fatalf("event = %+v", ev)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Stats().TCPClients == 0 })
}

func TestWebsocketSubscriberReceivesEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zerolog.New(io.Discard))
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	ts := httptest.NewServer(r)
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	if _, msg, err := ws.ReadMessage(); err != nil || !strings.Contains(string(msg), "websocket") {
		t.Fatalf("welcome = %q, %v", msg, err)
	}
	waitFor(t, func() bool { return hub.Stats().WSClients == 1 })

	hub.BroadcastJSON(NewEvent(ArtistDeleted, 3, nil))

	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(msg), `"record"`) {
		t.Fatalf("delete event carries a record: %s", msg)
	}
	var ev RecordEvent
	if err := json.Unmarshal(msg, &ev); err != nil || ev.Type != ArtistDeleted || ev.ID != 3 {
		t.Fatalf("event = %+v, %v", ev, err)
	}
}

func TestWebsocketWelcomeArrivesFirstDuringBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zerolog.New(io.Discard))
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	ts := httptest.NewServer(r)
	defer ts.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				hub.BroadcastJSON(NewEvent(ReleaseUpdated, 1, nil))
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	for i := 0; i < 5; i++ {
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := ws.ReadMessage()
		if err != nil || !strings.Contains(string(msg), `"welcome"`) {
			t.Fatalf("first message = %q, %v", msg, err)
		}
		if _, msg, err = ws.ReadMessage(); err != nil || !strings.Contains(string(msg), ReleaseUpdated) {
			t.Fatalf("second message = %q, %v", msg, err)
		}
		ws.Close()
	}
}

func TestCloseBeforeRun(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHub(zerolog.Nop()))
	if err := srv.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
}
