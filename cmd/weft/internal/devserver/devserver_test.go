package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialReload(t *testing.T, ctx context.Context, baseURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, baseURL+"/reload", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func waitForClients(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ClientCount = %d, want %d", s.ClientCount(), want)
}

func TestBroadcastReachesClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := New("demo")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialReload(t, ctx, ts.URL)
	waitForClients(t, s, 1)

	s.Broadcast(ctx, Event{Kind: "reload"})

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Errorf("message type = %v, want text", typ)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal %q: %v", data, err)
	}
	if ev.Kind != "reload" {
		t.Errorf("event kind = %q, want reload", ev.Kind)
	}
}

func TestErrorEventCarriesBuildOutput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := New("demo")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialReload(t, ctx, ts.URL)
	waitForClients(t, s, 1)

	s.Broadcast(ctx, Event{Kind: "error", Detail: "main.go:4: undefined: frob"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal %q: %v", data, err)
	}
	if ev.Kind != "error" || !strings.Contains(ev.Detail, "undefined: frob") {
		t.Errorf("event = %+v, want error with build output", ev)
	}
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := New("demo")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialReload(t, ctx, ts.URL)
	waitForClients(t, s, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, s, 0)
}

func TestIndexServesStatusPage(t *testing.T) {
	s := New("demo")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	for _, want := range []string{"demo", "/reload"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("status page missing %q", want)
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	s := New("demo")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
