// Package devserver hosts the weft dev loop's HTTP surface: a status
// page and a websocket channel that pushes rebuild notices to connected
// browsers.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/go-weft/weft/pkg/logging"
)

// writeTimeout bounds one push to one client.
const writeTimeout = 5 * time.Second

// Event is a notification pushed to connected clients.
type Event struct {
	// Kind is "reload" after a successful build or "error" after a
	// failed one.
	Kind string `json:"kind"`
	// Detail carries build output for error events.
	Detail string `json:"detail,omitempty"`
}

// Server carries the dev loop's HTTP handlers and the connected reload
// clients.
type Server struct {
	appName string
	log     *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New creates a server for the named app.
func New(appName string) *Server {
	return &Server{
		appName: appName,
		log:     logging.Logger("cli.devserver"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the route set: "/" serves the status page, "/reload"
// the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/reload", s.handleReload)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, s.appName, s.appName)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.log.Debug("reload client connected", "clients", n)

	// Clients never send anything meaningful; reading just detects the
	// connection going away.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	n = len(s.clients)
	s.mu.Unlock()
	conn.CloseNow()
	s.log.Debug("reload client disconnected", "clients", n)
}

// Broadcast pushes ev to every connected client. Clients that cannot be
// written to are dropped.
func (s *Server) Broadcast(ctx context.Context, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal event", "error", err)
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.Write(wctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			c.CloseNow()
			s.log.Debug("dropped stale reload client", "error", err)
		}
	}
}

// ClientCount reports the number of connected reload clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>weft dev: %s</title>
<style>
  body { font-family: monospace; margin: 2rem; }
  #status { color: #555; }
  pre { background: #f6f6f6; padding: 1rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>%s</h1>
<p id="status">connecting...</p>
<pre id="detail"></pre>
<script>
  const status = document.getElementById("status");
  const detail = document.getElementById("detail");
  const ws = new WebSocket("ws://" + location.host + "/reload");
  ws.onopen = () => { status.textContent = "watching for changes"; };
  ws.onclose = () => { status.textContent = "dev server disconnected"; };
  ws.onmessage = (m) => {
    const ev = JSON.parse(m.data);
    if (ev.kind === "reload") {
      location.reload();
    } else {
      status.textContent = "build failed";
      detail.textContent = ev.detail || "";
    }
  };
</script>
</body>
</html>
`
