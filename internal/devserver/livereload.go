package devserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Hub fans build notifications out to connected browsers over
// server-sent events.
type Hub struct {
	log     zerolog.Logger
	mu      sync.Mutex
	clients map[string]chan string
	closed  bool
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: map[string]chan string{},
	}
}

// ServeHTTP holds the connection open and streams broadcast events until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := uuid.NewString()
	ch := h.register(id)
	if ch == nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.unregister(id)

	h.log.Debug().Str("client", id).Msg("live reload client connected")

	fmt.Fprintf(w, "event: hello\ndata: %s\n\n", id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Broadcast sends an event to every connected client. Slow clients are
// skipped rather than blocking the build loop.
func (h *Hub) Broadcast(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.log.Debug().Str("client", id).Msg("dropping event for slow client")
		}
	}
}

// Shutdown disconnects all clients.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) register(id string) chan string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	ch := make(chan string, 8)
	h.clients[id] = ch
	return ch
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

// reloadScript is served at scriptPath and injected into HTML responses
// when live reload is on.
const reloadScript = `(() => {
  const source = new EventSource("/__packline/events");
  source.onmessage = (event) => {
    if (event.data === "reload") {
      location.reload();
    }
  };
  source.onerror = () => {
    source.close();
    setTimeout(() => location.reload(), 2000);
  };
})();
`
