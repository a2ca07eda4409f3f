package public

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linkbio/internal/logging"
	"linkbio/internal/render"
	"linkbio/internal/service"
)

const previewWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	// the preview is served to the local browser only
	CheckOrigin: func(r *http.Request) bool { return true },
}

// previewMessage is the payload pushed to every preview socket.
type previewMessage struct {
	HTML string `json:"html"`
}

// PreviewHub mirrors preview:updated events to connected browsers. It is an
// EventEmitter and ignores every other event.
type PreviewHub struct {
	logger *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	latest string
	closed bool
}

func NewPreviewHub(logger *zap.Logger) *PreviewHub {
	return &PreviewHub{
		logger: logging.OrNop(logger).Named("preview"),
		conns:  make(map[*websocket.Conn]bool),
	}
}

func (h *PreviewHub) Emit(_ context.Context, event string, data any) {
	if event != service.EventPreviewUpdated {
		return
	}
	ev, ok := data.(service.PreviewEvent)
	if !ok {
		return
	}
	h.broadcast(ev.HTML)
}

// Latest returns the last rendered preview.
func (h *PreviewHub) Latest() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (h *PreviewHub) broadcast(html string) {
	msg, err := json.Marshal(previewMessage{HTML: html})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = html
	for conn := range h.conns {
		if err := h.write(conn, msg); err != nil {
			h.logger.Warn("preview push failed", zap.Error(err))
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// write must be called with h.mu held; gorilla connections allow one
// writer at a time.
func (h *PreviewHub) write(conn *websocket.Conn, msg []byte) error {
	conn.SetWriteDeadline(time.Now().Add(previewWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// ServeWS upgrades to a websocket, sends the current preview and then every
// update until the client goes away.
func (h *PreviewHub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("preview upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[conn] = true
	if h.latest != "" {
		msg, _ := json.Marshal(previewMessage{HTML: h.latest})
		if err := h.write(conn, msg); err != nil {
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("preview client connected", zap.Int("clients", n))

	// clients never send; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// ServePage serves a browser shell that follows the websocket.
func (h *PreviewHub) ServePage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(previewShell))
}

// Clients reports the number of connected sockets.
func (h *PreviewHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client. Later connections are refused.
func (h *PreviewHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.conns, conn)
	}
}

var previewShell = render.Document(`<div id="preview" class="flex justify-center"></div>
<script>
(function () {
  var el = document.getElementById("preview");
  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/preview/ws");
    ws.onmessage = function (e) { el.innerHTML = JSON.parse(e.data).html; };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>`)
