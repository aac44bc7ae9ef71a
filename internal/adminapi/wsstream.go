package adminapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Decision is one published scheduling event: a subflow chosen, a
// reinject tag, a computed limit, or a receive-buffer-optimiser firing.
// Fields that don't apply to a given event are left zero.
type Decision struct {
	Kind        string    `json:"kind"` // "next_segment", "rcv_buf_opt"
	Time        time.Time `json:"time"`
	PathIndex   uint8     `json:"path_index,omitempty"`
	ReinjectTag int       `json:"reinject_tag,omitempty"`
	Limit       uint32    `json:"limit,omitempty"`
}

const (
	decisionSendBuffer = 256
	wsWriteWait        = 10 * time.Second
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// observer is one connected websocket client of the decision stream.
type observer struct {
	conn *websocket.Conn
	send chan *Decision
}

// DecisionHub fans out scheduling decisions to connected observers.
// Publish is fire-and-forget: a full observer channel drops the decision
// rather than blocking, so publishing from the hot send path can never
// stall a send decision, per SPEC_FULL.md's decision-stream requirement.
type DecisionHub struct {
	mu        sync.RWMutex
	observers map[*observer]struct{}
	logger    *zap.Logger
}

// NewDecisionHub creates an empty decision hub. logger may be nil.
func NewDecisionHub(logger *zap.Logger) *DecisionHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionHub{observers: make(map[*observer]struct{}), logger: logger}
}

// Publish fans d out to every connected observer, dropping it for any
// observer whose send buffer is currently full.
func (h *DecisionHub) Publish(d *Decision) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for o := range h.observers {
		select {
		case o.send <- d:
		default:
			h.logger.Warn("decision stream observer backlog full, dropping decision")
		}
	}
}

func (h *DecisionHub) register(o *observer) {
	h.mu.Lock()
	h.observers[o] = struct{}{}
	h.mu.Unlock()
}

func (h *DecisionHub) unregister(o *observer) {
	h.mu.Lock()
	delete(h.observers, o)
	h.mu.Unlock()
}

// DecisionStreamHandler implements GET /v1/decisions/stream, upgrading
// the connection to a websocket and streaming every published Decision
// until the client disconnects.
func DecisionStreamHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcCtx.Hub == nil {
			schedError(w, errDecisionStreamDisabled)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			svcCtx.Logger.Warn("decision stream upgrade failed", zap.Error(err))
			return
		}

		o := &observer{conn: conn, send: make(chan *Decision, decisionSendBuffer)}
		svcCtx.Hub.register(o)

		go readPump(svcCtx.Hub, o)
		writePump(o)
	}
}

// readPump drains and discards client frames, detecting disconnects; the
// decision stream is one-directional from the server's perspective.
func readPump(hub *DecisionHub, o *observer) {
	defer func() {
		hub.unregister(o)
		o.conn.Close()
	}()

	o.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	o.conn.SetPongHandler(func(string) error {
		o.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(o *observer) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case d, ok := <-o.send:
			o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				o.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(d)
			if err != nil {
				continue
			}
			if err := o.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
