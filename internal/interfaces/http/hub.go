package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/almrun/internal/projection"
)

const (
	writeWait      = 5 * time.Second
	subscriberSize = 64
)

// Message types sent on a progress stream
const (
	MessageStatus   = "status"
	MessageProgress = "progress"
	MessageFinished = "finished"
)

// ProgressMessage is one frame of the progress stream
type ProgressMessage struct {
	Type     string                `json:"type"`
	Progress *projection.Progress  `json:"progress,omitempty"`
	Status   *projection.RunStatus `json:"status,omitempty"`
}

type subscriber struct {
	send chan ProgressMessage
}

// ProgressHub fans engine progress out to websocket clients of /runs/{id}/progress.
// Every stream starts with a status snapshot and ends with a finished frame.
type ProgressHub struct {
	mu       sync.Mutex
	subs     map[string]map[*subscriber]struct{}
	runs     *projection.Registry
	upgrader websocket.Upgrader
}

// NewProgressHub creates a hub reading snapshots from runs
func NewProgressHub(runs *projection.Registry) *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[*subscriber]struct{}),
		runs: runs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish forwards one progress event. Slow clients miss events instead of blocking
// the engine.
func (h *ProgressHub) Publish(p projection.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[p.RunID] {
		select {
		case sub.send <- ProgressMessage{Type: MessageProgress, Progress: &p}:
		default:
		}
	}
}

// Close ends every stream of a run. Call it after the registry saw the completion.
func (h *ProgressHub) Close(c projection.Completion) {
	status, ok := h.runs.Get(c.RunID)
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[c.RunID] {
		if ok {
			s := status
			select {
			case sub.send <- ProgressMessage{Type: MessageFinished, Status: &s}:
			default:
			}
		}
		close(sub.send)
	}
	delete(h.subs, c.RunID)
}

// Subscribers returns the number of open streams of a run
func (h *ProgressHub) Subscribers(runID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[runID])
}

func (h *ProgressHub) subscribe(runID string) *subscriber {
	sub := &subscriber{send: make(chan ProgressMessage, subscriberSize)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[*subscriber]struct{})
	}
	h.subs[runID][sub] = struct{}{}
	return sub
}

// unsubscribe is a no-op once Close has taken the subscriber
func (h *ProgressHub) unsubscribe(runID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[runID][sub]; !ok {
		return
	}
	delete(h.subs[runID], sub)
	if len(h.subs[runID]) == 0 {
		delete(h.subs, runID)
	}
	close(sub.send)
}

// ServeHTTP upgrades the request and streams the run's progress
func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]
	if _, ok := h.runs.Get(runID); !ok {
		writeError(w, r, http.StatusNotFound, "run_not_found", "No run with id "+runID)
		return
	}

	// subscribe before the snapshot so no completion falls between the two
	sub := h.subscribe(runID)
	defer h.unsubscribe(runID, sub)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Failed to upgrade progress stream")
		return
	}
	defer conn.Close()

	status, _ := h.runs.Get(runID)
	if !h.write(conn, ProgressMessage{Type: MessageStatus, Status: &status}) {
		return
	}
	if status.Finished != nil {
		h.write(conn, ProgressMessage{Type: MessageFinished, Status: &status})
		h.closeStream(conn)
		return
	}

	// the reader only notices client disconnects
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			if !ok {
				h.closeStream(conn)
				return
			}
			if !h.write(conn, msg) {
				return
			}
		case <-gone:
			log.Debug().Str("run_id", runID).Msg("Progress client disconnected")
			return
		}
	}
}

func (h *ProgressHub) write(conn *websocket.Conn, msg ProgressMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Msg("Failed to write progress frame")
		return false
	}
	return true
}

func (h *ProgressHub) closeStream(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(writeWait))
}
