package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/kb"
	"github.com/signalsfoundry/orbit-visualizer/model"
)

// streamBuffer is how many frames may queue for a slow client. Older
// frames are dropped first; lifecycle events are never dropped.
const streamBuffer = 16

// eventQueue holds pending events for one client in arrival order.
type eventQueue struct {
	mu        sync.Mutex
	events    []kb.Event
	frames    int
	maxFrames int
	ready     chan struct{}
}

func newEventQueue(maxFrames int) *eventQueue {
	return &eventQueue{maxFrames: maxFrames, ready: make(chan struct{}, 1)}
}

// push never blocks. A frame arriving with the queue full evicts the oldest
// queued frame.
func (q *eventQueue) push(ev kb.Event) {
	q.mu.Lock()
	if ev.Type == kb.EventFrameUpdated {
		if q.frames >= q.maxFrames {
			for i, queued := range q.events {
				if queued.Type == kb.EventFrameUpdated {
					q.events = append(q.events[:i], q.events[i+1:]...)
					q.frames--
					break
				}
			}
		}
		q.frames++
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain returns and clears everything queued.
func (q *eventQueue) drain() []kb.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	q.frames = 0
	return events
}

// streamMessage is one websocket text message.
type streamMessage struct {
	Type  string       `json:"type"`
	Run   *kb.Run      `json:"run,omitempty"`
	Frame *model.Frame `json:"frame,omitempty"`
}

// handleStream upgrades to a websocket and pushes run events. Frames are
// throttled to the configured rate; lifecycle events are always sent.
// GET /api/v1/stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := s.reqLog(r)
	ip := clientIP(r, s.stream.TrustProxy)
	if !s.limiter.acquire(ip) {
		log.Warn(r.Context(), "stream limit exceeded",
			logging.String("remote_ip", ip),
			logging.Int("current_count", s.limiter.count(ip)),
		)
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many concurrent streams"})
		return
	}
	defer s.limiter.release(ip)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	s.metrics.StreamConnected()
	started := time.Now()
	log.Info(r.Context(), "stream connected", logging.String("remote_ip", ip))
	defer func() {
		s.metrics.StreamDisconnected()
		log.Info(r.Context(), "stream disconnected",
			logging.String("remote_ip", ip),
			logging.Duration("duration", time.Since(started)),
		)
	}()

	queue := newEventQueue(streamBuffer)
	store := s.engine.Store()
	unsubscribe := store.Subscribe(queue.push)
	defer unsubscribe()

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	hello := streamMessage{Type: "hello"}
	if run, ok := store.CurrentRun(); ok {
		hello.Run = &run
	}
	if frame, ok := store.LatestFrame(); ok {
		hello.Frame = &frame
	}
	if err := s.write(conn, hello); err != nil {
		return
	}

	limiter := rate.NewLimiter(rate.Limit(s.stream.MaxFPS), s.stream.Burst)
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-queue.ready:
			for _, ev := range queue.drain() {
				if ev.Type == kb.EventFrameUpdated && !limiter.Allow() {
					continue
				}
				msg := streamMessage{Type: ev.Type.String(), Run: &ev.Run}
				if ev.Type == kb.EventFrameUpdated || ev.Frame.Seq > 0 {
					msg.Frame = &ev.Frame
				}
				if err := s.write(conn, msg); err != nil {
					log.Debug(r.Context(), "stream write failed", logging.Err(err))
					return
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, msg streamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.stream.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
