package kb

import (
	"errors"
	"sync"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

// ErrNoRun is returned when an operation needs an active run.
var ErrNoRun = errors.New("no simulation run")

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventRunStarted EventType = iota
	EventRunStopped
	EventFrameUpdated
)

func (t EventType) String() string {
	switch t {
	case EventRunStarted:
		return "run_started"
	case EventRunStopped:
		return "run_stopped"
	case EventFrameUpdated:
		return "frame"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type  EventType
	Run   Run
	Frame model.Frame
}

// Run describes the active (or last) simulation run.
type Run struct {
	ID             uint64                `json:"id"`
	Params         model.OrbitParameters `json:"params"`
	AnimationSpeed float64               `json:"animation_speed"`
	Running        bool                  `json:"running"`
}

// KnowledgeBase is an in-memory, thread-safe store for the current run and
// its latest frame.
type KnowledgeBase struct {
	mu sync.RWMutex

	run      Run
	hasRun   bool
	frame    model.Frame
	hasFrame bool

	nextSubID int
	subs      map[int]func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		subs: make(map[int]func(Event)),
	}
}

// StartRun records a new run, clears the previous frame and notifies
// subscribers. It returns the stored run with its assigned ID.
func (kb *KnowledgeBase) StartRun(params model.OrbitParameters, animationSpeed float64) Run {
	kb.mu.Lock()
	kb.run = Run{
		ID:             kb.run.ID + 1,
		Params:         params,
		AnimationSpeed: animationSpeed,
		Running:        true,
	}
	kb.hasRun = true
	kb.frame = model.Frame{}
	kb.hasFrame = false
	event := Event{Type: EventRunStarted, Run: kb.run}
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	notify(subs, event)
	return event.Run
}

// StopRun marks the current run as stopped. The latest frame is kept.
func (kb *KnowledgeBase) StopRun() error {
	kb.mu.Lock()
	if !kb.hasRun {
		kb.mu.Unlock()
		return ErrNoRun
	}
	if !kb.run.Running {
		kb.mu.Unlock()
		return nil
	}
	kb.run.Running = false
	event := Event{Type: EventRunStopped, Run: kb.run, Frame: kb.frame}
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	notify(subs, event)
	return nil
}

// SetAnimationSpeed updates the speed recorded for the current run.
func (kb *KnowledgeBase) SetAnimationSpeed(speed float64) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if !kb.hasRun {
		return ErrNoRun
	}
	kb.run.AnimationSpeed = speed
	return nil
}

// UpdateFrame stores the latest frame and notifies subscribers.
func (kb *KnowledgeBase) UpdateFrame(frame model.Frame) error {
	kb.mu.Lock()
	if !kb.hasRun {
		kb.mu.Unlock()
		return ErrNoRun
	}
	kb.frame = frame
	kb.hasFrame = true
	event := Event{Type: EventFrameUpdated, Run: kb.run, Frame: frame}
	subs := kb.snapshotSubs()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, event)
	return nil
}

// CurrentRun returns the current run and whether one was ever started.
func (kb *KnowledgeBase) CurrentRun() (Run, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.run, kb.hasRun
}

// LatestFrame returns the latest frame of the current run, if any.
func (kb *KnowledgeBase) LatestFrame() (model.Frame, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.frame, kb.hasFrame
}

// Running reports whether a run is active.
func (kb *KnowledgeBase) Running() bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.hasRun && kb.run.Running
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSubID
	kb.nextSubID++
	kb.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			kb.mu.Lock()
			delete(kb.subs, id)
			kb.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of registered subscribers.
func (kb *KnowledgeBase) SubscriberCount() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.subs)
}

func (kb *KnowledgeBase) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Event), event Event) {
	for _, sub := range subs {
		sub(event)
	}
}
