package kb

import (
	"errors"
	"sync"
	"testing"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

func TestStartRunAssignsIDs(t *testing.T) {
	store := NewKnowledgeBase()
	if _, ok := store.CurrentRun(); ok {
		t.Fatalf("new KB should have no run")
	}

	first := store.StartRun(model.DefaultOrbitParameters(), 1)
	second := store.StartRun(model.DefaultOrbitParameters(), 2)
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("run IDs = %d, %d; want 1, 2", first.ID, second.ID)
	}
	run, ok := store.CurrentRun()
	if !ok || run.ID != 2 || !run.Running || run.AnimationSpeed != 2 {
		t.Fatalf("CurrentRun() = %+v, %v", run, ok)
	}
}

func TestUpdateFrameRequiresRun(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.UpdateFrame(model.Frame{Seq: 1}); !errors.Is(err, ErrNoRun) {
		t.Fatalf("UpdateFrame without run = %v, want ErrNoRun", err)
	}
	if err := store.StopRun(); !errors.Is(err, ErrNoRun) {
		t.Fatalf("StopRun without run = %v, want ErrNoRun", err)
	}
	if err := store.SetAnimationSpeed(2); !errors.Is(err, ErrNoRun) {
		t.Fatalf("SetAnimationSpeed without run = %v, want ErrNoRun", err)
	}
}

func TestFrameLifecycle(t *testing.T) {
	store := NewKnowledgeBase()
	store.StartRun(model.DefaultOrbitParameters(), 1)

	if _, ok := store.LatestFrame(); ok {
		t.Fatalf("fresh run should have no frame")
	}
	if err := store.UpdateFrame(model.Frame{Seq: 7, Phase: 0.07}); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	f, ok := store.LatestFrame()
	if !ok || f.Seq != 7 {
		t.Fatalf("LatestFrame() = %+v, %v", f, ok)
	}

	if err := store.StopRun(); err != nil {
		t.Fatalf("StopRun: %v", err)
	}
	if store.Running() {
		t.Fatalf("Running() should be false after StopRun")
	}
	if f, ok := store.LatestFrame(); !ok || f.Seq != 7 {
		t.Fatalf("frame should survive StopRun, got %+v %v", f, ok)
	}
	if err := store.StopRun(); err != nil {
		t.Fatalf("second StopRun should be a no-op, got %v", err)
	}

	store.StartRun(model.DefaultOrbitParameters(), 1)
	if _, ok := store.LatestFrame(); ok {
		t.Fatalf("new run should clear the previous frame")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	store := NewKnowledgeBase()

	var mu sync.Mutex
	var got []EventType
	unsubscribe := store.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})
	if store.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", store.SubscriberCount())
	}

	store.StartRun(model.DefaultOrbitParameters(), 1)
	_ = store.UpdateFrame(model.Frame{Seq: 1})
	_ = store.StopRun()

	unsubscribe()
	unsubscribe()
	_ = store.UpdateFrame(model.Frame{Seq: 2})

	mu.Lock()
	defer mu.Unlock()
	want := []EventType{EventRunStarted, EventFrameUpdated, EventRunStopped}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if store.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount() = %d after unsubscribe, want 0", store.SubscriberCount())
	}
}

func TestSubscriberMayCallBack(t *testing.T) {
	store := NewKnowledgeBase()
	store.StartRun(model.DefaultOrbitParameters(), 1)

	seen := 0
	store.Subscribe(func(e Event) {
		if _, ok := store.LatestFrame(); ok {
			seen++
		}
	})
	if err := store.UpdateFrame(model.Frame{Seq: 1}); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if seen != 1 {
		t.Fatalf("subscriber saw %d frames, want 1", seen)
	}
}

func TestEventTypeString(t *testing.T) {
	if EventFrameUpdated.String() != "frame" || EventRunStarted.String() != "run_started" || EventType(9).String() != "unknown" {
		t.Fatalf("unexpected event names")
	}
}
