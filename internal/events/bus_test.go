package events

import (
	"testing"
	"time"
)

// TestBusTopicRouting verifies topic subscribers only see their topic while
// SubscribeAll sees everything.
func TestBusTopicRouting(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	taskCh := bus.Subscribe(TopicTask, 8)
	subtaskCh := bus.Subscribe(TopicSubtask, 8)
	allCh := bus.SubscribeAll(8)

	bus.Publish(TopicTask, TaskFinishedEvent{Task: "t1", Status: "completed"})
	bus.Publish(TopicSubtask, SubtaskStartedEvent{Task: "t1", Subtask: "s1"})

	select {
	case e := <-taskCh:
		if e.EventType() != EventTypeTaskFinished {
			t.Errorf("task subscriber got %s", e.EventType())
		}
	case <-time.After(time.Second):
		t.Fatal("task subscriber got nothing")
	}

	select {
	case e := <-subtaskCh:
		if e.EventType() != EventTypeSubtaskStarted {
			t.Errorf("subtask subscriber got %s", e.EventType())
		}
	case <-time.After(time.Second):
		t.Fatal("subtask subscriber got nothing")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
		case <-time.After(time.Second):
			t.Fatalf("all-topics subscriber got %d of 2 events", i)
		}
	}

	// No cross-topic leakage.
	select {
	case e := <-taskCh:
		t.Errorf("task subscriber got extra event %s", e.EventType())
	default:
	}
}

// TestBusFullSubscriberDrops verifies a slow subscriber never blocks Publish.
func TestBusFullSubscriberDrops(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			bus.Publish(TopicTask, TaskFinishedEvent{Task: "t"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if len(ch) != 1 {
		t.Errorf("buffered events = %d, want 1 (rest dropped)", len(ch))
	}
}

// TestBusClose verifies Close is idempotent, closes subscriber channels, and
// later operations are safe no-ops.
func TestBusClose(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicTask, 1)

	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close")
	}

	// Publishing and subscribing after close must not panic.
	bus.Publish(TopicTask, TaskFinishedEvent{Task: "t"})
	late := bus.Subscribe(TopicTask, 1)
	if _, ok := <-late; ok {
		t.Error("late subscription channel open on closed bus")
	}
}
