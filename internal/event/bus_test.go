package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/idecore/internal/logging"
)

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	id := bus.Subscribe(TypeContextReady, func(e Event) {
		received = e
	})
	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}

	bus.Publish(NewContextReadyEvent("ctx-1", "/src/app", "app"))

	ready, ok := received.(ContextReadyEvent)
	if !ok {
		t.Fatalf("expected ContextReadyEvent, got %T", received)
	}
	if ready.ProjectName != "app" {
		t.Errorf("Expected project name %q, got %q", "app", ready.ProjectName)
	}
	if ready.Timestamp().IsZero() {
		t.Error("Expected non-zero timestamp")
	}
}

func TestBus_NilBusDropsEvents(t *testing.T) {
	var bus *Bus
	bus.Publish(NewHistoryNavigatedEvent("file:///a.c", "backward"))
}

func TestBus_OrderSpecificThenWildcard(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeHistoryChanged, func(e Event) { order = append(order, "specific-1") })
	bus.Subscribe(TypeHistoryChanged, func(e Event) { order = append(order, "specific-2") })
	bus.Subscribe(TypeHistoryNavigated, func(e Event) { order = append(order, "other") })

	bus.Publish(NewHistoryChangedEvent("file:///a.c", 1, 0))

	want := []string{"specific-1", "specific-2", "all"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("Expected order %v, got %v", want, order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := map[string]int{}
	first := bus.Subscribe(TypeFileChanged, func(e Event) { calls["first"]++ })
	bus.Subscribe(TypeFileChanged, func(e Event) { calls["second"]++ })

	if !bus.Unsubscribe(first) {
		t.Error("Unsubscribe should return true when subscription exists")
	}
	if bus.Unsubscribe(first) {
		t.Error("Unsubscribe should return false the second time")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}

	bus.Publish(NewFileChangedEvent("/src/app/main.c", "write"))

	if calls["first"] != 0 || calls["second"] != 1 {
		t.Errorf("unexpected calls: %v", calls)
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe("a", func(Event) {})
	bus.SubscribeAll(func(Event) {})
	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after Clear, got %d", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	secondCalled := false
	bus.Subscribe(TypeContextUnloaded, func(e Event) { panic("boom") })
	bus.Subscribe(TypeContextUnloaded, func(e Event) { secondCalled = true })

	bus.Publish(NewContextUnloadedEvent("ctx-1", 0))

	if !secondCalled {
		t.Error("Second handler should run after the first panics")
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("Expected panic to be logged, got %q", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewRecentAddedEvent("/src/app", "app"))
		}()
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("Expected 20 deliveries, got %d", count)
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(nil)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := bus.Subscribe("x", func(Event) {})
		if seen[id] {
			t.Fatalf("duplicate subscription ID %q", id)
		}
		seen[id] = true
	}
}
