package wscore

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireSlotHonorsCap(t *testing.T) {
	var s State
	const max = 3

	for i := 0; i < max; i++ {
		if !s.acquireSlot(max) {
			t.Fatalf("reservation %d refused below the cap", i)
		}
	}
	if s.acquireSlot(max) {
		t.Fatal("reservation above the cap accepted")
	}
	if n := s.ActiveClients(); n != max {
		t.Fatalf("active clients = %d, want %d", n, max)
	}

	s.abortSlot()
	if !s.acquireSlot(max) {
		t.Fatal("slot not reusable after abort")
	}
}

func TestAdmissionNeverExceedsCapUnderContention(t *testing.T) {
	var s State
	const (
		max     = 8
		workers = 64
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !s.acquireSlot(max) {
					continue
				}
				if n := s.ActiveClients(); n > max {
					t.Errorf("active clients %d exceeded cap %d", n, max)
				}
				s.commitClient()
				time.Sleep(time.Microsecond)
				s.closeClient()
			}
		}()
	}
	wg.Wait()

	if n := s.ActiveClients(); n != 0 {
		t.Fatalf("active clients = %d after all sessions closed", n)
	}
}

func TestRejectedCounterIsMonotonic(t *testing.T) {
	var s State
	for i := int64(1); i <= 5; i++ {
		if n := s.rejected(); n != i {
			t.Fatalf("rejected() = %d, want %d", n, i)
		}
	}
	if n := s.Rejections(); n != 5 {
		t.Fatalf("Rejections() = %d, want 5", n)
	}
}

func TestPubsubStateSubscriberSlot(t *testing.T) {
	state := NewPubsubState(PubsubConfig{Config: Config{BindingPath: "/ws"}})

	if _, err := state.subscriberHandle(); !errors.Is(err, ErrAbsentDependency) {
		t.Fatalf("empty slot error = %v, want absent dependency", err)
	}

	h := &subscriberHandle{signals: newQueue[subscribeSignal]()}
	state.setSubscriber(h)
	got, err := state.subscriberHandle()
	if err != nil {
		t.Fatalf("subscriberHandle: %v", err)
	}
	if got != h {
		t.Fatal("returned a different handle")
	}
}

func TestStateConstructorsApplyDefaults(t *testing.T) {
	p := NewPeriodicState(PeriodicConfig{MessageGetter: func() string { return "x" }})
	if p.Config.MaxClients != DefaultMaxClients {
		t.Fatalf("periodic max clients = %d", p.Config.MaxClients)
	}
	if p.Config.PeriodicInterval != DefaultPeriodicInterval {
		t.Fatalf("periodic interval = %v", p.Config.PeriodicInterval)
	}
	if p.Config.Auth == nil {
		t.Fatal("auth mode not defaulted")
	}

	ps := NewPubsubState(PubsubConfig{})
	if ps.Config.ClientTimeout != DefaultSlowClientTimeout {
		t.Fatalf("pubsub client timeout = %v", ps.Config.ClientTimeout)
	}

	r := NewReactiveState(ReactiveConfig{MessageHandler: func(string) (string, bool) { return "", false }})
	if r.Config.MaxClients != DefaultMaxClients {
		t.Fatalf("reactive max clients = %d", r.Config.MaxClients)
	}
}
