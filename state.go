package wscore

import (
	"sync"
	"sync/atomic"

	"github.com/relaywire/wscore/metrics"
)

// State holds the monitoring counters shared by every task of one running
// service. The counters are relaxed signals, not synchronization
// primitives.
type State struct {
	activeClients    atomic.Int64
	rejectionCounter atomic.Int64
}

// ActiveClients returns the number of currently admitted clients.
func (s *State) ActiveClients() int64 {
	return s.activeClients.Load()
}

// Rejections returns the number of requests that matched no route.
func (s *State) Rejections() int64 {
	return s.rejectionCounter.Load()
}

// acquireSlot reserves one client slot, honoring the admission cap. The
// reservation must be confirmed with commitClient or undone with abortSlot.
func (s *State) acquireSlot(max int) bool {
	if n := s.activeClients.Add(1); n > int64(max) {
		s.activeClients.Add(-1)
		return false
	}
	return true
}

// abortSlot undoes a reservation whose upgrade or authentication failed.
func (s *State) abortSlot() {
	s.activeClients.Add(-1)
}

// commitClient confirms a reservation and returns the current client count.
func (s *State) commitClient() int64 {
	metrics.RecordClientConnected()
	return s.activeClients.Load()
}

// closeClient releases the slot of a stopped session and returns the
// remaining client count.
func (s *State) closeClient() int64 {
	metrics.RecordClientClosed()
	return s.activeClients.Add(-1)
}

// rejected counts one unmapped-route request and returns the new total.
func (s *State) rejected() int64 {
	metrics.RecordRejection()
	return s.rejectionCounter.Add(1)
}

// PeriodicState is the process-wide state of a periodic-broadcast service.
type PeriodicState struct {
	State
	Config PeriodicConfig
}

func NewPeriodicState(config PeriodicConfig) *PeriodicState {
	config.normalize()
	return &PeriodicState{Config: config}
}

// PubsubState is the process-wide state of a pub/sub-broadcast service. It
// additionally carries the one-shot slot for the router's subscribe handle.
type PubsubState struct {
	State
	Config PubsubConfig

	mu         sync.Mutex
	subscriber *subscriberHandle
}

func NewPubsubState(config PubsubConfig) *PubsubState {
	config.normalize()
	return &PubsubState{Config: config}
}

// setSubscriber installs the router's subscribe handle. Written exactly
// once, at router startup, before any upgrade is accepted.
func (s *PubsubState) setSubscriber(h *subscriberHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = h
}

// subscriberHandle returns the installed handle. A nil slot means a session
// started before the router — a startup-ordering bug in the embedding host.
func (s *PubsubState) subscriberHandle() (*subscriberHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscriber == nil {
		return nil, &ServiceError{Type: ErrorTypeInternal, Op: "subscribe", Err: ErrAbsentDependency}
	}
	return s.subscriber, nil
}

// ReactiveState is the process-wide state of a reactive service.
type ReactiveState struct {
	State
	Config ReactiveConfig
}

func NewReactiveState(config ReactiveConfig) *ReactiveState {
	config.normalize()
	return &ReactiveState{Config: config}
}
