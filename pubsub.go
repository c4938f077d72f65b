package wscore

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/relaywire/wscore/metrics"
)

type subscribeSignal struct {
	sess      *session
	subscribe bool
}

var errRouterStopped = errors.New("subscriber router stopped")

// queue is an unbounded FIFO feeding one consumer. Producers never block and
// nothing is dropped while the queue is open; delivery pressure lands on the
// per-session mailboxes instead.
type queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func newQueue[T any]() *queue[T] {
	q := &queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends one item, reporting false once the queue is closed.
func (q *queue[T]) push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// pop blocks until an item is available or the queue is closed and drained.
func (q *queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *queue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// subscriberHandle lets sessions register with the router's registrar task.
type subscriberHandle struct {
	signals *queue[subscribeSignal]
}

func (h *subscriberHandle) subscribe(s *session) error {
	if !h.signals.push(subscribeSignal{sess: s, subscribe: true}) {
		return &ServiceError{Type: ErrorTypeInternal, Op: "subscribe", Err: errRouterStopped}
	}
	return nil
}

func (h *subscriberHandle) unsubscribe(s *session) {
	// Best-effort: once the router stopped the subscriber set is gone anyway.
	_ = h.signals.push(subscribeSignal{sess: s})
}

// router owns the subscriber set and the two long-lived pub/sub tasks. The
// registrar is the only writer of the set; the publisher reads it once per
// broadcast.
type router struct {
	state     *PubsubState
	signals   *queue[subscribeSignal]
	publishes *queue[string]

	mu          sync.RWMutex
	subscribers map[*session]struct{}
}

func newRouter(state *PubsubState) *router {
	return &router{
		state:       state,
		signals:     newQueue[subscribeSignal](),
		publishes:   newQueue[string](),
		subscribers: make(map[*session]struct{}),
	}
}

// registrar drains subscribe/unsubscribe signals in enqueue order.
func (r *router) registrar(ctx context.Context) error {
	stop := context.AfterFunc(ctx, r.signals.close)
	defer stop()
	for {
		sig, ok := r.signals.pop()
		if !ok {
			return nil
		}
		r.mu.Lock()
		if sig.subscribe {
			r.subscribers[sig.sess] = struct{}{}
		} else {
			delete(r.subscribers, sig.sess)
		}
		count := len(r.subscribers)
		r.mu.Unlock()
		if sig.subscribe {
			log.Info().Str("client", sig.sess.id).Msgf("A client just subscribed, current client count is %d", count)
		} else {
			log.Info().Str("client", sig.sess.id).Msgf("A client just unsubscribed, current client count is %d", count)
		}
	}
}

// publisher drains the publish queue and fans each broadcast out to every
// subscriber mailbox. Delivery is best-effort: a full mailbox tears that
// session down instead of delaying the loop, so all surviving subscribers
// observe the same publication order.
func (r *router) publisher(ctx context.Context) error {
	stop := context.AfterFunc(ctx, r.publishes.close)
	defer stop()
	for {
		message, ok := r.publishes.pop()
		if !ok {
			return nil
		}
		r.mu.RLock()
		recipients := make([]*session, 0, len(r.subscribers))
		for sess := range r.subscribers {
			recipients = append(recipients, sess)
		}
		r.mu.RUnlock()
		for _, sess := range recipients {
			sess.enqueueText(message)
		}
		metrics.RecordBroadcast()
	}
}

// subscriberCount reads the current size of the subscriber set.
func (r *router) subscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// pubsubSupervisor wires sessions to the registrar through the handle slot
// on the state.
func pubsubSupervisor(state *PubsubState) *supervisor {
	cfg := &state.Config
	return newSupervisor(&state.State, &cfg.Config, cfg.ClientTimeout, func(s *session) error {
		handle, err := state.subscriberHandle()
		if err != nil {
			return err
		}
		// Detach must be in place before the registrar can learn about the
		// session, or a teardown racing the subscribe would strand it in the
		// subscriber set.
		s.onDetach = func() { handle.unsubscribe(s) }
		if err := handle.subscribe(s); err != nil {
			s.onDetach = nil
			return err
		}
		return nil
	})
}

// publish enqueues one broadcast. Publishing never blocks and never loses a
// message while the service runs; only a publish after shutdown is discarded.
func (r *router) publish(message string) {
	if !r.publishes.push(message) {
		log.Debug().Msg("Broadcast after shutdown discarded")
	}
}

// RunPubsub serves the pub/sub-broadcast flavor until ctx is cancelled. The
// broadcaster closure is delivered through handleCh before the transport
// starts accepting upgrades; invoking it enqueues one message for fan-out
// to every current subscriber. Registrar, publisher and transport run under
// one task group sharing a shutdown signal raised when the transport loop
// returns.
func RunPubsub(ctx context.Context, state *PubsubState, handleCh chan<- Broadcaster) error {
	cfg := &state.Config
	r := newRouter(state)
	state.setSubscriber(&subscriberHandle{signals: r.signals})

	if handleCh != nil {
		select {
		case handleCh <- r.publish:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	log.Info().Msg("Broadcaster handle sent, running pubsub broadcast tasks")

	sup := pubsubSupervisor(state)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return r.registrar(gctx) })
	g.Go(func() error { return r.publisher(gctx) })
	g.Go(func() error {
		// Transport return raises the shutdown signal for both siblings.
		defer cancel()
		return serve(gctx, accessLog(sup), cfg.BindingURL, cfg.MaxClients)
	})
	return g.Wait()
}
