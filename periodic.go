package wscore

import (
	"context"
	"time"
)

// RunPeriodic serves the periodic-broadcast flavor until ctx is cancelled:
// every admitted client receives the generator's output as a text frame at
// the configured interval.
func RunPeriodic(ctx context.Context, state *PeriodicState) error {
	cfg := &state.Config
	if cfg.MessageGetter == nil {
		return &ServiceError{Type: ErrorTypeInternal, Op: "periodic", Err: ErrAbsentDependency}
	}

	sup := periodicSupervisor(state)
	return serve(ctx, accessLog(sup), cfg.BindingURL, cfg.MaxClients)
}

func periodicSupervisor(state *PeriodicState) *supervisor {
	cfg := &state.Config
	return newSupervisor(&state.State, &cfg.Config, DefaultSlowClientTimeout, func(s *session) error {
		startTicker(s, cfg.PeriodicInterval, cfg.MessageGetter)
		return nil
	})
}

// startTicker runs the per-session interval timer. Ticks are not shared
// across sessions; a session whose mailbox cannot absorb a tick is torn
// down by the enqueue path.
func startTicker(s *session, interval time.Duration, generate Generator) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if !s.enqueueText(generate()) {
					return
				}
			}
		}
	}()
}
