package wscore

import "context"

// RunReactive serves the reactive flavor until ctx is cancelled: each
// inbound text frame that passes the session guard is handed to the host's
// message handler, whose reply — when present — is sent back on the same
// connection.
func RunReactive(ctx context.Context, state *ReactiveState) error {
	cfg := &state.Config
	if cfg.MessageHandler == nil {
		return &ServiceError{Type: ErrorTypeInternal, Op: "reactive", Err: ErrAbsentDependency}
	}

	sup := reactiveSupervisor(state)
	return serve(ctx, accessLog(sup), cfg.BindingURL, cfg.MaxClients)
}

func reactiveSupervisor(state *ReactiveState) *supervisor {
	cfg := &state.Config
	return newSupervisor(&state.State, &cfg.Config, DefaultSlowClientTimeout, func(s *session) error {
		s.onText = func(text string) {
			if reply, ok := cfg.MessageHandler(text); ok {
				s.enqueueText(reply)
			}
		}
		return nil
	})
}
