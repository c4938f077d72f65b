package wscore

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/relaywire/wscore/auth"
)

// firstFrameTimeout bounds how long an upgraded connection may wait before
// presenting its first-frame credential.
const firstFrameTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checking is delegated to the embedding host or its proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// attachFunc wires flavor behavior into a freshly admitted session, setting
// s.onDetach when the registration must be undone at teardown. The session's
// close accounting is already installed when attach runs, so an attach that
// stops the session cannot strand its admission slot.
type attachFunc func(s *session) error

// supervisor dispatches HTTP traffic: the configured path goes through
// admission, authentication and the websocket upgrade; every other path is
// answered by the canonical 404 document.
type supervisor struct {
	state       *State
	cfg         *Config
	slowTimeout time.Duration
	attach      attachFunc
}

func newSupervisor(state *State, cfg *Config, slowTimeout time.Duration, attach attachFunc) *supervisor {
	if slowTimeout <= 0 {
		slowTimeout = DefaultSlowClientTimeout
	}
	return &supervisor{state: state, cfg: cfg, slowTimeout: slowTimeout, attach: attach}
}

func (sv *supervisor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != sv.cfg.BindingPath {
		sv.rejectUnmapped(w)
		return
	}
	sv.upgrade(w, r)
}

// rejectUnmapped serves the canonical 404 document and counts the
// rejection.
func (sv *supervisor) rejectUnmapped(w http.ResponseWriter) {
	n := sv.state.rejected()
	log.Debug().Msgf("Rejected counter increased to %d", n)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(NotFoundResponse().JSON())
}

func (sv *supervisor) upgrade(w http.ResponseWriter, r *http.Request) {
	if !sv.state.acquireSlot(sv.cfg.MaxClients) {
		log.Warn().Int("maxClients", sv.cfg.MaxClients).Msg("Admission cap reached, refusing upgrade")
		serr := &ServiceError{Type: ErrorTypeAdmission, Op: "upgrade", Err: ErrAdmissionRejected}
		http.Error(w, serr.Error(), HTTPStatus(serr))
		return
	}

	mode := sv.cfg.Auth
	if !mode.RequiresFirstFrame() {
		if err := mode.ValidateRequest(r.Header); err != nil {
			sv.state.abortSlot()
			serr := &ServiceError{Type: ErrorTypeUnauthorized, Op: "auth", Err: err}
			log.Info().Err(err).Msg("Client connection unauthorized")
			http.Error(w, err.Error(), HTTPStatus(serr))
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		sv.state.abortSlot()
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	sess := newSession(conn, sv.cfg.RapidRequestLimit, sv.slowTimeout)

	if mode.RequiresFirstFrame() {
		if err := firstFrameAuth(sess, mode, r.URL.Path); err != nil {
			sv.state.abortSlot()
			log.Info().Err(err).Str("client", sess.id).Msg("Client connection unauthorized")
			closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(sv.slowTimeout))
			_ = conn.Close()
			return
		}
	}

	sess.onStop = func() {
		remaining := sv.state.closeClient()
		log.Info().Str("client", sess.id).Msgf("Client connection closed, current active client is %d", remaining)
	}

	if err := sv.attach(sess); err != nil {
		log.Error().Err(err).Str("client", sess.id).Msg("Session start aborted")
		sess.stop()
		return
	}

	n := sv.state.commitClient()
	log.Info().Str("client", sess.id).Msgf("Client connection successful, current active client is %d", n)

	go sess.writePump()
	go sess.readPump()
}

// firstFrameAuth reads the credential frame from a just-upgraded connection
// and validates it. The frame is consumed; it never reaches the dispatcher.
func firstFrameAuth(sess *session, mode auth.Mode, uriPath string) error {
	_ = sess.conn.SetReadDeadline(time.Now().Add(firstFrameTimeout))
	defer func() { _ = sess.conn.SetReadDeadline(time.Time{}) }()

	kind, frame, err := sess.conn.ReadMessage()
	if err != nil {
		return &ServiceError{Type: ErrorTypeProtocol, Op: "first-frame auth", Err: err}
	}
	if kind != websocket.TextMessage {
		return Unauthorizedf("first-frame auth", "first frame must be text")
	}
	if err := mode.ValidateFrame(uriPath, frame); err != nil {
		return &ServiceError{Type: ErrorTypeUnauthorized, Op: "first-frame auth", Err: err}
	}
	return nil
}
