package wscore

import (
	"time"

	"github.com/relaywire/wscore/auth"
)

// Generator produces the string sent on each periodic tick. It is invoked
// from every session's ticker and must be safe for concurrent use.
type Generator func() string

// Responder consumes one inbound text frame and optionally returns a reply.
// It runs on the session's read loop, so it must not block; schedule heavy
// work elsewhere.
type Responder func(message string) (reply string, ok bool)

// Broadcaster enqueues one message for fan-out to every current subscriber.
// It never blocks; only a call after the service has shut down is discarded.
type Broadcaster func(message string)

// Defaults applied when the corresponding config field is zero.
const (
	DefaultMaxClients        = 16384
	DefaultSlowClientTimeout = 250 * time.Millisecond
	DefaultPeriodicInterval  = time.Second
)

// shutdownGrace bounds how long in-flight work may linger once the
// transport loop returns.
const shutdownGrace = time.Second

// Config carries the fields shared by every service flavor.
type Config struct {
	// BindingURL is the host:port the service listens on.
	BindingURL string
	// BindingPath is the single URL path accepting websocket upgrades.
	// Every other path is answered by the canonical 404 document.
	BindingPath string
	// MaxClients caps concurrently connected clients. Zero means
	// DefaultMaxClients.
	MaxClients int
	// RapidRequestLimit is the minimum spacing between two client frames
	// before the session is torn down. Zero disables throttling; only the
	// reactive flavor should leave it unset.
	RapidRequestLimit time.Duration
	// Auth is the authentication mode. Nil means no authentication.
	Auth auth.Mode
}

func (c *Config) normalize() {
	if c.MaxClients <= 0 {
		c.MaxClients = DefaultMaxClients
	}
	if c.Auth == nil {
		c.Auth = auth.None{}
	}
}

// PeriodicConfig configures the periodic-broadcast flavor.
type PeriodicConfig struct {
	Config
	// PeriodicInterval spaces the generator invocations per session. Zero
	// means DefaultPeriodicInterval.
	PeriodicInterval time.Duration
	// MessageGetter produces each broadcast string.
	MessageGetter Generator
}

func (c *PeriodicConfig) normalize() {
	c.Config.normalize()
	if c.PeriodicInterval <= 0 {
		c.PeriodicInterval = DefaultPeriodicInterval
	}
}

// PubsubConfig configures the pub/sub-broadcast flavor.
type PubsubConfig struct {
	Config
	// ClientTimeout bounds each write to a slow client. Zero means
	// DefaultSlowClientTimeout.
	ClientTimeout time.Duration
}

func (c *PubsubConfig) normalize() {
	c.Config.normalize()
	if c.ClientTimeout <= 0 {
		c.ClientTimeout = DefaultSlowClientTimeout
	}
}

// ReactiveConfig configures the reactive flavor.
type ReactiveConfig struct {
	Config
	// MessageHandler answers each inbound text frame.
	MessageHandler Responder
}

func (c *ReactiveConfig) normalize() {
	c.Config.normalize()
}
