package supervisor

import "github.com/rs/zerolog"

// Event represents a supervisor lifecycle event.
// Minimal and stable: a name plus optional fields.
type Event struct {
	Name   string
	Fields map[string]any
}

// Event names published by the supervisor.
const (
	EventSpawnStart    = "spawn_start"
	EventSpawnFailed   = "spawn_failed"
	EventReady         = "ready"
	EventReload        = "reload"
	EventReloadCancel  = "reload_canceled"
	EventChildExit     = "child_exit"
	EventShutdownStart = "shutdown_start"
	EventShutdownDone  = "shutdown_done"
)

// EventPublisher receives events from the supervisor. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes every event to a logger at debug level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	p.Log.Debug().Str("event", e.Name).Fields(e.Fields).Msg("lifecycle")
}
