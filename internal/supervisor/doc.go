// Package supervisor runs a hot-reload capable tool (flutter run by default)
// as a child process and drives reloads from filesystem changes. It is
// structured into small files by concern:
//
//   - supervisor.go: Supervisor type, the Starting/Running/ShuttingDown/
//     Terminated state machine, the event loop and the one-shot Teardown.
//   - config.go: Config and package defaults; New applies defaults.
//   - child.go: Child, the spawned process (process group, exit code,
//     terminate with grace period).
//   - input.go: Input, the child's stdin as an explicit open/closed handle.
//   - readiness.go: Detector, echoes child stdout and watches for the
//     readiness markers.
//   - debounce.go: Gate, a single-slot cancel-then-schedule timer.
//   - dispatch.go: Dispatcher, writes the reload command when allowed.
//   - relay.go: Relay, copies operator keystrokes to the child and turns
//     Ctrl+C / Ctrl+Z into signals for this process.
//   - terminal.go: raw mode handling via golang.org/x/term.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//   - errors.go: error values and helpers.
//
// Run owns the event loop. The status API reads a snapshot under the
// supervisor's lock.
package supervisor
