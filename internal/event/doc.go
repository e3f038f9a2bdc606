// Package event provides the per-session event bus that fans out
// streaming turn events from one producing Orchestrator to any number
// of concurrent SSE subscribers.
//
// Each Session owns exactly one Bus. The Orchestrator is the single
// producer; subscribers (SSE handlers) are read-only consumers. A Bus
// is single-use: once Close is called (after the terminal `done`
// event), further pushes are silently dropped and every current or
// future Subscribe call drains only the already-queued tail before
// reporting end-of-stream.
//
// This mirrors the publish/subscribe shape of the teacher's global
// event.Bus (internal/event/bus.go in the teacher repository) but is
// deliberately scoped to one session rather than process-wide, and
// gives every subscriber its own buffered channel so a slow reader
// never causes a push to block or drop events for others.
package event
