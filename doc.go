// Package queuedash implements an HTTP gateway over externally owned job
// queues, exposing read and control operations plus a live server-sent event
// feed. The gateway observes and commands a queue engine through narrow
// handle interfaces; it implements no queueing, persistence or retry logic
// of its own.
//
// Key components:
//   - Registry: immutable name to queue-handle lookup built at construction
//   - guard/Action: mutation authorization evaluated before every engine call
//   - Gateway: route handlers translating HTTP requests into engine calls
//   - Emitter/EventSource: engine event fan-out with per-viewer subscriptions
//   - statsExporter: prometheus collector for gateway operational counters
//
// The redisq subpackage provides a Redis-backed implementation of the engine
// collaborator surface, and cmd/queuedash a runnable server around it.
package queuedash
