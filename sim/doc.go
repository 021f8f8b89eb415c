// Package sim provides AsyncEnv, an asynchronous single-environment adapter
// that drives a sequential, stateful simulation from its own worker goroutine.
//
// # Reading Guide
//
//   - environment.go: the Environment capability an AsyncEnv drives, and Observation
//   - adapter.go: construction, the two-phase Start/Wait API and Close
//   - worker.go: the worker loop (reset, step, truncation, auto-reset, shutdown)
//   - queue.go: the unbounded FIFO handoff between caller and worker
//
// # Architecture
//
// Sub-packages:
//   - sim/action/: converters from discrete actions to primitive input events
//   - sim/registry/: the read-only Spec registry consulted at construction
//   - sim/batch/: groups of AsyncEnvs driven start-all then wait-all
//   - sim/wrap/: observation downsampling, grayscale and frame stacking
//   - sim/sandbox/: an in-process Environment used by the CLI and tests
//   - sim/trace/: episode records and rollout summaries
//
// # Protocol
//
// A caller issues ResetStart or StepStart, which enqueue a command and return
// immediately, then the matching ResetWait or StepWait, which block until the
// worker has produced the response. At most one command may be outstanding per
// wait; this is a caller contract and is not checked. Responses arrive in the
// order commands were issued.
package sim
