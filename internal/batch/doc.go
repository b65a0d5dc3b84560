// Package batch executes a session's file queue on a bounded worker pool.
//
// The Scheduler fans index-tagged tasks out to workers, collects per-file
// results, and aggregates them into a Response with success/failure counts
// and total wall time. Individual task failures never abort the batch;
// cancellation is cooperative and observed between tasks, so in-flight
// conversions run to completion.
//
// The package also owns the shared domain types (FileTask, Options, Result,
// Response) used by the wire protocol, the session manager, and the one-shot
// mode, keeping the session path and the fallback path shape-identical.
package batch
