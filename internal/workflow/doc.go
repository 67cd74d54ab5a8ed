// Package workflow advances queued composition jobs through the processing
// pipeline.
//
// The Manager runs a bounded pool of workers over one shared queue. Each
// worker claims the oldest actionable job, moves it into the stage's
// processing status, and executes the stage handler (plan, fetch, compose,
// render) while a heartbeat goroutine keeps the job's lease fresh. A
// dedicated reclaim loop returns jobs whose heartbeats have gone stale to
// their pre-stage status so interrupted work restarts cleanly.
//
// Stage failures are classified through services.FailureStatus: input and
// configuration problems park the job in review for operator attention,
// everything else lands in failed and is eligible for retry. The manager also
// aggregates queue stats, calls stage health checks, and publishes job and
// batch lifecycle events through the configured notifier.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching ConfigureStages the new transition; this package is the
// authoritative home for that coordination logic.
package workflow
