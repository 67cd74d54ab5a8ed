// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths that ClipForge depends on.
//
// These checks run in two contexts:
//   - The run and batch commands call RunAll before enqueuing work.
//     If any check fails, processing halts to avoid wasting a render on a
//     doomed run.
//   - The "clipforge doctor" command uses RunAll plus CheckSystemDeps
//     to display environment health.
//
// Each check is gated by its config toggle -- unconfigured features are
// skipped.
package preflight
