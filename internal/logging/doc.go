// Package logging builds the slog loggers the pipeline writes through.
//
// New and NewFromConfig produce console or JSON handlers with one line
// format; context helpers tag records with job, stage, worker, and
// correlation fields; SweepLogs applies log-file retention; ProgressSampler
// thins render progress down to loggable updates. Components receive a
// *slog.Logger and derive their own via NewComponentLogger.
package logging
