// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation posts JSON event documents to the webhook URL
// configured in config.toml and gracefully degrades to a no-op when no URL is
// set. Enumerated event types cover the major job milestones so workflow code
// can emit consistent events without duplicating HTTP glue, and the per-event
// config toggles (queue, complete, errors) are applied inside the service.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
