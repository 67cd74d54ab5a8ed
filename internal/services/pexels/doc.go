// Package pexels talks to the Pexels video API: searching for cutaway
// footage, picking the best file for a needed duration and quality, and
// downloading it with retries.
//
// It exposes a Client interface and an HTTPClient implementation. The
// sliding-window request Ledger persists across processes so separate runs
// share the free-tier budget. Tests can swap in fakes to exercise fetch
// behaviour without network access.
package pexels
