// Package textutil provides text processing utilities for query
// canonicalization and filename sanitization.
//
// The primary use cases are:
//   - Normalizing search queries so spelling-equivalent queries share a
//     cache key
//   - Sanitizing path segments for safe filesystem use
//
// Query normalization applies Unicode NFC so composed and decomposed forms
// of the same text compare equal.
package textutil
