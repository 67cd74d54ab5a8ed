// Package clipcache stores downloaded stock clips under content-addressed
// keys so repeated queries across jobs reuse footage instead of spending API
// budget. The cache key is the SHA-256 of the normalized query, the payload
// lives in a flat clips directory, and a JSON index carries the metadata. At
// open the index is reconciled against the directory; the files on disk win.
package clipcache
