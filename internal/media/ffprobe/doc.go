// Package ffprobe shells out to the ffprobe binary and decodes its JSON
// report. Result exposes the fields the pipeline reads from a media file:
// container duration, stream presence, dimensions, and frame rate.
package ffprobe
