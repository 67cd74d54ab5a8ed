// Package logs reads the main log file for the logs command.
//
// Tail returns the trailing lines with bounded memory, and Follow streams
// appended lines by polling the file, restarting from the top when rotation
// shrinks it. Callers cancel the context to stop following.
package logs
