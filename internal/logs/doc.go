// Package logs reads the persistent sniffer log for the CLI: the last N
// lines, then new lines as they are appended. Reads use bounded memory and
// polling stops when the caller's context ends.
package logs
