// Package organizer maps resolved metadata to the on-disk library layout.
//
// Every path segment derived from catalog text is sanitized, so an artist
// named "AC/DC" becomes a single directory rather than two.
package organizer
