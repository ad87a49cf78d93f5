// Package download replays captured asset requests and saves the responses.
//
// Each destination path may be downloading at most once at a time; concurrent
// requests for the same destination and requests for files that already exist
// are reported as skipped. Responses are buffered completely before the file
// is created.
package download
