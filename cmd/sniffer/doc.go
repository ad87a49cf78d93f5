// Package main hosts the sniffer CLI.
//
// The run command opens a capture source, selects a device when none is
// configured, and hands frames to the workflow manager under the daemon's
// single-instance lock. The remaining commands inspect the host and the
// download ledger without capturing anything.
package main
