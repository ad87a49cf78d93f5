// Package preflight provides readiness checks for the filesystem paths,
// capture devices and remote services the sniffer depends on.
//
// The run command logs failed checks at startup; the status command renders
// every result as a table.
package preflight
