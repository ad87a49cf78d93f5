// Package daemon wraps the workflow manager with process-level concerns: a
// flock-based single-instance lock under the state directory, netlink
// hotplug monitoring of the capture interface and start/stop notifications.
package daemon
