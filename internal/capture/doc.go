// Package capture owns the boundary to the packet capture library: device
// enumeration and selection, live and file-backed frame sources, capture
// statistics, and a netlink watcher for network interface hotplug.
package capture
