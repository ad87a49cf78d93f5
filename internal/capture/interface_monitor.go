package capture

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"sniffer/internal/logging"
)

// InterfaceEvent is a network interface hotplug notification.
type InterfaceEvent struct {
	Action    string
	Interface string
}

// InterfaceMonitor listens for kernel uevents in the net subsystem and logs
// when interfaces appear or disappear. Losing the interface being captured is
// reported as a warning since the capture handle stops delivering frames.
type InterfaceMonitor struct {
	logger   *slog.Logger
	watched  string
	onChange func(InterfaceEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewInterfaceMonitor creates a monitor for the given capture interface.
// onChange may be nil.
func NewInterfaceMonitor(logger *slog.Logger, watched string, onChange func(InterfaceEvent)) *InterfaceMonitor {
	return &InterfaceMonitor{
		logger:   logging.NewComponentLogger(logger, "interface-monitor"),
		watched:  watched,
		onChange: onChange,
	}
}

// Start connects to the kernel uevent socket. Failure to connect is logged and
// otherwise ignored; capture works without hotplug notices.
func (m *InterfaceMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; interface hotplug will not be reported",
			"netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run on Linux with permission to open netlink sockets"),
			logging.String(logging.FieldImpact, "interface removal is not detected"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("interface monitor started",
		logging.String(logging.FieldEventType, "interface_monitor_started"),
		logging.String("interface", m.watched),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *InterfaceMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Debug("interface monitor stopped")
}

// Running reports whether the monitor is active.
func (m *InterfaceMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *InterfaceMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildInterfaceMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Debug("netlink monitor error", logging.Error(err))
		}
	}
}

// buildInterfaceMatcher matches SUBSYSTEM=net with ACTION=add|remove.
func buildInterfaceMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "net",
		},
	})
	return rules
}

func (m *InterfaceMonitor) handleEvent(uevent netlink.UEvent) {
	event, ok := interfaceEventFrom(uevent)
	if !ok {
		return
	}

	if event.Interface == m.watched && event.Action == "remove" {
		logging.WarnWithContext(m.logger, "capture interface removed",
			"capture_interface_removed",
			logging.String("interface", event.Interface),
			logging.String(logging.FieldErrorHint, "restart the sniffer once the interface is back"),
			logging.String(logging.FieldImpact, "no further requests will be captured"),
		)
	} else {
		m.logger.Info("network interface changed",
			logging.String(logging.FieldEventType, "interface_"+event.Action),
			logging.String("interface", event.Interface),
		)
	}

	if m.onChange != nil {
		m.onChange(event)
	}
}

func interfaceEventFrom(uevent netlink.UEvent) (InterfaceEvent, bool) {
	name := uevent.Env["INTERFACE"]
	if name == "" && uevent.KObj != "" {
		name = path.Base(uevent.KObj)
	}
	if name == "" {
		return InterfaceEvent{}, false
	}
	return InterfaceEvent{Action: string(uevent.Action), Interface: name}, true
}
