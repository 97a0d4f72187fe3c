// ABOUTME: Connectivity monitor exposing reachability as a point-in-time check
// ABOUTME: and as a subscription that delivers state transitions.
package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Prober performs one reachability check.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) Probe(ctx context.Context) bool { return f(ctx) }

// DialProber reports reachable when a TCP connection to Address succeeds.
type DialProber struct {
	Address string
	Timeout time.Duration
}

const (
	DefaultProbeAddress  = "1.1.1.1:443"
	DefaultProbeInterval = 30 * time.Second
	defaultDialTimeout   = 3 * time.Second
)

func (p DialProber) Probe(ctx context.Context) bool {
	addr := p.Address
	if addr == "" {
		addr = DefaultProbeAddress
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Monitor tracks reachability. The zero value is not usable; call NewMonitor.
type Monitor struct {
	mu     sync.RWMutex
	online bool
	subs   map[int]chan bool
	nextID int
	log    logrus.FieldLogger
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(initial bool, log logrus.FieldLogger) *Monitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Monitor{
		online: initial,
		subs:   make(map[int]chan bool),
		log:    log.WithField("component", "connectivity"),
	}
}

// IsInternetAvailable reports the last known state. It never blocks on the network.
func (m *Monitor) IsInternetAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records a new state and notifies subscribers on a change.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	m.log.WithField("online", online).Info("connectivity changed")
	for _, ch := range m.subs {
		// Keep only the latest state for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
}

// Subscribe returns a channel of state transitions and a cancel func.
// The channel holds at most one pending value, always the newest.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}
}

// Run probes immediately and then every interval until ctx ends.
func (m *Monitor) Run(ctx context.Context, p Prober, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	m.Set(p.Probe(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Set(p.Probe(ctx))
		}
	}
}
