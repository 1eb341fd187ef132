package network

import (
	"context"
	"sync"
	"time"

	"downpour/app/config"
	"downpour/app/logger"

	"resty.dev/v3"
)

// Status is the current view of connectivity. IsOnline is the reported link
// presence; IsConnected is verified reachability, which can differ on a dead
// hotspot.
type Status struct {
	IsOnline      bool      `json:"is_online"`
	IsConnected   bool      `json:"is_connected"`
	EffectiveType string    `json:"effective_type,omitempty"`
	DownlinkMbps  float64   `json:"downlink_mbps,omitempty"`
	LastChecked   time.Time `json:"last_checked"`
}

// Degraded reports a usable but slow link: reachable, yet the measured link
// class is at or below 2G. Advisory only; retry logic must not consult it.
func (s Status) Degraded() bool {
	return s.IsOnline && s.IsConnected &&
		(s.EffectiveType == "2g" || s.EffectiveType == "slow-2g")
}

// Monitor verifies reachability against a list of independent endpoints and
// keeps a single process-wide connectivity status. Only the monitor mutates
// the status; consumers read snapshots.
type Monitor struct {
	logger    *logger.Logger
	client    *resty.Client
	endpoints []string
	timeout   time.Duration
	interval  time.Duration

	mu       sync.RWMutex
	status   Status
	onChange func(Status)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor from the network configuration. The link is
// assumed present until told otherwise; reachability starts unverified.
func NewMonitor(cfg config.NetworkConfig, log *logger.Logger) *Monitor {
	return &Monitor{
		logger:    log,
		client:    resty.New().SetTimeout(cfg.ProbeTimeout()),
		endpoints: cfg.ProbeEndpoints,
		timeout:   cfg.ProbeTimeout(),
		interval:  time.Duration(cfg.CheckIntervalSeconds) * time.Second,
		status: Status{
			IsOnline: true,
		},
		stopChan: make(chan struct{}),
	}
}

// Status returns a snapshot of the current connectivity.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsConnected reports verified reachability.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.IsConnected
}

// IsOnline reports the last known link presence.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.IsOnline
}

// SetOnChange registers the single observer notified on status changes.
// Passing nil unregisters it.
func (m *Monitor) SetOnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// SetOnline records a link presence report from the platform. A transition
// from offline to online triggers an immediate re-verification.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.status.IsOnline
	m.status.IsOnline = online
	if !online {
		m.status.IsConnected = false
	}
	status := m.status
	notify := m.onChange
	m.mu.Unlock()

	if notify != nil {
		notify(status)
	}

	if online && !wasOnline {
		go m.Verify(context.Background())
	}
}

// Verify probes the configured endpoints in order until one answers, then
// updates and returns the connected flag. All endpoints failing means not
// connected.
func (m *Monitor) Verify(ctx context.Context) bool {
	connected := false
	effectiveType := ""
	downlink := 0.0

	for _, endpoint := range m.endpoints {
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		resp, err := m.client.R().SetContext(probeCtx).Get(endpoint)
		elapsed := time.Since(start)
		cancel()

		if err != nil || resp.StatusCode() >= 500 {
			m.logger.Debugf("probe %s failed: %v", endpoint, err)
			continue
		}

		connected = true
		effectiveType = classifyLatency(elapsed)
		if secs := elapsed.Seconds(); secs > 0 {
			downlink = float64(len(resp.Bytes())) * 8 / secs / 1e6
		}
		break
	}

	m.mu.Lock()
	changed := m.status.IsConnected != connected
	m.status.IsConnected = connected
	m.status.EffectiveType = effectiveType
	m.status.DownlinkMbps = downlink
	m.status.LastChecked = time.Now()
	status := m.status
	notify := m.onChange
	m.mu.Unlock()

	if changed && notify != nil {
		notify(status)
	}
	return connected
}

// Start launches the periodic verification loop.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
	m.logger.Infof("network monitor started, checking every %s", m.interval)
}

// Stop terminates the verification loop and closes the HTTP client.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
	_ = m.client.Close()
	m.logger.Info("network monitor stopped")
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Verify(context.Background())

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Verify(context.Background())
		}
	}
}

// classifyLatency maps probe round-trip time onto browser-style link
// classes.
func classifyLatency(d time.Duration) string {
	switch {
	case d <= 150*time.Millisecond:
		return "4g"
	case d <= 600*time.Millisecond:
		return "3g"
	case d <= 1500*time.Millisecond:
		return "2g"
	default:
		return "slow-2g"
	}
}
