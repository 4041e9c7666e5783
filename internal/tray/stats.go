package tray

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GlobalStats is the payload of the engine's periodic global-stats
// event. Speeds are bytes per second.
type GlobalStats struct {
	DownloadSpeed float64 `json:"downloadSpeed"`
	UploadSpeed   float64 `json:"uploadSpeed"`
	NumActive     int     `json:"numActive"`
}

// Transfer is one active download as reported by the engine.
type Transfer struct {
	Name          string  `json:"name"`
	CompletedSize int64   `json:"completedSize"`
	TotalSize     int64   `json:"totalSize"`
	Speed         float64 `json:"speed"`
}

// Snapshot merges the latest pushed stats with the active transfer
// list. It is ephemeral: recomputed on every stats event, cached
// only for eager delivery when the popup becomes visible.
type Snapshot struct {
	Stats     GlobalStats `json:"stats"`
	Transfers []Transfer  `json:"transfers"`
}

// Caller issues secondary queries against the engine.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)
}

// Monitor derives the tray tooltip and the popup snapshot from
// engine-pushed global-stats events.
type Monitor struct {
	caller Caller

	queryTimeout time.Duration

	mu           sync.Mutex
	tooltip      string
	snapshot     *Snapshot
	snapshotSeq  uint64
	refreshSeq   uint64
	popupVisible bool
	onTooltip    func(string)
	onSnapshot   func(Snapshot)

	refreshMu sync.Mutex

	log *zap.Logger
}

func NewMonitor(caller Caller, log *zap.Logger) *Monitor {
	return &Monitor{
		caller:       caller,
		queryTimeout: 5 * time.Second,
		log:          log,
	}
}

// OnTooltip installs the sink for tooltip text updates.
func (m *Monitor) OnTooltip(fn func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onTooltip = fn
}

// OnSnapshot installs the sink for popup snapshot updates.
func (m *Monitor) OnSnapshot(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onSnapshot = fn
}

// HandleEvent consumes one engine event. Meant to be subscribed to
// the supervisor's event fan-out; events other than global-stats are
// ignored. The tooltip is updated synchronously; the snapshot
// refresh issues a secondary engine call and therefore runs on its
// own goroutine, off the event delivery path.
func (m *Monitor) HandleEvent(name string, data json.RawMessage) {
	if name != "global-stats" {
		return
	}

	var stats GlobalStats
	if err := json.Unmarshal(data, &stats); err != nil {
		m.log.Warn("dropping malformed global-stats event", zap.Error(err))
		return
	}

	tooltip := Tooltip(stats)

	m.mu.Lock()
	m.tooltip = tooltip
	sink := m.onTooltip
	m.refreshSeq++
	seq := m.refreshSeq
	m.mu.Unlock()

	if sink != nil {
		sink(tooltip)
	}

	go m.refreshSnapshot(stats, seq)
}

// refreshSnapshot merges the pushed stats with the active transfer
// list queried from the engine and caches the result. If the popup
// is visible, the fresh snapshot is pushed immediately.
func (m *Monitor) refreshSnapshot(stats GlobalStats, seq uint64) {
	// at most one engine query in flight at a time
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.queryTimeout)
	defer cancel()

	transfers, err := m.activeTransfers(ctx)
	if err != nil {
		m.log.Debug("failed to query active downloads", zap.Error(err))
	}

	snapshot := Snapshot{
		Stats:     stats,
		Transfers: transfers,
	}

	m.mu.Lock()
	// mutex handoff between refresh goroutines is not ordered, so a
	// refresh for an older event may run after a newer one finished;
	// never let it overwrite the newer snapshot
	if seq < m.snapshotSeq {
		m.mu.Unlock()
		return
	}
	m.snapshotSeq = seq
	m.snapshot = &snapshot
	visible := m.popupVisible
	sink := m.onSnapshot
	m.mu.Unlock()

	if visible && sink != nil {
		sink(snapshot)
	}
}

func (m *Monitor) activeTransfers(ctx context.Context) ([]Transfer, error) {
	res, err := m.caller.Call(ctx, "get_active_downloads", nil)
	if err != nil {
		return nil, err
	}

	var transfers []Transfer
	if err := json.Unmarshal(res, &transfers); err != nil {
		return nil, fmt.Errorf("malformed active download list: %w", err)
	}

	return transfers, nil
}

// SetPopupVisible records popup visibility. On the transition to
// visible, the most recently cached snapshot is delivered eagerly.
func (m *Monitor) SetPopupVisible(visible bool) {
	m.mu.Lock()
	wasVisible := m.popupVisible
	m.popupVisible = visible
	snapshot := m.snapshot
	sink := m.onSnapshot
	m.mu.Unlock()

	if visible && !wasVisible && snapshot != nil && sink != nil {
		sink(*snapshot)
	}
}

// Tooltip returns the most recently derived tooltip text.
func (m *Monitor) Tooltip() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tooltip
}

// Snapshot returns the most recently cached snapshot, or false if no
// stats event has been processed yet.
func (m *Monitor) Snapshot() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshot == nil {
		return Snapshot{}, false
	}

	return *m.snapshot, true
}

// Tooltip renders the tray tooltip for one stats payload.
func Tooltip(stats GlobalStats) string {
	return fmt.Sprintf("↓ %s  ↑ %s  (%d active)",
		FormatSpeed(stats.DownloadSpeed),
		FormatSpeed(stats.UploadSpeed),
		stats.NumActive,
	)
}

// FormatSpeed renders a byte rate with binary prefixes: plain bytes
// below 1024, else one decimal place in the largest unit where the
// value is at least 1.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec < 1024 {
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}

	units := []string{"KB/s", "MB/s", "GB/s"}

	value := bytesPerSec
	unit := ""
	for _, u := range units {
		value /= 1024
		unit = u
		if value < 1024 {
			break
		}
	}

	return fmt.Sprintf("%.1f %s", value, unit)
}
