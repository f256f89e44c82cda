package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/metrics"

	"go.uber.org/zap"
)

// DefaultThreshold is the fill percentage a bin must exceed to raise an alert.
const DefaultThreshold = 80.0

// Alert is raised once when a bin's fill level crosses the threshold.
type Alert struct {
	BinID        string    `json:"binId"`
	BinName      string    `json:"binName"`
	Location     string    `json:"location,omitempty"`
	FillPercent  float64   `json:"fillPercent"`
	Threshold    float64   `json:"threshold"`
	OperatorID   string    `json:"operatorId,omitempty"`
	OperatorName string    `json:"operatorName,omitempty"`
	RaisedAt     time.Time `json:"raisedAt"`
}

// Message is the human readable alert text.
func (a Alert) Message() string {
	msg := fmt.Sprintf("⚠️ %s is %.1f%% full and needs emptying.", a.BinName, a.FillPercent)
	if a.OperatorName != "" {
		msg += fmt.Sprintf(" Assigned operator: %s.", a.OperatorName)
	}
	return msg
}

// Notifier delivers alerts to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// Monitor raises alerts for bins above the threshold. Each bin alerts once
// per crossing and re-arms when it drops back to or below the threshold.
type Monitor struct {
	threshold float64
	notifiers []Notifier
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	alerted map[string]bool
}

// NewMonitor creates a monitor. A non-positive threshold uses DefaultThreshold.
func NewMonitor(threshold float64, logger *zap.Logger, notifiers ...Notifier) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		threshold: threshold,
		notifiers: notifiers,
		logger:    logger,
		now:       time.Now,
		alerted:   make(map[string]bool),
	}
}

// AddNotifier registers another delivery channel.
func (m *Monitor) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// Threshold returns the configured threshold.
func (m *Monitor) Threshold() float64 {
	return m.threshold
}

// Check evaluates snap, delivers new alerts and returns them.
// Bins without a fill reading never alert.
func (m *Monitor) Check(ctx context.Context, snap chatbot.Snapshot) []Alert {
	m.mu.Lock()
	var raised []Alert
	present := make(map[string]bool, len(snap.Bins))
	for _, b := range snap.Bins {
		present[b.ID] = true
		if b.FillPercent == nil {
			continue
		}
		fill := *b.FillPercent
		if fill <= m.threshold {
			delete(m.alerted, b.ID)
			continue
		}
		if m.alerted[b.ID] {
			continue
		}
		m.alerted[b.ID] = true

		alert := Alert{
			BinID:       b.ID,
			BinName:     b.Label(),
			Location:    b.Location,
			FillPercent: fill,
			Threshold:   m.threshold,
			RaisedAt:    m.now(),
		}
		if op := snap.OperatorFor(b.ID); op != nil {
			alert.OperatorID = op.ID
			alert.OperatorName = op.Name
		}
		raised = append(raised, alert)
	}
	for id := range m.alerted {
		if !present[id] {
			delete(m.alerted, id)
		}
	}
	notifiers := append([]Notifier(nil), m.notifiers...)
	m.mu.Unlock()

	for _, alert := range raised {
		m.logger.Warn("🚨 Bin over threshold",
			zap.String("bin", alert.BinID),
			zap.Float64("fill", alert.FillPercent),
			zap.String("operator", alert.OperatorID))
		m.dispatch(ctx, notifiers, alert)
	}
	return raised
}

// Send delivers alert to every notifier without debouncing and returns the
// number of channels that accepted it.
func (m *Monitor) Send(ctx context.Context, alert Alert) int {
	m.mu.Lock()
	notifiers := append([]Notifier(nil), m.notifiers...)
	m.mu.Unlock()

	if alert.Threshold == 0 {
		alert.Threshold = m.threshold
	}
	if alert.RaisedAt.IsZero() {
		alert.RaisedAt = m.now()
	}
	return m.dispatch(ctx, notifiers, alert)
}

func (m *Monitor) dispatch(ctx context.Context, notifiers []Notifier, alert Alert) int {
	delivered := 0
	for _, n := range notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			metrics.ObserveAlert(n.Name(), metrics.ResultError)
			m.logger.Error("❌ Failed to deliver alert",
				zap.String("channel", n.Name()),
				zap.String("bin", alert.BinID),
				zap.Error(err))
			continue
		}
		metrics.ObserveAlert(n.Name(), metrics.ResultSuccess)
		delivered++
	}
	return delivered
}

// Run polls provider every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, provider chatbot.SnapshotProvider, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.logger.Info("⏱️ Alert poller started", zap.Duration("interval", interval), zap.Float64("threshold", m.threshold))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Alert poller stopped")
			return
		case <-ticker.C:
			snap, err := provider.Snapshot(ctx)
			if err != nil {
				m.logger.Warn("⚠️ Alert poll failed", zap.Error(err))
				continue
			}
			m.Check(ctx, snap)
		}
	}
}
