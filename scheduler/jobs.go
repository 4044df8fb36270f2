package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/marketinni/backend/models"
)

// Per-cycle limits
const (
	defaultQuoteTimeout   = 30 * time.Second
	notifyTimeout         = 15 * time.Second
	maxConcurrentNotifies = 8
)

// AlertStore is the durable store of alert records, as the monitor
// sees it. The monitor only reads active alerts and writes the single
// lastTriggeredAt field; it never creates or deletes alerts.
type AlertStore interface {
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	SetLastTriggered(ctx context.Context, id string, at time.Time) error
}

// QuoteSource supplies current prices, batched by symbol set. Symbols
// with no available price are absent from the result map.
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}

// UserDirectory maps an opaque user ID to a contact address
type UserDirectory interface {
	ResolveContact(ctx context.Context, userID string) (string, error)
}

// PriceNotification is one outgoing alert notification
type PriceNotification struct {
	Email        string
	Symbol       string
	Company      string
	CurrentPrice float64
	TargetPrice  float64
	Direction    string // upper or lower
	OccurredAt   time.Time
}

// Notifier delivers a notification to a contact address. Best-effort:
// errors are logged by the monitor, never propagated.
type Notifier interface {
	SendPriceAlert(n PriceNotification) error
}

// MonitorStatus is a snapshot of the monitor's recent activity
type MonitorStatus struct {
	Running       bool       `json:"running"`
	CyclesRun     int64      `json:"cycles_run"`
	CyclesSkipped int64      `json:"cycles_skipped"`
	LastCycleAt   *time.Time `json:"last_cycle_at,omitempty"`
	LastChecked   int        `json:"last_checked"`
	LastTriggered int        `json:"last_triggered"`
}

// AlertMonitor evaluates user price alerts against live quotes and
// dispatches notifications. Collaborators are injected so fakes can be
// substituted in tests.
type AlertMonitor struct {
	store    AlertStore
	quotes   QuoteSource
	users    UserDirectory
	notifier Notifier

	cooldown     time.Duration
	tolerance    float64
	quoteTimeout time.Duration

	mu        sync.Mutex
	isRunning bool

	statusMu      sync.RWMutex
	cyclesRun     int64
	cyclesSkipped int64
	lastCycleAt   *time.Time
	lastChecked   int
	lastTriggered int
}

// NewAlertMonitor creates a monitor with the given collaborators
func NewAlertMonitor(store AlertStore, quotes QuoteSource, users UserDirectory, notifier Notifier, cooldown time.Duration, tolerance float64) *AlertMonitor {
	return &AlertMonitor{
		store:        store,
		quotes:       quotes,
		users:        users,
		notifier:     notifier,
		cooldown:     cooldown,
		tolerance:    tolerance,
		quoteTimeout: defaultQuoteTimeout,
	}
}

// tryAcquire claims the single-run slot. Returns false when a cycle
// is already in flight: the new attempt is skipped, not queued, so a
// slow quote provider cannot pile up concurrent runs.
func (m *AlertMonitor) tryAcquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		m.statusMu.Lock()
		m.cyclesSkipped++
		m.statusMu.Unlock()
		log.Println("Alert check skipped: previous cycle still running")
		return false
	}
	m.isRunning = true
	return true
}

func (m *AlertMonitor) release() {
	m.mu.Lock()
	m.isRunning = false
	m.mu.Unlock()
}

// RunCycle performs one evaluation cycle, blocking until it completes.
// Returns false when the attempt was skipped by overlap prevention.
func (m *AlertMonitor) RunCycle() bool {
	if !m.tryAcquire() {
		return false
	}
	defer m.release()

	m.runCycle()
	return true
}

// RunAsync starts a cycle in the background. Returns immediately with
// false when a cycle is already in flight.
func (m *AlertMonitor) RunAsync() bool {
	if !m.tryAcquire() {
		return false
	}
	go func() {
		defer m.release()
		m.runCycle()
	}()
	return true
}

// runCycle does the actual work. A failure loading alerts or fetching
// quotes aborts the whole cycle; the next tick retries from scratch.
// A failure notifying or persisting for one alert is isolated to it.
func (m *AlertMonitor) runCycle() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), m.quoteTimeout)
	defer cancel()

	alerts, err := m.store.ListActiveAlerts(ctx)
	if err != nil {
		log.Printf("Alert check aborted: loading alerts failed: %v", err)
		return
	}
	if len(alerts) == 0 {
		m.recordCycle(0, 0)
		return
	}

	// One batched quote call per cycle regardless of alert count
	symbols := distinctSymbols(alerts)
	quotes, err := m.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		log.Printf("Alert check aborted: fetching quotes failed: %v", err)
		return
	}

	now := time.Now()
	events := EvaluateAlerts(alerts, quotes, now, m.cooldown, m.tolerance)

	if len(events) > 0 {
		m.dispatch(events)
	}

	m.recordCycle(len(alerts), len(events))
	log.Printf("Checked %d alerts, triggered %d notifications (%v)",
		len(alerts), len(events), time.Since(start).Round(time.Millisecond))
}

// dispatch fans notifications out, one goroutine per trigger with a
// bounded degree of concurrency. Failure domains are isolated: one
// alert's notifier or store error never blocks its siblings.
func (m *AlertMonitor) dispatch(events []TriggerEvent) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentNotifies)

	for _, event := range events {
		wg.Add(1)
		sem <- struct{}{}
		go func(ev TriggerEvent) {
			defer wg.Done()
			defer func() { <-sem }()
			m.dispatchOne(ev)
		}(event)
	}

	wg.Wait()
}

func (m *AlertMonitor) dispatchOne(ev TriggerEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	email, err := m.users.ResolveContact(ctx, ev.Alert.UserID)
	if err != nil {
		log.Printf("No contact for user %s (alert %s): %v", ev.Alert.UserID, ev.Alert.ID.Hex(), err)
		return
	}

	if err := m.notifier.SendPriceAlert(PriceNotification{
		Email:        email,
		Symbol:       ev.Alert.Symbol,
		Company:      ev.Alert.Symbol, // TODO: look up the company profile for a display name
		CurrentPrice: ev.ObservedPrice,
		TargetPrice:  ev.Alert.Threshold,
		Direction:    ev.Alert.Direction(),
		OccurredAt:   ev.OccurredAt,
	}); err != nil {
		log.Printf("Failed to notify %s for alert %s: %v", email, ev.Alert.ID.Hex(), err)
	}

	// Advance the cooldown gate even when the transport failed. A
	// persistently failing transport must not cause a renotification
	// storm every cycle.
	if err := m.store.SetLastTriggered(ctx, ev.Alert.ID.Hex(), ev.OccurredAt); err != nil {
		log.Printf("Failed to persist lastTriggeredAt for alert %s: %v", ev.Alert.ID.Hex(), err)
	}
}

func (m *AlertMonitor) recordCycle(checked, triggered int) {
	now := time.Now()
	m.statusMu.Lock()
	m.cyclesRun++
	m.lastCycleAt = &now
	m.lastChecked = checked
	m.lastTriggered = triggered
	m.statusMu.Unlock()
}

// Status returns a snapshot of the monitor's recent activity
func (m *AlertMonitor) Status() MonitorStatus {
	m.mu.Lock()
	running := m.isRunning
	m.mu.Unlock()

	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return MonitorStatus{
		Running:       running,
		CyclesRun:     m.cyclesRun,
		CyclesSkipped: m.cyclesSkipped,
		LastCycleAt:   m.lastCycleAt,
		LastChecked:   m.lastChecked,
		LastTriggered: m.lastTriggered,
	}
}

// distinctSymbols returns the unique symbols across the loaded alerts,
// preserving first-seen order
func distinctSymbols(alerts []models.Alert) []string {
	seen := make(map[string]bool, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		if !seen[alert.Symbol] {
			seen[alert.Symbol] = true
			symbols = append(symbols, alert.Symbol)
		}
	}
	return symbols
}
