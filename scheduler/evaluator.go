package scheduler

import (
	"math"
	"time"

	"github.com/marketinni/backend/models"
)

// TriggerEvent records one alert whose condition was satisfied and
// which passed the cooldown gate this cycle. Transient: consumed by
// the notification step and discarded.
type TriggerEvent struct {
	Alert         models.Alert
	ObservedPrice float64
	OccurredAt    time.Time
}

// EvaluateAlerts decides which alerts fire given the current quotes.
// Pure function: no I/O, deterministic for fixed inputs, output order
// follows the input alert order.
//
// An alert fires when it is active, a finite quote exists for its
// symbol, its operator condition holds against the quoted price, and
// more than cooldown has elapsed since it last fired (an alert that
// never fired has no suppression). Alerts missing a quote are skipped
// silently; partial quote availability is expected, not a failure.
func EvaluateAlerts(alerts []models.Alert, quotes map[string]models.Quote, now time.Time, cooldown time.Duration, tolerance float64) []TriggerEvent {
	events := make([]TriggerEvent, 0)

	for _, alert := range alerts {
		if !alert.Active {
			continue
		}

		quote, ok := quotes[alert.Symbol]
		if !ok {
			continue
		}
		price := quote.Price
		if math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}

		if !conditionSatisfied(alert.Operator, price, alert.Threshold, tolerance) {
			continue
		}

		// Anti-spam gate: a condition that stays true must not
		// re-notify every cycle
		if alert.LastTriggeredAt != nil && now.Sub(*alert.LastTriggeredAt) <= cooldown {
			continue
		}

		events = append(events, TriggerEvent{
			Alert:         alert,
			ObservedPrice: price,
			OccurredAt:    now,
		})
	}

	return events
}

// conditionSatisfied applies one comparison operator. Equality is a
// tolerance band rather than exact float comparison.
func conditionSatisfied(operator string, price, threshold, tolerance float64) bool {
	switch operator {
	case models.OperatorGreater:
		return price > threshold
	case models.OperatorLess:
		return price < threshold
	case models.OperatorGreaterOrEqual:
		return price >= threshold
	case models.OperatorLessOrEqual:
		return price <= threshold
	case models.OperatorEqual:
		return math.Abs(price-threshold) < tolerance
	default:
		return false
	}
}
