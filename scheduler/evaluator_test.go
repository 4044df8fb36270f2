package scheduler

import (
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marketinni/backend/models"
)

const (
	testCooldown  = 4 * time.Hour
	testTolerance = 0.01
)

func makeAlert(symbol, operator string, threshold float64) models.Alert {
	return models.Alert{
		ID:        primitive.NewObjectID(),
		UserID:    "user-1",
		Symbol:    symbol,
		Operator:  operator,
		Threshold: threshold,
		Active:    true,
	}
}

func quotesFor(pairs map[string]float64) map[string]models.Quote {
	quotes := make(map[string]models.Quote, len(pairs))
	for symbol, price := range pairs {
		quotes[symbol] = models.Quote{Symbol: symbol, Price: price}
	}
	return quotes
}

func TestEvaluateOperators(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name      string
		operator  string
		threshold float64
		price     float64
		triggers  bool
	}{
		{"greater fires above", ">", 150, 152.30, true},
		{"greater holds at threshold", ">", 150, 150, false},
		{"less fires below", "<", 100, 99.99, true},
		{"less holds above", "<", 100, 100.01, false},
		{"greater or equal fires at threshold", ">=", 150, 150, true},
		{"less or equal fires at threshold", "<=", 150, 150, true},
		{"equal fires inside tolerance band", "==", 100, 100.005, true},
		{"equal holds outside tolerance band", "==", 100, 100.02, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := []models.Alert{makeAlert("AAPL", tc.operator, tc.threshold)}
			quotes := quotesFor(map[string]float64{"AAPL": tc.price})

			events := EvaluateAlerts(alerts, quotes, now, testCooldown, testTolerance)
			if tc.triggers && len(events) != 1 {
				t.Errorf("Expected 1 trigger for %s %v at price %v, got %d", tc.operator, tc.threshold, tc.price, len(events))
			}
			if !tc.triggers && len(events) != 0 {
				t.Errorf("Expected no trigger for %s %v at price %v, got %d", tc.operator, tc.threshold, tc.price, len(events))
			}
		})
	}
}

func TestEvaluateCooldown(t *testing.T) {
	now := time.Now()

	threeHoursAgo := now.Add(-3 * time.Hour)
	fiveHoursAgo := now.Add(-5 * time.Hour)

	recent := makeAlert("AAPL", ">", 150)
	recent.LastTriggeredAt = &threeHoursAgo

	stale := makeAlert("AAPL", ">", 150)
	stale.LastTriggeredAt = &fiveHoursAgo

	quotes := quotesFor(map[string]float64{"AAPL": 152.30})

	events := EvaluateAlerts([]models.Alert{recent}, quotes, now, testCooldown, testTolerance)
	if len(events) != 0 {
		t.Errorf("Alert triggered 3h ago with 4h cooldown should be suppressed, got %d events", len(events))
	}

	events = EvaluateAlerts([]models.Alert{stale}, quotes, now, testCooldown, testTolerance)
	if len(events) != 1 {
		t.Fatalf("Alert triggered 5h ago with 4h cooldown should fire, got %d events", len(events))
	}
	if events[0].ObservedPrice != 152.30 {
		t.Errorf("Expected observed price 152.30, got %v", events[0].ObservedPrice)
	}
}

func TestEvaluateNeverTriggeredFires(t *testing.T) {
	now := time.Now()

	// The end-to-end example: one active AAPL alert, never triggered
	alerts := []models.Alert{makeAlert("AAPL", ">", 150)}
	quotes := quotesFor(map[string]float64{"AAPL": 152.30})

	events := EvaluateAlerts(alerts, quotes, now, testCooldown, testTolerance)
	if len(events) != 1 {
		t.Fatalf("Expected exactly 1 trigger, got %d", len(events))
	}
	if events[0].Alert.Symbol != "AAPL" || events[0].ObservedPrice != 152.30 || !events[0].OccurredAt.Equal(now) {
		t.Errorf("Unexpected trigger event: %+v", events[0])
	}
}

func TestEvaluateSkipsSilently(t *testing.T) {
	now := time.Now()

	missing := makeAlert("ZZZZ", ">", 1)

	inactive := makeAlert("AAPL", ">", 150)
	inactive.Active = false

	nanQuote := makeAlert("NANQ", ">", 1)

	alerts := []models.Alert{missing, inactive, nanQuote}
	quotes := quotesFor(map[string]float64{"AAPL": 152.30})
	quotes["NANQ"] = models.Quote{Symbol: "NANQ", Price: math.NaN()}

	events := EvaluateAlerts(alerts, quotes, now, testCooldown, testTolerance)
	if len(events) != 0 {
		t.Errorf("Missing-quote, inactive and NaN-price alerts must all be skipped, got %d events", len(events))
	}
}

func TestEvaluateDeterministicOrder(t *testing.T) {
	now := time.Now()

	alerts := []models.Alert{
		makeAlert("MSFT", ">", 1),
		makeAlert("AAPL", ">", 1),
		makeAlert("GOOG", ">", 1),
	}
	quotes := quotesFor(map[string]float64{"AAPL": 10, "MSFT": 10, "GOOG": 10})

	want := []string{"MSFT", "AAPL", "GOOG"}
	for run := 0; run < 5; run++ {
		events := EvaluateAlerts(alerts, quotes, now, testCooldown, testTolerance)
		if len(events) != len(want) {
			t.Fatalf("Expected %d events, got %d", len(want), len(events))
		}
		for i, symbol := range want {
			if events[i].Alert.Symbol != symbol {
				t.Fatalf("Run %d: expected %s at position %d, got %s", run, symbol, i, events[i].Alert.Symbol)
			}
		}
	}
}

func TestEvaluateUnknownOperator(t *testing.T) {
	alerts := []models.Alert{makeAlert("AAPL", "!=", 150)}
	quotes := quotesFor(map[string]float64{"AAPL": 200})

	events := EvaluateAlerts(alerts, quotes, time.Now(), testCooldown, testTolerance)
	if len(events) != 0 {
		t.Errorf("Unknown operator must never trigger, got %d events", len(events))
	}
}
