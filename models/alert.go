package models

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert operator constants
const (
	OperatorGreater        = ">"
	OperatorLess           = "<"
	OperatorGreaterOrEqual = ">="
	OperatorLessOrEqual    = "<="
	OperatorEqual          = "=="
)

// Alert represents a standing price condition a user wants monitored
type Alert struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"userId" json:"user_id"`
	Symbol          string             `bson:"symbol" json:"symbol"`
	Operator        string             `bson:"operator" json:"operator"`
	Threshold       float64            `bson:"threshold" json:"threshold"`
	Active          bool               `bson:"active" json:"active"`
	Note            string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updated_at"`
	LastTriggeredAt *time.Time         `bson:"lastTriggeredAt,omitempty" json:"last_triggered_at,omitempty"`
}

// Quote represents a point-in-time price observation for a symbol.
// Never persisted; fetched fresh each monitor cycle.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
}

// ValidOperators returns the five supported comparison operators
func ValidOperators() []string {
	return []string{
		OperatorGreater,
		OperatorLess,
		OperatorGreaterOrEqual,
		OperatorLessOrEqual,
		OperatorEqual,
	}
}

// IsValidOperator checks if the operator is one of the supported symbols
func IsValidOperator(op string) bool {
	for _, valid := range ValidOperators() {
		if op == valid {
			return true
		}
	}
	return false
}

// NormalizeSymbol trims and uppercases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate checks the alert invariants: a known operator, a finite
// threshold and a non-empty normalized symbol
func (a *Alert) Validate() bool {
	if !IsValidOperator(a.Operator) {
		return false
	}
	if math.IsNaN(a.Threshold) || math.IsInf(a.Threshold, 0) {
		return false
	}
	return a.Symbol != "" && a.Symbol == NormalizeSymbol(a.Symbol)
}

// Direction reports whether the alert watches for the price crossing
// above or below the threshold, used by the email template
func (a *Alert) Direction() string {
	if a.Operator == OperatorGreater || a.Operator == OperatorGreaterOrEqual {
		return "upper"
	}
	return "lower"
}
