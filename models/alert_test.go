package models

import (
	"math"
	"testing"
)

func TestIsValidOperator(t *testing.T) {
	for _, op := range ValidOperators() {
		if !IsValidOperator(op) {
			t.Errorf("Operator %q should be valid", op)
		}
	}
	for _, op := range []string{"", "=", "!=", "=>", "gt", ">>"} {
		if IsValidOperator(op) {
			t.Errorf("Operator %q should be invalid", op)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"aapl":   "AAPL",
		" TSLA ": "TSLA",
		"Brk.B":  "BRK.B",
		"  msft": "MSFT",
		"":       "",
	}
	for input, want := range cases {
		if got := NormalizeSymbol(input); got != want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAlertValidate(t *testing.T) {
	valid := Alert{Symbol: "AAPL", Operator: OperatorGreater, Threshold: 150}
	if !valid.Validate() {
		t.Error("Expected valid alert to pass")
	}

	cases := []struct {
		name  string
		alert Alert
	}{
		{"unknown operator", Alert{Symbol: "AAPL", Operator: "!=", Threshold: 150}},
		{"NaN threshold", Alert{Symbol: "AAPL", Operator: ">", Threshold: math.NaN()}},
		{"infinite threshold", Alert{Symbol: "AAPL", Operator: ">", Threshold: math.Inf(1)}},
		{"empty symbol", Alert{Symbol: "", Operator: ">", Threshold: 150}},
		{"unnormalized symbol", Alert{Symbol: "aapl", Operator: ">", Threshold: 150}},
	}
	for _, tc := range cases {
		if tc.alert.Validate() {
			t.Errorf("%s: expected validation failure", tc.name)
		}
	}
}

func TestAlertDirection(t *testing.T) {
	cases := map[string]string{
		OperatorGreater:        "upper",
		OperatorGreaterOrEqual: "upper",
		OperatorLess:           "lower",
		OperatorLessOrEqual:    "lower",
		OperatorEqual:          "lower",
	}
	for op, want := range cases {
		alert := Alert{Operator: op}
		if got := alert.Direction(); got != want {
			t.Errorf("Direction for %q = %q, want %q", op, got, want)
		}
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	user := User{PasswordHash: hash}
	if !user.CheckPassword("correct horse battery staple") {
		t.Error("Correct password should verify")
	}
	if user.CheckPassword("wrong password") {
		t.Error("Wrong password should not verify")
	}
}
