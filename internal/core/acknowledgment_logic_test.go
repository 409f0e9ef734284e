package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPlanLine(t *testing.T) {
	tests := []struct {
		name      string
		ordered   string
		available string
		wantAck   string
		wantBack  string
		wantCode  AvailabilityCode
	}{
		{"full availability", "50", "100", "50", "0", AvailabilityAvailable},
		{"exact availability", "50", "50", "50", "0", AvailabilityAvailable},
		{"partial availability", "50", "30", "30", "20", AvailabilityBackordered},
		{"no stock", "50", "0", "0", "50", AvailabilityUnavailable},
		{"negative free stock clamps", "50", "-10", "0", "50", AvailabilityUnavailable},
		{"zero quantity line", "0", "100", "0", "0", AvailabilityUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, back, code := planLine(d(tt.ordered), d(tt.available))
			if !ack.Equal(d(tt.wantAck)) {
				t.Errorf("ack = %s, want %s", ack, tt.wantAck)
			}
			if !back.Equal(d(tt.wantBack)) {
				t.Errorf("backorder = %s, want %s", back, tt.wantBack)
			}
			if code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
			// The split must always cover the ordered quantity exactly.
			if !ack.Add(back).Equal(d(tt.ordered)) {
				t.Errorf("ack+backorder = %s, want %s", ack.Add(back), tt.ordered)
			}
		})
	}
}

func TestValidateManualSplit(t *testing.T) {
	tests := []struct {
		name     string
		ordered  string
		ack      string
		back     string
		problems int
	}{
		{"valid split", "50", "30", "20", 0},
		{"valid full ack", "50", "50", "0", 0},
		{"sum does not cover order", "50", "30", "10", 1},
		{"ack exceeds ordered", "50", "60", "0", 2}, // overshoot and broken sum
		{"negative backorder", "50", "60", "-10", 2},
		{"fractional quantity", "50", "30.5", "19.5", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := validateManualSplit(1, d(tt.ordered), d(tt.ack), d(tt.back))
			if len(problems) != tt.problems {
				t.Errorf("got %d problems %v, want %d", len(problems), problems, tt.problems)
			}
		})
	}
}

func TestAvailabilityFor(t *testing.T) {
	if got := availabilityFor(d("50"), d("50")); got != AvailabilityAvailable {
		t.Errorf("full ack = %s, want available", got)
	}
	if got := availabilityFor(d("50"), d("30")); got != AvailabilityBackordered {
		t.Errorf("partial ack = %s, want backordered", got)
	}
	if got := availabilityFor(d("50"), d("0")); got != AvailabilityUnavailable {
		t.Errorf("zero ack = %s, want unavailable", got)
	}
	// A zero-quantity line is never "available", even though ack covers it.
	if got := availabilityFor(d("0"), d("0")); got != AvailabilityUnavailable {
		t.Errorf("zero ordered = %s, want unavailable", got)
	}
}
