package discovery

import (
	"testing"
	"time"
)

func TestIsBTCUpDownQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     bool
	}{
		{"valid-bitcoin", "Bitcoin Up or Down - 2:45PM-3:00PM ET", true},
		{"valid-btc-abbrev", "BTC Up or Down - 11:15AM-11:30AM ET", true},
		{"wrong-pattern-no-window", "Will Bitcoin reach $100k?", false},
		{"not-bitcoin", "Ethereum Up or Down - 2:45PM-3:00PM ET", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBTCUpDownQuestion(tt.question); got != tt.want {
				t.Errorf("isBTCUpDownQuestion(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestParseCandidate(t *testing.T) {
	valid := gammaMarket{
		ID:           "123",
		ConditionID:  "0xabc",
		Question:     "Bitcoin Up or Down - 2:45PM-3:00PM ET",
		EndDate:      "2026-07-31T15:00:00Z",
		Outcomes:     `["Up", "Down"]`,
		ClobTokenIDs: `["tok-up", "tok-down"]`,
	}

	c, ok := parseCandidate(valid)
	if !ok {
		t.Fatal("expected valid market to parse")
	}
	if c.ID != "0xabc" {
		t.Errorf("expected condition id to be used as ID, got %s", c.ID)
	}
	if c.UpToken != "tok-up" || c.DownToken != "tok-down" {
		t.Errorf("expected tokens tok-up/tok-down, got %s/%s", c.UpToken, c.DownToken)
	}
	wantExpiry, _ := time.Parse(time.RFC3339, "2026-07-31T15:00:00Z")
	if !c.Expiry.Equal(wantExpiry) {
		t.Errorf("expected expiry %v, got %v", wantExpiry, c.Expiry)
	}
}

func TestParseCandidate_FallsBackToIDWhenNoConditionID(t *testing.T) {
	m := gammaMarket{
		ID:           "123",
		Question:     "BTC Up or Down - 2:45PM-3:00PM ET",
		EndDate:      "2026-07-31T15:00:00Z",
		Outcomes:     `["Up", "Down"]`,
		ClobTokenIDs: `["tok-up", "tok-down"]`,
	}

	c, ok := parseCandidate(m)
	if !ok {
		t.Fatal("expected market to parse")
	}
	if c.ID != "123" {
		t.Errorf("expected fallback to market ID, got %s", c.ID)
	}
}

func TestParseCandidate_RejectsNonBTCQuestion(t *testing.T) {
	m := gammaMarket{
		ID:           "123",
		Question:     "Will it rain tomorrow?",
		EndDate:      "2026-07-31T15:00:00Z",
		Outcomes:     `["Up", "Down"]`,
		ClobTokenIDs: `["tok-up", "tok-down"]`,
	}

	if _, ok := parseCandidate(m); ok {
		t.Error("expected non-BTC question to be rejected")
	}
}

func TestParseCandidate_RejectsWrongOutcomeShape(t *testing.T) {
	m := gammaMarket{
		ID:           "123",
		Question:     "Bitcoin Up or Down - 2:45PM-3:00PM ET",
		EndDate:      "2026-07-31T15:00:00Z",
		Outcomes:     `["Yes", "No"]`,
		ClobTokenIDs: `["tok-yes", "tok-no"]`,
	}

	if _, ok := parseCandidate(m); ok {
		t.Error("expected non Up/Down outcome pair to be rejected")
	}
}

func TestParseCandidate_RejectsUnparseableJSON(t *testing.T) {
	m := gammaMarket{
		ID:           "123",
		Question:     "Bitcoin Up or Down - 2:45PM-3:00PM ET",
		EndDate:      "2026-07-31T15:00:00Z",
		Outcomes:     `not-json`,
		ClobTokenIDs: `["tok-up", "tok-down"]`,
	}

	if _, ok := parseCandidate(m); ok {
		t.Error("expected unparseable outcomes field to be rejected")
	}
}

func TestParseCandidate_RejectsUnparseableEndDate(t *testing.T) {
	m := gammaMarket{
		ID:           "123",
		Question:     "Bitcoin Up or Down - 2:45PM-3:00PM ET",
		EndDate:      "not-a-date",
		Outcomes:     `["Up", "Down"]`,
		ClobTokenIDs: `["tok-up", "tok-down"]`,
	}

	if _, ok := parseCandidate(m); ok {
		t.Error("expected unparseable end date to be rejected")
	}
}
