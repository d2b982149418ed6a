package gateway

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testPrivateKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestGateway(t *testing.T, proxyAddress string) *Gateway {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	g, err := New(Config{
		APIKey:        "test-api-key",
		Secret:        "dGVzdC1zZWNyZXQ=",
		Passphrase:    "test-passphrase",
		PrivateKey:    testPrivateKey,
		ProxyAddress:  proxyAddress,
		SignatureType: 0,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return g
}

func TestNew_DerivesAddressFromPrivateKey(t *testing.T) {
	g := newTestGateway(t, "")

	if !strings.HasPrefix(g.address, "0x") {
		t.Errorf("expected derived address to start with 0x, got %s", g.address)
	}
}

func TestMakerAddress_PrefersProxy(t *testing.T) {
	g := newTestGateway(t, "0xProxyAddress")

	if g.makerAddress() != "0xProxyAddress" {
		t.Errorf("expected proxy address as maker, got %s", g.makerAddress())
	}
}

func TestMakerAddress_FallsBackToEOA(t *testing.T) {
	g := newTestGateway(t, "")

	if g.makerAddress() != g.address {
		t.Errorf("expected EOA as maker when no proxy set, got %s", g.makerAddress())
	}
}

func TestSnapToTick(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		tickSize float64
		want     string
	}{
		{"exact-tick", "0.52", 0.01, "0.52"},
		{"rounds-down", "0.524", 0.01, "0.52"},
		{"coarser-tick", "0.537", 0.1, "0.5"},
		{"zero-tick-passthrough", "0.537", 0, "0.537"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, _ := decimal.NewFromString(tt.price)
			want, _ := decimal.NewFromString(tt.want)

			got := snapToTick(price, tt.tickSize)
			if !got.Equal(want) {
				t.Errorf("snapToTick(%s, %v) = %s, want %s", tt.price, tt.tickSize, got, want)
			}
		})
	}
}

func TestRoundingConfig(t *testing.T) {
	tests := []struct {
		tickSize      float64
		wantSize      int
		wantAmountDec int
	}{
		{0.1, 2, 3},
		{0.01, 2, 4},
		{0.001, 2, 5},
		{0.0001, 2, 6},
		{0.005, 2, 4}, // unknown tick falls back to the 0.01 default
	}

	for _, tt := range tests {
		size, amount := roundingConfig(tt.tickSize)
		if size != tt.wantSize || amount != tt.wantAmountDec {
			t.Errorf("roundingConfig(%v) = (%d, %d), want (%d, %d)",
				tt.tickSize, size, amount, tt.wantSize, tt.wantAmountDec)
		}
	}
}

func TestRawAmount_NoFloatDrift(t *testing.T) {
	d, _ := decimal.NewFromString("12.345678")
	got := rawAmount(d)
	want := "12345678"
	if got != want {
		t.Errorf("rawAmount(12.345678) = %s, want %s", got, want)
	}
}

func TestCheckBalanceFloor(t *testing.T) {
	g := newTestGateway(t, "")
	g.balanceFloor = decimal.NewFromFloat(5.0)

	// Without a wallet client wired, CollateralBalance would fail; this test
	// only exercises the pure comparison logic via a stubbed balance path
	// by calling the arithmetic directly rather than through the network path.
	balance := decimal.NewFromFloat(10.0)
	notional := decimal.NewFromFloat(4.0)
	if !balance.Sub(notional).GreaterThanOrEqual(g.balanceFloor) {
		t.Error("expected 10.0 - 4.0 >= floor 5.0 to pass")
	}

	notional = decimal.NewFromFloat(6.0)
	if balance.Sub(notional).GreaterThanOrEqual(g.balanceFloor) {
		t.Error("expected 10.0 - 6.0 >= floor 5.0 to fail")
	}
}
