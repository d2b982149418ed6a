package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mselser95/polymarket-arb/pkg/wallet"
)

func TestClassifyPosition(t *testing.T) {
	tests := []struct {
		name     string
		position wallet.Position
		expected string
	}{
		{"win-value-equals-size", wallet.Position{Size: 100, Value: 100}, "WIN"},
		{"loss-value-zero", wallet.Position{Size: 100, Value: 0}, "LOSS"},
		{"win-within-tolerance", wallet.Position{Size: 100, Value: 97}, "WIN"},
		{"loss-within-tolerance", wallet.Position{Size: 100, Value: 2}, "LOSS"},
		{"ambiguous-midpoint", wallet.Position{Size: 100, Value: 50}, "ACTIVE"},
		{"zero-size", wallet.Position{Size: 0, Value: 0}, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyPosition(tt.position))
		})
	}
}
