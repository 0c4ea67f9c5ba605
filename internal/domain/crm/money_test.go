package crm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultCurrency, false},
		{" eur ", "EUR", false},
		{"JPY", "JPY", false},
		{"US", "", true},
		{"QQQ", "", true},
		{"dollars", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeCurrency(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "10.13", RoundMoney(decimal.RequireFromString("10.125")).String())
	assert.Equal(t, "3", RoundMoney(decimal.NewFromInt(3)).String())
}
