package decisions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		amount  string
		cadence enums.DecisionCadence
		want    string
	}{
		{amount: "300.00", cadence: enums.CadenceQuarterly, want: "100.00"},
		{amount: "1200.00", cadence: enums.CadenceAnnual, want: "100.00"},
		{amount: "100.00", cadence: enums.CadenceMonthly, want: "100.00"},
		{amount: "500.00", cadence: enums.CadenceOneTime, want: "0.00"},
		{amount: "100.00", cadence: enums.CadenceQuarterly, want: "33.33"},
		{amount: "200.00", cadence: enums.CadenceQuarterly, want: "66.67"},
		{amount: "1000.00", cadence: enums.CadenceAnnual, want: "83.33"},
		{amount: "0.06", cadence: enums.CadenceAnnual, want: "0.01"},
		{amount: "0.05", cadence: enums.CadenceAnnual, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cadence)+"/"+tt.amount, func(t *testing.T) {
			got := MonthlyEquivalent(decimal.RequireFromString(tt.amount), tt.cadence)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestMonthlyEquivalentIsExact(t *testing.T) {
	got := MonthlyEquivalent(decimal.RequireFromString("300.00"), enums.CadenceQuarterly)
	assert.True(t, got.Equal(decimal.NewFromInt(100)))
}
