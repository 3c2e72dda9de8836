package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComponentRateSum(t *testing.T) {
	rate := TaxRate{
		Rate: decimal.NewFromInt(18),
		ComponentRates: []TaxComponentRate{
			{ComponentName: "CGST", Percentage: decimal.NewFromInt(9)},
			{ComponentName: "SGST", Percentage: decimal.NewFromInt(9)},
		},
	}
	assert.True(t, rate.ComponentRateSum().Equal(rate.Rate))

	rate.ComponentRates[1].Percentage = decimal.NewFromInt(10)
	assert.False(t, rate.ComponentRateSum().Equal(rate.Rate))

	empty := TaxRate{}
	assert.True(t, empty.ComponentRateSum().IsZero())
}
