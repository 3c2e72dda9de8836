package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"quotation-tax-service/internal/models"
)

// MockReferenceDataSource is a mock implementation of ReferenceDataSource
type MockReferenceDataSource struct {
	mock.Mock
}

var _ ReferenceDataSource = (*MockReferenceDataSource)(nil)

func (m *MockReferenceDataSource) GetFramework(ctx context.Context, tenantID string, frameworkID uuid.UUID) (*models.TaxFramework, error) {
	args := m.Called(ctx, tenantID, frameworkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaxFramework), args.Error(1)
}

func (m *MockReferenceDataSource) GetApplicableRates(ctx context.Context, tenantID string, frameworkID uuid.UUID, asOf time.Time) ([]models.TaxRate, error) {
	args := m.Called(ctx, tenantID, frameworkID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TaxRate), args.Error(1)
}

func (m *MockReferenceDataSource) GetCategory(ctx context.Context, tenantID string, categoryID uuid.UUID) (*models.ProductServiceCategory, error) {
	args := m.Called(ctx, tenantID, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductServiceCategory), args.Error(1)
}

const testTenant = "tenant-1"

var calcDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func newTestEngine(data ReferenceDataSource) *TaxEngine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTaxEngine(data, logger)
}

func gstFramework() *models.TaxFramework {
	return &models.TaxFramework{
		ID:            uuid.New(),
		TenantID:      testTenant,
		Name:          "India GST",
		FrameworkType: models.FrameworkTypeGST,
		Components: []models.TaxComponent{
			{Name: "CGST", SortOrder: 0},
			{Name: "SGST", SortOrder: 1},
		},
	}
}

func gstRate(frameworkID uuid.UUID, jurisdictionID, categoryID *uuid.UUID, overall string, effectiveFrom time.Time) models.TaxRate {
	rate := decimal.RequireFromString(overall)
	half := rate.Div(decimal.NewFromInt(2))
	return models.TaxRate{
		ID:             uuid.New(),
		TenantID:       testTenant,
		FrameworkID:    frameworkID,
		JurisdictionID: jurisdictionID,
		CategoryID:     categoryID,
		Rate:           rate,
		EffectiveFrom:  effectiveFrom,
		CreatedAt:      effectiveFrom,
		ComponentRates: []models.TaxComponentRate{
			{ComponentName: "CGST", Percentage: half},
			{ComponentName: "SGST", Percentage: half},
		},
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s — %v", expected, actual.String(), msgAndArgs)
}

func TestResolveRate_SpecificityRanking(t *testing.T) {
	framework := gstFramework()
	jurisdictionID := uuid.New()
	categoryID := uuid.New()
	from := calcDate.AddDate(-1, 0, 0)

	defaultRate := gstRate(framework.ID, nil, nil, "18", from)
	jurisdictionRate := gstRate(framework.ID, &jurisdictionID, nil, "12", from)
	categoryRate := gstRate(framework.ID, nil, &categoryID, "5", from)
	fullRate := gstRate(framework.ID, &jurisdictionID, &categoryID, "28", from)

	tests := []struct {
		name           string
		rates          []models.TaxRate
		jurisdictionID *uuid.UUID
		categoryID     *uuid.UUID
		wantRate       string
	}{
		{"jurisdiction+category beats all", []models.TaxRate{defaultRate, jurisdictionRate, categoryRate, fullRate}, &jurisdictionID, &categoryID, "28"},
		{"jurisdiction beats category", []models.TaxRate{defaultRate, jurisdictionRate, categoryRate}, &jurisdictionID, &categoryID, "12"},
		{"category beats default", []models.TaxRate{defaultRate, categoryRate}, &jurisdictionID, &categoryID, "5"},
		{"default when nothing narrower", []models.TaxRate{defaultRate}, &jurisdictionID, &categoryID, "18"},
		{"narrow rates do not leak to requests without them", []models.TaxRate{defaultRate, jurisdictionRate, categoryRate, fullRate}, nil, nil, "18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := new(MockReferenceDataSource)
			data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return(tt.rates, nil)
			engine := newTestEngine(data)

			resolved, err := engine.ResolveRate(context.Background(), testTenant, framework.ID, tt.jurisdictionID, tt.categoryID, calcDate)
			assert.NoError(t, err)
			assertDecimal(t, tt.wantRate, resolved.Rate)
		})
	}
}

func TestResolveRate_RecencyWithinTier(t *testing.T) {
	framework := gstFramework()
	older := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-2, 0, 0))
	newer := gstRate(framework.ID, nil, nil, "20", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{older, newer}, nil)
	engine := newTestEngine(data)

	resolved, err := engine.ResolveRate(context.Background(), testTenant, framework.ID, nil, nil, calcDate)
	assert.NoError(t, err)
	assertDecimal(t, "20", resolved.Rate, "latest effectiveFrom must win within a tier")
}

func TestResolveRate_SpecificityBeatsRecency(t *testing.T) {
	framework := gstFramework()
	categoryID := uuid.New()
	specificOld := gstRate(framework.ID, nil, &categoryID, "5", calcDate.AddDate(-3, 0, 0))
	defaultNew := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(0, -1, 0))

	data := new(MockReferenceDataSource)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{defaultNew, specificOld}, nil)
	engine := newTestEngine(data)

	resolved, err := engine.ResolveRate(context.Background(), testTenant, framework.ID, nil, &categoryID, calcDate)
	assert.NoError(t, err)
	assertDecimal(t, "5", resolved.Rate, "an older but narrower rate outranks a newer default")
}

func TestResolveRate_NoCandidates(t *testing.T) {
	framework := gstFramework()
	data := new(MockReferenceDataSource)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{}, nil)
	engine := newTestEngine(data)

	resolved, err := engine.ResolveRate(context.Background(), testTenant, framework.ID, nil, nil, calcDate)
	assert.Nil(t, resolved)
	assert.ErrorIs(t, err, ErrNoApplicableTaxRate)
}

func TestRateEffectiveWindow(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rate := models.TaxRate{EffectiveFrom: from, EffectiveTo: &to}

	assert.False(t, rate.EffectiveAt(from.AddDate(0, 0, -1)))
	assert.True(t, rate.EffectiveAt(from), "window start is inclusive")
	assert.True(t, rate.EffectiveAt(from.AddDate(0, 6, 0)))
	assert.False(t, rate.EffectiveAt(to), "window end is exclusive")

	openEnded := models.TaxRate{EffectiveFrom: from}
	assert.True(t, openEnded.EffectiveAt(to.AddDate(10, 0, 0)))
}

func TestCalculate_EffectiveDating(t *testing.T) {
	framework := gstFramework()
	cutover := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	oldFrom := cutover.AddDate(-2, 0, 0)
	oldRate := gstRate(framework.ID, nil, nil, "18", oldFrom)
	oldRate.EffectiveTo = &cutover
	newRate := gstRate(framework.ID, nil, nil, "20", cutover)

	before := cutover.AddDate(0, -1, 0)
	after := cutover.AddDate(0, 1, 0)

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	// The data source applies the effective-window filter; each asOf sees
	// only the rate effective on that date.
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, before).Return([]models.TaxRate{oldRate}, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, after).Return([]models.TaxRate{newRate}, nil)
	engine := newTestEngine(data)

	req := models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		LineItems:   []models.LineItemInput{{Description: "Consulting", Amount: amount("1000")}},
	}

	req.AsOfDate = &before
	resultBefore, err := engine.Calculate(context.Background(), testTenant, req)
	assert.NoError(t, err)
	assertDecimal(t, "180", resultBefore.TotalTax)

	req.AsOfDate = &after
	resultAfter, err := engine.Calculate(context.Background(), testTenant, req)
	assert.NoError(t, err)
	assertDecimal(t, "200", resultAfter.TotalTax)
}

func TestCalculate_ExampleScenario(t *testing.T) {
	// GST framework with CGST 9 / SGST 9; one 1000 line item; no discount.
	framework := gstFramework()
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   []models.LineItemInput{{Description: "CRM licence", Amount: amount("1000")}},
	})
	assert.NoError(t, err)

	assertDecimal(t, "1000", result.Subtotal)
	assertDecimal(t, "0", result.DiscountAmount)
	assertDecimal(t, "1000", result.TaxableAmount)
	assertDecimal(t, "180", result.TotalTax)
	assertDecimal(t, "1180", result.TotalAmount)

	assert.Len(t, result.TaxBreakdown, 2)
	assert.Equal(t, "CGST", result.TaxBreakdown[0].Component)
	assertDecimal(t, "90", result.TaxBreakdown[0].Amount)
	assert.Equal(t, "SGST", result.TaxBreakdown[1].Component)
	assertDecimal(t, "90", result.TaxBreakdown[1].Amount)
}

func TestCalculate_Exemption(t *testing.T) {
	framework := gstFramework()
	exempt := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))
	exempt.IsExempt = true

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{exempt}, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   []models.LineItemInput{{Description: "Medical supplies", Amount: amount("500")}},
	})
	assert.NoError(t, err)

	// Exempt forces zero tax regardless of the declared rate, but every
	// framework component is still listed so the shape stays stable.
	assertDecimal(t, "0", result.TotalTax)
	assertDecimal(t, "500", result.TotalAmount)
	assert.Len(t, result.LineItems, 1)
	assert.Equal(t, models.ExemptReasonExempt, result.LineItems[0].ExemptReason)
	assert.Len(t, result.LineItems[0].Components, 2)
	assertDecimal(t, "0", result.LineItems[0].Components[0].Amount)
	assertDecimal(t, "0", result.LineItems[0].Components[1].Amount)
}

func TestCalculate_ZeroRatedReportedDistinctly(t *testing.T) {
	framework := gstFramework()
	zeroRated := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))
	zeroRated.IsZeroRated = true

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{zeroRated}, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   []models.LineItemInput{{Description: "Exports", Amount: amount("500")}},
	})
	assert.NoError(t, err)
	assertDecimal(t, "0", result.TotalTax)
	assert.Equal(t, models.ExemptReasonZeroRated, result.LineItems[0].ExemptReason)
}

func TestCalculate_ProRataDiscountConservation(t *testing.T) {
	framework := gstFramework()
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	lineItems := []models.LineItemInput{
		{Description: "Implementation", Amount: amount("333.33")},
		{Description: "Training", Amount: amount("166.67")},
		{Description: "Support", Amount: amount("99.99")},
	}

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID:        framework.ID,
		AsOfDate:           &calcDate,
		DiscountPercentage: amount("10"),
		LineItems:          lineItems,
	})
	assert.NoError(t, err)

	assertDecimal(t, "599.99", result.Subtotal)
	assertDecimal(t, "60.00", result.DiscountAmount)
	assertDecimal(t, "539.99", result.TaxableAmount)

	// Each line's base is rounded independently, so the sum may drift from
	// the net taxable amount by at most one cent per line.
	sumBases := decimal.Zero
	for _, line := range result.LineItems {
		sumBases = sumBases.Add(line.TaxableAmount)
	}
	drift := sumBases.Sub(result.TaxableAmount).Abs()
	tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(len(lineItems))))
	assert.True(t, drift.LessThanOrEqual(tolerance),
		"pro-rata allocation drift %s exceeds tolerance %s", drift.String(), tolerance.String())
}

func TestCalculate_ZeroSubtotal(t *testing.T) {
	framework := gstFramework()
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID:        framework.ID,
		AsOfDate:           &calcDate,
		DiscountPercentage: amount("10"),
		LineItems:          []models.LineItemInput{{Description: "Gratis", Amount: decimal.Zero}},
	})
	assert.NoError(t, err)
	assertDecimal(t, "0", result.Subtotal)
	assertDecimal(t, "0", result.TotalTax)
	assertDecimal(t, "0", result.TotalAmount)
	assertDecimal(t, "0", result.LineItems[0].TaxableAmount)
}

func TestCalculate_Idempotence(t *testing.T) {
	framework := gstFramework()
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	req := models.CalculateTaxRequest{
		FrameworkID:        framework.ID,
		AsOfDate:           &calcDate,
		DiscountPercentage: amount("7.5"),
		LineItems: []models.LineItemInput{
			{Description: "Licence", Amount: amount("1234.56")},
			{Description: "Onboarding", Amount: amount("789.01")},
		},
	}

	first, err := engine.Calculate(context.Background(), testTenant, req)
	assert.NoError(t, err)
	second, err := engine.Calculate(context.Background(), testTenant, req)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculate_ComponentCompleteness(t *testing.T) {
	// Framework declares IGST as a third component; the resolved rate only
	// splits across CGST/SGST. IGST must still appear in the output at 0.
	framework := gstFramework()
	framework.Components = append(framework.Components, models.TaxComponent{Name: "IGST", SortOrder: 2})
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   []models.LineItemInput{{Description: "CRM licence", Amount: amount("100")}},
	})
	assert.NoError(t, err)

	assert.Len(t, result.TaxBreakdown, 3)
	assert.Equal(t, "IGST", result.TaxBreakdown[2].Component)
	assertDecimal(t, "0", result.TaxBreakdown[2].Amount)
	assert.Len(t, result.LineItems[0].Components, 3)
}

func TestCalculate_CategoryOverride(t *testing.T) {
	framework := gstFramework()
	categoryID := uuid.New()
	defaultRate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))
	reducedRate := gstRate(framework.ID, nil, &categoryID, "5", calcDate.AddDate(-1, 0, 0))

	category := &models.ProductServiceCategory{ID: categoryID, TenantID: testTenant, Name: "Essential goods", Code: "ESSENTIAL"}

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{defaultRate, reducedRate}, nil)
	data.On("GetCategory", mock.Anything, testTenant, categoryID).Return(category, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems: []models.LineItemInput{
			{Description: "Standard item", Amount: amount("100")},
			{Description: "Essential item", Amount: amount("100"), CategoryID: &categoryID},
		},
	})
	assert.NoError(t, err)

	// 18% on the first line, 5% on the second
	assertDecimal(t, "18", result.LineItems[0].TaxAmount)
	assertDecimal(t, "5", result.LineItems[1].TaxAmount)
	assert.Equal(t, "Essential goods", result.LineItems[1].CategoryName)
	assertDecimal(t, "23", result.TotalTax)
}

func TestCalculate_AbortsOnMissingRateForAnyLine(t *testing.T) {
	framework := gstFramework()
	categoryID := uuid.New()
	// Only a category-specific rate exists; the uncategorized line cannot
	// resolve, so the whole calculation must abort with no partial result.
	reducedRate := gstRate(framework.ID, nil, &categoryID, "5", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{reducedRate}, nil)
	data.On("GetCategory", mock.Anything, testTenant, categoryID).Return(&models.ProductServiceCategory{ID: categoryID, Name: "Essential goods"}, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems: []models.LineItemInput{
			{Description: "Essential item", Amount: amount("100"), CategoryID: &categoryID},
			{Description: "Uncategorized item", Amount: amount("100")},
		},
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNoApplicableTaxRate)
}

func TestCalculate_FrameworkWithoutComponents(t *testing.T) {
	framework := gstFramework()
	framework.Components = nil

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	engine := newTestEngine(data)

	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   []models.LineItemInput{{Description: "Anything", Amount: amount("100")}},
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidFrameworkConfiguration)
}

func TestCalculate_RoundingHalfUpPerComponent(t *testing.T) {
	framework := gstFramework()
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	// 10.05 * 9% = 0.9045 → 0.90 per component; the exact half-cent case
	// 0.50 * 9% = 0.045 rounds up to 0.05.
	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   []models.LineItemInput{{Description: "Rounding probe", Amount: amount("0.50")}},
	})
	assert.NoError(t, err)
	assertDecimal(t, "0.05", result.LineItems[0].Components[0].Amount)
	assertDecimal(t, "0.05", result.LineItems[0].Components[1].Amount)
	assertDecimal(t, "0.10", result.TotalTax, "totals are the sum of already-rounded parts")
}

func TestCalculate_TotalsAreSumsOfRoundedParts(t *testing.T) {
	framework := gstFramework()
	rate := gstRate(framework.ID, nil, nil, "18", calcDate.AddDate(-1, 0, 0))

	data := new(MockReferenceDataSource)
	data.On("GetFramework", mock.Anything, testTenant, framework.ID).Return(framework, nil)
	data.On("GetApplicableRates", mock.Anything, testTenant, framework.ID, calcDate).Return([]models.TaxRate{rate}, nil)
	engine := newTestEngine(data)

	// Per line: 10.03 * 9% = 0.9027 → 0.90 per component. Three lines give
	// 5.40 total, while 18% of 30.09 would round to 5.42. The sum of the
	// rounded parts is the documented, auditable behavior.
	items := []models.LineItemInput{
		{Description: "A", Amount: amount("10.03")},
		{Description: "B", Amount: amount("10.03")},
		{Description: "C", Amount: amount("10.03")},
	}
	result, err := engine.Calculate(context.Background(), testTenant, models.CalculateTaxRequest{
		FrameworkID: framework.ID,
		AsOfDate:    &calcDate,
		LineItems:   items,
	})
	assert.NoError(t, err)
	assertDecimal(t, "5.40", result.TotalTax)
	assertDecimal(t, "35.49", result.TotalAmount)
}
