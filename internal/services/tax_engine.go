package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"quotation-tax-service/internal/models"
)

// ReferenceDataSource is the read-only slice of the repository the engine
// consumes. The engine never mutates reference data.
type ReferenceDataSource interface {
	GetFramework(ctx context.Context, tenantID string, frameworkID uuid.UUID) (*models.TaxFramework, error)
	GetApplicableRates(ctx context.Context, tenantID string, frameworkID uuid.UUID, asOf time.Time) ([]models.TaxRate, error)
	GetCategory(ctx context.Context, tenantID string, categoryID uuid.UUID) (*models.ProductServiceCategory, error)
}

var hundred = decimal.NewFromInt(100)

// round2 is the single rounding rule used for every monetary intermediate:
// two decimal places, half rounds up. Using the same rule everywhere avoids
// cross-total drift between line items and aggregates.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TaxEngine resolves effective-dated tax rates and computes quotation tax
// breakdowns. It is stateless and safe for concurrent use.
type TaxEngine struct {
	data   ReferenceDataSource
	logger *logrus.Entry
}

// NewTaxEngine creates a new tax engine
func NewTaxEngine(data ReferenceDataSource, logger *logrus.Logger) *TaxEngine {
	return &TaxEngine{
		data:   data,
		logger: logger.WithField("component", "services.tax_engine"),
	}
}

// specificityTier ranks how narrowly a rate matches the requested
// jurisdiction/category pair. Higher wins. Returns -1 when the rate does not
// apply at all (it targets a different jurisdiction or category, or targets
// one the request does not carry).
func specificityTier(rate *models.TaxRate, jurisdictionID, categoryID *uuid.UUID) int {
	jurisdictionMatch := false
	switch {
	case rate.JurisdictionID == nil:
		// framework-wide, applies everywhere
	case jurisdictionID != nil && *rate.JurisdictionID == *jurisdictionID:
		jurisdictionMatch = true
	default:
		return -1
	}

	categoryMatch := false
	switch {
	case rate.CategoryID == nil:
	case categoryID != nil && *rate.CategoryID == *categoryID:
		categoryMatch = true
	default:
		return -1
	}

	switch {
	case jurisdictionMatch && categoryMatch:
		return 3
	case jurisdictionMatch:
		return 2
	case categoryMatch:
		return 1
	default:
		return 0
	}
}

// ResolveRate picks the single rate effective on asOf for the given
// framework/jurisdiction/category combination. Candidates are ranked by
// specificity descending (jurisdiction+category > jurisdiction > category >
// framework default); within a tier the latest effectiveFrom wins, then the
// most recently created row. Zero candidates is ErrNoApplicableTaxRate.
func (e *TaxEngine) ResolveRate(ctx context.Context, tenantID string, frameworkID uuid.UUID, jurisdictionID, categoryID *uuid.UUID, asOf time.Time) (*models.TaxRate, error) {
	rates, err := e.data.GetApplicableRates(ctx, tenantID, frameworkID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax rates: %w", err)
	}

	var best *models.TaxRate
	bestTier := -1
	for i := range rates {
		rate := &rates[i]
		tier := specificityTier(rate, jurisdictionID, categoryID)
		if tier < 0 {
			continue
		}
		if best == nil || tier > bestTier ||
			(tier == bestTier && rate.EffectiveFrom.After(best.EffectiveFrom)) ||
			(tier == bestTier && rate.EffectiveFrom.Equal(best.EffectiveFrom) && rate.CreatedAt.After(best.CreatedAt)) {
			best = rate
			bestTier = tier
		}
	}

	if best == nil {
		return nil, ErrNoApplicableTaxRate
	}
	return best, nil
}

// ComputeLineItemTax computes the component breakdown for one line item on
// its taxable base. The base already carries the item's pro-rata discount
// share; line-level discounts are baked into the amount by the caller.
// Exempt and zero-rated rates yield every framework component at 0, with the
// reason reported, so the response shape stays consistent for consumers.
func (e *TaxEngine) ComputeLineItemTax(ctx context.Context, tenantID string, item models.LineItemInput, taxableAmount decimal.Decimal, framework *models.TaxFramework, jurisdictionID *uuid.UUID, asOf time.Time) (*models.LineItemTaxBreakdown, error) {
	rate, err := e.ResolveRate(ctx, tenantID, framework.ID, jurisdictionID, item.CategoryID, asOf)
	if err != nil {
		return nil, err
	}
	return e.computeWithRate(ctx, tenantID, item, taxableAmount, framework, rate), nil
}

// computeWithRate applies an already-resolved rate to a line item.
func (e *TaxEngine) computeWithRate(ctx context.Context, tenantID string, item models.LineItemInput, taxableAmount decimal.Decimal, framework *models.TaxFramework, rate *models.TaxRate) *models.LineItemTaxBreakdown {
	breakdown := &models.LineItemTaxBreakdown{
		Description:   item.Description,
		CategoryID:    item.CategoryID,
		TaxableAmount: taxableAmount,
		Components:    make([]models.ComponentBreakdown, 0, len(framework.Components)),
		TaxAmount:     decimal.Zero,
	}

	if item.CategoryID != nil {
		// Display name only; resolution matched on the ID already.
		if category, err := e.data.GetCategory(ctx, tenantID, *item.CategoryID); err == nil {
			breakdown.CategoryName = category.Name
		}
	}

	if rate.IsExempt || rate.IsZeroRated {
		if rate.IsExempt {
			breakdown.ExemptReason = models.ExemptReasonExempt
		} else {
			breakdown.ExemptReason = models.ExemptReasonZeroRated
		}
		for _, component := range framework.Components {
			breakdown.Components = append(breakdown.Components, models.ComponentBreakdown{
				Component: component.Name,
				Rate:      decimal.Zero,
				Amount:    decimal.Zero,
			})
		}
		return breakdown
	}

	splits := make(map[string]decimal.Decimal, len(rate.ComponentRates))
	for _, cr := range rate.ComponentRates {
		splits[cr.ComponentName] = cr.Percentage
	}

	for _, component := range framework.Components {
		pct, ok := splits[component.Name]
		if !ok {
			pct = decimal.Zero
		}
		amount := round2(taxableAmount.Mul(pct).Div(hundred))
		breakdown.Components = append(breakdown.Components, models.ComponentBreakdown{
			Component: component.Name,
			Rate:      pct,
			Amount:    amount,
		})
		breakdown.TaxAmount = breakdown.TaxAmount.Add(amount)
	}

	return breakdown
}

// Calculate is the sole calculation entry point. It resolves rates per line
// item, allocates the quotation discount pro-rata across taxable bases, and
// aggregates per-component totals. Any resolution failure aborts the whole
// calculation; tax is all-or-nothing per quotation.
func (e *TaxEngine) Calculate(ctx context.Context, tenantID string, req models.CalculateTaxRequest) (*models.TaxCalculationResult, error) {
	asOf := time.Now()
	if req.AsOfDate != nil {
		asOf = *req.AsOfDate
	}

	framework, err := e.data.GetFramework(ctx, tenantID, req.FrameworkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax framework: %w", err)
	}
	if len(framework.Components) == 0 {
		return nil, ErrInvalidFrameworkConfiguration
	}

	subtotal := decimal.Zero
	for _, item := range req.LineItems {
		subtotal = subtotal.Add(item.Amount)
	}

	discountAmount := round2(subtotal.Mul(req.DiscountPercentage).Div(hundred))
	taxableAmount := subtotal.Sub(discountAmount)

	// Rates are resolved once per distinct category, not once per line.
	resolved := make(map[string]*models.TaxRate)
	resolveFor := func(categoryID *uuid.UUID) (*models.TaxRate, error) {
		key := ""
		if categoryID != nil {
			key = categoryID.String()
		}
		if rate, ok := resolved[key]; ok {
			return rate, nil
		}
		rate, err := e.ResolveRate(ctx, tenantID, framework.ID, req.JurisdictionID, categoryID, asOf)
		if err != nil {
			return nil, err
		}
		resolved[key] = rate
		return rate, nil
	}

	// Per-component totals keyed by exact component name, in declared order.
	totals := make([]models.ComponentBreakdown, len(framework.Components))
	totalIndex := make(map[string]int, len(framework.Components))
	for i, component := range framework.Components {
		totals[i] = models.ComponentBreakdown{
			Component: component.Name,
			Rate:      decimal.Zero,
			Amount:    decimal.Zero,
		}
		totalIndex[component.Name] = i
	}

	lineBreakdowns := make([]models.LineItemTaxBreakdown, 0, len(req.LineItems))
	totalTax := decimal.Zero

	for _, item := range req.LineItems {
		// Pro-rata share of the discount, so summed line tax equals tax on
		// the net taxable amount. Zero subtotal means zero taxable bases.
		lineTaxable := decimal.Zero
		if !subtotal.IsZero() {
			lineTaxable = round2(item.Amount.Mul(taxableAmount).Div(subtotal))
		}

		rate, err := resolveFor(item.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("line item %q: %w", item.Description, err)
		}

		breakdown := e.computeWithRate(ctx, tenantID, item, lineTaxable, framework, rate)
		lineBreakdowns = append(lineBreakdowns, *breakdown)
		totalTax = totalTax.Add(breakdown.TaxAmount)

		for _, cb := range breakdown.Components {
			idx, ok := totalIndex[cb.Component]
			if !ok {
				continue
			}
			totals[idx].Amount = totals[idx].Amount.Add(cb.Amount)
			if totals[idx].Rate.IsZero() {
				totals[idx].Rate = cb.Rate
			}
		}
	}

	result := &models.TaxCalculationResult{
		FrameworkID:    framework.ID,
		JurisdictionID: req.JurisdictionID,
		AsOfDate:       asOf,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxableAmount,
		TaxBreakdown:   totals,
		TotalTax:       totalTax,
		TotalAmount:    taxableAmount.Add(totalTax),
		LineItems:      lineBreakdowns,
	}

	e.logger.WithFields(logrus.Fields{
		"tenant_id":    tenantID,
		"framework_id": framework.ID,
		"line_items":   len(req.LineItems),
		"total_tax":    result.TotalTax.String(),
	}).Debug("tax calculation complete")

	return result, nil
}
