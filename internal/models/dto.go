package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculateTaxRequest represents a request to calculate tax for a quotation
type CalculateTaxRequest struct {
	QuotationID        *uuid.UUID      `json:"quotationId"`
	FrameworkID        uuid.UUID       `json:"frameworkId" binding:"required"`
	JurisdictionID     *uuid.UUID      `json:"jurisdictionId"`
	AsOfDate           *time.Time      `json:"asOfDate"` // defaults to the current date
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	LineItems          []LineItemInput `json:"lineItems" binding:"required,min=1"`
}

// LineItemInput represents a quotation line item for tax calculation. Amount
// already includes any line-level discount applied by the caller.
type LineItemInput struct {
	Description string          `json:"description"`
	CategoryID  *uuid.UUID      `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// ExemptReason values reported on zero-tax line items
const (
	ExemptReasonExempt    = "EXEMPT"
	ExemptReasonZeroRated = "ZERO_RATED"
)

// ComponentBreakdown is the per-component tax amount reported in results
type ComponentBreakdown struct {
	Component string          `json:"component"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
}

// LineItemTaxBreakdown is the per-line-item tax detail
type LineItemTaxBreakdown struct {
	Description   string               `json:"description,omitempty"`
	CategoryID    *uuid.UUID           `json:"categoryId,omitempty"`
	CategoryName  string               `json:"categoryName,omitempty"`
	TaxableAmount decimal.Decimal      `json:"taxableAmount"`
	Components    []ComponentBreakdown `json:"components"`
	TaxAmount     decimal.Decimal      `json:"taxAmount"`
	ExemptReason  string               `json:"exemptReason,omitempty"`
}

// TaxCalculationResult is the output of a tax calculation. TaxBreakdown always
// lists every component declared on the framework, even at zero.
type TaxCalculationResult struct {
	FrameworkID    uuid.UUID              `json:"frameworkId"`
	JurisdictionID *uuid.UUID             `json:"jurisdictionId,omitempty"`
	AsOfDate       time.Time              `json:"asOfDate"`
	Subtotal       decimal.Decimal        `json:"subtotal"`
	DiscountAmount decimal.Decimal        `json:"discountAmount"`
	TaxableAmount  decimal.Decimal        `json:"taxableAmount"`
	TaxBreakdown   []ComponentBreakdown   `json:"taxBreakdown"`
	TotalTax       decimal.Decimal        `json:"totalTax"`
	TotalAmount    decimal.Decimal        `json:"totalAmount"`
	LineItems      []LineItemTaxBreakdown `json:"lineItems"`
}

// CreateFrameworkRequest creates a framework with its ordered component list
type CreateFrameworkRequest struct {
	CountryID     uuid.UUID        `json:"countryId" binding:"required"`
	Name          string           `json:"name" binding:"required"`
	FrameworkType TaxFrameworkType `json:"frameworkType" binding:"required,oneof=GST VAT"`
	Components    []string         `json:"components" binding:"required,min=1"`
}

// ComponentRateInput is one component split of a rate being created
type ComponentRateInput struct {
	ComponentName string          `json:"componentName" binding:"required"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// CreateTaxRateRequest creates an effective-dated rate with component splits.
// Component percentages must sum to Rate; this is enforced at configuration
// time so the calculation path can trust stored rows.
type CreateTaxRateRequest struct {
	FrameworkID    uuid.UUID            `json:"frameworkId" binding:"required"`
	JurisdictionID *uuid.UUID           `json:"jurisdictionId"`
	CategoryID     *uuid.UUID           `json:"categoryId"`
	Rate           decimal.Decimal      `json:"rate"`
	EffectiveFrom  time.Time            `json:"effectiveFrom" binding:"required"`
	EffectiveTo    *time.Time           `json:"effectiveTo"`
	IsExempt       bool                 `json:"isExempt"`
	IsZeroRated    bool                 `json:"isZeroRated"`
	ComponentRates []ComponentRateInput `json:"componentRates" binding:"required,min=1"`
}

// UpdateTaxRateRequest updates an existing rate. The same component-sum
// validation as creation applies.
type UpdateTaxRateRequest struct {
	Rate           decimal.Decimal      `json:"rate"`
	EffectiveFrom  time.Time            `json:"effectiveFrom" binding:"required"`
	EffectiveTo    *time.Time           `json:"effectiveTo"`
	IsExempt       bool                 `json:"isExempt"`
	IsZeroRated    bool                 `json:"isZeroRated"`
	ComponentRates []ComponentRateInput `json:"componentRates" binding:"required,min=1"`
}
