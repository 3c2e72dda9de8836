package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TaxFrameworkType represents the type of tax regime
type TaxFrameworkType string

const (
	FrameworkTypeGST TaxFrameworkType = "GST"
	FrameworkTypeVAT TaxFrameworkType = "VAT"
)

// Country represents a country with its default tax regime
type Country struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      string           `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_country_unique,priority:1"`
	Name          string           `json:"name" gorm:"type:varchar(255);not null"`
	ISOCode       string           `json:"isoCode" gorm:"column:iso_code;type:varchar(2);not null;uniqueIndex:idx_country_unique,priority:2"`
	Currency      string           `json:"currency" gorm:"type:varchar(3);not null"`
	FrameworkType TaxFrameworkType `json:"frameworkType" gorm:"type:varchar(10);not null"`
	IsDefault     bool             `json:"isDefault" gorm:"default:false"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt   `json:"-" gorm:"index"`

	// Relationships
	Jurisdictions []Jurisdiction `json:"jurisdictions,omitempty" gorm:"foreignKey:CountryID"`
	Frameworks    []TaxFramework `json:"frameworks,omitempty" gorm:"foreignKey:CountryID"`
}

// Jurisdiction represents a sub-national tax authority (e.g. a state) that may
// override country-level rates. Jurisdictions form a tree via ParentID.
type Jurisdiction struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string         `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_jurisdiction_unique,priority:1"`
	CountryID uuid.UUID      `json:"countryId" gorm:"type:uuid;not null;uniqueIndex:idx_jurisdiction_unique,priority:2"`
	ParentID  *uuid.UUID     `json:"parentId" gorm:"type:uuid"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Code      string         `json:"code" gorm:"type:varchar(50);not null;uniqueIndex:idx_jurisdiction_unique,priority:3"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Country  *Country       `json:"country,omitempty" gorm:"foreignKey:CountryID"`
	Parent   *Jurisdiction  `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []Jurisdiction `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

// TaxFramework represents a named tax regime (GST or VAT) tied to a country,
// composed of named components that every computed breakdown must report.
type TaxFramework struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      string           `json:"tenantId" gorm:"type:varchar(255);not null"`
	CountryID     uuid.UUID        `json:"countryId" gorm:"type:uuid;not null"`
	Name          string           `json:"name" gorm:"type:varchar(255);not null"`
	FrameworkType TaxFrameworkType `json:"frameworkType" gorm:"type:varchar(10);not null"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt   `json:"-" gorm:"index"`

	// Relationships
	Country    *Country       `json:"country,omitempty" gorm:"foreignKey:CountryID"`
	Components []TaxComponent `json:"components,omitempty" gorm:"foreignKey:FrameworkID"`
	TaxRates   []TaxRate      `json:"taxRates,omitempty" gorm:"foreignKey:FrameworkID"`
}

// TaxComponent is a named sub-rate slot within a framework (e.g. CGST, SGST,
// IGST, VAT). SortOrder fixes the order components appear in breakdowns.
type TaxComponent struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FrameworkID uuid.UUID `json:"frameworkId" gorm:"type:uuid;not null;uniqueIndex:idx_component_unique,priority:1"`
	Name        string    `json:"name" gorm:"type:varchar(50);not null;uniqueIndex:idx_component_unique,priority:2"`
	SortOrder   int       `json:"sortOrder" gorm:"default:0"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductServiceCategory classifies line items for category-specific rate
// overrides. Items without a category fall back to the framework default rate.
type ProductServiceCategory struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string         `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_category_unique,priority:1"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Code        string         `json:"code" gorm:"type:varchar(50);not null;uniqueIndex:idx_category_unique,priority:2"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TaxRate is an effective-dated rate for a framework, optionally narrowed to a
// jurisdiction and/or category. The rate is valid within [EffectiveFrom,
// EffectiveTo); a nil EffectiveTo leaves the window open-ended.
type TaxRate struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID       string          `json:"tenantId" gorm:"type:varchar(255);not null"`
	FrameworkID    uuid.UUID       `json:"frameworkId" gorm:"type:uuid;not null;index"`
	JurisdictionID *uuid.UUID      `json:"jurisdictionId" gorm:"type:uuid"`
	CategoryID     *uuid.UUID      `json:"categoryId" gorm:"type:uuid"`
	Rate           decimal.Decimal `json:"rate" gorm:"type:decimal(10,6);not null"`
	EffectiveFrom  time.Time       `json:"effectiveFrom" gorm:"not null"`
	EffectiveTo    *time.Time      `json:"effectiveTo"`
	IsExempt       bool            `json:"isExempt" gorm:"default:false"`
	IsZeroRated    bool            `json:"isZeroRated" gorm:"default:false"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relationships
	Framework      *TaxFramework           `json:"framework,omitempty" gorm:"foreignKey:FrameworkID"`
	Jurisdiction   *Jurisdiction           `json:"jurisdiction,omitempty" gorm:"foreignKey:JurisdictionID"`
	Category       *ProductServiceCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	ComponentRates []TaxComponentRate      `json:"componentRates,omitempty" gorm:"foreignKey:TaxRateID"`
}

// EffectiveAt reports whether the rate's [EffectiveFrom, EffectiveTo) window
// contains the given instant.
func (r *TaxRate) EffectiveAt(at time.Time) bool {
	if at.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || at.Before(*r.EffectiveTo)
}

// ComponentRateSum returns the sum of all component percentages. Configuration
// validation requires this to equal the declared overall Rate.
func (r *TaxRate) ComponentRateSum() decimal.Decimal {
	sum := decimal.Zero
	for _, cr := range r.ComponentRates {
		sum = sum.Add(cr.Percentage)
	}
	return sum
}

// TaxComponentRate splits a TaxRate's overall rate into named components
// (e.g. CGST 9 + SGST 9 for an 18% rate).
type TaxComponentRate struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TaxRateID     uuid.UUID       `json:"taxRateId" gorm:"type:uuid;not null;index"`
	ComponentName string          `json:"componentName" gorm:"type:varchar(50);not null"`
	Percentage    decimal.Decimal `json:"percentage" gorm:"type:decimal(10,6);not null"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TaxCalculationLog is the audit row appended after each successful
// calculation. It is append-only; nothing in this service updates it.
type TaxCalculationLog struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID       string          `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	QuotationID    *uuid.UUID      `json:"quotationId" gorm:"type:uuid;index"`
	FrameworkID    uuid.UUID       `json:"frameworkId" gorm:"type:uuid;not null"`
	JurisdictionID *uuid.UUID      `json:"jurisdictionId" gorm:"type:uuid"`
	AsOfDate       time.Time       `json:"asOfDate" gorm:"type:date;not null"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(14,2);not null"`
	DiscountAmount decimal.Decimal `json:"discountAmount" gorm:"type:decimal(14,2);not null"`
	TaxableAmount  decimal.Decimal `json:"taxableAmount" gorm:"type:decimal(14,2);not null"`
	TotalTax       decimal.Decimal `json:"totalTax" gorm:"type:decimal(14,2);not null"`
	TotalAmount    decimal.Decimal `json:"totalAmount" gorm:"type:decimal(14,2);not null"`
	Breakdown      datatypes.JSON  `json:"breakdown" gorm:"type:jsonb"`
	CreatedAt      time.Time       `json:"createdAt"`
}
