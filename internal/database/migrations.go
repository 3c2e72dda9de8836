package database

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"quotation-tax-service/internal/models"
	"quotation-tax-service/internal/repository"
)

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;size:255"`
	AppliedAt int64  `gorm:"autoCreateTime"`
}

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB) error {
	log.Println("Starting database migrations...")

	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}

	modelsToMigrate := []struct {
		name  string
		model interface{}
	}{
		{"Country", &models.Country{}},
		{"Jurisdiction", &models.Jurisdiction{}},
		{"TaxFramework", &models.TaxFramework{}},
		{"TaxComponent", &models.TaxComponent{}},
		{"ProductServiceCategory", &models.ProductServiceCategory{}},
		{"TaxRate", &models.TaxRate{}},
		{"TaxComponentRate", &models.TaxComponentRate{}},
		{"TaxCalculationLog", &models.TaxCalculationLog{}},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to auto-migrate %s: %w", m.name, err)
		}
	}
	log.Println("  ✓ Schema migrations complete")

	if err := seedGlobalReferenceData(db); err != nil {
		return fmt.Errorf("failed to seed global reference data: %w", err)
	}
	log.Println("✓ All database migrations complete")
	return nil
}

// seedGlobalReferenceData seeds the shared (global-tenant) GST and VAT
// reference data every tenant can calculate against out of the box. Applied
// once, tracked in the migration table.
func seedGlobalReferenceData(db *gorm.DB) error {
	const version = "001_seed_global_reference_data"

	var record MigrationRecord
	if err := db.Where("version = ?", version).First(&record).Error; err == nil {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		india := models.Country{
			TenantID:      repository.GlobalTenantID,
			Name:          "India",
			ISOCode:       "IN",
			Currency:      "INR",
			FrameworkType: models.FrameworkTypeGST,
			IsDefault:     true,
		}
		if err := tx.Create(&india).Error; err != nil {
			return err
		}

		uk := models.Country{
			TenantID:      repository.GlobalTenantID,
			Name:          "United Kingdom",
			ISOCode:       "GB",
			Currency:      "GBP",
			FrameworkType: models.FrameworkTypeVAT,
		}
		if err := tx.Create(&uk).Error; err != nil {
			return err
		}

		gst := models.TaxFramework{
			TenantID:      repository.GlobalTenantID,
			CountryID:     india.ID,
			Name:          "India GST",
			FrameworkType: models.FrameworkTypeGST,
			Components: []models.TaxComponent{
				{Name: "CGST", SortOrder: 0},
				{Name: "SGST", SortOrder: 1},
			},
		}
		if err := tx.Create(&gst).Error; err != nil {
			return err
		}

		vat := models.TaxFramework{
			TenantID:      repository.GlobalTenantID,
			CountryID:     uk.ID,
			Name:          "UK VAT",
			FrameworkType: models.FrameworkTypeVAT,
			Components: []models.TaxComponent{
				{Name: "VAT", SortOrder: 0},
			},
		}
		if err := tx.Create(&vat).Error; err != nil {
			return err
		}

		effectiveFrom := time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC)
		gstDefault := models.TaxRate{
			TenantID:      repository.GlobalTenantID,
			FrameworkID:   gst.ID,
			Rate:          decimal.NewFromInt(18),
			EffectiveFrom: effectiveFrom,
			ComponentRates: []models.TaxComponentRate{
				{ComponentName: "CGST", Percentage: decimal.NewFromInt(9)},
				{ComponentName: "SGST", Percentage: decimal.NewFromInt(9)},
			},
		}
		if err := tx.Create(&gstDefault).Error; err != nil {
			return err
		}

		vatDefault := models.TaxRate{
			TenantID:      repository.GlobalTenantID,
			FrameworkID:   vat.ID,
			Rate:          decimal.NewFromInt(20),
			EffectiveFrom: time.Date(2011, 1, 4, 0, 0, 0, 0, time.UTC),
			ComponentRates: []models.TaxComponentRate{
				{ComponentName: "VAT", Percentage: decimal.NewFromInt(20)},
			},
		}
		if err := tx.Create(&vatDefault).Error; err != nil {
			return err
		}

		return tx.Create(&MigrationRecord{Version: version}).Error
	})
}
