package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"quotation-tax-service/internal/models"
)

// GlobalTenantID is the special tenant ID for reference data shared by all tenants
const GlobalTenantID = "global"

// Cache TTL constants for reference data
const (
	FrameworkCacheTTL = 30 * time.Minute // frameworks and their components change rarely
	CategoryCacheTTL  = 30 * time.Minute
	cacheKeyPrefix    = "crm:tax:"
)

// TaxRepositoryInterface defines the persistence operations used by services
// and handlers. Kept as an interface so tests can mock it.
type TaxRepositoryInterface interface {
	// Reference data reads consumed by the tax engine
	GetFramework(ctx context.Context, tenantID string, frameworkID uuid.UUID) (*models.TaxFramework, error)
	GetApplicableRates(ctx context.Context, tenantID string, frameworkID uuid.UUID, asOf time.Time) ([]models.TaxRate, error)
	GetCategory(ctx context.Context, tenantID string, categoryID uuid.UUID) (*models.ProductServiceCategory, error)

	// Country CRUD
	CreateCountry(ctx context.Context, country *models.Country) error
	UpdateCountry(ctx context.Context, country *models.Country) error
	DeleteCountry(ctx context.Context, countryID uuid.UUID) error
	GetCountry(ctx context.Context, countryID uuid.UUID) (*models.Country, error)
	ListCountries(ctx context.Context, tenantID string) ([]models.Country, error)
	SetDefaultCountry(ctx context.Context, tenantID string, countryID uuid.UUID) error

	// Jurisdiction CRUD
	CreateJurisdiction(ctx context.Context, jurisdiction *models.Jurisdiction) error
	UpdateJurisdiction(ctx context.Context, jurisdiction *models.Jurisdiction) error
	DeleteJurisdiction(ctx context.Context, jurisdictionID uuid.UUID) error
	GetJurisdiction(ctx context.Context, jurisdictionID uuid.UUID) (*models.Jurisdiction, error)
	ListJurisdictions(ctx context.Context, tenantID string, countryID *uuid.UUID) ([]models.Jurisdiction, error)

	// Framework CRUD
	CreateFramework(ctx context.Context, framework *models.TaxFramework) error
	DeleteFramework(ctx context.Context, frameworkID uuid.UUID) error
	ListFrameworks(ctx context.Context, tenantID string) ([]models.TaxFramework, error)

	// Category CRUD
	CreateCategory(ctx context.Context, category *models.ProductServiceCategory) error
	UpdateCategory(ctx context.Context, category *models.ProductServiceCategory) error
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	ListCategories(ctx context.Context, tenantID string) ([]models.ProductServiceCategory, error)

	// Tax rate CRUD
	CreateTaxRate(ctx context.Context, rate *models.TaxRate) error
	UpdateTaxRate(ctx context.Context, rate *models.TaxRate) error
	DeleteTaxRate(ctx context.Context, rateID uuid.UUID) error
	GetTaxRate(ctx context.Context, rateID uuid.UUID) (*models.TaxRate, error)
	ListTaxRates(ctx context.Context, tenantID string, frameworkID uuid.UUID) ([]models.TaxRate, error)

	// Calculation audit log
	CreateCalculationLog(ctx context.Context, entry *models.TaxCalculationLog) error
	ListCalculationLogs(ctx context.Context, tenantID string, limit, offset int) ([]models.TaxCalculationLog, int64, error)
}

// TaxRepository is the GORM-backed implementation with a Redis read-through
// cache for framework and category lookups.
type TaxRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ TaxRepositoryInterface = (*TaxRepository)(nil)

// NewTaxRepository creates a new tax repository. redisClient may be nil; the
// repository then serves everything from the database.
func NewTaxRepository(db *gorm.DB, redisClient *redis.Client) *TaxRepository {
	return &TaxRepository{
		db:    db,
		redis: redisClient,
	}
}

func frameworkCacheKey(frameworkID uuid.UUID) string {
	return fmt.Sprintf("%sframework:%s", cacheKeyPrefix, frameworkID.String())
}

func categoryCacheKey(categoryID uuid.UUID) string {
	return fmt.Sprintf("%scategory:%s", cacheKeyPrefix, categoryID.String())
}

func (r *TaxRepository) invalidate(ctx context.Context, key string) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, key)
}

// tenantScope matches rows owned by the tenant or the shared global tenant
func tenantScope(tenantID string) []string {
	return []string{tenantID, GlobalTenantID}
}

// GetFramework gets a framework with its components ordered as declared
func (r *TaxRepository) GetFramework(ctx context.Context, tenantID string, frameworkID uuid.UUID) (*models.TaxFramework, error) {
	cacheKey := frameworkCacheKey(frameworkID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var framework models.TaxFramework
			if err := json.Unmarshal([]byte(val), &framework); err == nil {
				return &framework, nil
			}
		}
	}

	var framework models.TaxFramework
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("tenant_id IN ?", tenantScope(tenantID)).
		First(&framework, "id = ?", frameworkID).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, marshalErr := json.Marshal(framework); marshalErr == nil {
			r.redis.Set(ctx, cacheKey, data, FrameworkCacheTTL)
		}
	}

	return &framework, nil
}

// GetApplicableRates returns all non-deleted rates of the framework whose
// [effective_from, effective_to) window contains asOf, with component splits
// and display relations preloaded. Jurisdiction/category narrowing happens in
// the engine, which ranks candidates by specificity.
func (r *TaxRepository) GetApplicableRates(ctx context.Context, tenantID string, frameworkID uuid.UUID, asOf time.Time) ([]models.TaxRate, error) {
	var rates []models.TaxRate
	err := r.db.WithContext(ctx).
		Preload("ComponentRates").
		Preload("Jurisdiction").
		Preload("Category").
		Where("framework_id = ? AND tenant_id IN ?", frameworkID, tenantScope(tenantID)).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("effective_from DESC, created_at DESC").
		Find(&rates).Error
	return rates, err
}

// GetCategory gets a product/service category by ID
func (r *TaxRepository) GetCategory(ctx context.Context, tenantID string, categoryID uuid.UUID) (*models.ProductServiceCategory, error) {
	cacheKey := categoryCacheKey(categoryID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var category models.ProductServiceCategory
			if err := json.Unmarshal([]byte(val), &category); err == nil {
				return &category, nil
			}
		}
	}

	var category models.ProductServiceCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", tenantScope(tenantID)).
		First(&category, "id = ?", categoryID).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, marshalErr := json.Marshal(category); marshalErr == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryCacheTTL)
		}
	}

	return &category, nil
}

// ==================== Country CRUD ====================

// CreateCountry creates a new country
func (r *TaxRepository) CreateCountry(ctx context.Context, country *models.Country) error {
	return r.db.WithContext(ctx).Create(country).Error
}

// UpdateCountry updates a country
func (r *TaxRepository) UpdateCountry(ctx context.Context, country *models.Country) error {
	country.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(country).Error
}

// DeleteCountry soft deletes a country
func (r *TaxRepository) DeleteCountry(ctx context.Context, countryID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Country{}, "id = ?", countryID).Error
}

// GetCountry gets a country by ID
func (r *TaxRepository) GetCountry(ctx context.Context, countryID uuid.UUID) (*models.Country, error) {
	var country models.Country
	err := r.db.WithContext(ctx).
		Preload("Frameworks").
		First(&country, "id = ?", countryID).Error
	if err != nil {
		return nil, err
	}
	return &country, nil
}

// ListCountries lists all countries for a tenant (including global data)
func (r *TaxRepository) ListCountries(ctx context.Context, tenantID string) ([]models.Country, error) {
	var countries []models.Country
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", tenantScope(tenantID)).
		Order("name").
		Find(&countries).Error
	return countries, err
}

// SetDefaultCountry marks one country as default and clears the flag on all
// others in the same transaction, so exactly one default exists at a time.
func (r *TaxRepository) SetDefaultCountry(ctx context.Context, tenantID string, countryID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Country{}).
			Where("tenant_id = ? AND is_default = true", tenantID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		result := tx.Model(&models.Country{}).
			Where("id = ? AND tenant_id = ?", countryID, tenantID).
			Update("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ==================== Jurisdiction CRUD ====================

// CreateJurisdiction creates a new jurisdiction
func (r *TaxRepository) CreateJurisdiction(ctx context.Context, jurisdiction *models.Jurisdiction) error {
	return r.db.WithContext(ctx).Create(jurisdiction).Error
}

// UpdateJurisdiction updates a jurisdiction
func (r *TaxRepository) UpdateJurisdiction(ctx context.Context, jurisdiction *models.Jurisdiction) error {
	jurisdiction.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(jurisdiction).Error
}

// DeleteJurisdiction soft deletes a jurisdiction
func (r *TaxRepository) DeleteJurisdiction(ctx context.Context, jurisdictionID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Jurisdiction{}, "id = ?", jurisdictionID).Error
}

// GetJurisdiction gets a jurisdiction by ID
func (r *TaxRepository) GetJurisdiction(ctx context.Context, jurisdictionID uuid.UUID) (*models.Jurisdiction, error) {
	var jurisdiction models.Jurisdiction
	err := r.db.WithContext(ctx).
		Preload("Parent").
		Preload("Children").
		First(&jurisdiction, "id = ?", jurisdictionID).Error
	if err != nil {
		return nil, err
	}
	return &jurisdiction, nil
}

// ListJurisdictions lists jurisdictions for a tenant, optionally narrowed to a country
func (r *TaxRepository) ListJurisdictions(ctx context.Context, tenantID string, countryID *uuid.UUID) ([]models.Jurisdiction, error) {
	var jurisdictions []models.Jurisdiction
	query := r.db.WithContext(ctx).Where("tenant_id IN ?", tenantScope(tenantID))
	if countryID != nil {
		query = query.Where("country_id = ?", *countryID)
	}
	err := query.Order("name").Find(&jurisdictions).Error
	return jurisdictions, err
}

// ==================== Framework CRUD ====================

// CreateFramework creates a framework together with its component rows
func (r *TaxRepository) CreateFramework(ctx context.Context, framework *models.TaxFramework) error {
	return r.db.WithContext(ctx).Create(framework).Error
}

// DeleteFramework soft deletes a framework
func (r *TaxRepository) DeleteFramework(ctx context.Context, frameworkID uuid.UUID) error {
	err := r.db.WithContext(ctx).Delete(&models.TaxFramework{}, "id = ?", frameworkID).Error
	if err == nil {
		r.invalidate(ctx, frameworkCacheKey(frameworkID))
	}
	return err
}

// ListFrameworks lists frameworks for a tenant (including global data)
func (r *TaxRepository) ListFrameworks(ctx context.Context, tenantID string) ([]models.TaxFramework, error) {
	var frameworks []models.TaxFramework
	err := r.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("tenant_id IN ?", tenantScope(tenantID)).
		Order("name").
		Find(&frameworks).Error
	return frameworks, err
}

// ==================== Category CRUD ====================

// CreateCategory creates a new product/service category
func (r *TaxRepository) CreateCategory(ctx context.Context, category *models.ProductServiceCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// UpdateCategory updates a category
func (r *TaxRepository) UpdateCategory(ctx context.Context, category *models.ProductServiceCategory) error {
	category.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(category).Error
	if err == nil {
		r.invalidate(ctx, categoryCacheKey(category.ID))
	}
	return err
}

// DeleteCategory soft deletes a category
func (r *TaxRepository) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	err := r.db.WithContext(ctx).Delete(&models.ProductServiceCategory{}, "id = ?", categoryID).Error
	if err == nil {
		r.invalidate(ctx, categoryCacheKey(categoryID))
	}
	return err
}

// ListCategories lists categories for a tenant (including global data)
func (r *TaxRepository) ListCategories(ctx context.Context, tenantID string) ([]models.ProductServiceCategory, error) {
	var categories []models.ProductServiceCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", tenantScope(tenantID)).
		Order("name").
		Find(&categories).Error
	return categories, err
}

// ==================== Tax rate CRUD ====================

// CreateTaxRate creates a rate together with its component split rows
func (r *TaxRepository) CreateTaxRate(ctx context.Context, rate *models.TaxRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

// UpdateTaxRate updates a rate, replacing its component splits
func (r *TaxRepository) UpdateTaxRate(ctx context.Context, rate *models.TaxRate) error {
	rate.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tax_rate_id = ?", rate.ID).Delete(&models.TaxComponentRate{}).Error; err != nil {
			return err
		}
		return tx.Save(rate).Error
	})
}

// DeleteTaxRate soft deletes a rate
func (r *TaxRepository) DeleteTaxRate(ctx context.Context, rateID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.TaxRate{}, "id = ?", rateID).Error
}

// GetTaxRate gets a rate by ID with its component splits
func (r *TaxRepository) GetTaxRate(ctx context.Context, rateID uuid.UUID) (*models.TaxRate, error) {
	var rate models.TaxRate
	err := r.db.WithContext(ctx).
		Preload("ComponentRates").
		First(&rate, "id = ?", rateID).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// ListTaxRates lists all rates for a framework (any effective window)
func (r *TaxRepository) ListTaxRates(ctx context.Context, tenantID string, frameworkID uuid.UUID) ([]models.TaxRate, error) {
	var rates []models.TaxRate
	err := r.db.WithContext(ctx).
		Preload("ComponentRates").
		Where("framework_id = ? AND tenant_id IN ?", frameworkID, tenantScope(tenantID)).
		Order("effective_from DESC").
		Find(&rates).Error
	return rates, err
}

// ==================== Calculation audit log ====================

// CreateCalculationLog appends a calculation audit entry
func (r *TaxRepository) CreateCalculationLog(ctx context.Context, entry *models.TaxCalculationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListCalculationLogs lists audit entries for a tenant, newest first
func (r *TaxRepository) ListCalculationLogs(ctx context.Context, tenantID string, limit, offset int) ([]models.TaxCalculationLog, int64, error) {
	var entries []models.TaxCalculationLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TaxCalculationLog{}).Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}
