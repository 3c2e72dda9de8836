package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"quotation-tax-service/internal/events"
	"quotation-tax-service/internal/models"
	"quotation-tax-service/internal/repository"
)

// ReferenceHandler handles admin CRUD for the tax reference tables the
// calculation engine reads: countries, jurisdictions, frameworks, categories
// and effective-dated rates.
type ReferenceHandler struct {
	repo   repository.TaxRepositoryInterface
	logger *logrus.Entry
}

// NewReferenceHandler creates a new reference data handler
func NewReferenceHandler(repo repository.TaxRepositoryInterface, logger *logrus.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		repo:   repo,
		logger: logger.WithField("component", "handlers.reference"),
	}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid ID",
			"message": err.Error(),
		})
		return uuid.Nil, false
	}
	return id, true
}

// ==================== Country CRUD ====================

// ListCountries handles GET /api/v1/countries
func (h *ReferenceHandler) ListCountries(c *gin.Context) {
	countries, err := h.repo.ListCountries(c.Request.Context(), getTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list countries", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, countries)
}

// GetCountry handles GET /api/v1/countries/:id
func (h *ReferenceHandler) GetCountry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	country, err := h.repo.GetCountry(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Country not found", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, country)
}

// CreateCountry handles POST /api/v1/countries
func (h *ReferenceHandler) CreateCountry(c *gin.Context) {
	var country models.Country
	if err := c.ShouldBindJSON(&country); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	country.TenantID = getTenantID(c)
	if err := h.repo.CreateCountry(c.Request.Context(), &country); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create country", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, country)
}

// UpdateCountry handles PUT /api/v1/countries/:id
func (h *ReferenceHandler) UpdateCountry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var country models.Country
	if err := c.ShouldBindJSON(&country); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	country.ID = id
	country.TenantID = getTenantID(c)
	if err := h.repo.UpdateCountry(c.Request.Context(), &country); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update country", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, country)
}

// DeleteCountry handles DELETE /api/v1/countries/:id
func (h *ReferenceHandler) DeleteCountry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCountry(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete country", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Country deleted"})
}

// SetDefaultCountry handles PUT /api/v1/countries/:id/default. Exactly one
// country per tenant is default at a time; the repository swaps the flag in a
// single transaction.
func (h *ReferenceHandler) SetDefaultCountry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.repo.SetDefaultCountry(c.Request.Context(), getTenantID(c), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set default country", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Default country updated"})
}

// ==================== Jurisdiction CRUD ====================

// ListJurisdictions handles GET /api/v1/jurisdictions
func (h *ReferenceHandler) ListJurisdictions(c *gin.Context) {
	var countryID *uuid.UUID
	if raw := c.Query("countryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid country ID", "message": err.Error()})
			return
		}
		countryID = &id
	}

	jurisdictions, err := h.repo.ListJurisdictions(c.Request.Context(), getTenantID(c), countryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jurisdictions", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jurisdictions)
}

// GetJurisdiction handles GET /api/v1/jurisdictions/:id
func (h *ReferenceHandler) GetJurisdiction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	jurisdiction, err := h.repo.GetJurisdiction(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Jurisdiction not found", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jurisdiction)
}

// CreateJurisdiction handles POST /api/v1/jurisdictions
func (h *ReferenceHandler) CreateJurisdiction(c *gin.Context) {
	var jurisdiction models.Jurisdiction
	if err := c.ShouldBindJSON(&jurisdiction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	jurisdiction.TenantID = getTenantID(c)
	if err := h.repo.CreateJurisdiction(c.Request.Context(), &jurisdiction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create jurisdiction", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, jurisdiction)
}

// UpdateJurisdiction handles PUT /api/v1/jurisdictions/:id
func (h *ReferenceHandler) UpdateJurisdiction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var jurisdiction models.Jurisdiction
	if err := c.ShouldBindJSON(&jurisdiction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	jurisdiction.ID = id
	jurisdiction.TenantID = getTenantID(c)
	if err := h.repo.UpdateJurisdiction(c.Request.Context(), &jurisdiction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update jurisdiction", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jurisdiction)
}

// DeleteJurisdiction handles DELETE /api/v1/jurisdictions/:id
func (h *ReferenceHandler) DeleteJurisdiction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteJurisdiction(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete jurisdiction", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Jurisdiction deleted"})
}

// ==================== Framework CRUD ====================

// ListFrameworks handles GET /api/v1/frameworks
func (h *ReferenceHandler) ListFrameworks(c *gin.Context) {
	frameworks, err := h.repo.ListFrameworks(c.Request.Context(), getTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list frameworks", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, frameworks)
}

// GetFramework handles GET /api/v1/frameworks/:id
func (h *ReferenceHandler) GetFramework(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	framework, err := h.repo.GetFramework(c.Request.Context(), getTenantID(c), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Framework not found", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, framework)
}

// CreateFramework handles POST /api/v1/frameworks. The ordered component list
// is created with the framework; a framework without components cannot be
// calculated against.
func (h *ReferenceHandler) CreateFramework(c *gin.Context) {
	var req models.CreateFrameworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	framework := models.TaxFramework{
		TenantID:      getTenantID(c),
		CountryID:     req.CountryID,
		Name:          req.Name,
		FrameworkType: req.FrameworkType,
	}
	for i, name := range req.Components {
		framework.Components = append(framework.Components, models.TaxComponent{
			Name:      name,
			SortOrder: i,
		})
	}

	if err := h.repo.CreateFramework(c.Request.Context(), &framework); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create framework", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, framework)
}

// DeleteFramework handles DELETE /api/v1/frameworks/:id
func (h *ReferenceHandler) DeleteFramework(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteFramework(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete framework", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Framework deleted"})
}

// ==================== Category CRUD ====================

// ListCategories handles GET /api/v1/categories
func (h *ReferenceHandler) ListCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context(), getTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/categories
func (h *ReferenceHandler) CreateCategory(c *gin.Context) {
	var category models.ProductServiceCategory
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	category.TenantID = getTenantID(c)
	if err := h.repo.CreateCategory(c.Request.Context(), &category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/v1/categories/:id
func (h *ReferenceHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var category models.ProductServiceCategory
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}
	category.ID = id
	category.TenantID = getTenantID(c)
	if err := h.repo.UpdateCategory(c.Request.Context(), &category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/v1/categories/:id
func (h *ReferenceHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ==================== Tax rate CRUD ====================

// validateComponentRates enforces the configuration-time invariant the
// calculation path trusts: component percentages sum to the declared rate.
// Exempt and zero-rated rates are excused since their effective rate is 0.
func validateComponentRates(rate decimal.Decimal, isExempt, isZeroRated bool, splits []models.ComponentRateInput) bool {
	if isExempt || isZeroRated {
		return true
	}
	sum := decimal.Zero
	for _, split := range splits {
		sum = sum.Add(split.Percentage)
	}
	return sum.Equal(rate)
}

// ListTaxRates handles GET /api/v1/frameworks/:id/rates
func (h *ReferenceHandler) ListTaxRates(c *gin.Context) {
	frameworkID, ok := parseIDParam(c)
	if !ok {
		return
	}
	rates, err := h.repo.ListTaxRates(c.Request.Context(), getTenantID(c), frameworkID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tax rates", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rates)
}

// CreateTaxRate handles POST /api/v1/rates
func (h *ReferenceHandler) CreateTaxRate(c *gin.Context) {
	tenantID := getTenantID(c)

	var req models.CreateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	if !validateComponentRates(req.Rate, req.IsExempt, req.IsZeroRated, req.ComponentRates) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "COMPONENT_RATE_MISMATCH",
			"message": "component percentages must sum to the overall rate",
		})
		return
	}

	rate := models.TaxRate{
		TenantID:       tenantID,
		FrameworkID:    req.FrameworkID,
		JurisdictionID: req.JurisdictionID,
		CategoryID:     req.CategoryID,
		Rate:           req.Rate,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveTo:    req.EffectiveTo,
		IsExempt:       req.IsExempt,
		IsZeroRated:    req.IsZeroRated,
	}
	for _, split := range req.ComponentRates {
		rate.ComponentRates = append(rate.ComponentRates, models.TaxComponentRate{
			ComponentName: split.ComponentName,
			Percentage:    split.Percentage,
		})
	}

	if err := h.repo.CreateTaxRate(c.Request.Context(), &rate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tax rate", "message": err.Error()})
		return
	}

	if pub := events.GetPublisher(); pub != nil {
		go pub.PublishTaxRateChanged(c.Request.Context(), events.SubjectTaxRateCreated, tenantID, &rate)
	}

	c.JSON(http.StatusCreated, rate)
}

// UpdateTaxRate handles PUT /api/v1/rates/:id
func (h *ReferenceHandler) UpdateTaxRate(c *gin.Context) {
	tenantID := getTenantID(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	if !validateComponentRates(req.Rate, req.IsExempt, req.IsZeroRated, req.ComponentRates) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "COMPONENT_RATE_MISMATCH",
			"message": "component percentages must sum to the overall rate",
		})
		return
	}

	rate, err := h.repo.GetTaxRate(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tax rate not found", "message": err.Error()})
		return
	}

	rate.Rate = req.Rate
	rate.EffectiveFrom = req.EffectiveFrom
	rate.EffectiveTo = req.EffectiveTo
	rate.IsExempt = req.IsExempt
	rate.IsZeroRated = req.IsZeroRated
	rate.ComponentRates = rate.ComponentRates[:0]
	for _, split := range req.ComponentRates {
		rate.ComponentRates = append(rate.ComponentRates, models.TaxComponentRate{
			TaxRateID:     rate.ID,
			ComponentName: split.ComponentName,
			Percentage:    split.Percentage,
		})
	}

	if err := h.repo.UpdateTaxRate(c.Request.Context(), rate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tax rate", "message": err.Error()})
		return
	}

	if pub := events.GetPublisher(); pub != nil {
		go pub.PublishTaxRateChanged(c.Request.Context(), events.SubjectTaxRateUpdated, tenantID, rate)
	}

	c.JSON(http.StatusOK, rate)
}

// DeleteTaxRate handles DELETE /api/v1/rates/:id
func (h *ReferenceHandler) DeleteTaxRate(c *gin.Context) {
	tenantID := getTenantID(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	rate, err := h.repo.GetTaxRate(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tax rate not found", "message": err.Error()})
		return
	}

	if err := h.repo.DeleteTaxRate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tax rate", "message": err.Error()})
		return
	}

	if pub := events.GetPublisher(); pub != nil {
		go pub.PublishTaxRateChanged(c.Request.Context(), events.SubjectTaxRateDeleted, tenantID, rate)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tax rate deleted"})
}
