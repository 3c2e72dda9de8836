package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"quotation-tax-service/internal/events"
	"quotation-tax-service/internal/models"
	"quotation-tax-service/internal/repository"
	"quotation-tax-service/internal/services"
)

// TaxHandler handles tax calculation HTTP requests
type TaxHandler struct {
	engine *services.TaxEngine
	repo   repository.TaxRepositoryInterface
	logger *logrus.Entry
}

// NewTaxHandler creates a new tax handler
func NewTaxHandler(engine *services.TaxEngine, repo repository.TaxRepositoryInterface, logger *logrus.Logger) *TaxHandler {
	return &TaxHandler{
		engine: engine,
		repo:   repo,
		logger: logger.WithField("component", "handlers.tax"),
	}
}

// getTenantID extracts the tenant ID set by the TenantID middleware
func getTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// CalculateTax handles POST /api/v1/tax/calculate
//
// Resolution failures surface as 422: a configuration gap must be visible to
// the caller, never silently treated as zero tax.
func (h *TaxHandler) CalculateTax(c *gin.Context) {
	tenantID := getTenantID(c)

	var req models.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	result, err := h.engine.Calculate(c.Request.Context(), tenantID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoApplicableTaxRate):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "NO_APPLICABLE_TAX_RATE",
				"message": err.Error(),
			})
		case errors.Is(err, services.ErrInvalidFrameworkConfiguration):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "INVALID_FRAMEWORK_CONFIGURATION",
				"message": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to calculate tax",
				"message": err.Error(),
			})
		}
		return
	}

	h.appendCalculationLog(c, tenantID, req, result)

	if pub := events.GetPublisher(); pub != nil {
		go pub.PublishTaxCalculated(c.Request.Context(), tenantID, req.QuotationID, result)
	}

	c.JSON(http.StatusOK, result)
}

// appendCalculationLog records the audit entry for a successful calculation.
// Audit failures are logged, not surfaced: the calculation itself succeeded.
func (h *TaxHandler) appendCalculationLog(c *gin.Context, tenantID string, req models.CalculateTaxRequest, result *models.TaxCalculationResult) {
	breakdown, err := json.Marshal(result.TaxBreakdown)
	if err != nil {
		h.logger.WithError(err).Warn("failed to marshal tax breakdown for audit log")
		return
	}

	entry := &models.TaxCalculationLog{
		TenantID:       tenantID,
		QuotationID:    req.QuotationID,
		FrameworkID:    result.FrameworkID,
		JurisdictionID: req.JurisdictionID,
		AsOfDate:       result.AsOfDate,
		Subtotal:       result.Subtotal,
		DiscountAmount: result.DiscountAmount,
		TaxableAmount:  result.TaxableAmount,
		TotalTax:       result.TotalTax,
		TotalAmount:    result.TotalAmount,
		Breakdown:      breakdown,
	}

	if err := h.repo.CreateCalculationLog(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).Warn("failed to append tax calculation log")
	}
}

// ListCalculationLogs handles GET /api/v1/tax/calculations
func (h *TaxHandler) ListCalculationLogs(c *gin.Context) {
	tenantID := getTenantID(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, total, err := h.repo.ListCalculationLogs(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list calculation logs",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  entries,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
