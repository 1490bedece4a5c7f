package handler

import (
	"context"
	"strconv"

	appaudit "github.com/finledger/backend/internal/application/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler exposes read-only integrity audit operations
type AuditHandler struct {
	BaseHandler
	auditor *appaudit.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditor *appaudit.AuditService) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	audit := rg.Group("/audit")
	{
		audit.GET("/mismatches", h.TopMismatches)
		audit.GET("/purchases/:id", h.PurchaseDetail)
		audit.GET("/customers/:id", h.CustomerDetail)
		audit.GET("/suppliers/:id", h.SupplierDetail)
	}
}

// TopMismatches handles GET /audit/mismatches
func (h *AuditHandler) TopMismatches(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	findings, err := h.auditor.TopMismatches(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, findings)
}

// PurchaseDetail handles GET /audit/purchases/:id
func (h *AuditHandler) PurchaseDetail(c *gin.Context) {
	h.detail(c, h.auditor.PurchaseDetail)
}

// CustomerDetail handles GET /audit/customers/:id
func (h *AuditHandler) CustomerDetail(c *gin.Context) {
	h.detail(c, h.auditor.CustomerDetail)
}

// SupplierDetail handles GET /audit/suppliers/:id
func (h *AuditHandler) SupplierDetail(c *gin.Context) {
	h.detail(c, h.auditor.SupplierDetail)
}

func (h *AuditHandler) detail(c *gin.Context, fn func(ctx context.Context, tenantID, id uuid.UUID) (*appaudit.Breakdown, error)) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid subject id")
		return
	}

	breakdown, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, breakdown)
}
