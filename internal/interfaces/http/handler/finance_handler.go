package handler

import (
	"time"

	appfinance "github.com/finledger/backend/internal/application/finance"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinanceHandler exposes purchase and payment operations
type FinanceHandler struct {
	BaseHandler
	purchases *appfinance.PurchaseService
	payments  *appfinance.PaymentService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(purchases *appfinance.PurchaseService, payments *appfinance.PaymentService) *FinanceHandler {
	return &FinanceHandler{purchases: purchases, payments: payments}
}

// RegisterRoutes registers finance routes
func (h *FinanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	purchases := rg.Group("/purchases")
	{
		purchases.POST("", h.CreatePurchase)
		purchases.GET("", h.ListPurchases)
		purchases.GET("/:id", h.GetPurchase)
		purchases.POST("/:id/cancel", h.CancelPurchase)
		purchases.POST("/:id/payments", h.RecordPayment)
	}
	payments := rg.Group("/payments")
	{
		payments.GET("/:id", h.GetPayment)
		payments.DELETE("/:id", h.DeletePayment)
	}
}

type purchaseItemRequest struct {
	ProductID      uuid.UUID       `json:"product_id" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice      decimal.Decimal `json:"unit_price" binding:"required"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type createPurchaseRequest struct {
	BranchID       uuid.UUID             `json:"branch_id" binding:"required"`
	SupplierID     uuid.UUID             `json:"supplier_id" binding:"required"`
	PurchaseNumber string                `json:"purchase_number" binding:"required"`
	Items          []purchaseItemRequest `json:"items" binding:"required,min=1,dive"`
	PaidAmount     decimal.Decimal       `json:"paid_amount"`
	PaymentMethod  string                `json:"payment_method"`
}

// CreatePurchase handles POST /purchases
func (h *FinanceHandler) CreatePurchase(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	items := make([]appfinance.PurchaseItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, appfinance.PurchaseItemInput{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			TaxAmount:      item.TaxAmount,
			DiscountAmount: item.DiscountAmount,
		})
	}

	resp, err := h.purchases.CreatePurchase(c.Request.Context(), appfinance.CreatePurchaseCommand{
		TenantID:       tenantID,
		BranchID:       req.BranchID,
		SupplierID:     req.SupplierID,
		PurchaseNumber: req.PurchaseNumber,
		Items:          items,
		PaidAmount:     req.PaidAmount,
		PaymentMethod:  finance.PaymentMethod(req.PaymentMethod),
		CreatedBy:      getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetPurchase handles GET /purchases/:id
func (h *FinanceHandler) GetPurchase(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid purchase id")
		return
	}

	resp, err := h.purchases.GetPurchase(c.Request.Context(), tenantID, purchaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListPurchases handles GET /purchases
func (h *FinanceHandler) ListPurchases(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.purchases.ListPurchases(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type cancelPurchaseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelPurchase handles POST /purchases/:id/cancel
func (h *FinanceHandler) CancelPurchase(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid purchase id")
		return
	}
	var req cancelPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.purchases.CancelPurchase(c.Request.Context(), tenantID, purchaseID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type recordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required"`
	Date   *time.Time      `json:"date"`
}

// RecordPayment handles POST /purchases/:id/payments
func (h *FinanceHandler) RecordPayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid purchase id")
		return
	}
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	resp, err := h.payments.RecordPayment(c.Request.Context(), appfinance.RecordPaymentCommand{
		TenantID:   tenantID,
		PurchaseID: purchaseID,
		Amount:     req.Amount,
		Method:     finance.PaymentMethod(req.Method),
		Date:       date,
		CreatedBy:  getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetPayment handles GET /payments/:id
func (h *FinanceHandler) GetPayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid payment id")
		return
	}

	resp, err := h.payments.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeletePayment handles DELETE /payments/:id
func (h *FinanceHandler) DeletePayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid payment id")
		return
	}

	resp, err := h.payments.DeletePayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
