package handler

import (
	"fmt"
	"strconv"
	"time"

	appemi "github.com/finledger/backend/internal/application/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EMIHandler exposes installment plan operations
type EMIHandler struct {
	BaseHandler
	plans *appemi.EMIService
}

// NewEMIHandler creates a new EMIHandler
func NewEMIHandler(plans *appemi.EMIService) *EMIHandler {
	return &EMIHandler{plans: plans}
}

// RegisterRoutes registers emi routes
func (h *EMIHandler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/emi-plans")
	{
		plans.POST("", h.CreatePlan)
		plans.GET("/:id", h.GetPlan)
		plans.POST("/:id/installments/:number/pay", h.PayInstallment)
		plans.POST("/:id/installments/:number/apply-advance", h.ApplyAdvance)
		plans.POST("/:id/mark-overdue", h.MarkOverdue)
		plans.POST("/:id/mark-defaulted", h.MarkDefaulted)
	}
	rg.POST("/emi-reconciliations", h.Reconcile)
}

type installmentRequest struct {
	DueDate time.Time       `json:"due_date" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

type createPlanRequest struct {
	BranchID      uuid.UUID            `json:"branch_id" binding:"required"`
	CustomerID    uuid.UUID            `json:"customer_id" binding:"required"`
	PlanNumber    string               `json:"plan_number" binding:"required"`
	InvoiceID     *uuid.UUID           `json:"invoice_id"`
	Installments  []installmentRequest `json:"installments" binding:"required,min=1,dive"`
	DownPayment   decimal.Decimal      `json:"down_payment"`
	PaymentMethod string               `json:"payment_method"`
}

// CreatePlan handles POST /emi-plans
func (h *EMIHandler) CreatePlan(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	installments := make([]appemi.InstallmentInput, 0, len(req.Installments))
	for _, in := range req.Installments {
		installments = append(installments, appemi.InstallmentInput{DueDate: in.DueDate, Amount: in.Amount})
	}

	resp, err := h.plans.CreatePlan(c.Request.Context(), appemi.CreatePlanCommand{
		TenantID:      tenantID,
		BranchID:      req.BranchID,
		CustomerID:    req.CustomerID,
		PlanNumber:    req.PlanNumber,
		InvoiceID:     req.InvoiceID,
		Installments:  installments,
		DownPayment:   req.DownPayment,
		PaymentMethod: finance.PaymentMethod(req.PaymentMethod),
		CreatedBy:     getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetPlan handles GET /emi-plans/:id
func (h *EMIHandler) GetPlan(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid plan id")
		return
	}

	resp, err := h.plans.GetPlan(c.Request.Context(), tenantID, planID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func parseInstallmentNumber(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid installment number %q", raw)
	}
	return n, nil
}

type payInstallmentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required"`
}

// PayInstallment handles POST /emi-plans/:id/installments/:number/pay
func (h *EMIHandler) PayInstallment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid plan id")
		return
	}
	number, err := parseInstallmentNumber(c.Param("number"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req payInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.plans.PayInstallment(c.Request.Context(), appemi.PayInstallmentCommand{
		TenantID:          tenantID,
		PlanID:            planID,
		InstallmentNumber: number,
		Amount:            req.Amount,
		Method:            finance.PaymentMethod(req.Method),
		CreatedBy:         getUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApplyAdvance handles POST /emi-plans/:id/installments/:number/apply-advance
func (h *EMIHandler) ApplyAdvance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid plan id")
		return
	}
	number, err := parseInstallmentNumber(c.Param("number"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.plans.ApplyAdvance(c.Request.Context(), tenantID, planID, number)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type reconcileRequest struct {
	PlanID     *uuid.UUID      `json:"plan_id"`
	InvoiceID  *uuid.UUID      `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	GatewayRef string          `json:"gateway_ref" binding:"required"`
}

// Reconcile handles POST /emi-reconciliations
func (h *EMIHandler) Reconcile(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.plans.ReconcileExternalPayment(c.Request.Context(), appemi.ReconcileCommand{
		TenantID:   tenantID,
		PlanID:     req.PlanID,
		InvoiceID:  req.InvoiceID,
		Amount:     req.Amount,
		GatewayRef: req.GatewayRef,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkOverdue handles POST /emi-plans/:id/mark-overdue
func (h *EMIHandler) MarkOverdue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid plan id")
		return
	}

	resp, err := h.plans.MarkOverdue(c.Request.Context(), tenantID, planID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkDefaulted handles POST /emi-plans/:id/mark-defaulted
func (h *EMIHandler) MarkDefaulted(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid plan id")
		return
	}

	resp, err := h.plans.MarkDefaulted(c.Request.Context(), tenantID, planID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
