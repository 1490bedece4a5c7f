package emi

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository persists EMI plans with their installments
type PlanRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*EMIPlan, error)
	// FindByInvoice finds the plan attached to an invoice, for
	// webhook-driven settlement that only knows the invoice id
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*EMIPlan, error)
	Create(ctx context.Context, plan *EMIPlan) error
	// SaveWithLock persists the plan and its installments under
	// optimistic locking
	SaveWithLock(ctx context.Context, plan *EMIPlan) error
}
