package orchestrator

import (
	"context"
	"sync"

	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/inventory"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/partner"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryScope is an in-memory TransactionScope for tests and local
// development. It serializes units of work behind one mutex but does not
// roll back on error, so a failed unit must not be reused for
// rollback-sensitive assertions.
type MemoryScope struct {
	mu    sync.Mutex
	repos *memoryRepositories
}

// NewMemoryScope creates an empty in-memory scope
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{repos: newMemoryRepositories()}
}

// Execute runs fn against the in-memory repositories
func (s *MemoryScope) Execute(_ context.Context, fn func(repos TxRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.repos)
}

// Repos exposes the backing repositories for direct seeding and
// assertions in tests.
func (s *MemoryScope) Repos() TxRepositories {
	return s.repos
}

type memoryRepositories struct {
	accounts  *memoryAccountRepo
	entries   *memoryEntryRepo
	purchases *memoryPurchaseRepo
	payments  *memoryPaymentRepo
	plans     *memoryPlanRepo
	customers *memoryCustomerRepo
	suppliers *memorySupplierRepo
	stock     *memoryStockRepo
}

func newMemoryRepositories() *memoryRepositories {
	return &memoryRepositories{
		accounts:  &memoryAccountRepo{byKey: map[string]*ledger.Account{}},
		entries:   &memoryEntryRepo{},
		purchases: &memoryPurchaseRepo{byID: map[uuid.UUID]*finance.Purchase{}},
		payments:  &memoryPaymentRepo{byID: map[uuid.UUID]*finance.Payment{}},
		plans:     &memoryPlanRepo{byID: map[uuid.UUID]*emi.EMIPlan{}},
		customers: &memoryCustomerRepo{byID: map[uuid.UUID]*partner.Customer{}},
		suppliers: &memorySupplierRepo{byID: map[uuid.UUID]*partner.Supplier{}},
		stock:     &memoryStockRepo{byKey: map[string]*inventory.StockRecord{}},
	}
}

func (r *memoryRepositories) Accounts() ledger.AccountRepository    { return r.accounts }
func (r *memoryRepositories) Entries() ledger.EntryRepository      { return r.entries }
func (r *memoryRepositories) Purchases() finance.PurchaseRepository { return r.purchases }
func (r *memoryRepositories) Payments() finance.PaymentRepository   { return r.payments }
func (r *memoryRepositories) Plans() emi.PlanRepository             { return r.plans }
func (r *memoryRepositories) Customers() partner.CustomerRepository { return r.customers }
func (r *memoryRepositories) Suppliers() partner.SupplierRepository { return r.suppliers }
func (r *memoryRepositories) Stock() inventory.StockRepository      { return r.stock }

// --- accounts ---

type memoryAccountRepo struct {
	byKey map[string]*ledger.Account
}

func accountKey(tenantID uuid.UUID, code string) string {
	return tenantID.String() + "/" + code
}

func (r *memoryAccountRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	if a, ok := r.byKey[accountKey(tenantID, code)]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryAccountRepo) GetOrCreate(_ context.Context, account *ledger.Account) (*ledger.Account, error) {
	key := accountKey(account.TenantID, account.Code)
	if existing, ok := r.byKey[key]; ok {
		copied := *existing
		return &copied, nil
	}
	copied := *account
	r.byKey[key] = &copied
	out := copied
	return &out, nil
}

func (r *memoryAccountRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	for _, a := range r.byKey {
		if a.TenantID == tenantID && a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

// --- ledger entries ---

type memoryEntryRepo struct {
	entries []ledger.LedgerEntry
}

func (r *memoryEntryRepo) CreateBatch(_ context.Context, entries []ledger.LedgerEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memoryEntryRepo) FindByReference(_ context.Context, tenantID uuid.UUID, refType ledger.ReferenceType, refID uuid.UUID) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ReferenceType == refType && e.ReferenceID == refID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEntryRepo) FindByPayment(_ context.Context, tenantID, paymentID uuid.UUID) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.PaymentID != nil && *e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEntryRepo) SumByReference(ctx context.Context, tenantID uuid.UUID, refType ledger.ReferenceType, refID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	entries, _ := r.FindByReference(ctx, tenantID, refType, refID)
	debit, credit := ledger.SumSides(entries)
	return debit, credit, nil
}

func (r *memoryEntryRepo) SumByParty(_ context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) (decimal.Decimal, error) {
	net := decimal.Zero
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.AccountCode != accountCode {
			continue
		}
		if customerID != nil && (e.CustomerID == nil || *e.CustomerID != *customerID) {
			continue
		}
		if supplierID != nil && (e.SupplierID == nil || *e.SupplierID != *supplierID) {
			continue
		}
		net = net.Add(e.Debit).Sub(e.Credit)
	}
	return net, nil
}

func (r *memoryEntryRepo) FindByParty(_ context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.AccountCode != accountCode {
			continue
		}
		if customerID != nil && (e.CustomerID == nil || *e.CustomerID != *customerID) {
			continue
		}
		if supplierID != nil && (e.SupplierID == nil || *e.SupplierID != *supplierID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// --- purchases ---

type memoryPurchaseRepo struct {
	byID map[uuid.UUID]*finance.Purchase
}

func (r *memoryPurchaseRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Purchase, error) {
	if p, ok := r.byID[id]; ok && p.TenantID == tenantID {
		copied := *p
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPurchaseRepo) Create(_ context.Context, purchase *finance.Purchase) error {
	copied := *purchase
	r.byID[purchase.ID] = &copied
	return nil
}

func (r *memoryPurchaseRepo) SaveWithLock(_ context.Context, purchase *finance.Purchase) error {
	existing, ok := r.byID[purchase.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != purchase.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	copied := *purchase
	r.byID[purchase.ID] = &copied
	return nil
}

func (r *memoryPurchaseRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]finance.Purchase, error) {
	var out []finance.Purchase
	for _, p := range r.byID {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// --- payments ---

type memoryPaymentRepo struct {
	byID map[uuid.UUID]*finance.Payment
}

func (r *memoryPaymentRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	if p, ok := r.byID[id]; ok && p.TenantID == tenantID {
		copied := *p
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPaymentRepo) Create(_ context.Context, payment *finance.Payment) error {
	copied := *payment
	r.byID[payment.ID] = &copied
	return nil
}

func (r *memoryPaymentRepo) SaveWithLock(_ context.Context, payment *finance.Payment) error {
	existing, ok := r.byID[payment.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != payment.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	copied := *payment
	r.byID[payment.ID] = &copied
	return nil
}

func (r *memoryPaymentRepo) CountCompletedByPurchase(_ context.Context, tenantID, purchaseID uuid.UUID) (int64, error) {
	var count int64
	for _, p := range r.byID {
		if p.TenantID == tenantID && p.PurchaseID != nil && *p.PurchaseID == purchaseID && p.State == finance.PaymentStateCompleted {
			count++
		}
	}
	return count, nil
}

// --- plans ---

type memoryPlanRepo struct {
	byID map[uuid.UUID]*emi.EMIPlan
}

func (r *memoryPlanRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*emi.EMIPlan, error) {
	if p, ok := r.byID[id]; ok && p.TenantID == tenantID {
		copied := *p
		copied.Installments = append([]emi.Installment(nil), p.Installments...)
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPlanRepo) FindByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) (*emi.EMIPlan, error) {
	for _, p := range r.byID {
		if p.TenantID == tenantID && p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			copied := *p
			copied.Installments = append([]emi.Installment(nil), p.Installments...)
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPlanRepo) Create(_ context.Context, plan *emi.EMIPlan) error {
	copied := *plan
	copied.Installments = append([]emi.Installment(nil), plan.Installments...)
	r.byID[plan.ID] = &copied
	return nil
}

func (r *memoryPlanRepo) SaveWithLock(_ context.Context, plan *emi.EMIPlan) error {
	existing, ok := r.byID[plan.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != plan.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	copied := *plan
	copied.Installments = append([]emi.Installment(nil), plan.Installments...)
	r.byID[plan.ID] = &copied
	return nil
}

// --- parties ---

type memoryCustomerRepo struct {
	byID map[uuid.UUID]*partner.Customer
}

func (r *memoryCustomerRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	if c, ok := r.byID[id]; ok && c.TenantID == tenantID {
		copied := *c
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryCustomerRepo) Create(_ context.Context, customer *partner.Customer) error {
	copied := *customer
	r.byID[customer.ID] = &copied
	return nil
}

func (r *memoryCustomerRepo) SaveWithLock(_ context.Context, customer *partner.Customer) error {
	existing, ok := r.byID[customer.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != customer.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	copied := *customer
	r.byID[customer.ID] = &copied
	return nil
}

func (r *memoryCustomerRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]partner.Customer, error) {
	var out []partner.Customer
	for _, c := range r.byID {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type memorySupplierRepo struct {
	byID map[uuid.UUID]*partner.Supplier
}

func (r *memorySupplierRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	if s, ok := r.byID[id]; ok && s.TenantID == tenantID {
		copied := *s
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memorySupplierRepo) Create(_ context.Context, supplier *partner.Supplier) error {
	copied := *supplier
	r.byID[supplier.ID] = &copied
	return nil
}

func (r *memorySupplierRepo) SaveWithLock(_ context.Context, supplier *partner.Supplier) error {
	existing, ok := r.byID[supplier.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != supplier.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	copied := *supplier
	r.byID[supplier.ID] = &copied
	return nil
}

func (r *memorySupplierRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]partner.Supplier, error) {
	var out []partner.Supplier
	for _, s := range r.byID {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// --- stock ---

type memoryStockRepo struct {
	byKey     map[string]*inventory.StockRecord
	movements []inventory.StockMovement
}

func stockKey(tenantID, branchID, productID uuid.UUID) string {
	return tenantID.String() + "/" + branchID.String() + "/" + productID.String()
}

func (r *memoryStockRepo) FindByBranchAndProduct(_ context.Context, tenantID, branchID, productID uuid.UUID) (*inventory.StockRecord, error) {
	if s, ok := r.byKey[stockKey(tenantID, branchID, productID)]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryStockRepo) AdjustQuantity(_ context.Context, tenantID, branchID, productID uuid.UUID, delta decimal.Decimal) error {
	key := stockKey(tenantID, branchID, productID)
	record, ok := r.byKey[key]
	if !ok {
		if delta.IsNegative() {
			return shared.ErrInsufficientStock
		}
		created, err := inventory.NewStockRecord(tenantID, branchID, productID, delta)
		if err != nil {
			return err
		}
		r.byKey[key] = created
		return nil
	}
	next := record.Quantity.Add(delta)
	if next.IsNegative() {
		return shared.ErrInsufficientStock
	}
	record.Quantity = next
	return nil
}

func (r *memoryStockRepo) RecordMovement(_ context.Context, movement *inventory.StockMovement) error {
	r.movements = append(r.movements, *movement)
	return nil
}

// Ensure the in-memory implementations satisfy the interfaces
var _ TransactionScope = (*MemoryScope)(nil)
var _ TxRepositories = (*memoryRepositories)(nil)
