package persistence

import (
	"context"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormEntryRepository implements ledger.EntryRepository using GORM.
// Entries are append-only: there is no update or delete path.
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// CreateBatch inserts a balanced set of entries
func (r *GormEntryRepository) CreateBatch(ctx context.Context, entries []ledger.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Create(&entries).Error)
}

// FindByReference returns all entries for one source event
func (r *GormEntryRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, refType ledger.ReferenceType, refID uuid.UUID) ([]ledger.LedgerEntry, error) {
	var entries []ledger.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantID, refType, refID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, translateError(err)
	}
	return entries, nil
}

// FindByPayment returns all entries attached to one payment
func (r *GormEntryRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]ledger.LedgerEntry, error) {
	var entries []ledger.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, translateError(err)
	}
	return entries, nil
}

type sideSums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// SumByReference returns total debit and credit for one source event
func (r *GormEntryRepository) SumByReference(ctx context.Context, tenantID uuid.UUID, refType ledger.ReferenceType, refID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var sums sideSums
	if err := r.db.WithContext(ctx).
		Model(&ledger.LedgerEntry{}).
		Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantID, refType, refID).
		Scan(&sums).Error; err != nil {
		return decimal.Zero, decimal.Zero, translateError(err)
	}
	return sums.Debit, sums.Credit, nil
}

// SumByParty returns net debit-minus-credit on one account code for a
// customer or supplier
func (r *GormEntryRepository) SumByParty(ctx context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) (decimal.Decimal, error) {
	var sums sideSums
	query := r.partyQuery(ctx, tenantID, accountCode, customerID, supplierID).
		Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit")
	if err := query.Scan(&sums).Error; err != nil {
		return decimal.Zero, translateError(err)
	}
	return sums.Debit.Sub(sums.Credit), nil
}

// FindByParty returns all entries on one account code for a customer or
// supplier, ordered by entry date
func (r *GormEntryRepository) FindByParty(ctx context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) ([]ledger.LedgerEntry, error) {
	var entries []ledger.LedgerEntry
	query := r.partyQuery(ctx, tenantID, accountCode, customerID, supplierID).
		Order("entry_date ASC, created_at ASC")
	if err := query.Find(&entries).Error; err != nil {
		return nil, translateError(err)
	}
	return entries, nil
}

func (r *GormEntryRepository) partyQuery(ctx context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&ledger.LedgerEntry{}).
		Where("tenant_id = ? AND account_code = ?", tenantID, accountCode)
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	if supplierID != nil {
		query = query.Where("supplier_id = ?", *supplierID)
	}
	return query
}

var _ ledger.EntryRepository = (*GormEntryRepository)(nil)
