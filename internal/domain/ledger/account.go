package ledger

import (
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account in the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// Well-known account codes. These are a persisted external contract other
// reports rely on and must remain stable. The registry seeds them on first
// reference, not at startup.
const (
	CodeCash               = "1001"
	CodeBank               = "1002"
	CodeAccountsReceivable = "1200"
	CodeInventoryAsset     = "1500"
	CodeAccountsPayable    = "2000"
	CodeTaxPayable         = "2100"
	CodeSales              = "4000"
)

// ChartEntry describes a well-known account to be seeded lazily
type ChartEntry struct {
	Code string
	Name string
	Type AccountType
}

// Chart returns the seed definition for a well-known code, or false when
// the code is not part of the standard chart.
func Chart(code string) (ChartEntry, bool) {
	switch code {
	case CodeCash:
		return ChartEntry{CodeCash, "Cash", AccountTypeAsset}, true
	case CodeBank:
		return ChartEntry{CodeBank, "Bank", AccountTypeAsset}, true
	case CodeAccountsReceivable:
		return ChartEntry{CodeAccountsReceivable, "Accounts Receivable", AccountTypeAsset}, true
	case CodeInventoryAsset:
		return ChartEntry{CodeInventoryAsset, "Inventory Asset", AccountTypeAsset}, true
	case CodeAccountsPayable:
		return ChartEntry{CodeAccountsPayable, "Accounts Payable", AccountTypeLiability}, true
	case CodeTaxPayable:
		return ChartEntry{CodeTaxPayable, "Tax Payable", AccountTypeLiability}, true
	case CodeSales:
		return ChartEntry{CodeSales, "Sales", AccountTypeIncome}, true
	}
	return ChartEntry{}, false
}

// Account represents one ledger account in a tenant's chart of accounts.
// Accounts are created lazily and are immutable once created, except for
// CachedBalance which is advisory, not authoritative.
type Account struct {
	shared.TenantAggregateRoot
	Code          string          `gorm:"size:20;not null;uniqueIndex:idx_accounts_tenant_code,priority:2" json:"code"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Type          AccountType     `gorm:"size:20;not null" json:"type"`
	IsGroup       bool            `gorm:"not null;default:false" json:"is_group"`
	CachedBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"cached_balance"`
}

// TableName returns the database table name
func (Account) TableName() string {
	return "ledger_accounts"
}

// NewAccount creates a new ledger account
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType) (*Account, error) {
	if code == "" {
		return nil, shared.NewValidationError("account code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewValidationError("account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewValidationError("invalid account type %q", accountType)
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		CachedBalance:       decimal.Zero,
	}, nil
}
