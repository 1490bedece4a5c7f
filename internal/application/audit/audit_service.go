package audit

import (
	"context"
	"errors"
	"sort"

	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tolerances separate accumulated rounding noise from real drift. A
// single document accrues at most a cent or two of rounding; a party
// balance aggregates many documents and is allowed a full unit.
var (
	DocumentTolerance = decimal.NewFromFloat(0.05)
	PartyTolerance    = decimal.NewFromFloat(1.00)
)

// SubjectKind classifies what an audit finding is about
type SubjectKind string

const (
	SubjectPurchase SubjectKind = "PURCHASE"
	SubjectCustomer SubjectKind = "CUSTOMER"
	SubjectSupplier SubjectKind = "SUPPLIER"
)

// Mismatch is one stored-versus-derived discrepancy that exceeded its
// tolerance
type Mismatch struct {
	Kind      SubjectKind     `json:"kind"`
	SubjectID uuid.UUID       `json:"subject_id"`
	Reference string          `json:"reference"`
	Stored    decimal.Decimal `json:"stored"`
	Derived   decimal.Decimal `json:"derived"`
	Diff      decimal.Decimal `json:"diff"`
	Tolerance decimal.Decimal `json:"tolerance"`
}

// EntryLine is one ledger entry in a detail breakdown
type EntryLine struct {
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Narration   string          `json:"narration,omitempty"`
	IsReversal  bool            `json:"is_reversal"`
}

// Breakdown is the line-by-line view behind one stored-versus-derived
// comparison
type Breakdown struct {
	Kind      SubjectKind     `json:"kind"`
	SubjectID uuid.UUID       `json:"subject_id"`
	Reference string          `json:"reference"`
	Stored    decimal.Decimal `json:"stored"`
	Derived   decimal.Decimal `json:"derived"`
	Diff      decimal.Decimal `json:"diff"`
	Lines     []EntryLine     `json:"lines"`
}

// AuditService recomputes ledger-derived figures and compares them
// against the stored aggregates they should equal. It never writes:
// a human or a separate corrective job consumes its findings.
type AuditService struct {
	scope  orchestrator.TransactionScope
	logger *zap.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(scope orchestrator.TransactionScope, logger *zap.Logger) *AuditService {
	return &AuditService{scope: scope, logger: logger}
}

// TopMismatches scans every non-cancelled purchase and every party of
// the tenant and returns the discrepancies exceeding their tolerance,
// ranked largest first. limit <= 0 means no cap.
func (s *AuditService) TopMismatches(ctx context.Context, tenantID uuid.UUID, limit int) ([]Mismatch, error) {
	var findings []Mismatch
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		purchases, err := repos.Purchases().FindAll(ctx, tenantID)
		if err != nil {
			return err
		}
		for i := range purchases {
			p := &purchases[i]
			if p.Status == finance.DocumentStatusCancelled {
				continue
			}
			_, credit, err := repos.Entries().SumByReference(ctx, tenantID, ledger.ReferencePurchase, p.ID)
			if err != nil {
				return err
			}
			if m, ok := compare(SubjectPurchase, p.ID, p.PurchaseNumber, p.GrandTotal, credit, DocumentTolerance); ok {
				findings = append(findings, m)
			}
		}

		customers, err := repos.Customers().FindAll(ctx, tenantID)
		if err != nil {
			return err
		}
		for i := range customers {
			c := &customers[i]
			net, err := repos.Entries().SumByParty(ctx, tenantID, ledger.CodeAccountsReceivable, &c.ID, nil)
			if err != nil {
				return err
			}
			derived := c.OpeningBalance.Add(net)
			if m, ok := compare(SubjectCustomer, c.ID, c.Code, c.OutstandingBalance, derived, PartyTolerance); ok {
				findings = append(findings, m)
			}
		}

		suppliers, err := repos.Suppliers().FindAll(ctx, tenantID)
		if err != nil {
			return err
		}
		for i := range suppliers {
			sup := &suppliers[i]
			net, err := repos.Entries().SumByParty(ctx, tenantID, ledger.CodeAccountsPayable, nil, &sup.ID)
			if err != nil {
				return err
			}
			// Payable is a liability: what we owe grows on the credit side.
			derived := sup.OpeningBalance.Sub(net)
			if m, ok := compare(SubjectSupplier, sup.ID, sup.Code, sup.OutstandingBalance, derived, PartyTolerance); ok {
				findings = append(findings, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(findings, func(a, b int) bool {
		return findings[a].Diff.Abs().GreaterThan(findings[b].Diff.Abs())
	})
	if limit > 0 && len(findings) > limit {
		findings = findings[:limit]
	}

	if len(findings) > 0 {
		s.logger.Warn("audit found balance mismatches",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", len(findings)),
		)
	}
	return findings, nil
}

func compare(kind SubjectKind, id uuid.UUID, reference string, stored, derived, tolerance decimal.Decimal) (Mismatch, bool) {
	diff := stored.Sub(derived)
	if diff.Abs().LessThanOrEqual(tolerance) {
		return Mismatch{}, false
	}
	return Mismatch{
		Kind:      kind,
		SubjectID: id,
		Reference: reference,
		Stored:    stored,
		Derived:   derived,
		Diff:      diff,
		Tolerance: tolerance,
	}, true
}

// PurchaseDetail returns the line-by-line ledger view behind one
// purchase document's stored-versus-derived comparison
func (s *AuditService) PurchaseDetail(ctx context.Context, tenantID, purchaseID uuid.UUID) (*Breakdown, error) {
	var out *Breakdown
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		p, err := repos.Purchases().FindByID(ctx, tenantID, purchaseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("purchase %s not found", purchaseID)
			}
			return err
		}
		entries, err := repos.Entries().FindByReference(ctx, tenantID, ledger.ReferencePurchase, purchaseID)
		if err != nil {
			return err
		}
		_, credit := ledger.SumSides(entries)
		out = &Breakdown{
			Kind:      SubjectPurchase,
			SubjectID: p.ID,
			Reference: p.PurchaseNumber,
			Stored:    p.GrandTotal,
			Derived:   credit,
			Diff:      p.GrandTotal.Sub(credit),
			Lines:     toLines(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CustomerDetail returns the receivable ledger lines behind one
// customer's outstanding balance
func (s *AuditService) CustomerDetail(ctx context.Context, tenantID, customerID uuid.UUID) (*Breakdown, error) {
	var out *Breakdown
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		c, err := repos.Customers().FindByID(ctx, tenantID, customerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("customer %s not found", customerID)
			}
			return err
		}
		entries, err := repos.Entries().FindByParty(ctx, tenantID, ledger.CodeAccountsReceivable, &customerID, nil)
		if err != nil {
			return err
		}
		debit, credit := ledger.SumSides(entries)
		derived := c.OpeningBalance.Add(debit).Sub(credit)
		out = &Breakdown{
			Kind:      SubjectCustomer,
			SubjectID: c.ID,
			Reference: c.Code,
			Stored:    c.OutstandingBalance,
			Derived:   derived,
			Diff:      c.OutstandingBalance.Sub(derived),
			Lines:     toLines(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SupplierDetail returns the payable ledger lines behind one supplier's
// outstanding balance
func (s *AuditService) SupplierDetail(ctx context.Context, tenantID, supplierID uuid.UUID) (*Breakdown, error) {
	var out *Breakdown
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		sup, err := repos.Suppliers().FindByID(ctx, tenantID, supplierID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("supplier %s not found", supplierID)
			}
			return err
		}
		entries, err := repos.Entries().FindByParty(ctx, tenantID, ledger.CodeAccountsPayable, nil, &supplierID)
		if err != nil {
			return err
		}
		debit, credit := ledger.SumSides(entries)
		derived := sup.OpeningBalance.Add(credit).Sub(debit)
		out = &Breakdown{
			Kind:      SubjectSupplier,
			SubjectID: sup.ID,
			Reference: sup.Code,
			Stored:    sup.OutstandingBalance,
			Derived:   derived,
			Diff:      sup.OutstandingBalance.Sub(derived),
			Lines:     toLines(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toLines(entries []ledger.LedgerEntry) []EntryLine {
	lines := make([]EntryLine, 0, len(entries))
	for i := range entries {
		lines = append(lines, EntryLine{
			AccountCode: entries[i].AccountCode,
			Debit:       entries[i].Debit,
			Credit:      entries[i].Credit,
			Narration:   entries[i].Narration,
			IsReversal:  entries[i].IsReversal,
		})
	}
	return lines
}
