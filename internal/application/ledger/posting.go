package ledger

import (
	"context"

	"github.com/finledger/backend/internal/application/orchestrator"
	domainledger "github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostingEngine turns business events into balanced ledger entries. It
// is always called from inside a unit of work and writes through the
// transactional repositories it is handed.
type PostingEngine struct {
	registry *AccountRegistry
	logger   *zap.Logger
}

// NewPostingEngine creates a new PostingEngine
func NewPostingEngine(registry *AccountRegistry, logger *zap.Logger) *PostingEngine {
	return &PostingEngine{registry: registry, logger: logger}
}

// Post expands the event into its recipe, resolves the accounts lazily,
// verifies the set balances, and inserts the entries. An unbalanced set
// is an integrity fault: the unit of work aborts and the fault is
// propagated, never masked.
func (e *PostingEngine) Post(ctx context.Context, repos orchestrator.TxRepositories, event *domainledger.PostingEvent) ([]domainledger.LedgerEntry, error) {
	legs, err := event.Legs()
	if err != nil {
		return nil, err
	}

	entries := make([]domainledger.LedgerEntry, 0, len(legs))
	for _, leg := range legs {
		account, err := e.registry.ResolveChart(ctx, repos.Accounts(), event.TenantID, leg.AccountCode)
		if err != nil {
			return nil, err
		}
		entry := event.Entry(leg, account.ID)
		if err := entry.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := domainledger.VerifyBalanced(entries); err != nil {
		e.logger.Error("unbalanced posting rejected",
			zap.String("reference_type", event.Type.String()),
			zap.String("reference_id", event.ReferenceID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := repos.Entries().CreateBatch(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReverseReference re-derives the forward entries of one event and posts
// them with debit/credit sides inverted, keeping the compensation under
// the same reference. Prior reversal legs are excluded so a reference
// can only be backed out once per forward posting.
func (e *PostingEngine) ReverseReference(ctx context.Context, repos orchestrator.TxRepositories, tenantID uuid.UUID, refType domainledger.ReferenceType, refID uuid.UUID, narration string) ([]domainledger.LedgerEntry, error) {
	forward, err := repos.Entries().FindByReference(ctx, tenantID, refType, refID)
	if err != nil {
		return nil, err
	}
	return e.reverse(ctx, repos, forward, refID, narration)
}

// ReversePayment inverts every entry attached to one payment
func (e *PostingEngine) ReversePayment(ctx context.Context, repos orchestrator.TxRepositories, tenantID, paymentID uuid.UUID, narration string) ([]domainledger.LedgerEntry, error) {
	forward, err := repos.Entries().FindByPayment(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	return e.reverse(ctx, repos, forward, paymentID, narration)
}

func (e *PostingEngine) reverse(ctx context.Context, repos orchestrator.TxRepositories, forward []domainledger.LedgerEntry, refID uuid.UUID, narration string) ([]domainledger.LedgerEntry, error) {
	inverted := make([]domainledger.LedgerEntry, 0, len(forward))
	for i := range forward {
		if forward[i].IsReversal {
			return nil, shared.NewConflictError("reference %s has already been reversed", refID)
		}
		inverted = append(inverted, forward[i].Inverted(narration))
	}
	if len(inverted) == 0 {
		return nil, shared.NewConflictError("reference %s has no entries left to reverse", refID)
	}

	if err := domainledger.VerifyBalanced(inverted); err != nil {
		return nil, err
	}
	if err := repos.Entries().CreateBatch(ctx, inverted); err != nil {
		return nil, err
	}
	return inverted, nil
}
