package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/finledger/backend/internal/domain/shared"
)

// DefaultMaxRetries bounds retry-induced latency; there is no
// engine-owned timeout beyond this budget.
const DefaultMaxRetries = 3

// RunWithRetry executes fn as one atomic unit through the scope and
// retries the WHOLE unit from scratch when it fails on a transient write
// conflict. No partial effects are visible between attempts. Any other
// error aborts immediately. When the budget is exhausted the last
// conflict is wrapped in a typed RETRY_EXHAUSTED error.
func RunWithRetry(ctx context.Context, scope TransactionScope, maxRetries int, fn func(repos TxRepositories) error) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = scope.Execute(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, shared.ErrConcurrencyConflict) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %s", shared.ErrRetryExhausted, lastErr.Error())
}
