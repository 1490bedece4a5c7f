package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "nil passes through",
			in:   nil,
			want: nil,
		},
		{
			name: "record not found maps to domain not found",
			in:   gorm.ErrRecordNotFound,
			want: shared.ErrNotFound,
		},
		{
			name: "serialization failure becomes the retryable conflict",
			in:   &pgconn.PgError{Code: "40001", Message: "could not serialize access"},
			want: shared.ErrConcurrencyConflict,
		},
		{
			name: "deadlock becomes the retryable conflict",
			in:   &pgconn.PgError{Code: "40P01", Message: "deadlock detected"},
			want: shared.ErrConcurrencyConflict,
		},
		{
			name: "unique violation becomes a conflict",
			in:   &pgconn.PgError{Code: "23505", ConstraintName: "idx_accounts_tenant_code"},
			want: shared.ErrConflict,
		},
		{
			name: "check violation becomes a conflict",
			in:   &pgconn.PgError{Code: "23514", ConstraintName: "chk_ledger_entries_single_side"},
			want: shared.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("wrapped driver errors are still translated", func(t *testing.T) {
		wrapped := fmt.Errorf("save customer: %w", &pgconn.PgError{Code: "40001"})
		assert.ErrorIs(t, translateError(wrapped), shared.ErrConcurrencyConflict)
	})

	t.Run("constraint name is carried into the conflict message", func(t *testing.T) {
		err := translateError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_purchases_tenant_number"})
		assert.Contains(t, err.Error(), "idx_purchases_tenant_number")
	})

	t.Run("unrecognized errors pass through untouched", func(t *testing.T) {
		cause := errors.New("connection refused")
		assert.Same(t, cause, translateError(cause))
	})
}
