package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ledger is the payment collaborator the scheduler triggers on booking with
// payment intent. It owns the paid status: the payment row and the advisory
// is_paid cache on the appointment flip together or not at all.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) RecordPayment(ctx context.Context, tenantID, appointmentID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("payment amount must be positive, got %s", amount)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, appointment_id, amount, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, uuid.New(), tenantID, appointmentID, amount)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET is_paid = true, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, appointmentID)
	if err != nil {
		return fmt.Errorf("mark appointment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s not found for payment", appointmentID)
	}

	return tx.Commit(ctx)
}
