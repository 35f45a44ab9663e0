package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"unifit/internal/models"
)

const accountColumns = `user_email, tier, credits_remaining, credits_total,
	subscription_expires, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.CreditAccount, error) {
	var account models.CreditAccount
	err := row.Scan(
		&account.UserEmail,
		&account.Tier,
		&account.CreditsRemaining,
		&account.CreditsTotal,
		&account.SubscriptionExpires,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetOrCreateAccount retrieves a user's credit account, creating a free-tier
// account with the given starting balance on first touch.
func (d *DB) GetOrCreateAccount(ctx context.Context, userEmail string, freeCredits int) (*models.CreditAccount, error) {
	query := `
		INSERT INTO credit_accounts (user_email, tier, credits_remaining, credits_total)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_email) DO UPDATE SET user_email = EXCLUDED.user_email
		RETURNING ` + accountColumns
	return scanAccount(d.Pool.QueryRow(ctx, query, userEmail, models.TierFree, freeCredits))
}

// GetAccount retrieves a user's credit account.
func (d *DB) GetAccount(ctx context.Context, userEmail string) (*models.CreditAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM credit_accounts WHERE user_email = $1`
	return scanAccount(d.Pool.QueryRow(ctx, query, userEmail))
}

// DeductCredits atomically removes n credits from an account and records the
// transaction. The conditional update is the non-negativity guarantee: if the
// balance cannot cover n, zero rows match and ErrInsufficientCredits is
// returned with nothing written.
func (d *DB) DeductCredits(ctx context.Context, userEmail string, n int, reason string) (int, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var remaining int
	err = tx.QueryRow(ctx, `
		UPDATE credit_accounts
		SET credits_remaining = credits_remaining - $2, updated_at = NOW()
		WHERE user_email = $1 AND credits_remaining >= $2
		RETURNING credits_remaining
	`, userEmail, n).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credit_transactions (user_email, delta, reason)
		VALUES ($1, $2, $3)
	`, userEmail, -n, reason)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}

// AddCredits atomically grants n credits and records the transaction.
func (d *DB) AddCredits(ctx context.Context, userEmail string, n int, source string) (int, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var remaining int
	err = tx.QueryRow(ctx, `
		UPDATE credit_accounts
		SET credits_remaining = credits_remaining + $2,
			credits_total = credits_total + $2,
			updated_at = NOW()
		WHERE user_email = $1
		RETURNING credits_remaining
	`, userEmail, n).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credit_transactions (user_email, delta, reason)
		VALUES ($1, $2, $3)
	`, userEmail, n, source)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}

// UpgradeTier moves an account to the given tier with an optional expiry.
func (d *DB) UpgradeTier(ctx context.Context, userEmail, tier string, expires *time.Time) error {
	result, err := d.Pool.Exec(ctx, `
		UPDATE credit_accounts
		SET tier = $2, subscription_expires = $3, updated_at = NOW()
		WHERE user_email = $1
	`, userEmail, tier, expires)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListTransactions returns a user's most recent credit transactions.
func (d *DB) ListTransactions(ctx context.Context, userEmail string, limit int) ([]models.CreditTransaction, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, user_email, delta, reason, created_at
		FROM credit_transactions
		WHERE user_email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.CreditTransaction
	for rows.Next() {
		var txn models.CreditTransaction
		if err := rows.Scan(&txn.ID, &txn.UserEmail, &txn.Delta, &txn.Reason, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
