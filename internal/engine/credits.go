package engine

import (
	"context"
	"time"

	"unifit/internal/models"
)

// CheckCredits reports whether a user's balance covers n credits, creating
// the account on first touch.
func (e *Engine) CheckCredits(ctx context.Context, userEmail string, n int) (*models.CreditCheckResponse, error) {
	account, err := e.ledger.GetOrCreateAccount(ctx, userEmail, e.cfg.FreeCredits)
	if err != nil {
		return nil, err
	}
	return &models.CreditCheckResponse{
		HasCredits:       account.CanAfford(n),
		CreditsRemaining: account.CreditsRemaining,
	}, nil
}

// DeductCredits charges a user directly (the generic metered-operation
// path). Fails with the ledger's insufficient-credits sentinel without any
// partial decrement.
func (e *Engine) DeductCredits(ctx context.Context, userEmail string, n int, reason string) (int, error) {
	if _, err := e.ledger.GetOrCreateAccount(ctx, userEmail, e.cfg.FreeCredits); err != nil {
		return 0, err
	}
	return e.ledger.DeductCredits(ctx, userEmail, n, reason)
}

// AddCredits grants credits from a named source (purchase, promo, refund).
func (e *Engine) AddCredits(ctx context.Context, userEmail string, n int, source string) (int, error) {
	if _, err := e.ledger.GetOrCreateAccount(ctx, userEmail, e.cfg.FreeCredits); err != nil {
		return 0, err
	}
	return e.ledger.AddCredits(ctx, userEmail, n, source)
}

// UpgradeTier moves a user to the given tier until expires.
func (e *Engine) UpgradeTier(ctx context.Context, userEmail, tier string, expires *time.Time) error {
	if _, err := e.ledger.GetOrCreateAccount(ctx, userEmail, e.cfg.FreeCredits); err != nil {
		return err
	}
	return e.ledger.UpgradeTier(ctx, userEmail, tier, expires)
}

// ChargeImageRegeneration meters the sibling infographic-regeneration
// operation through the same ledger. The image generation itself is an
// external collaborator; the engine owns only the charge.
func (e *Engine) ChargeImageRegeneration(ctx context.Context, userEmail string) (int, error) {
	return e.DeductCredits(ctx, userEmail, e.cfg.ImageCreditCost, ReasonImageRegeneration)
}
