package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier constants
const (
	TierFree = "free"
	TierPro  = "pro"
)

// CreditAccount tracks the metering balance for one user. Balances never go
// negative; all mutations go through the ledger's conditional updates.
type CreditAccount struct {
	UserEmail           string     `json:"user_email"`
	Tier                string     `json:"tier"`
	CreditsRemaining    int        `json:"credits_remaining"`
	CreditsTotal        int        `json:"credits_total"`
	SubscriptionExpires *time.Time `json:"subscription_expires"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsPro returns true if the account is on an unexpired pro subscription.
func (a *CreditAccount) IsPro() bool {
	if a.Tier != TierPro {
		return false
	}
	return a.SubscriptionExpires == nil || a.SubscriptionExpires.After(time.Now())
}

// CanAfford returns true if the balance covers n credits.
func (a *CreditAccount) CanAfford(n int) bool {
	return a.CreditsRemaining >= n
}

// CreditTransaction is one audit-trail entry for a balance mutation.
// Delta is negative for deductions and positive for grants.
type CreditTransaction struct {
	ID        uuid.UUID `json:"id"`
	UserEmail string    `json:"user_email"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
