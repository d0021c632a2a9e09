package models

import "time"

// Payment intent statuses. An intent is finalized exactly once; a transition
// into Completed is terminal.
const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
	PaymentFailed    = "Failed"
)

// PaymentIntent is a single token-package prepayment attempt, keyed by the
// provider-issued transaction id.
type PaymentIntent struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	PackageID     int64     `json:"package_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	ProviderRef   *string   `json:"provider_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Package is a purchasable token bundle.
type Package struct {
	ID      int64  `json:"id"`
	Credits int64  `json:"credits"`
	Price   int64  `json:"price"`
	Offer   string `json:"offer"`
}
