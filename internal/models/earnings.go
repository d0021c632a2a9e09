package models

import "time"

// Earnings entry statuses. An entry is created as pending when the tutor
// accepts and settled exactly once when the session completes.
const (
	EarningsPending = "pending"
	EarningsSettled = "settled"
)

// EarningsEntry is one ledger line crediting a tutor for a session. At most
// one entry exists per session, enforced by a uniqueness constraint.
type EarningsEntry struct {
	ID          int64      `json:"id"`
	SessionID   int64      `json:"session_id"`
	TutorID     int64      `json:"tutor_id"`
	GrossTokens int64      `json:"gross_tokens"`
	NetTokens   int64      `json:"net_tokens"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}

// EarningsSummary aggregates a tutor's settled earnings over a date range.
type EarningsSummary struct {
	TotalNetTokens int64     `json:"total_net_tokens"`
	SessionsCount  int64     `json:"sessions_count"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}
