package credits

import "time"

// Balance is a user's current credit balance.
type Balance struct {
	UserID    string    `json:"userId"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event is one entry in the credit ledger.
type Event struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ledger reasons.
const (
	ReasonSignupGrant    = "signup_grant"
	ReasonAnalysisDebit  = "analysis_debit"
	ReasonAnalysisRefund = "analysis_refund"
	ReasonManualGrant    = "manual_grant"
)
