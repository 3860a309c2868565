package domain

import "time"

// Account is the per-user record gating session access and accumulating
// reward totals. Accounts are provisioned externally; the session core only
// mutates the activity flag and the reward counters.
type Account struct {
	ID                     string
	Paid                   bool
	Admin                  bool
	HasActiveSession       bool
	Points                 int
	TotalSessionsCompleted int
	TotalActiveMinutes     int
	PaidAt                 *time.Time
	PaymentReference       *string
	CreatedAt              time.Time
}

// MarkPaid flips the payment gate once a charge is confirmed. Returns false
// when the account was already paid, keeping webhook retries idempotent.
func (a *Account) MarkPaid(at time.Time, reference string) bool {
	if a.Paid {
		return false
	}
	paidAt := at
	a.Paid = true
	a.PaidAt = &paidAt
	if reference != "" {
		ref := reference
		a.PaymentReference = &ref
	}
	return true
}
