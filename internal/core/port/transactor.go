package port

import "context"

// Stores bundles the repositories visible inside one store transaction. Every
// read and write performed through a Stores handle belongs to the same atomic
// unit.
type Stores struct {
	Sessions SessionRepository
	Accounts AccountRepository
	Audit    AuditRepository
}

// Transactor executes fn inside a serializable transaction against the
// backing store. The implementation retries fn a bounded number of times when
// the store reports a write conflict, so fn must be safe to re-run from
// scratch; once retries are exhausted the conflict surfaces as
// repository.ErrSerializationFailure. Any other error returned by fn aborts
// the transaction and is passed through unchanged.
type Transactor interface {
	RunSerializable(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
