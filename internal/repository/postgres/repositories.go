package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups pool-backed repository implementations for callers
// outside any transaction (read-only paths, provisioning, admin listings).
type Repositories struct {
	Sessions *SessionRepository
	Accounts *AccountRepository
	Audit    *AuditRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Sessions: NewSessionRepository(pool),
		Accounts: NewAccountRepository(pool),
		Audit:    NewAuditRepository(pool),
	}
}
