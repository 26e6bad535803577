package postgres

import (
	"github.com/kozaktomas/face-attend/internal/database"
)

// Store bundles all PostgreSQL repositories behind database.Store.
type Store struct {
	*Ledger
	*IdentityRepository
	*SubjectRepository
	*QueryRepository
}

var _ database.Store = (*Store)(nil)

// NewStore creates the aggregate store over one connection pool.
func NewStore(pool *Pool) *Store {
	return &Store{
		Ledger:             NewLedger(pool),
		IdentityRepository: NewIdentityRepository(pool),
		SubjectRepository:  NewSubjectRepository(pool),
		QueryRepository:    NewQueryRepository(pool),
	}
}
