package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// Store is the Postgres implementation of the import pipeline's profile
// store.
type Store struct {
	*ProfileRepository
	*EntityRepository
	*SBUAssignmentRepository
}

func NewStore(db *gorm.DB, pool *pgxpool.Pool) *Store {
	return &Store{
		ProfileRepository:       NewProfileRepository(db),
		EntityRepository:        NewEntityRepository(db),
		SBUAssignmentRepository: NewSBUAssignmentRepository(pool),
	}
}
