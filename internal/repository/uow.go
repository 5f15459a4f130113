package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRepos bundles the repositories participating in a single transaction.
type TxRepos struct {
	Posts       PostRepository
	Tracks      TrackRepository
	PoolEntries PoolEntryRepository
	Exchanges   ExchangeRepository
}

// UnitOfWork runs a multi-step mutation atomically. Every step inside fn
// commits together or rolls back together; partial application is never
// observable. The matching engine receives this as an injected dependency
// rather than holding a database handle itself.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(r TxRepos) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a UnitOfWork backed by GORM transactions.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(r TxRepos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(TxRepos{
			Posts:       NewPostRepository(tx),
			Tracks:      NewTrackRepository(tx),
			PoolEntries: NewPoolEntryRepository(tx),
			Exchanges:   NewExchangeRepository(tx),
		})
	})
}
