package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/database"
)

// NewRepositories binds every repository to db, which may be a pool or a
// transaction.
func NewRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
		Images:     NewImageRepository(db),
		Reviews:    NewReviewRepository(db),
	}
}

// UnitOfWork implements repository.UnitOfWork on top of database.WithTx.
type UnitOfWork struct {
	pool database.DBTX
}

// NewUnitOfWork creates a unit of work that begins transactions on pool.
func NewUnitOfWork(pool database.DBTX) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx runs fn with repositories bound to a new transaction.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return database.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}
