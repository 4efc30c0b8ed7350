/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the fraud-service. By defining an
 * interface, we decouple the pipeline's business logic from the specific
 * database implementation (PostgreSQL), making the code easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For transaction identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paysentry/fraud-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// InsertTransaction persists a new transaction with fraud_flag = false and
	// a store-assigned timestamp. The generated id and timestamp are written
	// back into tx.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// FlagTransaction sets fraud_flag = true for the row with the given id.
	// The update is monotone: a row that is already flagged is left untouched.
	// The boolean result reports whether a row was actually updated.
	FlagTransaction(ctx context.Context, id uuid.UUID) (bool, error)

	// FindUnflaggedSince returns all unflagged transactions inserted at or
	// after the given instant, ordered oldest first.
	FindUnflaggedSince(ctx context.Context, since time.Time) ([]domain.Transaction, error)

	// FindTransactionByID looks up a single transaction.
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}
