/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed by the fraud pipeline: the insert
 * performed by the consumer, the id-based flag update shared by the consumer
 * and the sweeper, and the sweep-window query.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paysentry/fraud-service/internal/domain"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// PostgresRepository is a concrete implementation of the Repository interface
// for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertTransaction creates a transaction row and captures the generated id
// and store-assigned timestamp. The id is the only safe handle for the later
// flag update: matching on (sender, receiver, amount) can hit zero or many
// historical rows.
func (r *PostgresRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (sender_id, receiver_id, amount_minor, fraud_flag)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, tx.SenderID, tx.ReceiverID, tx.AmountMinor).
		Scan(&tx.ID, &tx.CreatedAt)
}

// FlagTransaction flips fraud_flag from false to true for the given id. The
// WHERE clause keeps the update monotone, so redundant flagging from the
// consumer/sweeper race is a no-op rather than a rewrite.
func (r *PostgresRepository) FlagTransaction(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE transactions
		SET fraud_flag = TRUE
		WHERE id = $1 AND fraud_flag = FALSE
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindUnflaggedSince returns the sweep-window candidates: unflagged rows whose
// insert committed at or after the given instant.
func (r *PostgresRepository) FindUnflaggedSince(ctx context.Context, since time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT id, sender_id, receiver_id, amount_minor, fraud_flag, created_at
		FROM transactions
		WHERE fraud_flag = FALSE AND created_at >= $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.SenderID, &tx.ReceiverID, &tx.AmountMinor, &tx.FraudFlag, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// FindTransactionByID retrieves a single transaction by its primary key.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `
		SELECT id, sender_id, receiver_id, amount_minor, fraud_flag, created_at
		FROM transactions
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&tx.ID, &tx.SenderID, &tx.ReceiverID, &tx.AmountMinor, &tx.FraudFlag, &tx.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}
