package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/paysentry/fraud-service/internal/domain"
	"github.com/paysentry/fraud-service/internal/store"
)

// ScoringEngine is the inference dependency of the consumer. *scoring.Engine
// satisfies it.
type ScoringEngine interface {
	Score(features []float64) (int64, error)
}

// FraudConsumer turns each queue delivery into a durable transaction row,
// scores it, and flags it when the model or the static high-value rule says
// so. Many instances may run concurrently against the same queue and store.
type FraudConsumer struct {
	repo           store.Repository
	engine         ScoringEngine
	thresholdMinor int64
	logger         *slog.Logger
}

func NewFraudConsumer(repo store.Repository, engine ScoringEngine, thresholdMinor int64, logger *slog.Logger) *FraudConsumer {
	return &FraudConsumer{
		repo:           repo,
		engine:         engine,
		thresholdMinor: thresholdMinor,
		logger:         logger,
	}
}

// HandleMessage processes one delivery. Returning true acknowledges the
// message; false re-queues it for redelivery (at-least-once).
func (c *FraudConsumer) HandleMessage(body []byte) bool {
	var msg domain.TransactionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// A malformed payload can never become well-formed; drop it.
		c.logger.Warn("discarding malformed transaction message", "error", err)
		return true
	}
	if msg.SenderID == "" || msg.ReceiverID == "" || msg.AmountMinor < 0 {
		c.logger.Warn("discarding invalid transaction message",
			"sender_id", msg.SenderID, "receiver_id", msg.ReceiverID, "amount_minor", msg.AmountMinor)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tx := &domain.Transaction{
		SenderID:    msg.SenderID,
		ReceiverID:  msg.ReceiverID,
		AmountMinor: msg.AmountMinor,
	}
	if err := c.repo.InsertTransaction(ctx, tx); err != nil {
		// Not acknowledged: redelivery retries the whole message. Duplicate
		// rows from a crash between insert and ack are the accepted cost of
		// at-least-once delivery.
		c.logger.Error("transaction insert failed; message will be redelivered",
			"sender_id", msg.SenderID, "error", err)
		return false
	}
	c.logger.Info("transaction persisted",
		"transaction_id", tx.ID,
		"sender_id", tx.SenderID,
		"amount", domain.FormatAmountMinor(tx.AmountMinor),
	)

	// The row is committed; nothing past this point may un-ack the message.
	modelFraud := false
	score, err := c.engine.Score(featureVector(tx))
	if err != nil {
		c.logger.Warn("scoring unavailable; leaving transaction unflagged",
			"transaction_id", tx.ID, "error", err)
	} else if score > 0 {
		// The model emits a class label; any nonzero class means fraud.
		modelFraud = true
	}

	highValue := tx.AmountMinor > c.thresholdMinor
	if !modelFraud && !highValue {
		return true
	}

	c.logger.Warn("fraudulent transaction detected",
		"transaction_id", tx.ID,
		"sender_id", tx.SenderID,
		"amount", domain.FormatAmountMinor(tx.AmountMinor),
		"model_fraud", modelFraud,
		"high_value", highValue,
	)

	updated, err := c.repo.FlagTransaction(ctx, tx.ID)
	if err != nil {
		// The row exists and is re-checked by the sweeper; flag failure must
		// not trigger a redelivery that would duplicate the insert.
		c.logger.Error("flag update failed", "transaction_id", tx.ID, "error", err)
		return true
	}
	if !updated {
		c.logger.Warn("flag update touched no rows", "transaction_id", tx.ID)
	}
	return true
}

// featureVector assembles the model input from the committed row:
// [amount, timestamp_millis].
func featureVector(tx *domain.Transaction) []float64 {
	return []float64{tx.AmountFloat(), float64(tx.CreatedAt.UnixMilli())}
}
