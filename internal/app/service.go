/**
 * @description
 * This file contains the ingestion side of the fraud pipeline. The service
 * validates a submitted transaction, serializes it into a queue message, and
 * publishes it to the durable transaction exchange. Persistence happens
 * downstream in the consumer; the ingestion path never writes to the store, so
 * there is exactly one write path for transaction rows.
 *
 * @dependencies
 * - internal/domain: Request and message models.
 * - pkg/rabbitmq: The Publisher used to enqueue messages.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paysentry/fraud-service/internal/domain"
	"github.com/paysentry/fraud-service/pkg/rabbitmq"
)

var (
	// ErrValidation marks caller mistakes: absent body, missing fields, or an
	// unparseable amount. Not retryable.
	ErrValidation = errors.New("invalid transaction submission")

	// ErrPublishUnavailable marks a failed enqueue. The caller may retry.
	ErrPublishUnavailable = errors.New("transaction queue unavailable")
)

// RateLimiter is the optional distributed limiter applied to submissions.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service implements the ingestion gateway.
type Service struct {
	producer   rabbitmq.Publisher
	exchange   string
	routingKey string
	logger     *slog.Logger

	limiter     RateLimiter
	limitPerMin int
}

// NewService creates the ingestion service.
func NewService(producer rabbitmq.Publisher, exchange, routingKey string, logger *slog.Logger) *Service {
	return &Service{
		producer:   producer,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

// SetRateLimiter enables distributed submission rate limiting. A nil limiter
// or non-positive limit leaves submissions unthrottled.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.limitPerMin = perMinute
}

// AllowSubmission consults the rate limiter for the given client key. The
// limiter fails open: if redis is unreachable the submission proceeds.
func (s *Service) AllowSubmission(ctx context.Context, clientKey string) (allowed bool, retryAfterSeconds int) {
	if s.limiter == nil || s.limitPerMin <= 0 {
		return true, 0
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "ingest", clientKey, s.limitPerMin, time.Minute)
	if err != nil {
		s.logger.Warn("rate limiter unavailable; allowing submission", "client", clientKey, "error", err)
		return true, 0
	}
	if count > s.limitPerMin {
		return false, retryAfter
	}
	return true, 0
}

// SubmitTransaction validates the request and enqueues a transaction message.
// It returns the enqueued message so callers can echo the accepted values.
func (s *Service) SubmitTransaction(ctx context.Context, req domain.SubmitTransactionRequest) (*domain.TransactionMessage, error) {
	senderID := strings.TrimSpace(req.SenderID)
	receiverID := strings.TrimSpace(req.ReceiverID)
	if senderID == "" {
		return nil, fmt.Errorf("%w: sender_id is required", ErrValidation)
	}
	if receiverID == "" {
		return nil, fmt.Errorf("%w: receiver_id is required", ErrValidation)
	}
	if strings.TrimSpace(string(req.Amount)) == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrValidation)
	}

	amountMinor, err := domain.ParseAmountMinor(string(req.Amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msg := &domain.TransactionMessage{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		AmountMinor: amountMinor,
	}

	if err := s.producer.Publish(ctx, s.exchange, s.routingKey, msg); err != nil {
		s.logger.Error("transaction enqueue failed", "sender_id", senderID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPublishUnavailable, err)
	}

	s.logger.Info("transaction queued for processing",
		"sender_id", senderID,
		"receiver_id", receiverID,
		"amount", domain.FormatAmountMinor(amountMinor),
	)
	return msg, nil
}
