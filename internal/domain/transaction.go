/**
 * @description
 * This file defines the core domain models for the fraud-service: the persisted
 * transaction record, the queue message exchanged between the ingestion gateway
 * and the consumer, and the inbound submission DTO.
 *
 * @notes
 * - Amounts are carried as `int64` values in the smallest currency unit (cents),
 *   which avoids floating-point inaccuracies with financial data and keeps the
 *   high-value threshold comparison exact.
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transaction represents one persisted money movement under fraud review.
// This struct maps directly to the `transactions` table in the database.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	SenderID    string    `json:"sender_id"`
	ReceiverID  string    `json:"receiver_id"`
	AmountMinor int64     `json:"amount_minor"` // in cents
	FraudFlag   bool      `json:"fraud_flag"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionMessage is the queue payload produced by the ingestion gateway and
// consumed by the fraud consumer. It deliberately carries only the submitted
// fields; the id and timestamp are assigned by the store at insert time.
type TransactionMessage struct {
	SenderID    string `json:"sender_id"`
	ReceiverID  string `json:"receiver_id"`
	AmountMinor int64  `json:"amount_minor"` // in cents
}

// SubmitTransactionRequest is the DTO for incoming transaction submissions.
type SubmitTransactionRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Amount     Amount `json:"amount"`
}

// Amount accepts either a JSON number or a numeric string on the wire, as
// clients are inconsistent about how they encode monetary values.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// ErrInvalidAmount is returned when a submitted amount cannot be represented
// as a non-negative decimal with at most two fractional digits.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmountMinor converts a decimal string such as "10000.01" into minor
// currency units (cents). Negative values, malformed input and more than two
// decimal places are rejected.
func ParseAmountMinor(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	if s[0] == '+' {
		s = s[1:]
	}
	if s == "" || s[0] == '-' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: more than two decimal places in %q", ErrInvalidAmount, raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	cents, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, raw)
	}
	return int64(units*100 + cents), nil
}

// FormatAmountMinor renders minor units back as a decimal string, e.g.
// 1000001 -> "10000.01". Used for logs and human-facing responses.
func FormatAmountMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// AmountFloat returns the amount in whole currency units as the scoring model
// expects it.
func (t *Transaction) AmountFloat() float64 {
	return float64(t.AmountMinor) / 100
}
