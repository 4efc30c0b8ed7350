package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paysentry/fraud-service/internal/domain"
	"github.com/paysentry/fraud-service/internal/store"
)

type sweeperRepoStub struct {
	store.Repository

	rows    []domain.Transaction
	findErr error
	flagErr error

	findCalls int
	flagged   []uuid.UUID
}

func (s *sweeperRepoStub) FindUnflaggedSince(ctx context.Context, since time.Time) ([]domain.Transaction, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	// Mimic the store: already-flagged rows are no longer candidates.
	var out []domain.Transaction
	for _, tx := range s.rows {
		if !tx.FraudFlag {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *sweeperRepoStub) FlagTransaction(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.flagErr != nil {
		return false, s.flagErr
	}
	for i := range s.rows {
		if s.rows[i].ID == id && !s.rows[i].FraudFlag {
			s.rows[i].FraudFlag = true
			s.flagged = append(s.flagged, id)
			return true, nil
		}
	}
	return false, nil
}

func unflaggedRow(amountMinor int64) domain.Transaction {
	return domain.Transaction{
		ID:          uuid.New(),
		SenderID:    "A1",
		ReceiverID:  "B2",
		AmountMinor: amountMinor,
		CreatedAt:   time.Now(),
	}
}

func newTestSweeper(repo *sweeperRepoStub) *Sweeper {
	return NewSweeper(repo, discardLogger(), "@every 5s", 5*time.Second, testThresholdMinor)
}

func TestRunSweep_FlagsHighValueRowsByID(t *testing.T) {
	high := unflaggedRow(2000000)    // 20000.00
	atLimit := unflaggedRow(1000000) // exactly 10000.00
	low := unflaggedRow(50000)

	repo := &sweeperRepoStub{rows: []domain.Transaction{high, atLimit, low}}
	sweeper := newTestSweeper(repo)

	sweeper.RunSweep()

	if len(repo.flagged) != 1 {
		t.Fatalf("expected one flagged row, got %d", len(repo.flagged))
	}
	if repo.flagged[0] != high.ID {
		t.Fatal("sweep must flag by the id returned from the window query")
	}
}

func TestRunSweep_SecondCycleIsIdempotent(t *testing.T) {
	repo := &sweeperRepoStub{rows: []domain.Transaction{unflaggedRow(2000000)}}
	sweeper := newTestSweeper(repo)

	sweeper.RunSweep()
	sweeper.RunSweep()

	if len(repo.flagged) != 1 {
		t.Fatalf("expected the second cycle to leave the flag untouched, got %d updates", len(repo.flagged))
	}
	if !repo.rows[0].FraudFlag {
		t.Fatal("flag must remain true after repeated sweeps")
	}
}

func TestRunSweep_QueryErrorAbortsCycleOnly(t *testing.T) {
	repo := &sweeperRepoStub{findErr: errors.New("connection refused")}
	sweeper := newTestSweeper(repo)

	sweeper.RunSweep()
	if len(repo.flagged) != 0 {
		t.Fatal("a failed query must not flag anything")
	}

	// The next cycle proceeds independently once the store recovers.
	repo.findErr = nil
	repo.rows = []domain.Transaction{unflaggedRow(2000000)}
	sweeper.RunSweep()
	if len(repo.flagged) != 1 {
		t.Fatal("the cycle after a failure must run normally")
	}
	if repo.findCalls != 2 {
		t.Fatalf("expected two query attempts, got %d", repo.findCalls)
	}
}

func TestRunSweep_FlagErrorAbortsCycle(t *testing.T) {
	repo := &sweeperRepoStub{
		rows:    []domain.Transaction{unflaggedRow(2000000), unflaggedRow(3000000)},
		flagErr: errors.New("connection reset"),
	}
	sweeper := newTestSweeper(repo)

	sweeper.RunSweep()
	if len(repo.flagged) != 0 {
		t.Fatal("a failed update must abort the cycle without partial bookkeeping")
	}
}
