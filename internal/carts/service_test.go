package carts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*AbandonedCart
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{carts: make(map[uuid.UUID]*AbandonedCart)}
}

func (f *fakeRepository) Create(ctx context.Context, cart *AbandonedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// One row per hold, conflicts ignored like the real upsert
	for _, existing := range f.carts {
		if existing.HoldID == cart.HoldID {
			return nil
		}
	}
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	copied := *cart
	f.carts[cart.ID] = &copied
	return nil
}

func (f *fakeRepository) Upsert(ctx context.Context, cart *AbandonedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.carts {
		if existing.HoldID == cart.HoldID {
			existing.CustomerName = cart.CustomerName
			existing.CustomerEmail = cart.CustomerEmail
			existing.Quantity = cart.Quantity
			existing.UnitLabels = cart.UnitLabels
			existing.Amount = cart.Amount
			existing.AbandonedAt = cart.AbandonedAt
			return nil
		}
	}
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	copied := *cart
	f.carts[cart.ID] = &copied
	return nil
}

func (f *fakeRepository) MarkRecovered(ctx context.Context, sessionID string, showID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var count int64
	for _, cart := range f.carts {
		if cart.SessionID == sessionID && cart.ShowID == showID && !cart.Recovered {
			cart.Recovered = true
			cart.RecoveredAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) List(ctx context.Context, filter ListFilter) ([]AbandonedCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AbandonedCart
	for _, cart := range f.carts {
		if filter.ShowID != nil && cart.ShowID != *filter.ShowID {
			continue
		}
		if filter.Since != nil && cart.AbandonedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, *cart)
	}
	return out, nil
}

func (f *fakeRepository) Summary(ctx context.Context, since time.Time) (*SummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := &SummaryRow{}
	for _, cart := range f.carts {
		if cart.AbandonedAt.Before(since) {
			continue
		}
		row.Total++
		if cart.Recovered {
			row.Recovered++
		} else {
			row.LostUnits += int64(cart.Quantity)
			row.LostAmount += cart.Amount
		}
	}
	if row.Total > 0 {
		row.RecoveryRate = float64(row.Recovered) / float64(row.Total)
	}
	return row, nil
}

func abandonedCart(sessionID string, showID uuid.UUID) *AbandonedCart {
	return &AbandonedCart{
		HoldID:      uuid.New(),
		SessionID:   sessionID,
		ShowID:      showID,
		Mode:        "SEATED",
		Quantity:    2,
		UnitLabels:  []string{"A-1", "A-2"},
		Amount:      1500,
		AbandonedAt: time.Now(),
	}
}

func TestRecordAbandonment(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	showID := uuid.New()

	t.Run("fills abandonment time when missing", func(t *testing.T) {
		cart := abandonedCart("session-0001", showID)
		cart.AbandonedAt = time.Time{}
		require.NoError(t, svc.RecordAbandonment(context.Background(), cart))
		assert.False(t, cart.AbandonedAt.IsZero())
	})

	t.Run("duplicate hold is ignored", func(t *testing.T) {
		cart := abandonedCart("session-0002", showID)
		require.NoError(t, svc.RecordAbandonment(context.Background(), cart))
		require.NoError(t, svc.RecordAbandonment(context.Background(), cart))

		report, err := svc.GetReport(context.Background(), showID.String(), 0, 50, 0)
		require.NoError(t, err)
		sessions := 0
		for _, c := range report {
			if c.SessionID == "session-0002" {
				sessions++
			}
		}
		assert.Equal(t, 1, sessions)
	})
}

func TestRecordCheckout(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	showID := uuid.New()

	cart := abandonedCart("session-0001", showID)
	cart.CustomerEmail = "first@example.com"
	require.NoError(t, svc.RecordCheckout(context.Background(), cart))

	// Re-entering checkout on the same hold refreshes the last-seen contact
	update := *cart
	update.CustomerEmail = "second@example.com"
	require.NoError(t, svc.RecordCheckout(context.Background(), &update))

	report, err := svc.GetReport(context.Background(), showID.String(), 0, 50, 0)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "second@example.com", report[0].CustomerEmail)
}

func TestMarkRecovered(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	showID := uuid.New()

	require.NoError(t, svc.RecordAbandonment(context.Background(), abandonedCart("session-0001", showID)))
	require.NoError(t, svc.RecordAbandonment(context.Background(), abandonedCart("session-0001", showID)))
	require.NoError(t, svc.RecordAbandonment(context.Background(), abandonedCart("session-0002", showID)))

	require.NoError(t, svc.MarkRecovered(context.Background(), "session-0001", showID))

	summary, err := svc.GetSummary(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(2), summary.Recovered)
	assert.Equal(t, int64(2), summary.LostUnits)
	assert.Equal(t, 1500.0, summary.LostAmount)
	assert.InDelta(t, 2.0/3.0, summary.RecoveryRate, 0.001)
}

func TestGetReportValidation(t *testing.T) {
	svc := NewService(newFakeRepository())
	_, err := svc.GetReport(context.Background(), "not-a-uuid", 0, 50, 0)
	assert.Error(t, err)
}
