package holds

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/carts"
	"gatepass/internal/notifications"
	"gatepass/internal/shared/config"
	"gatepass/internal/shows"
	"gatepass/pkg/logger"
)

// BookingExpirer marks pending bookings expired when their hold lapses.
// Implemented by the bookings service; declared here so the sweeper never
// imports the bookings package.
type BookingExpirer interface {
	ExpirePendingByHoldID(ctx context.Context, holdID uuid.UUID) error
}

// Sweeper reclaims expired holds in the background. Each hold is claimed
// with the same conditional update a confirm or release uses, so running
// multiple sweepers (or racing a late confirm) is safe: exactly one winner
// frees the inventory.
type Sweeper struct {
	repo        Repository
	cartService carts.Service
	publisher   notifications.Publisher
	expirer     BookingExpirer

	interval  time.Duration
	batchSize int

	done chan struct{}
	wg   sync.WaitGroup
}

func NewSweeper(repo Repository, cartService carts.Service, publisher notifications.Publisher, cfg *config.HoldConfig) *Sweeper {
	return &Sweeper{
		repo:        repo,
		cartService: cartService,
		publisher:   publisher,
		interval:    cfg.SweepInterval,
		batchSize:   cfg.SweepBatchSize,
		done:        make(chan struct{}),
	}
}

// SetBookingExpirer wires the bookings service in after construction; the
// two packages are built in dependency order at startup.
func (s *Sweeper) SetBookingExpirer(expirer BookingExpirer) {
	s.expirer = expirer
}

// Start launches the sweep loop
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.GetDefault().Info("hold sweeper started",
			"interval", s.interval, "batch_size", s.batchSize)

		for {
			select {
			case <-ticker.C:
				s.SweepOnce(context.Background())
			case <-s.done:
				return
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight sweep to finish
func (s *Sweeper) Stop() {
	close(s.done)
	s.wg.Wait()
	logger.GetDefault().Info("hold sweeper stopped")
}

// SweepOnce reclaims one batch of expired holds and reports how many were
// won. Exported so tests and an admin endpoint can trigger a pass directly.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	expired, err := s.repo.ListExpiredHolds(ctx, time.Now(), s.batchSize)
	if err != nil {
		logger.GetDefault().Error("sweep failed to list expired holds", "error", err)
		return 0
	}

	swept := 0
	for i := range expired {
		if s.sweepHold(ctx, &expired[i]) {
			swept++
		}
	}

	if swept > 0 {
		logger.GetDefault().Info("sweep pass complete", "swept", swept, "candidates", len(expired))
	}
	return swept
}

// sweepHold expires one hold. Returns false if another actor won the claim
// first (late renew, confirm or release), which is not an error.
func (s *Sweeper) sweepHold(ctx context.Context, hold *Hold) bool {
	// Snapshot the held units before freeing them; after ExpireHold the
	// hold_id back-references are gone.
	var unitLabels []string
	if hold.Mode == shows.ModeSeated {
		units, err := s.repo.GetUnitsByHoldID(ctx, hold.ID)
		if err != nil {
			logger.GetDefault().Error("sweep failed to read held units", "hold_id", hold.ID, "error", err)
		}
		for _, u := range units {
			unitLabels = append(unitLabels, u.Label)
		}
	}

	if err := s.repo.ExpireHold(ctx, hold); err != nil {
		if errors.Is(err, ErrHoldExpired) {
			return false
		}
		logger.GetDefault().Error("sweep failed to expire hold", "hold_id", hold.ID, "error", err)
		return false
	}

	if err := s.repo.Atomic().DropMirror(ctx, hold.ID.String()); err != nil {
		logger.GetDefault().Warn("sweep failed to drop hold mirror", "hold_id", hold.ID, "error", err)
	}

	// A pending booking referencing this hold can never confirm now; its
	// payment, if it ever arrives, is handled as a lapsed reservation.
	if s.expirer != nil {
		if err := s.expirer.ExpirePendingByHoldID(ctx, hold.ID); err != nil {
			logger.GetDefault().Error("sweep failed to expire pending booking", "hold_id", hold.ID, "error", err)
		}
	}

	logger.GetDefault().LogHoldExpired(ctx, hold.ID.String(), hold.ShowID.String())
	s.recordAbandonment(ctx, hold, unitLabels)

	return true
}

func (s *Sweeper) recordAbandonment(ctx context.Context, hold *Hold, unitLabels []string) {
	if s.cartService != nil {
		cart := &carts.AbandonedCart{
			HoldID:      hold.ID,
			SessionID:   hold.SessionID,
			ShowID:      hold.ShowID,
			Mode:        string(hold.Mode),
			Quantity:    hold.Quantity,
			UnitLabels:  unitLabels,
			AbandonedAt: hold.ExpiresAt,
		}
		if err := s.cartService.RecordAbandonment(ctx, cart); err != nil {
			logger.GetDefault().Error("failed to record abandoned cart", "hold_id", hold.ID, "error", err)
		}
	}

	if s.publisher != nil {
		event := &notifications.AbandonedCartEvent{
			SessionID:   hold.SessionID,
			ShowID:      hold.ShowID.String(),
			HoldID:      hold.ID.String(),
			Mode:        string(hold.Mode),
			Quantity:    hold.Quantity,
			UnitLabels:  unitLabels,
			AbandonedAt: hold.ExpiresAt,
		}
		if err := s.publisher.PublishAbandonedCart(ctx, event); err != nil {
			logger.GetDefault().Warn("failed to publish abandoned cart event", "hold_id", hold.ID, "error", err)
		}

		lifecycle := &notifications.LifecycleEvent{
			Type:      notifications.EventHoldExpired,
			SessionID: hold.SessionID,
			ShowID:    hold.ShowID.String(),
			HoldID:    hold.ID.String(),
			Quantity:  hold.Quantity,
			Timestamp: time.Now(),
		}
		if err := s.publisher.PublishLifecycleEvent(ctx, lifecycle); err != nil {
			logger.GetDefault().Warn("failed to publish lifecycle event", "hold_id", hold.ID, "error", err)
		}
	}
}
