package holds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gatepass/internal/shows"
)

type Repository interface {
	// Acquire
	CreateSeatedHold(ctx context.Context, hold *Hold, unitIDs []uuid.UUID) error
	CreateCapacityHold(ctx context.Context, hold *Hold) error

	// Reads
	GetHoldByID(ctx context.Context, id uuid.UUID) (*Hold, error)
	GetUnitsByHoldID(ctx context.Context, holdID uuid.UUID) ([]shows.ShowUnit, error)

	// Lifecycle
	RenewHold(ctx context.Context, holdID uuid.UUID, newExpiry time.Time) error
	ReleaseHold(ctx context.Context, hold *Hold) error
	ExpireHold(ctx context.Context, hold *Hold) error

	// Sweeper
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Hold, error)

	// Mirror
	Atomic() *AtomicRedisOperations
}

type repository struct {
	db     *gorm.DB
	atomic *AtomicRedisOperations
}

func NewRepository(db *gorm.DB, redisClient *redis.Client) Repository {
	return &repository{
		db:     db,
		atomic: NewAtomicRedisOperations(redisClient),
	}
}

func (r *repository) Atomic() *AtomicRedisOperations {
	return r.atomic
}

// ACQUIRE

// CreateSeatedHold inserts the hold and claims its units in one transaction.
// The claim is a conditional update: only AVAILABLE units flip to HELD, and
// if any unit was lost to a concurrent hold the whole transaction rolls
// back. No serialization beyond row locks is needed; whichever transaction
// updates a unit row first wins it.
func (r *repository) CreateSeatedHold(ctx context.Context, hold *Hold, unitIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(hold).Error; err != nil {
			return err
		}

		result := tx.Model(&shows.ShowUnit{}).
			Where("id IN ? AND status = ?", unitIDs, shows.UnitAvailable).
			Updates(map[string]interface{}{
				"status":  shows.UnitHeld,
				"hold_id": hold.ID,
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected != int64(len(unitIDs)) {
			// Find out which units lost the race for the error message
			var lost []string
			if err := tx.Model(&shows.ShowUnit{}).
				Where("id IN ? AND (hold_id IS NULL OR hold_id != ?)", unitIDs, hold.ID).
				Pluck("label", &lost).Error; err != nil {
				return err
			}
			return &UnavailableUnitsError{Labels: lost}
		}

		return nil
	})
}

// CreateCapacityHold claims quantity slots under the show's row lock. The
// single UPDATE on the counters is where concurrent capacity holds for the
// same show serialize.
func (r *repository) CreateCapacityHold(ctx context.Context, hold *Hold) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var show shows.Show
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&show, "id = ?", hold.ShowID).Error; err != nil {
			return err
		}

		if show.Remaining() < hold.Quantity {
			return fmt.Errorf("%w: %d requested, %d remaining", ErrCapacityExceeded, hold.Quantity, show.Remaining())
		}

		if err := tx.Model(&shows.Show{}).
			Where("id = ?", hold.ShowID).
			Update("held_count", gorm.Expr("held_count + ?", hold.Quantity)).Error; err != nil {
			return err
		}

		return tx.Create(hold).Error
	})
}

// READS

func (r *repository) GetHoldByID(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var hold Hold
	err := r.db.WithContext(ctx).First(&hold, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return &hold, nil
}

func (r *repository) GetUnitsByHoldID(ctx context.Context, holdID uuid.UUID) ([]shows.ShowUnit, error) {
	var units []shows.ShowUnit
	err := r.db.WithContext(ctx).
		Where("hold_id = ?", holdID).
		Order("row ASC, label ASC").
		Find(&units).Error
	return units, err
}

// LIFECYCLE

// RenewHold pushes expires_at forward, but only while the hold is still
// live. A renew that arrives after the sweeper claimed the hold affects
// zero rows and reports expiry.
func (r *repository) RenewHold(ctx context.Context, holdID uuid.UUID, newExpiry time.Time) error {
	result := r.db.WithContext(ctx).Model(&Hold{}).
		Where("id = ? AND status = ? AND expires_at > ?", holdID, StatusActive, time.Now()).
		Update("expires_at", newExpiry)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrHoldExpired
	}
	return nil
}

// ReleaseHold transitions ACTIVE -> RELEASED and returns the inventory.
// Only the winner of the status claim frees inventory, so a release racing
// the sweeper can never double-return slots.
func (r *repository) ReleaseHold(ctx context.Context, hold *Hold) error {
	return r.claimAndFree(ctx, hold, StatusReleased, nil)
}

// ExpireHold is the sweeper's transition: ACTIVE -> EXPIRED, guarded so a
// renew or confirm that slipped in first makes this a no-op.
func (r *repository) ExpireHold(ctx context.Context, hold *Hold) error {
	now := time.Now()
	return r.claimAndFree(ctx, hold, StatusExpired, &now)
}

// claimAndFree performs the status claim and, on winning, returns the
// hold's inventory inside the same transaction. A non-nil deadline adds the
// expires_at <= deadline guard used by the sweeper.
func (r *repository) claimAndFree(ctx context.Context, hold *Hold, toStatus string, deadline *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&Hold{}).
			Where("id = ? AND status = ?", hold.ID, StatusActive)
		if deadline != nil {
			claim = claim.Where("expires_at <= ?", *deadline)
		}
		result := claim.Update("status", toStatus)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrHoldExpired
		}

		if hold.Mode == shows.ModeSeated {
			return tx.Model(&shows.ShowUnit{}).
				Where("hold_id = ? AND status = ?", hold.ID, shows.UnitHeld).
				Updates(map[string]interface{}{
					"status":  shows.UnitAvailable,
					"hold_id": nil,
				}).Error
		}

		return tx.Model(&shows.Show{}).
			Where("id = ?", hold.ShowID).
			Update("held_count", gorm.Expr("held_count - ?", hold.Quantity)).Error
	})
}

// SWEEPER

func (r *repository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	var expired []Hold
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", StatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&expired).Error
	return expired, err
}
