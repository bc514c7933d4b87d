package shows

import (
	"context"
	"fmt"

	"gatepass/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Repository interface {
	// Show CRUD
	CreateShow(ctx context.Context, show *Show) error
	GetShowByID(ctx context.Context, id uuid.UUID) (*Show, error)
	ListShows(ctx context.Context, limit, offset int) ([]Show, error)
	DeleteShow(ctx context.Context, id uuid.UUID) error

	// Layout publishing
	PublishUnits(ctx context.Context, showID uuid.UUID, units []ShowUnit) error
	PublishCapacity(ctx context.Context, showID uuid.UUID, capacity int) error

	// Unit reads
	GetUnitsByShowID(ctx context.Context, showID uuid.UUID) ([]ShowUnit, error)
	GetUnitsByIDs(ctx context.Context, unitIDs []uuid.UUID) ([]ShowUnit, error)

	// Admin unit state (AVAILABLE <-> BLOCKED only)
	SetUnitBlocked(ctx context.Context, unitID uuid.UUID, blocked bool) error

	// Live hold mirror
	CheckUnitHolds(ctx context.Context, unitIDs []uuid.UUID) (map[string]string, error)
}

type repository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewRepository(db *gorm.DB, redisClient *redis.Client) Repository {
	return &repository{
		db:    db,
		redis: redisClient,
	}
}

// SHOW CRUD

func (r *repository) CreateShow(ctx context.Context, show *Show) error {
	return r.db.WithContext(ctx).Create(show).Error
}

func (r *repository) GetShowByID(ctx context.Context, id uuid.UUID) (*Show, error) {
	var show Show
	err := r.db.WithContext(ctx).First(&show, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &show, nil
}

func (r *repository) ListShows(ctx context.Context, limit, offset int) ([]Show, error) {
	var list []Show
	err := r.db.WithContext(ctx).
		Order("show_date ASC, show_time ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *repository) DeleteShow(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ShowUnit{}, "show_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Show{}, "id = ?", id).Error
	})
}

// LAYOUT PUBLISHING

// PublishUnits replaces a seated show's layout. Units that are already
// booked block a re-publish; everything else is reset.
func (r *repository) PublishUnits(ctx context.Context, showID uuid.UUID, units []ShowUnit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booked int64
		if err := tx.Model(&ShowUnit{}).
			Where("show_id = ? AND status = ?", showID, UnitBooked).
			Count(&booked).Error; err != nil {
			return err
		}
		if booked > 0 {
			return fmt.Errorf("show has %d booked units; layout is frozen", booked)
		}

		if err := tx.Delete(&ShowUnit{}, "show_id = ?", showID).Error; err != nil {
			return err
		}
		if err := tx.Create(&units).Error; err != nil {
			return err
		}

		return tx.Model(&Show{}).Where("id = ?", showID).Update("published", true).Error
	})
}

func (r *repository) PublishCapacity(ctx context.Context, showID uuid.UUID, capacity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var show Show
		if err := tx.First(&show, "id = ?", showID).Error; err != nil {
			return err
		}
		if capacity < show.HeldCount+show.BookedCount {
			return fmt.Errorf("capacity %d below %d already claimed", capacity, show.HeldCount+show.BookedCount)
		}
		return tx.Model(&Show{}).Where("id = ?", showID).
			Updates(map[string]interface{}{"capacity": capacity, "published": true}).Error
	})
}

// UNIT READS

func (r *repository) GetUnitsByShowID(ctx context.Context, showID uuid.UUID) ([]ShowUnit, error) {
	var units []ShowUnit
	err := r.db.WithContext(ctx).
		Where("show_id = ?", showID).
		Order("row ASC, label ASC").
		Find(&units).Error
	return units, err
}

func (r *repository) GetUnitsByIDs(ctx context.Context, unitIDs []uuid.UUID) ([]ShowUnit, error) {
	var units []ShowUnit
	err := r.db.WithContext(ctx).
		Where("id IN ?", unitIDs).
		Find(&units).Error
	return units, err
}

// ADMIN UNIT STATE

func (r *repository) SetUnitBlocked(ctx context.Context, unitID uuid.UUID, blocked bool) error {
	// Only flips between AVAILABLE and BLOCKED; held or booked units are
	// owned by the engine and must not be touched here.
	var from, to string
	if blocked {
		from, to = UnitAvailable, UnitBlocked
	} else {
		from, to = UnitBlocked, UnitAvailable
	}

	result := r.db.WithContext(ctx).Model(&ShowUnit{}).
		Where("id = ? AND status = ?", unitID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("unit not in %s state", from)
	}
	return nil
}

// LIVE HOLD MIRROR

// CheckUnitHolds returns unitID -> "<sessionID>:<holdID>" for units with a
// live Redis claim. Postgres remains the ground truth; this only serves the
// seat map so customers see in-flight holds immediately.
func (r *repository) CheckUnitHolds(ctx context.Context, unitIDs []uuid.UUID) (map[string]string, error) {
	holds := make(map[string]string)

	if r.redis == nil || len(unitIDs) == 0 {
		return holds, nil
	}

	keys := make([]string, 0, len(unitIDs))
	for _, id := range unitIDs {
		keys = append(keys, constants.UnitHoldKey(id.String()))
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read unit holds: %w", err)
	}

	for i, val := range values {
		if val == nil {
			continue
		}
		if s, ok := val.(string); ok && s != "" {
			holds[unitIDs[i].String()] = s
		}
	}

	return holds, nil
}
