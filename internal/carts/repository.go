package carts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, cart *AbandonedCart) error
	Upsert(ctx context.Context, cart *AbandonedCart) error
	MarkRecovered(ctx context.Context, sessionID string, showID uuid.UUID) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]AbandonedCart, error)
	Summary(ctx context.Context, since time.Time) (*SummaryRow, error)
}

// ListFilter narrows the abandoned cart report
type ListFilter struct {
	ShowID        *uuid.UUID
	Since         *time.Time
	OnlyRecovered bool
	Limit         int
	Offset        int
}

// SummaryRow aggregates abandonment over a period
type SummaryRow struct {
	Total        int64   `json:"total"`
	Recovered    int64   `json:"recovered"`
	LostUnits    int64   `json:"lost_units"`
	LostAmount   float64 `json:"lost_amount"`
	RecoveryRate float64 `json:"recovery_rate"`
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts one abandonment record per hold. The sweeper may retry a
// hold after a crash, so conflicts on hold_id are ignored.
func (r *repository) Create(ctx context.Context, cart *AbandonedCart) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hold_id"}},
			DoNothing: true,
		}).
		Create(cart).Error
}

// Upsert refreshes the last-seen contact and composition for a hold's
// checkout attempt. Called every time a pending booking is opened.
func (r *repository) Upsert(ctx context.Context, cart *AbandonedCart) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "hold_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_name", "customer_email",
				"quantity", "unit_labels", "amount", "abandoned_at",
			}),
		}).
		Create(cart).Error
}

// MarkRecovered flags every unrecovered cart of this session for this show.
// Called when the session completes a booking.
func (r *repository) MarkRecovered(ctx context.Context, sessionID string, showID uuid.UUID) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&AbandonedCart{}).
		Where("session_id = ? AND show_id = ? AND recovered = false", sessionID, showID).
		Updates(map[string]interface{}{
			"recovered":    true,
			"recovered_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]AbandonedCart, error) {
	query := r.db.WithContext(ctx).Model(&AbandonedCart{})

	if filter.ShowID != nil {
		query = query.Where("show_id = ?", *filter.ShowID)
	}
	if filter.Since != nil {
		query = query.Where("abandoned_at >= ?", *filter.Since)
	}
	if filter.OnlyRecovered {
		query = query.Where("recovered = true")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var carts []AbandonedCart
	err := query.Order("abandoned_at DESC").
		Limit(limit).Offset(filter.Offset).
		Find(&carts).Error
	return carts, err
}

func (r *repository) Summary(ctx context.Context, since time.Time) (*SummaryRow, error) {
	var row SummaryRow
	err := r.db.WithContext(ctx).Model(&AbandonedCart{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE recovered) AS recovered,
			COALESCE(SUM(quantity) FILTER (WHERE NOT recovered), 0) AS lost_units,
			COALESCE(SUM(amount) FILTER (WHERE NOT recovered), 0) AS lost_amount`).
		Where("abandoned_at >= ?", since).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Total > 0 {
		row.RecoveryRate = float64(row.Recovered) / float64(row.Total)
	}
	return &row, nil
}
