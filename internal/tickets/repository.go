package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetTicketByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetTicketsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]Ticket, error)

	// MarkUsed flips used exactly once; the second scanner loses the race
	// and gets alreadyUsed = true.
	MarkUsed(ctx context.Context, id uuid.UUID) (alreadyUsed bool, err error)

	// GetBookingStatus reads the owning booking's status without importing
	// the bookings package.
	GetBookingStatus(ctx context.Context, bookingID uuid.UUID) (string, error)

	// GetShowInfo reads the show identity stamped into ticket payloads
	GetShowInfo(ctx context.Context, showID uuid.UUID) (*ShowInfo, error)
}

// ShowInfo is the slice of the show row that travels inside ticket codes
// and comes back in scan results.
type ShowInfo struct {
	EventName string
	ShowDate  time.Time
	ShowTime  string
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetTicketByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetTicketsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("label ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *repository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&Ticket{}).
		Where("id = ? AND used = false", id).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 0, nil
}

func (r *repository) GetShowInfo(ctx context.Context, showID uuid.UUID) (*ShowInfo, error) {
	var row ShowInfo
	err := r.db.WithContext(ctx).
		Table("shows").
		Select("event_name, show_date, show_time").
		Where("id = ?", showID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("show %s not found", showID)
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) GetBookingStatus(ctx context.Context, bookingID uuid.UUID) (string, error) {
	var row struct {
		Status string
	}
	err := r.db.WithContext(ctx).
		Table("bookings").
		Select("status").
		Where("id = ?", bookingID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTicketInvalid
		}
		return "", err
	}
	return row.Status, nil
}
