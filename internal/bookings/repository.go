package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gatepass/internal/holds"
	"gatepass/internal/shows"
	"gatepass/internal/tickets"
)

type Repository interface {
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*Booking, error)
	GetBookingByOrderID(ctx context.Context, orderID string) (*Booking, error)
	ListBookings(ctx context.Context, showID *uuid.UUID, status string, limit, offset int) ([]Booking, error)

	// ConfirmBooking runs the whole confirmation in one transaction:
	// convert the hold, confirm the booking, flip inventory to BOOKED and
	// mint ticket rows. Fails with ErrReservationLapsed when the hold
	// claim is lost.
	ConfirmBooking(ctx context.Context, booking *Booking, paymentID string, ticketRows []tickets.Ticket) error

	// CancelBooking releases a booking's inventory according to its state
	CancelBooking(ctx context.Context, booking *Booking) error

	// ExpirePendingByHoldID marks pending bookings of a lapsed hold
	ExpirePendingByHoldID(ctx context.Context, holdID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CRUD

func (r *repository) CreateBooking(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetBookingByReference(ctx context.Context, reference string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).First(&booking, "reference = ?", reference).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetBookingByOrderID(ctx context.Context, orderID string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).First(&booking, "payment_order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListBookings(ctx context.Context, showID *uuid.UUID, status string, limit, offset int) ([]Booking, error) {
	query := r.db.WithContext(ctx).Model(&Booking{})
	if showID != nil {
		query = query.Where("show_id = ?", *showID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []Booking
	err := query.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&bookings).Error
	return bookings, err
}

// CONFIRMATION

func (r *repository) ConfirmBooking(ctx context.Context, booking *Booking, paymentID string, ticketRows []tickets.Ticket) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Convert the hold. This is the linearization point against the
		// sweeper and against release: exactly one of them flips the row
		// out of ACTIVE.
		claim := tx.Model(&holds.Hold{}).
			Where("id = ? AND status = ? AND expires_at > ?", booking.HoldID, holds.StatusActive, now).
			Update("status", holds.StatusConverted)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrReservationLapsed
		}

		confirm := tx.Model(&Booking{}).
			Where("id = ? AND status = ?", booking.ID, StatusPending).
			Updates(map[string]interface{}{
				"status":       StatusConfirmed,
				"payment_id":   paymentID,
				"confirmed_at": now,
			})
		if confirm.Error != nil {
			return confirm.Error
		}
		if confirm.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		if booking.Mode == shows.ModeSeated {
			if err := tx.Model(&shows.ShowUnit{}).
				Where("hold_id = ? AND status = ?", booking.HoldID, shows.UnitHeld).
				Update("status", shows.UnitBooked).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&shows.Show{}).
				Where("id = ?", booking.ShowID).
				Updates(map[string]interface{}{
					"held_count":   gorm.Expr("held_count - ?", booking.Quantity),
					"booked_count": gorm.Expr("booked_count + ?", booking.Quantity),
				}).Error; err != nil {
				return err
			}
		}

		if len(ticketRows) > 0 {
			if err := tx.Create(&ticketRows).Error; err != nil {
				return err
			}
		}

		booking.Status = StatusConfirmed
		booking.PaymentID = &paymentID
		booking.ConfirmedAt = &now
		return nil
	})
}

// CANCELLATION

// CancelBooking moves a booking to CANCELLED and returns whatever
// inventory it still owns. A pending booking's inventory belongs to its
// hold (released separately); a confirmed booking's BOOKED units come back.
// The claim is a CAS on the status the caller loaded, so a webhook confirm
// racing the cancel forces the caller to reload rather than silently
// leaking booked inventory.
func (r *repository) CancelBooking(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&Booking{}).
			Where("id = ? AND status = ?", booking.ID, booking.Status).
			Update("status", StatusCancelled)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		if booking.Status != StatusConfirmed {
			return nil
		}

		if booking.Mode == shows.ModeSeated {
			return tx.Model(&shows.ShowUnit{}).
				Where("hold_id = ? AND status = ?", booking.HoldID, shows.UnitBooked).
				Updates(map[string]interface{}{
					"status":  shows.UnitAvailable,
					"hold_id": nil,
				}).Error
		}

		return tx.Model(&shows.Show{}).
			Where("id = ?", booking.ShowID).
			Update("booked_count", gorm.Expr("booked_count - ?", booking.Quantity)).Error
	})
}

// EXPIRY

func (r *repository) ExpirePendingByHoldID(ctx context.Context, holdID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Booking{}).
		Where("hold_id = ? AND status = ?", holdID, StatusPending).
		Update("status", StatusExpired)
	return result.RowsAffected, result.Error
}
