package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/carts"
	"gatepass/internal/holds"
	"gatepass/internal/notifications"
	"gatepass/internal/payments"
	"gatepass/internal/shared/config"
	"gatepass/internal/shows"
	"gatepass/internal/tickets"
	"gatepass/pkg/logger"
)

type Service interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResponse, error)
	GetBooking(ctx context.Context, id string) (*BookingResponse, error)
	GetBookingByReference(ctx context.Context, reference string) (*BookingResponse, error)
	ListBookings(ctx context.Context, showID string, status string, limit, offset int) ([]Booking, error)
	CancelBooking(ctx context.Context, id string, sessionID string) error

	// HandleWebhook processes a signed payment gateway webhook
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	// ExpirePendingByHoldID implements the sweeper's holds.BookingExpirer
	ExpirePendingByHoldID(ctx context.Context, holdID uuid.UUID) error
}

type service struct {
	repo          Repository
	holdsRepo     holds.Repository
	holdsService  holds.Service
	showsRepo     shows.Repository
	ticketService tickets.Service
	adapter       payments.Adapter
	cartService   carts.Service
	publisher     notifications.Publisher
	config        *config.Config
}

func NewService(
	repo Repository,
	holdsRepo holds.Repository,
	holdsService holds.Service,
	showsRepo shows.Repository,
	ticketService tickets.Service,
	adapter payments.Adapter,
	cartService carts.Service,
	publisher notifications.Publisher,
	cfg *config.Config,
) Service {
	return &service{
		repo:          repo,
		holdsRepo:     holdsRepo,
		holdsService:  holdsService,
		showsRepo:     showsRepo,
		ticketService: ticketService,
		adapter:       adapter,
		cartService:   cartService,
		publisher:     publisher,
		config:        cfg,
	}
}

// CHECKOUT

// CreateBooking opens a pending booking against an active hold and
// registers the payment order. The hold stays ACTIVE and keeps its expiry;
// conversion happens only when the payment webhook lands.
func (s *service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResponse, error) {
	holdID, err := uuid.Parse(req.HoldID)
	if err != nil {
		return nil, fmt.Errorf("invalid hold ID: %w", err)
	}

	hold, err := s.holdsRepo.GetHoldByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.SessionID != req.SessionID {
		return nil, holds.ErrSessionMismatch
	}
	if !hold.IsActive() || !time.Now().Before(hold.ExpiresAt) {
		return nil, ErrHoldNotActive
	}

	amount, heldUnits, err := s.priceHold(ctx, hold)
	if err != nil {
		return nil, err
	}

	reference, err := GenerateReference(time.Now())
	if err != nil {
		return nil, err
	}

	order, err := s.adapter.CreateOrder(ctx, amount, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	holdExpiry := hold.ExpiresAt
	booking := &Booking{
		ID:             uuid.New(),
		Reference:      reference,
		HoldID:         hold.ID,
		ShowID:         hold.ShowID,
		SessionID:      hold.SessionID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Mode:           hold.Mode,
		Quantity:       hold.Quantity,
		Amount:         amount,
		Currency:       order.Currency,
		PaymentOrderID: order.ID,
		Status:         StatusPending,
		ExpiresAt:      &holdExpiry,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	// Track the checkout attempt; if this hold lapses the row is already
	// carrying the last-seen contact for the follow-up pipeline.
	if s.cartService != nil {
		labels := make([]string, 0, len(heldUnits))
		for _, u := range heldUnits {
			labels = append(labels, u.Label)
		}
		cart := &carts.AbandonedCart{
			HoldID:        hold.ID,
			SessionID:     hold.SessionID,
			ShowID:        hold.ShowID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Mode:          string(hold.Mode),
			Quantity:      hold.Quantity,
			UnitLabels:    labels,
			Amount:        amount,
		}
		if err := s.cartService.RecordCheckout(ctx, cart); err != nil {
			logger.GetDefault().Warn("failed to record checkout cart",
				"booking_id", booking.ID, "error", err)
		}
	}

	s.publishLifecycle(ctx, notifications.EventBookingPending, booking)

	return s.buildResponse(booking, heldUnits, nil), nil
}

// WEBHOOK

// webhookPayload is the gateway's capture notification. Signature is the
// gateway's per-payment HMAC over "<order_id>|<payment_id>", distinct from
// the body-level webhook signature checked at the envelope.
type webhookPayload struct {
	Event     string  `json:"event"`
	OrderID   string  `json:"order_id"`
	PaymentID string  `json:"payment_id"`
	Signature string  `json:"signature"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.adapter.VerifyWebhookSignature(body, signature) {
		return fmt.Errorf("invalid webhook signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("malformed webhook payload: %w", err)
	}

	switch payload.Event {
	case "payment.captured":
		return s.confirm(ctx, payload.OrderID, payload.PaymentID, payload.Signature, payload.Amount)
	case "payment.failed":
		logger.GetDefault().InfoWithContext(ctx, "Payment failed", map[string]interface{}{
			"order_id":   payload.OrderID,
			"payment_id": payload.PaymentID,
		})
		return s.cancelOnPaymentFailure(ctx, payload.OrderID)
	default:
		logger.GetDefault().Debug("ignoring webhook event", "event", payload.Event)
		return nil
	}
}

// confirm is the payment-side commit of the whole reservation flow.
// Idempotent on repeated webhooks for the same payment; everything else
// funnels into exactly one of the documented failure modes.
func (s *service) confirm(ctx context.Context, orderID, paymentID, paymentSig string, amount float64) error {
	if !s.adapter.VerifyPaymentSignature(orderID, paymentID, paymentSig) {
		return fmt.Errorf("%w: invalid payment signature", ErrPaymentMismatch)
	}

	booking, err := s.repo.GetBookingByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	if booking.Status == StatusConfirmed {
		if booking.PaymentID != nil && *booking.PaymentID == paymentID {
			return nil
		}
		return ErrPaymentMismatch
	}
	if booking.Status == StatusCancelled {
		return fmt.Errorf("%w: booking was cancelled", ErrInvalidTransition)
	}

	if math.Abs(booking.Amount-amount) > 0.009 {
		return fmt.Errorf("%w: expected %.2f, got %.2f", ErrAmountMismatch, booking.Amount, amount)
	}

	ticketRows, err := s.mintTicketRows(ctx, booking)
	if err != nil {
		if errors.Is(err, ErrReservationLapsed) {
			return s.resolveLostClaim(ctx, orderID, paymentID, amount)
		}
		return err
	}

	if err := s.repo.ConfirmBooking(ctx, booking, paymentID, ticketRows); err != nil {
		if errors.Is(err, ErrReservationLapsed) {
			return s.resolveLostClaim(ctx, orderID, paymentID, amount)
		}
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	if err := s.holdsRepo.Atomic().DropMirror(ctx, booking.HoldID.String()); err != nil {
		logger.GetDefault().Warn("failed to drop hold mirror", "hold_id", booking.HoldID, "error", err)
	}

	if s.cartService != nil {
		if err := s.cartService.MarkRecovered(ctx, booking.SessionID, booking.ShowID); err != nil {
			logger.GetDefault().Warn("failed to mark carts recovered", "error", err)
		}
	}

	logger.GetDefault().LogBookingConfirmed(ctx, booking.ID.String(), booking.Reference, orderID)
	s.publishLifecycle(ctx, notifications.EventBookingConfirmed, booking)
	return nil
}

// resolveLostClaim decides what a lost hold claim actually means. When two
// deliveries of the same capture race, the loser's initial read pre-dates
// the winner's commit; re-reading distinguishes a booking that is in fact
// CONFIRMED (idempotent success) from a hold that genuinely ran out before
// the payment landed, which is the only case that warrants a refund alert.
func (s *service) resolveLostClaim(ctx context.Context, orderID, paymentID string, amount float64) error {
	booking, err := s.repo.GetBookingByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	if booking.Status == StatusConfirmed {
		if booking.PaymentID != nil && *booking.PaymentID == paymentID {
			return nil
		}
		return ErrPaymentMismatch
	}

	logger.GetDefault().LogReservationLapsed(ctx, booking.ID.String(), orderID, amount)
	return ErrReservationLapsed
}

// cancelOnPaymentFailure closes out a pending booking whose payment the
// gateway declined. The hold is released so the seats go back on sale
// immediately instead of waiting for the sweeper.
func (s *service) cancelOnPaymentFailure(ctx context.Context, orderID string) error {
	booking, err := s.repo.GetBookingByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil
		}
		return err
	}
	if booking.Status != StatusPending {
		return nil
	}

	if err := s.repo.CancelBooking(ctx, booking); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return err
	}

	if err := s.holdsService.ReleaseHold(ctx, booking.HoldID.String(), booking.SessionID); err != nil {
		logger.GetDefault().Warn("failed to release hold after failed payment",
			"booking_id", booking.ID, "hold_id", booking.HoldID, "error", err)
	}

	s.publishLifecycle(ctx, notifications.EventBookingCancelled, booking)
	return nil
}

// mintTicketRows builds one unminted ticket per admission. Seated bookings
// carry their seat labels; capacity bookings get sequential GA labels.
func (s *service) mintTicketRows(ctx context.Context, booking *Booking) ([]tickets.Ticket, error) {
	now := time.Now()

	if booking.Mode == shows.ModeSeated {
		units, err := s.holdsRepo.GetUnitsByHoldID(ctx, booking.HoldID)
		if err != nil {
			return nil, fmt.Errorf("failed to get held units: %w", err)
		}
		// Units detach from the hold only when it lapses or is released, so
		// a count mismatch means the reservation is already gone.
		if len(units) != booking.Quantity {
			return nil, ErrReservationLapsed
		}

		rows := make([]tickets.Ticket, 0, len(units))
		for _, u := range units {
			unitID := u.ID
			rows = append(rows, tickets.Ticket{
				ID:        uuid.New(),
				BookingID: booking.ID,
				ShowID:    booking.ShowID,
				UnitID:    &unitID,
				Label:     u.Label,
				IssuedAt:  now,
			})
		}
		return rows, nil
	}

	rows := make([]tickets.Ticket, 0, booking.Quantity)
	for i := 1; i <= booking.Quantity; i++ {
		rows = append(rows, tickets.Ticket{
			ID:        uuid.New(),
			BookingID: booking.ID,
			ShowID:    booking.ShowID,
			Label:     fmt.Sprintf("GA-%d", i),
			IssuedAt:  now,
		})
	}
	return rows, nil
}

// READS

func (s *service) GetBooking(ctx context.Context, id string) (*BookingResponse, error) {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID: %w", err)
	}

	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.loadFullResponse(ctx, booking)
}

func (s *service) GetBookingByReference(ctx context.Context, reference string) (*BookingResponse, error) {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.loadFullResponse(ctx, booking)
}

func (s *service) ListBookings(ctx context.Context, showID string, status string, limit, offset int) ([]Booking, error) {
	var showUUID *uuid.UUID
	if showID != "" {
		id, err := uuid.Parse(showID)
		if err != nil {
			return nil, fmt.Errorf("invalid show ID: %w", err)
		}
		showUUID = &id
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListBookings(ctx, showUUID, status, limit, offset)
}

// CANCELLATION

// CancelBooking cancels a booking in either live state. Pending bookings
// also release their hold; confirmed bookings return their BOOKED
// inventory, and their tickets reject at the gate from then on because
// verification checks booking status.
func (s *service) CancelBooking(ctx context.Context, id string, sessionID string) error {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid booking ID: %w", err)
	}

	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.SessionID != sessionID {
		return holds.ErrSessionMismatch
	}

	switch booking.Status {
	case StatusCancelled:
		return nil
	case StatusExpired:
		return fmt.Errorf("%w: booking already expired", ErrInvalidTransition)
	}

	if err := s.repo.CancelBooking(ctx, booking); err != nil {
		return err
	}

	if booking.Status == StatusPending {
		if err := s.holdsService.ReleaseHold(ctx, booking.HoldID.String(), sessionID); err != nil {
			logger.GetDefault().Warn("failed to release hold for cancelled booking",
				"booking_id", booking.ID, "hold_id", booking.HoldID, "error", err)
		}
	}

	s.publishLifecycle(ctx, notifications.EventBookingCancelled, booking)
	return nil
}

// EXPIRY (sweeper callback)

func (s *service) ExpirePendingByHoldID(ctx context.Context, holdID uuid.UUID) error {
	expired, err := s.repo.ExpirePendingByHoldID(ctx, holdID)
	if err != nil {
		return fmt.Errorf("failed to expire pending bookings: %w", err)
	}
	if expired > 0 {
		logger.GetDefault().InfoWithContext(ctx, "Pending bookings expired with hold", map[string]interface{}{
			"hold_id": holdID.String(),
			"count":   expired,
		})
	}
	return nil
}

// HELPERS

func (s *service) priceHold(ctx context.Context, hold *holds.Hold) (float64, []shows.ShowUnit, error) {
	if hold.Mode == shows.ModeSeated {
		units, err := s.holdsRepo.GetUnitsByHoldID(ctx, hold.ID)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to get held units: %w", err)
		}
		var total float64
		for _, u := range units {
			total += u.Price
		}
		return total, units, nil
	}

	show, err := s.showsRepo.GetShowByID(ctx, hold.ShowID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get show: %w", err)
	}
	return float64(hold.Quantity) * show.BasePrice, nil, nil
}

func (s *service) loadFullResponse(ctx context.Context, booking *Booking) (*BookingResponse, error) {
	var units []shows.ShowUnit
	if booking.Mode == shows.ModeSeated {
		var err error
		units, err = s.holdsRepo.GetUnitsByHoldID(ctx, booking.HoldID)
		if err != nil {
			return nil, fmt.Errorf("failed to get booked units: %w", err)
		}
	}

	var issued []tickets.IssuedTicket
	if booking.Status == StatusConfirmed {
		var err error
		issued, err = s.ticketService.GetTicketsForBooking(ctx, booking.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tickets: %w", err)
		}
	}

	return s.buildResponse(booking, units, issued), nil
}

func (s *service) buildResponse(booking *Booking, units []shows.ShowUnit, issued []tickets.IssuedTicket) *BookingResponse {
	resp := &BookingResponse{
		BookingID:      booking.ID.String(),
		Reference:      booking.Reference,
		ShowID:         booking.ShowID.String(),
		HoldID:         booking.HoldID.String(),
		SessionID:      booking.SessionID,
		Mode:           string(booking.Mode),
		Status:         booking.Status,
		Quantity:       booking.Quantity,
		Amount:         booking.Amount,
		Currency:       booking.Currency,
		PaymentOrderID: booking.PaymentOrderID,
		ConfirmedAt:    booking.ConfirmedAt,
		CreatedAt:      booking.CreatedAt,
		Tickets:        issued,
	}
	if booking.Status == StatusPending {
		resp.HoldExpiresAt = booking.ExpiresAt
	}
	for _, u := range units {
		resp.Units = append(resp.Units, BookedUnitInfo{
			UnitID:   u.ID.String(),
			Label:    u.Label,
			Row:      u.Row,
			Category: u.Category,
			Price:    u.Price,
		})
	}
	return resp
}

func (s *service) publishLifecycle(ctx context.Context, eventType string, booking *Booking) {
	if s.publisher == nil {
		return
	}
	event := &notifications.LifecycleEvent{
		Type:      eventType,
		SessionID: booking.SessionID,
		ShowID:    booking.ShowID.String(),
		HoldID:    booking.HoldID.String(),
		BookingID: booking.ID.String(),
		Quantity:  booking.Quantity,
		Amount:    booking.Amount,
		Timestamp: time.Now(),
	}
	if err := s.publisher.PublishLifecycleEvent(ctx, event); err != nil {
		logger.GetDefault().Warn("failed to publish lifecycle event", "type", eventType, "error", err)
	}
}
