package bookings

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/carts"
	"gatepass/internal/holds"
	"gatepass/internal/notifications"
	"gatepass/internal/payments"
	"gatepass/internal/shared/config"
	"gatepass/internal/shows"
	"gatepass/internal/tickets"
)

const webhookSecret = "whsec_test_secret"

// fakeWorld is the in-memory stand-in for the database shared by all fakes.
// One mutex plays the role of transactions: anything the real repositories
// do in one transaction happens here in one critical section.
type fakeWorld struct {
	mu       sync.Mutex
	shows    map[uuid.UUID]*shows.Show
	units    map[uuid.UUID]*shows.ShowUnit
	holds    map[uuid.UUID]*holds.Hold
	bookings map[uuid.UUID]*Booking
	tickets  []tickets.Ticket

	releasedHolds []uuid.UUID
	recovered     []string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		shows:    make(map[uuid.UUID]*shows.Show),
		units:    make(map[uuid.UUID]*shows.ShowUnit),
		holds:    make(map[uuid.UUID]*holds.Hold),
		bookings: make(map[uuid.UUID]*Booking),
	}
}

func (w *fakeWorld) holdStatus(id uuid.UUID) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.holds[id].Status
}

func (w *fakeWorld) bookingStatus(id uuid.UUID) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bookings[id].Status
}

func (w *fakeWorld) unitStatus(id uuid.UUID) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.units[id].Status
}

func (w *fakeWorld) ticketCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tickets)
}

// fakeBookingRepo implements Repository with the confirmation and
// cancellation semantics of the real one. Queued stale reads let tests
// replay the schedule where a lookup pre-dates a concurrent commit.
type fakeBookingRepo struct {
	world *fakeWorld

	staleMu    sync.Mutex
	staleReads []Booking
}

// queueStaleRead makes the next GetBookingByOrderID for this order return
// the given snapshot instead of the live row.
func (f *fakeBookingRepo) queueStaleRead(snapshot Booking) {
	f.staleMu.Lock()
	defer f.staleMu.Unlock()
	f.staleReads = append(f.staleReads, snapshot)
}

func (f *fakeBookingRepo) CreateBooking(ctx context.Context, booking *Booking) error {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	copied := *booking
	f.world.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	booking, ok := f.world.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeBookingRepo) GetBookingByReference(ctx context.Context, reference string) (*Booking, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	for _, booking := range f.world.bookings {
		if booking.Reference == reference {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (f *fakeBookingRepo) GetBookingByOrderID(ctx context.Context, orderID string) (*Booking, error) {
	f.staleMu.Lock()
	for i, snapshot := range f.staleReads {
		if snapshot.PaymentOrderID == orderID {
			f.staleReads = append(f.staleReads[:i], f.staleReads[i+1:]...)
			f.staleMu.Unlock()
			copied := snapshot
			return &copied, nil
		}
	}
	f.staleMu.Unlock()

	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	for _, booking := range f.world.bookings {
		if booking.PaymentOrderID == orderID {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (f *fakeBookingRepo) ListBookings(ctx context.Context, showID *uuid.UUID, status string, limit, offset int) ([]Booking, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	var out []Booking
	for _, booking := range f.world.bookings {
		if showID != nil && booking.ShowID != *showID {
			continue
		}
		if status != "" && booking.Status != status {
			continue
		}
		out = append(out, *booking)
	}
	return out, nil
}

func (f *fakeBookingRepo) ConfirmBooking(ctx context.Context, booking *Booking, paymentID string, ticketRows []tickets.Ticket) error {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	now := time.Now()

	hold, ok := f.world.holds[booking.HoldID]
	if !ok || hold.Status != holds.StatusActive || !hold.ExpiresAt.After(now) {
		return ErrReservationLapsed
	}
	hold.Status = holds.StatusConverted

	stored := f.world.bookings[booking.ID]
	if stored.Status != StatusPending {
		return ErrInvalidTransition
	}
	stored.Status = StatusConfirmed
	stored.PaymentID = &paymentID
	stored.ConfirmedAt = &now

	if booking.Mode == shows.ModeSeated {
		for _, unit := range f.world.units {
			if unit.HoldID != nil && *unit.HoldID == booking.HoldID && unit.Status == shows.UnitHeld {
				unit.Status = shows.UnitBooked
			}
		}
	} else {
		show := f.world.shows[booking.ShowID]
		show.HeldCount -= booking.Quantity
		show.BookedCount += booking.Quantity
	}

	f.world.tickets = append(f.world.tickets, ticketRows...)

	booking.Status = StatusConfirmed
	booking.PaymentID = &paymentID
	booking.ConfirmedAt = &now
	return nil
}

func (f *fakeBookingRepo) CancelBooking(ctx context.Context, booking *Booking) error {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()

	stored := f.world.bookings[booking.ID]
	if stored == nil || stored.Status != booking.Status {
		return ErrInvalidTransition
	}
	stored.Status = StatusCancelled

	if booking.Status != StatusConfirmed {
		return nil
	}

	if booking.Mode == shows.ModeSeated {
		for _, unit := range f.world.units {
			if unit.HoldID != nil && *unit.HoldID == booking.HoldID && unit.Status == shows.UnitBooked {
				unit.Status = shows.UnitAvailable
				unit.HoldID = nil
			}
		}
		return nil
	}

	f.world.shows[booking.ShowID].BookedCount -= booking.Quantity
	return nil
}

func (f *fakeBookingRepo) ExpirePendingByHoldID(ctx context.Context, holdID uuid.UUID) (int64, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	var expired int64
	for _, booking := range f.world.bookings {
		if booking.HoldID == holdID && booking.Status == StatusPending {
			booking.Status = StatusExpired
			expired++
		}
	}
	return expired, nil
}

// fakeHoldsRepo implements the slice of holds.Repository the booking service
// touches: hold reads, held unit reads and the mirror handle.
type fakeHoldsRepo struct {
	world  *fakeWorld
	atomic *holds.AtomicRedisOperations
}

func (f *fakeHoldsRepo) CreateSeatedHold(ctx context.Context, hold *holds.Hold, unitIDs []uuid.UUID) error {
	return nil
}

func (f *fakeHoldsRepo) CreateCapacityHold(ctx context.Context, hold *holds.Hold) error {
	return nil
}

func (f *fakeHoldsRepo) GetHoldByID(ctx context.Context, id uuid.UUID) (*holds.Hold, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	hold, ok := f.world.holds[id]
	if !ok {
		return nil, holds.ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

func (f *fakeHoldsRepo) GetUnitsByHoldID(ctx context.Context, holdID uuid.UUID) ([]shows.ShowUnit, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	var out []shows.ShowUnit
	for _, unit := range f.world.units {
		if unit.HoldID != nil && *unit.HoldID == holdID {
			out = append(out, *unit)
		}
	}
	return out, nil
}

func (f *fakeHoldsRepo) RenewHold(ctx context.Context, holdID uuid.UUID, newExpiry time.Time) error {
	return nil
}

func (f *fakeHoldsRepo) ReleaseHold(ctx context.Context, hold *holds.Hold) error {
	return nil
}

func (f *fakeHoldsRepo) ExpireHold(ctx context.Context, hold *holds.Hold) error {
	return nil
}

func (f *fakeHoldsRepo) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]holds.Hold, error) {
	return nil, nil
}

func (f *fakeHoldsRepo) Atomic() *holds.AtomicRedisOperations {
	return f.atomic
}

// fakeHoldsService records release calls from the cancellation flow
type fakeHoldsService struct {
	world *fakeWorld
}

func (f *fakeHoldsService) AcquireHold(ctx context.Context, showID string, req holds.AcquireHoldRequest) (*holds.HoldResponse, error) {
	return nil, nil
}

func (f *fakeHoldsService) RenewHold(ctx context.Context, holdID string, sessionID string) (*holds.HoldResponse, error) {
	return nil, nil
}

func (f *fakeHoldsService) ReleaseHold(ctx context.Context, holdID string, sessionID string) error {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	f.world.releasedHolds = append(f.world.releasedHolds, uuid.MustParse(holdID))
	return nil
}

func (f *fakeHoldsService) GetHold(ctx context.Context, holdID string) (*holds.HoldResponse, error) {
	return nil, nil
}

// fakeShowsRepo serves the capacity pricing read
type fakeShowsRepo struct {
	world *fakeWorld
}

func (f *fakeShowsRepo) CreateShow(ctx context.Context, show *shows.Show) error { return nil }

func (f *fakeShowsRepo) GetShowByID(ctx context.Context, id uuid.UUID) (*shows.Show, error) {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	show, ok := f.world.shows[id]
	if !ok {
		return nil, fmt.Errorf("show not found")
	}
	copied := *show
	return &copied, nil
}

func (f *fakeShowsRepo) ListShows(ctx context.Context, limit, offset int) ([]shows.Show, error) {
	return nil, nil
}

func (f *fakeShowsRepo) DeleteShow(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeShowsRepo) PublishUnits(ctx context.Context, showID uuid.UUID, units []shows.ShowUnit) error {
	return nil
}

func (f *fakeShowsRepo) PublishCapacity(ctx context.Context, showID uuid.UUID, capacity int) error {
	return nil
}

func (f *fakeShowsRepo) GetUnitsByShowID(ctx context.Context, showID uuid.UUID) ([]shows.ShowUnit, error) {
	return nil, nil
}

func (f *fakeShowsRepo) GetUnitsByIDs(ctx context.Context, unitIDs []uuid.UUID) ([]shows.ShowUnit, error) {
	return nil, nil
}

func (f *fakeShowsRepo) SetUnitBlocked(ctx context.Context, unitID uuid.UUID, blocked bool) error {
	return nil
}

func (f *fakeShowsRepo) CheckUnitHolds(ctx context.Context, unitIDs []uuid.UUID) (map[string]string, error) {
	return nil, nil
}

// fakeTicketService mints deterministic codes from the world's ticket rows
type fakeTicketService struct {
	world *fakeWorld
}

func (f *fakeTicketService) IssueTickets(ctx context.Context, rows []tickets.Ticket) ([]tickets.IssuedTicket, error) {
	var out []tickets.IssuedTicket
	for _, row := range rows {
		out = append(out, tickets.IssuedTicket{
			TicketID: row.ID.String(),
			Label:    row.Label,
			Code:     "code-" + row.ID.String(),
		})
	}
	return out, nil
}

func (f *fakeTicketService) Verify(ctx context.Context, code string) (*tickets.ScanResult, error) {
	return nil, nil
}

func (f *fakeTicketService) GetTicketsForBooking(ctx context.Context, bookingID uuid.UUID) ([]tickets.IssuedTicket, error) {
	f.world.mu.Lock()
	rows := make([]tickets.Ticket, 0)
	for _, row := range f.world.tickets {
		if row.BookingID == bookingID {
			rows = append(rows, row)
		}
	}
	f.world.mu.Unlock()
	return f.IssueTickets(ctx, rows)
}

// fakeCartService records checkout and recovery calls
type fakeCartService struct {
	world     *fakeWorld
	mu        sync.Mutex
	checkouts []carts.AbandonedCart
}

func (f *fakeCartService) RecordCheckout(ctx context.Context, cart *carts.AbandonedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, *cart)
	return nil
}

func (f *fakeCartService) RecordAbandonment(ctx context.Context, cart *carts.AbandonedCart) error {
	return nil
}

func (f *fakeCartService) MarkRecovered(ctx context.Context, sessionID string, showID uuid.UUID) error {
	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	f.world.recovered = append(f.world.recovered, sessionID)
	return nil
}

func (f *fakeCartService) GetReport(ctx context.Context, showID string, sinceHours int, limit, offset int) ([]carts.AbandonedCart, error) {
	return nil, nil
}

func (f *fakeCartService) GetSummary(ctx context.Context, sinceHours int) (*carts.SummaryRow, error) {
	return nil, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []notifications.LifecycleEvent
}

func (f *fakePublisher) PublishLifecycleEvent(ctx context.Context, event *notifications.LifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakePublisher) PublishAbandonedCart(ctx context.Context, event *notifications.AbandonedCartEvent) error {
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

type bookingFixture struct {
	world     *fakeWorld
	publisher *fakePublisher
	carts     *fakeCartService
	repo      *fakeBookingRepo
	service   Service
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	world := newFakeWorld()
	publisher := &fakePublisher{}
	cartService := &fakeCartService{world: world}
	repo := &fakeBookingRepo{world: world}
	adapter := payments.NewAdapter(&config.PaymentConfig{
		KeyID:         "key_test",
		WebhookSecret: webhookSecret,
	})
	service := NewService(
		repo,
		&fakeHoldsRepo{world: world, atomic: holds.NewAtomicRedisOperations(nil)},
		&fakeHoldsService{world: world},
		&fakeShowsRepo{world: world},
		&fakeTicketService{world: world},
		adapter,
		cartService,
		publisher,
		&config.Config{},
	)
	return &bookingFixture{world: world, publisher: publisher, carts: cartService, repo: repo, service: service}
}

// seatedHold seeds a published seated show with an active hold on two seats
func (fx *bookingFixture) seatedHold(t *testing.T, sessionID string) (*holds.Hold, []uuid.UUID) {
	t.Helper()
	fx.world.mu.Lock()
	defer fx.world.mu.Unlock()

	show := &shows.Show{
		ID:        uuid.New(),
		EventName: "Hamilton",
		Mode:      shows.ModeSeated,
		BasePrice: 500,
		Published: true,
	}
	fx.world.shows[show.ID] = show

	hold := &holds.Hold{
		ID:        uuid.New(),
		ShowID:    show.ID,
		SessionID: sessionID,
		Mode:      shows.ModeSeated,
		Quantity:  2,
		Status:    holds.StatusActive,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	fx.world.holds[hold.ID] = hold

	var unitIDs []uuid.UUID
	for _, label := range []string{"A-1", "A-2"} {
		holdID := hold.ID
		unit := &shows.ShowUnit{
			ID:     uuid.New(),
			ShowID: show.ID,
			Label:  label,
			Row:    "A",
			Price:  750,
			Status: shows.UnitHeld,
			HoldID: &holdID,
		}
		fx.world.units[unit.ID] = unit
		unitIDs = append(unitIDs, unit.ID)
	}
	return hold, unitIDs
}

func (fx *bookingFixture) capacityHold(t *testing.T, sessionID string, quantity int) *holds.Hold {
	t.Helper()
	fx.world.mu.Lock()
	defer fx.world.mu.Unlock()

	show := &shows.Show{
		ID:        uuid.New(),
		EventName: "Standup Night",
		Mode:      shows.ModeCapacity,
		BasePrice: 300,
		Capacity:  100,
		HeldCount: quantity,
		Published: true,
	}
	fx.world.shows[show.ID] = show

	hold := &holds.Hold{
		ID:        uuid.New(),
		ShowID:    show.ID,
		SessionID: sessionID,
		Mode:      shows.ModeCapacity,
		Quantity:  quantity,
		Status:    holds.StatusActive,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	fx.world.holds[hold.ID] = hold
	return hold
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedWebhook(t *testing.T, orderID, paymentID string, amount float64) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event":      "payment.captured",
		"order_id":   orderID,
		"payment_id": paymentID,
		"signature":  signPayment(orderID, paymentID),
		"amount":     amount,
		"status":     "captured",
	})
	require.NoError(t, err)
	return body, signBody(body)
}

func (fx *bookingFixture) createBooking(t *testing.T, hold *holds.Hold) *BookingResponse {
	t.Helper()
	resp, err := fx.service.CreateBooking(context.Background(), CreateBookingRequest{
		SessionID:     hold.SessionID,
		HoldID:        hold.ID.String(),
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
	})
	require.NoError(t, err)
	return resp
}

func TestCreateBooking(t *testing.T) {
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")

	resp := fx.createBooking(t, hold)

	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, 1500.0, resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.True(t, strings.HasPrefix(resp.Reference, "GPS-"))
	assert.True(t, strings.HasPrefix(resp.PaymentOrderID, "order_"))
	assert.Len(t, resp.Units, 2)
	require.NotNil(t, resp.HoldExpiresAt)

	// The hold stays ACTIVE until the payment webhook converts it
	assert.Equal(t, holds.StatusActive, fx.world.holdStatus(hold.ID))
	assert.Contains(t, fx.publisher.eventTypes(), notifications.EventBookingPending)

	// Checkout entry is tracked for the abandoned-cart report
	require.Len(t, fx.carts.checkouts, 1)
	assert.Equal(t, hold.ID, fx.carts.checkouts[0].HoldID)
	assert.ElementsMatch(t, []string{"A-1", "A-2"}, fx.carts.checkouts[0].UnitLabels)
	assert.Equal(t, 1500.0, fx.carts.checkouts[0].Amount)
}

func TestCreateBookingFailures(t *testing.T) {
	t.Run("hold not found", func(t *testing.T) {
		fx := newBookingFixture(t)
		_, err := fx.service.CreateBooking(context.Background(), CreateBookingRequest{
			SessionID: "session-0001",
			HoldID:    uuid.NewString(),
		})
		assert.ErrorIs(t, err, holds.ErrHoldNotFound)
	})

	t.Run("session mismatch", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		_, err := fx.service.CreateBooking(context.Background(), CreateBookingRequest{
			SessionID: "session-9999",
			HoldID:    hold.ID.String(),
		})
		assert.ErrorIs(t, err, holds.ErrSessionMismatch)
	})

	t.Run("hold expired", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		fx.world.mu.Lock()
		fx.world.holds[hold.ID].ExpiresAt = time.Now().Add(-time.Minute)
		fx.world.mu.Unlock()

		_, err := fx.service.CreateBooking(context.Background(), CreateBookingRequest{
			SessionID: "session-0001",
			HoldID:    hold.ID.String(),
		})
		assert.ErrorIs(t, err, ErrHoldNotActive)
	})
}

func TestWebhookConfirmsSeatedBooking(t *testing.T) {
	fx := newBookingFixture(t)
	hold, unitIDs := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	bookingID := uuid.MustParse(resp.BookingID)
	assert.Equal(t, StatusConfirmed, fx.world.bookingStatus(bookingID))
	assert.Equal(t, holds.StatusConverted, fx.world.holdStatus(hold.ID))
	for _, id := range unitIDs {
		assert.Equal(t, shows.UnitBooked, fx.world.unitStatus(id))
	}
	assert.Equal(t, 2, fx.world.ticketCount())
	assert.Contains(t, fx.world.recovered, "session-0001")
	assert.Contains(t, fx.publisher.eventTypes(), notifications.EventBookingConfirmed)
}

func TestWebhookConfirmsCapacityBooking(t *testing.T) {
	fx := newBookingFixture(t)
	hold := fx.capacityHold(t, "session-0002", 3)
	resp := fx.createBooking(t, hold)
	require.Equal(t, 900.0, resp.Amount)

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_456", resp.Amount)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	fx.world.mu.Lock()
	show := fx.world.shows[hold.ShowID]
	assert.Equal(t, 0, show.HeldCount)
	assert.Equal(t, 3, show.BookedCount)
	labels := make([]string, 0)
	for _, row := range fx.world.tickets {
		labels = append(labels, row.Label)
	}
	fx.world.mu.Unlock()
	assert.ElementsMatch(t, []string{"GA-1", "GA-2", "GA-3"}, labels)
}

func TestWebhookIdempotentOnRepeat(t *testing.T) {
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	assert.Equal(t, 2, fx.world.ticketCount(), "a repeated webhook must not mint tickets again")
}

func TestWebhookFailureModes(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		body, _ := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
		err := fx.service.HandleWebhook(context.Background(), body, "deadbeef")
		require.Error(t, err)
		assert.Equal(t, "invalid webhook signature", err.Error())
	})

	t.Run("bad payment signature", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		body, err := json.Marshal(map[string]interface{}{
			"event":      "payment.captured",
			"order_id":   resp.PaymentOrderID,
			"payment_id": "pay_123",
			"signature":  "deadbeef",
			"amount":     resp.Amount,
			"status":     "captured",
		})
		require.NoError(t, err)

		err = fx.service.HandleWebhook(context.Background(), body, signBody(body))
		assert.ErrorIs(t, err, ErrPaymentMismatch)
		assert.Equal(t, StatusPending, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
	})

	t.Run("amount mismatch", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount-100)
		err := fx.service.HandleWebhook(context.Background(), body, sig)
		assert.ErrorIs(t, err, ErrAmountMismatch)
		assert.Equal(t, StatusPending, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
	})

	t.Run("different payment after confirm", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
		require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

		body, sig = capturedWebhook(t, resp.PaymentOrderID, "pay_999", resp.Amount)
		err := fx.service.HandleWebhook(context.Background(), body, sig)
		assert.ErrorIs(t, err, ErrPaymentMismatch)
	})

	t.Run("unknown order", func(t *testing.T) {
		fx := newBookingFixture(t)
		body, sig := capturedWebhook(t, "order_missing", "pay_123", 100)
		err := fx.service.HandleWebhook(context.Background(), body, sig)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("payment failed cancels the pending booking", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		body, err := json.Marshal(map[string]interface{}{
			"event":      "payment.failed",
			"order_id":   resp.PaymentOrderID,
			"payment_id": "pay_123",
		})
		require.NoError(t, err)
		require.NoError(t, fx.service.HandleWebhook(context.Background(), body, signBody(body)))
		assert.Equal(t, StatusCancelled, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
		assert.Contains(t, fx.world.releasedHolds, hold.ID)

		// A retry of the same failure notification is a no-op
		require.NoError(t, fx.service.HandleWebhook(context.Background(), body, signBody(body)))
	})
}

func TestWebhookDuplicateLosesClaimAfterConfirm(t *testing.T) {
	// Two deliveries of the same capture can interleave so the second one
	// reads the booking while it is still PENDING, then loses the hold
	// claim to the first. The loss must resolve as idempotent success:
	// the booking did confirm, nothing lapsed, no refund is owed.
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	fx.world.mu.Lock()
	pendingSnapshot := *fx.world.bookings[uuid.MustParse(resp.BookingID)]
	fx.world.mu.Unlock()

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	// The duplicate's first read pre-dates the winner's commit
	fx.repo.queueStaleRead(pendingSnapshot)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	assert.Equal(t, StatusConfirmed, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
	assert.Equal(t, 2, fx.world.ticketCount(), "the losing duplicate must not mint tickets")
}

func TestWebhookDifferentPaymentLosesClaim(t *testing.T) {
	// Same lost-claim schedule, but the second capture carries a different
	// payment ID. That is a double charge, not a duplicate.
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	fx.world.mu.Lock()
	pendingSnapshot := *fx.world.bookings[uuid.MustParse(resp.BookingID)]
	fx.world.mu.Unlock()

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	fx.repo.queueStaleRead(pendingSnapshot)
	body, sig = capturedWebhook(t, resp.PaymentOrderID, "pay_999", resp.Amount)
	err := fx.service.HandleWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestWebhookReservationLapsed(t *testing.T) {
	fx := newBookingFixture(t)
	hold, unitIDs := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	// Sweeper wins before the payment lands
	fx.world.mu.Lock()
	fx.world.holds[hold.ID].Status = holds.StatusExpired
	for _, id := range unitIDs {
		fx.world.units[id].Status = shows.UnitAvailable
		fx.world.units[id].HoldID = nil
	}
	fx.world.mu.Unlock()

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
	err := fx.service.HandleWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrReservationLapsed)

	assert.Equal(t, StatusPending, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
	assert.Equal(t, 0, fx.world.ticketCount())
}

func TestWebhookReservationLapsedCapacity(t *testing.T) {
	fx := newBookingFixture(t)
	hold := fx.capacityHold(t, "session-0002", 2)
	resp := fx.createBooking(t, hold)

	fx.world.mu.Lock()
	fx.world.holds[hold.ID].Status = holds.StatusExpired
	fx.world.shows[hold.ShowID].HeldCount = 0
	fx.world.mu.Unlock()

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_456", resp.Amount)
	err := fx.service.HandleWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrReservationLapsed)
	assert.Equal(t, 0, fx.world.ticketCount())
}

func TestCancelPendingBooking(t *testing.T) {
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	require.NoError(t, fx.service.CancelBooking(context.Background(), resp.BookingID, "session-0001"))

	assert.Equal(t, StatusCancelled, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
	// Pending cancellation also hands the hold back
	assert.Contains(t, fx.world.releasedHolds, hold.ID)
	assert.Contains(t, fx.publisher.eventTypes(), notifications.EventBookingCancelled)
}

func TestCancelConfirmedBookingFreesInventory(t *testing.T) {
	fx := newBookingFixture(t)
	hold, unitIDs := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	body, sig := capturedWebhook(t, resp.PaymentOrderID, "pay_123", resp.Amount)
	require.NoError(t, fx.service.HandleWebhook(context.Background(), body, sig))

	require.NoError(t, fx.service.CancelBooking(context.Background(), resp.BookingID, "session-0001"))

	assert.Equal(t, StatusCancelled, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
	for _, id := range unitIDs {
		assert.Equal(t, shows.UnitAvailable, fx.world.unitStatus(id))
	}
	// Confirmed cancellation does not touch the converted hold
	assert.NotContains(t, fx.world.releasedHolds, hold.ID)
}

func TestCancelBookingFailures(t *testing.T) {
	t.Run("wrong session", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		err := fx.service.CancelBooking(context.Background(), resp.BookingID, "session-9999")
		assert.ErrorIs(t, err, holds.ErrSessionMismatch)
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		require.NoError(t, fx.service.CancelBooking(context.Background(), resp.BookingID, "session-0001"))
		require.NoError(t, fx.service.CancelBooking(context.Background(), resp.BookingID, "session-0001"))
	})

	t.Run("expired booking", func(t *testing.T) {
		fx := newBookingFixture(t)
		hold, _ := fx.seatedHold(t, "session-0001")
		resp := fx.createBooking(t, hold)

		fx.world.mu.Lock()
		fx.world.bookings[uuid.MustParse(resp.BookingID)].Status = StatusExpired
		fx.world.mu.Unlock()

		err := fx.service.CancelBooking(context.Background(), resp.BookingID, "session-0001")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown booking", func(t *testing.T) {
		fx := newBookingFixture(t)
		err := fx.service.CancelBooking(context.Background(), uuid.NewString(), "session-0001")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestExpirePendingByHoldID(t *testing.T) {
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	require.NoError(t, fx.service.ExpirePendingByHoldID(context.Background(), hold.ID))
	assert.Equal(t, StatusExpired, fx.world.bookingStatus(uuid.MustParse(resp.BookingID)))
}

func TestGetBookingByReference(t *testing.T) {
	fx := newBookingFixture(t)
	hold, _ := fx.seatedHold(t, "session-0001")
	resp := fx.createBooking(t, hold)

	got, err := fx.service.GetBookingByReference(context.Background(), resp.Reference)
	require.NoError(t, err)
	assert.Equal(t, resp.BookingID, got.BookingID)

	_, err = fx.service.GetBookingByReference(context.Background(), "GPS-19700101-ZZZZZZ")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGenerateReference(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref, err := GenerateReference(now)
		require.NoError(t, err)
		require.Len(t, ref, len("GPS-20260828-")+6)
		assert.True(t, strings.HasPrefix(ref, "GPS-20260828-"))

		suffix := ref[len("GPS-20260828-"):]
		for _, c := range suffix {
			assert.Contains(t, referenceAlphabet, string(c))
			assert.NotContains(t, "IO01", string(c), "ambiguous characters are excluded")
		}
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 1)
}
