package holds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gatepass/internal/notifications"
	"gatepass/internal/shared/config"
	"gatepass/internal/shows"
	"gatepass/pkg/logger"
)

// ErrSessionMismatch guards hold operations: only the session that acquired
// a hold may renew or release it.
var ErrSessionMismatch = errors.New("hold belongs to a different session")

type Service interface {
	AcquireHold(ctx context.Context, showID string, req AcquireHoldRequest) (*HoldResponse, error)
	RenewHold(ctx context.Context, holdID string, sessionID string) (*HoldResponse, error)
	ReleaseHold(ctx context.Context, holdID string, sessionID string) error
	GetHold(ctx context.Context, holdID string) (*HoldResponse, error)
}

type service struct {
	repo      Repository
	showsRepo shows.Repository
	config    *config.Config
	publisher notifications.Publisher
}

func NewService(repo Repository, showsRepo shows.Repository, cfg *config.Config, publisher notifications.Publisher) Service {
	return &service{
		repo:      repo,
		showsRepo: showsRepo,
		config:    cfg,
		publisher: publisher,
	}
}

// ACQUIRE

func (s *service) AcquireHold(ctx context.Context, showID string, req AcquireHoldRequest) (*HoldResponse, error) {
	showUUID, err := uuid.Parse(showID)
	if err != nil {
		return nil, fmt.Errorf("invalid show ID: %w", err)
	}

	show, err := s.showsRepo.GetShowByID(ctx, showUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("show not found")
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	if !show.Published {
		return nil, fmt.Errorf("show is not on sale")
	}

	if show.Mode == shows.ModeSeated {
		return s.acquireSeated(ctx, show, req)
	}
	return s.acquireCapacity(ctx, show, req)
}

func (s *service) acquireSeated(ctx context.Context, show *shows.Show, req AcquireHoldRequest) (*HoldResponse, error) {
	if len(req.UnitIDs) == 0 {
		return nil, fmt.Errorf("no units specified")
	}

	var unitUUIDs []uuid.UUID
	for _, idStr := range req.UnitIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid unit ID: %s", idStr)
		}
		unitUUIDs = append(unitUUIDs, id)
	}

	units, err := s.showsRepo.GetUnitsByIDs(ctx, unitUUIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get units: %w", err)
	}
	if len(units) != len(unitUUIDs) {
		return nil, fmt.Errorf("one or more units do not exist")
	}

	// Fast pre-checks before touching the database transaction: base
	// status and the live Redis mirror. The conditional update inside
	// CreateSeatedHold remains the authoritative race arbiter.
	var unavailable []string
	for _, u := range units {
		if u.ShowID != show.ID {
			return nil, fmt.Errorf("unit %s does not belong to this show", u.Label)
		}
		if !u.IsAvailable() {
			unavailable = append(unavailable, u.Label)
		}
	}
	if len(unavailable) > 0 {
		return nil, &UnavailableUnitsError{Labels: unavailable}
	}

	liveHolds, err := s.showsRepo.CheckUnitHolds(ctx, unitUUIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check live holds: %w", err)
	}
	if len(liveHolds) > 0 {
		for _, u := range units {
			if _, held := liveHolds[u.ID.String()]; held {
				unavailable = append(unavailable, u.Label)
			}
		}
		return nil, &UnavailableUnitsError{Labels: unavailable}
	}

	ttl := s.config.Hold.TTL
	hold := &Hold{
		ID:        uuid.New(),
		ShowID:    show.ID,
		SessionID: req.SessionID,
		Mode:      shows.ModeSeated,
		Quantity:  len(unitUUIDs),
		Status:    StatusActive,
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := s.repo.CreateSeatedHold(ctx, hold, unitUUIDs); err != nil {
		var unavailableErr *UnavailableUnitsError
		if errors.As(err, &unavailableErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire hold: %w", err)
	}

	if err := s.repo.Atomic().MirrorHold(ctx, hold, unitUUIDs, ttl); err != nil {
		// The Postgres claim already succeeded; a mirror failure only
		// delays seat-map visibility until the sweep.
		logger.GetDefault().Warn("failed to mirror hold", "hold_id", hold.ID, "error", err)
	}

	logger.GetDefault().LogHoldAcquired(ctx, hold.ID.String(), show.ID.String(), req.SessionID, hold.Quantity)
	s.publishLifecycle(ctx, notifications.EventHoldAcquired, hold, 0)

	return s.buildResponse(ctx, hold, units)
}

func (s *service) acquireCapacity(ctx context.Context, show *shows.Show, req AcquireHoldRequest) (*HoldResponse, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	ttl := s.config.Hold.TTL
	hold := &Hold{
		ID:        uuid.New(),
		ShowID:    show.ID,
		SessionID: req.SessionID,
		Mode:      shows.ModeCapacity,
		Quantity:  req.Quantity,
		Status:    StatusActive,
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := s.repo.CreateCapacityHold(ctx, hold); err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire hold: %w", err)
	}

	if err := s.repo.Atomic().MirrorHold(ctx, hold, nil, ttl); err != nil {
		logger.GetDefault().Warn("failed to mirror hold", "hold_id", hold.ID, "error", err)
	}

	logger.GetDefault().LogHoldAcquired(ctx, hold.ID.String(), show.ID.String(), req.SessionID, hold.Quantity)
	s.publishLifecycle(ctx, notifications.EventHoldAcquired, hold, float64(req.Quantity)*show.BasePrice)

	return s.buildResponse(ctx, hold, nil)
}

// RENEW

// RenewHold pushes the expiry forward by the renew window, never past
// created_at + max lifetime. A hold that cannot gain any time reports
// ErrHoldNotRenewable so the client knows to check out or let go.
func (s *service) RenewHold(ctx context.Context, holdID string, sessionID string) (*HoldResponse, error) {
	hold, err := s.getOwnedHold(ctx, holdID, sessionID)
	if err != nil {
		return nil, err
	}
	if !hold.IsActive() {
		return nil, ErrHoldExpired
	}

	now := time.Now()
	newExpiry := now.Add(s.config.Hold.RenewWindow)
	ceiling := hold.CreatedAt.Add(s.config.Hold.MaxLifetime)
	if newExpiry.After(ceiling) {
		newExpiry = ceiling
	}
	if !newExpiry.After(hold.ExpiresAt) {
		return nil, ErrHoldNotRenewable
	}

	if err := s.repo.RenewHold(ctx, hold.ID, newExpiry); err != nil {
		return nil, err
	}
	hold.ExpiresAt = newExpiry

	if err := s.repo.Atomic().RenewMirror(ctx, hold.ID.String(), newExpiry.Sub(now)); err != nil {
		logger.GetDefault().Warn("failed to renew hold mirror", "hold_id", hold.ID, "error", err)
	}

	s.publishLifecycle(ctx, notifications.EventHoldRenewed, hold, 0)

	return s.buildResponseWithUnits(ctx, hold)
}

// RELEASE

// ReleaseHold returns the hold's inventory. Idempotent: releasing a hold
// that already lapsed or was released reports success.
func (s *service) ReleaseHold(ctx context.Context, holdID string, sessionID string) error {
	hold, err := s.getOwnedHold(ctx, holdID, sessionID)
	if err != nil {
		return err
	}

	switch hold.Status {
	case StatusReleased, StatusExpired:
		return nil
	case StatusConverted:
		return fmt.Errorf("hold was already converted to a booking")
	}

	if err := s.repo.ReleaseHold(ctx, hold); err != nil {
		if errors.Is(err, ErrHoldExpired) {
			// Lost the claim to the sweeper; same outcome for the caller.
			return nil
		}
		return fmt.Errorf("failed to release hold: %w", err)
	}

	if err := s.repo.Atomic().DropMirror(ctx, hold.ID.String()); err != nil {
		logger.GetDefault().Warn("failed to drop hold mirror", "hold_id", hold.ID, "error", err)
	}

	s.publishLifecycle(ctx, notifications.EventHoldReleased, hold, 0)
	return nil
}

// READS

func (s *service) GetHold(ctx context.Context, holdID string) (*HoldResponse, error) {
	holdUUID, err := uuid.Parse(holdID)
	if err != nil {
		return nil, fmt.Errorf("invalid hold ID: %w", err)
	}

	hold, err := s.repo.GetHoldByID(ctx, holdUUID)
	if err != nil {
		return nil, err
	}

	return s.buildResponseWithUnits(ctx, hold)
}

// HELPERS

func (s *service) getOwnedHold(ctx context.Context, holdID string, sessionID string) (*Hold, error) {
	holdUUID, err := uuid.Parse(holdID)
	if err != nil {
		return nil, fmt.Errorf("invalid hold ID: %w", err)
	}

	hold, err := s.repo.GetHoldByID(ctx, holdUUID)
	if err != nil {
		return nil, err
	}
	if hold.SessionID != sessionID {
		return nil, ErrSessionMismatch
	}
	return hold, nil
}

func (s *service) buildResponseWithUnits(ctx context.Context, hold *Hold) (*HoldResponse, error) {
	var units []shows.ShowUnit
	if hold.Mode == shows.ModeSeated {
		var err error
		units, err = s.repo.GetUnitsByHoldID(ctx, hold.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get held units: %w", err)
		}
	}
	return s.buildResponse(ctx, hold, units)
}

func (s *service) buildResponse(ctx context.Context, hold *Hold, units []shows.ShowUnit) (*HoldResponse, error) {
	resp := &HoldResponse{
		HoldID:    hold.ID.String(),
		ShowID:    hold.ShowID.String(),
		SessionID: hold.SessionID,
		Mode:      string(hold.Mode),
		Status:    hold.Status,
		Quantity:  hold.Quantity,
		ExpiresAt: hold.ExpiresAt,
		TTL:       int(hold.TTLRemaining(time.Now()).Seconds()),
	}

	if hold.Mode == shows.ModeSeated {
		for _, u := range units {
			resp.Units = append(resp.Units, HeldUnitInfo{
				UnitID:   u.ID.String(),
				Label:    u.Label,
				Row:      u.Row,
				Category: u.Category,
				Price:    u.Price,
			})
			resp.TotalPrice += u.Price
		}
	} else {
		show, err := s.showsRepo.GetShowByID(ctx, hold.ShowID)
		if err != nil {
			return nil, fmt.Errorf("failed to get show: %w", err)
		}
		resp.TotalPrice = float64(hold.Quantity) * show.BasePrice
	}

	return resp, nil
}

func (s *service) publishLifecycle(ctx context.Context, eventType string, hold *Hold, amount float64) {
	if s.publisher == nil {
		return
	}
	event := &notifications.LifecycleEvent{
		Type:      eventType,
		SessionID: hold.SessionID,
		ShowID:    hold.ShowID.String(),
		HoldID:    hold.ID.String(),
		Quantity:  hold.Quantity,
		Amount:    amount,
		Timestamp: time.Now(),
	}
	if err := s.publisher.PublishLifecycleEvent(ctx, event); err != nil {
		logger.GetDefault().Warn("failed to publish lifecycle event", "type", eventType, "error", err)
	}
}
