package shows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatepass/internal/shared/constants"
	"gatepass/pkg/cache"
	"gatepass/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	// Show management
	CreateShow(ctx context.Context, req CreateShowRequest) (*Show, error)
	GetShow(ctx context.Context, id string) (*Show, error)
	ListShows(ctx context.Context, limit, offset int) ([]Show, error)
	DeleteShow(ctx context.Context, id string) error

	// Layout publishing
	PublishLayout(ctx context.Context, showID string, req PublishLayoutRequest) (*Show, error)

	// Availability (merged Postgres status + live holds)
	GetAvailability(ctx context.Context, showID string) (*AvailabilityResponse, error)

	// Admin unit state
	SetUnitBlocked(ctx context.Context, unitID string, blocked bool) error
}

type service struct {
	repo         Repository
	cacheService cache.Service
}

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// SHOW MANAGEMENT

func (s *service) CreateShow(ctx context.Context, req CreateShowRequest) (*Show, error) {
	showDate, err := time.Parse("2006-01-02", req.ShowDate)
	if err != nil {
		return nil, fmt.Errorf("invalid show date: %w", err)
	}

	mode := ShowMode(req.Mode)
	if mode != ModeSeated && mode != ModeCapacity {
		return nil, fmt.Errorf("invalid show mode: %s", req.Mode)
	}

	show := &Show{
		EventName: req.EventName,
		ShowDate:  showDate,
		ShowTime:  req.ShowTime,
		Language:  req.Language,
		Mode:      mode,
		BasePrice: req.BasePrice,
	}

	if err := s.repo.CreateShow(ctx, show); err != nil {
		return nil, fmt.Errorf("failed to create show: %w", err)
	}

	return show, nil
}

func (s *service) GetShow(ctx context.Context, id string) (*Show, error) {
	showID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid show ID: %w", err)
	}

	cacheKey := constants.ShowDetailKey(id)
	if s.cacheService != nil {
		var cached Show
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	show, err := s.repo.GetShowByID(ctx, showID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("show not found")
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, show, constants.TTLShowDetail); err != nil {
			logger.GetDefault().Debug("failed to cache show detail", "error", err)
		}
	}

	return show, nil
}

func (s *service) ListShows(ctx context.Context, limit, offset int) ([]Show, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListShows(ctx, limit, offset)
}

func (s *service) DeleteShow(ctx context.Context, id string) error {
	showID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid show ID: %w", err)
	}
	if err := s.repo.DeleteShow(ctx, showID); err != nil {
		return fmt.Errorf("failed to delete show: %w", err)
	}
	s.invalidateAvailability(ctx, id)
	return nil
}

// LAYOUT PUBLISHING

func (s *service) PublishLayout(ctx context.Context, id string, req PublishLayoutRequest) (*Show, error) {
	showID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid show ID: %w", err)
	}

	show, err := s.repo.GetShowByID(ctx, showID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("show not found")
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	switch show.Mode {
	case ModeCapacity:
		if req.Capacity <= 0 {
			return nil, fmt.Errorf("capacity must be positive")
		}
		if err := s.repo.PublishCapacity(ctx, showID, req.Capacity); err != nil {
			return nil, fmt.Errorf("failed to publish capacity: %w", err)
		}

	case ModeSeated:
		if len(req.Sections) == 0 {
			return nil, fmt.Errorf("no sections specified")
		}
		units := buildUnits(show, req.Sections)
		if len(units) == 0 {
			return nil, fmt.Errorf("layout produced no units")
		}
		if err := s.repo.PublishUnits(ctx, showID, units); err != nil {
			return nil, fmt.Errorf("failed to publish layout: %w", err)
		}
	}

	s.invalidateAvailability(ctx, id)
	logger.GetDefault().InfoWithContext(ctx, "Show layout published", map[string]interface{}{
		"show_id": id,
		"mode":    show.Mode,
	})

	return s.repo.GetShowByID(ctx, showID)
}

// buildUnits expands the section grid into one unit per seat, priced by the
// section's multiplier over the show base price.
func buildUnits(show *Show, sections []LayoutSection) []ShowUnit {
	var units []ShowUnit
	for _, section := range sections {
		multiplier := section.PriceMultiplier
		if multiplier <= 0 {
			multiplier = 1.0
		}
		for _, row := range section.Rows {
			for n := 1; n <= section.SeatsPerRow; n++ {
				units = append(units, ShowUnit{
					ShowID:   show.ID,
					Label:    fmt.Sprintf("%s%d", row, n),
					Row:      row,
					Category: section.Category,
					Price:    show.BasePrice * multiplier,
					Status:   UnitAvailable,
				})
			}
		}
	}
	return units
}

// AVAILABILITY

func (s *service) GetAvailability(ctx context.Context, id string) (*AvailabilityResponse, error) {
	showID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid show ID: %w", err)
	}

	cacheKey := constants.AvailabilityKey(id)
	if s.cacheService != nil {
		var cached AvailabilityResponse
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	show, err := s.repo.GetShowByID(ctx, showID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("show not found")
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	resp := &AvailabilityResponse{
		ShowID:    id,
		EventName: show.EventName,
		Mode:      string(show.Mode),
	}

	if show.Mode == ModeCapacity {
		resp.Capacity = show.Capacity
		resp.Remaining = show.Remaining()
	} else {
		units, err := s.repo.GetUnitsByShowID(ctx, showID)
		if err != nil {
			return nil, fmt.Errorf("failed to get units: %w", err)
		}

		unitIDs := make([]uuid.UUID, 0, len(units))
		for _, u := range units {
			unitIDs = append(unitIDs, u.ID)
		}

		liveHolds, err := s.repo.CheckUnitHolds(ctx, unitIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to check live holds: %w", err)
		}

		for _, u := range units {
			status := u.Status
			// A live Redis claim overrides a stale AVAILABLE read between
			// the claim and the sweep.
			if _, held := liveHolds[u.ID.String()]; held && status == UnitAvailable {
				status = UnitHeld
			}
			resp.Units = append(resp.Units, UnitAvailabilityInfo{
				UnitID:   u.ID.String(),
				Label:    u.Label,
				Row:      u.Row,
				Category: u.Category,
				Price:    u.Price,
				Status:   status,
			})
			if status == UnitAvailable {
				resp.Remaining++
			}
		}
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTLAvailability); err != nil {
			logger.GetDefault().Debug("failed to cache availability", "error", err)
		}
	}

	return resp, nil
}

// ADMIN UNIT STATE

func (s *service) SetUnitBlocked(ctx context.Context, id string, blocked bool) error {
	unitID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid unit ID: %w", err)
	}
	if err := s.repo.SetUnitBlocked(ctx, unitID, blocked); err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	return nil
}

func (s *service) invalidateAvailability(ctx context.Context, showID string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.AvailabilityKey(showID)); err != nil {
		logger.GetDefault().Debug("failed to invalidate availability cache", "error", err)
	}
	if err := s.cacheService.Delete(ctx, constants.ShowDetailKey(showID)); err != nil {
		logger.GetDefault().Debug("failed to invalidate show detail cache", "error", err)
	}
}
