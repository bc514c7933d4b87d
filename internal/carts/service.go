package carts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatepass/pkg/logger"
)

type Service interface {
	// RecordCheckout upserts the cart when a pending booking is opened,
	// keeping the last-seen contact and composition per hold
	RecordCheckout(ctx context.Context, cart *AbandonedCart) error

	// RecordAbandonment is called by the expiry sweeper when a hold lapses
	RecordAbandonment(ctx context.Context, cart *AbandonedCart) error

	// MarkRecovered is called when a session completes a booking for a show
	// it previously abandoned
	MarkRecovered(ctx context.Context, sessionID string, showID uuid.UUID) error

	// Reporting
	GetReport(ctx context.Context, showID string, sinceHours int, limit, offset int) ([]AbandonedCart, error)
	GetSummary(ctx context.Context, sinceHours int) (*SummaryRow, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RecordCheckout(ctx context.Context, cart *AbandonedCart) error {
	if cart.AbandonedAt.IsZero() {
		cart.AbandonedAt = time.Now()
	}
	if err := s.repo.Upsert(ctx, cart); err != nil {
		return fmt.Errorf("failed to record checkout cart: %w", err)
	}
	return nil
}

func (s *service) RecordAbandonment(ctx context.Context, cart *AbandonedCart) error {
	if cart.AbandonedAt.IsZero() {
		cart.AbandonedAt = time.Now()
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		return fmt.Errorf("failed to record abandoned cart: %w", err)
	}
	return nil
}

func (s *service) MarkRecovered(ctx context.Context, sessionID string, showID uuid.UUID) error {
	recovered, err := s.repo.MarkRecovered(ctx, sessionID, showID)
	if err != nil {
		return fmt.Errorf("failed to mark carts recovered: %w", err)
	}
	if recovered > 0 {
		logger.GetDefault().InfoWithContext(ctx, "Abandoned carts recovered", map[string]interface{}{
			"session_id": sessionID,
			"show_id":    showID.String(),
			"count":      recovered,
		})
	}
	return nil
}

func (s *service) GetReport(ctx context.Context, showID string, sinceHours int, limit, offset int) ([]AbandonedCart, error) {
	filter := ListFilter{Limit: limit, Offset: offset}

	if showID != "" {
		id, err := uuid.Parse(showID)
		if err != nil {
			return nil, fmt.Errorf("invalid show ID: %w", err)
		}
		filter.ShowID = &id
	}
	if sinceHours > 0 {
		since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
		filter.Since = &since
	}

	return s.repo.List(ctx, filter)
}

func (s *service) GetSummary(ctx context.Context, sinceHours int) (*SummaryRow, error) {
	if sinceHours <= 0 {
		sinceHours = 24
	}
	since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
	return s.repo.Summary(ctx, since)
}
