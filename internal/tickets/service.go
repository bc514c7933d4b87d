package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/shared/config"
	"gatepass/pkg/logger"
)

type Service interface {
	// IssueTickets mints one sealed code per ticket row. Called by the
	// booking confirmation flow.
	IssueTickets(ctx context.Context, tickets []Ticket) ([]IssuedTicket, error)

	// Verify decides admission for a scanned code
	Verify(ctx context.Context, code string) (*ScanResult, error)

	// GetTicketsForBooking re-issues the codes for a confirmed booking
	GetTicketsForBooking(ctx context.Context, bookingID uuid.UUID) ([]IssuedTicket, error)
}

type service struct {
	repo   Repository
	codec  *Codec
	config *config.Config
}

func NewService(repo Repository, cfg *config.Config) (Service, error) {
	codec, err := NewCodec(cfg.Ticket.SecretKey)
	if err != nil {
		return nil, err
	}
	return &service{
		repo:   repo,
		codec:  codec,
		config: cfg,
	}, nil
}

// ISSUANCE

func (s *service) IssueTickets(ctx context.Context, tickets []Ticket) ([]IssuedTicket, error) {
	issued := make([]IssuedTicket, 0, len(tickets))
	showInfo := make(map[uuid.UUID]*ShowInfo, 1)
	for i := range tickets {
		t := &tickets[i]
		info, ok := showInfo[t.ShowID]
		if !ok {
			var err error
			info, err = s.repo.GetShowInfo(ctx, t.ShowID)
			if err != nil {
				return nil, fmt.Errorf("failed to load show for ticket %s: %w", t.ID, err)
			}
			showInfo[t.ShowID] = info
		}
		code, err := s.codec.Encode(&TicketPayload{
			TicketID:  t.ID,
			BookingID: t.BookingID,
			ShowID:    t.ShowID,
			EventName: info.EventName,
			ShowDate:  info.ShowDate.Format("2006-01-02"),
			ShowTime:  info.ShowTime,
			Label:     t.Label,
			IssuedAt:  t.IssuedAt.Unix(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to issue ticket %s: %w", t.ID, err)
		}
		issued = append(issued, IssuedTicket{
			TicketID: t.ID.String(),
			Label:    t.Label,
			Code:     code,
		})
	}
	return issued, nil
}

// VERIFICATION

// Verify runs the gate checks in order: authentic code, ticket exists,
// booking confirmed, within scan age, then the single-use claim. Only the
// claim mutates state, so a rejected scan never consumes the ticket.
func (s *service) Verify(ctx context.Context, code string) (*ScanResult, error) {
	payload, err := s.codec.Decode(code)
	if err != nil {
		logger.GetDefault().LogTicketRejected(ctx, "undecodable code")
		return &ScanResult{Result: ScanRejected, Reason: ErrTicketInvalid.Error()}, nil
	}

	ticket, err := s.repo.GetTicketByID(ctx, payload.TicketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			logger.GetDefault().LogTicketRejected(ctx, "unknown ticket ID")
			return &ScanResult{Result: ScanRejected, Reason: ErrTicketInvalid.Error()}, nil
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	// The payload must agree with the stored row; a valid seal around a
	// mismatched booking means a re-issued or revoked credential.
	if ticket.BookingID != payload.BookingID || ticket.ShowID != payload.ShowID {
		logger.GetDefault().LogTicketRejected(ctx, "payload does not match ticket record")
		return &ScanResult{Result: ScanRejected, Reason: ErrTicketInvalid.Error()}, nil
	}

	status, err := s.repo.GetBookingStatus(ctx, ticket.BookingID)
	if err != nil {
		if errors.Is(err, ErrTicketInvalid) {
			return &ScanResult{Result: ScanRejected, Reason: ErrTicketInvalid.Error()}, nil
		}
		return nil, fmt.Errorf("failed to load booking status: %w", err)
	}
	if status != "CONFIRMED" {
		logger.GetDefault().LogTicketRejected(ctx, "booking not confirmed")
		return &ScanResult{Result: ScanRejected, Reason: ErrBookingNotConfirmed.Error()}, nil
	}

	if maxAge := s.config.Ticket.MaxScanAge; maxAge > 0 {
		if time.Since(payload.IssuedTime()) > maxAge {
			logger.GetDefault().LogTicketRejected(ctx, "ticket past maximum scan age")
			return &ScanResult{Result: ScanRejected, Reason: ErrTicketTooOld.Error()}, nil
		}
	}

	alreadyUsed, err := s.repo.MarkUsed(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark ticket used: %w", err)
	}

	if alreadyUsed {
		// Re-read for the first scan time; the row is immutable after the flip
		used, err := s.repo.GetTicketByID(ctx, ticket.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload used ticket: %w", err)
		}
		logger.GetDefault().LogTicketScanned(ctx, ticket.ID.String(), true)
		return &ScanResult{
			Result:      ScanAlreadyUsed,
			TicketID:    ticket.ID.String(),
			Label:       ticket.Label,
			ShowID:      ticket.ShowID.String(),
			EventName:   payload.EventName,
			ShowDate:    payload.ShowDate,
			ShowTime:    payload.ShowTime,
			FirstUsedAt: used.UsedAt,
		}, nil
	}

	logger.GetDefault().LogTicketScanned(ctx, ticket.ID.String(), false)
	return &ScanResult{
		Result:    ScanAdmitted,
		TicketID:  ticket.ID.String(),
		Label:     ticket.Label,
		ShowID:    ticket.ShowID.String(),
		EventName: payload.EventName,
		ShowDate:  payload.ShowDate,
		ShowTime:  payload.ShowTime,
	}, nil
}

// READS

func (s *service) GetTicketsForBooking(ctx context.Context, bookingID uuid.UUID) ([]IssuedTicket, error) {
	tickets, err := s.repo.GetTicketsByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	return s.IssueTickets(ctx, tickets)
}
