// Package bookings wraps the /bookings endpoints.
package bookings

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/api"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/events"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

const pageSize = 100

var errorMapper = api.Mapper{
	Messages: map[int]string{
		http.StatusNotFound:            "Booking not found",
		http.StatusForbidden:           api.MsgNotAuthorized,
		http.StatusConflict:            "You already have a booking for this slot",
		http.StatusInternalServerError: api.MsgServerError,
	},
	BadRequest: "Invalid request",
}

type Option func(*Service)

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

type Service struct {
	api    *api.Client
	events events.Publisher
	logger *slog.Logger
}

func NewService(client *api.Client, opts ...Option) *Service {
	s := &Service{
		api:    client,
		events: events.Nop{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, data model.BookingCreate) (*model.Booking, error) {
	if _, err := api.ResourceID(data.SlotID); err != nil {
		return nil, errorMapper.Map(err)
	}
	var b model.Booking
	if err := s.api.Post(ctx, "/bookings", data, &b); err != nil {
		return nil, errorMapper.Map(err)
	}
	s.logger.Info("booking created", "booking_id", b.ID, "slot_id", b.SlotID)
	events.Emit(ctx, s.events, s.logger, events.New(events.BookingCreated, b.ID, b.UserID, map[string]string{
		"slot_id": b.SlotID,
	}))
	return &b, nil
}

// Mine lists the current user's bookings, cancelled ones included.
func (s *Service) Mine(ctx context.Context, filters *model.BookingFilters) ([]model.Booking, error) {
	return s.list(ctx, "/bookings/my", filters)
}

// All lists every booking. Admin only.
func (s *Service) All(ctx context.Context, filters *model.BookingFilters) ([]model.Booking, error) {
	return s.list(ctx, "/bookings", filters)
}

func (s *Service) Active(ctx context.Context) ([]model.Booking, error) {
	return s.Mine(ctx, &model.BookingFilters{Limit: model.Ptr(pageSize)})
}

func (s *Service) list(ctx context.Context, path string, filters *model.BookingFilters) ([]model.Booking, error) {
	q := url.Values{}
	if filters != nil {
		api.SetInt(q, "skip", filters.Skip)
		api.SetInt(q, "limit", filters.Limit)
	}
	out := []model.Booking{}
	if err := s.api.Get(ctx, path, q, &out); err != nil {
		return nil, errorMapper.Map(err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Booking, error) {
	id, err := api.ResourceID(id)
	if err != nil {
		return nil, errorMapper.Map(err)
	}
	var b model.Booking
	if err := s.api.Get(ctx, "/bookings/"+id, nil, &b); err != nil {
		return nil, errorMapper.Map(err)
	}
	return &b, nil
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	id, err := api.ResourceID(id)
	if err != nil {
		return errorMapper.Map(err)
	}
	if err := s.api.Delete(ctx, "/bookings/"+id); err != nil {
		return errorMapper.Map(err)
	}
	s.logger.Info("booking cancelled", "booking_id", id)
	events.Emit(ctx, s.events, s.logger, events.New(events.BookingCancelled, id, "", nil))
	return nil
}

// HasBookingForSlot pages through the user's bookings looking for an active
// one on slotID.
func (s *Service) HasBookingForSlot(ctx context.Context, slotID string) (bool, error) {
	slotID, err := api.ResourceID(slotID)
	if err != nil {
		return false, errorMapper.Map(err)
	}
	for skip := 0; ; skip += pageSize {
		page, err := s.Mine(ctx, &model.BookingFilters{Skip: model.Ptr(skip), Limit: model.Ptr(pageSize)})
		if err != nil {
			return false, err
		}
		for _, b := range page {
			if strings.EqualFold(b.SlotID, slotID) && b.IsActive {
				return true, nil
			}
		}
		if len(page) < pageSize {
			return false, nil
		}
	}
}
