// Package slots wraps the /slots endpoints.
package slots

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/api"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/events"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	upcomingLimit  = 50
)

var errorMapper = api.Mapper{
	Messages: map[int]string{
		http.StatusNotFound:            "Slot not found",
		http.StatusForbidden:           api.MsgNotAuthorized,
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	api    *api.Client
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(client *api.Client, opts ...Option) *Service {
	s := &Service{
		api:    client,
		events: events.Nop{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List sends only the filters that are set. A nil filters lists with the
// server defaults.
func (s *Service) List(ctx context.Context, filters *model.SlotFilters) ([]model.Slot, error) {
	q := url.Values{}
	if filters != nil {
		api.SetInt(q, "skip", filters.Skip)
		api.SetInt(q, "limit", filters.Limit)
		api.SetBool(q, "available_only", filters.AvailableOnly)
		api.SetTime(q, "start_date", filters.StartDate)
		api.SetTime(q, "end_date", filters.EndDate)
	}
	out := []model.Slot{}
	if err := s.api.Get(ctx, "/slots", q, &out); err != nil {
		return nil, errorMapper.Map(err)
	}
	return out, nil
}

func (s *Service) Available(ctx context.Context, filters *model.SlotFilters) ([]model.Slot, error) {
	f := model.SlotFilters{}
	if filters != nil {
		f = *filters
	}
	f.AvailableOnly = model.Ptr(true)
	return s.List(ctx, &f)
}

// Today lists available slots starting between local midnight and
// 23:59:59 of the current day.
func (s *Service) Today(ctx context.Context) ([]model.Slot, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	return s.Available(ctx, &model.SlotFilters{StartDate: &start, EndDate: &end})
}

// Upcoming lists up to 50 available slots in the next seven days.
func (s *Service) Upcoming(ctx context.Context) ([]model.Slot, error) {
	now := s.now()
	end := now.Add(upcomingWindow)
	return s.Available(ctx, &model.SlotFilters{
		StartDate: &now,
		EndDate:   &end,
		Limit:     model.Ptr(upcomingLimit),
	})
}

func (s *Service) Get(ctx context.Context, id string) (*model.Slot, error) {
	id, err := api.ResourceID(id)
	if err != nil {
		return nil, errorMapper.Map(err)
	}
	var slot model.Slot
	if err := s.api.Get(ctx, "/slots/"+id, nil, &slot); err != nil {
		return nil, errorMapper.Map(err)
	}
	return &slot, nil
}

func (s *Service) Create(ctx context.Context, data model.SlotCreate) (*model.Slot, error) {
	var slot model.Slot
	if err := s.api.Post(ctx, "/slots", data, &slot); err != nil {
		return nil, errorMapper.Map(err)
	}
	s.logger.Info("slot created", "slot_id", slot.ID, "start", slot.StartTime)
	events.Emit(ctx, s.events, s.logger, events.New(events.SlotCreated, slot.ID, slot.CreatedBy, slot))
	return &slot, nil
}

func (s *Service) Update(ctx context.Context, id string, data model.SlotUpdate) (*model.Slot, error) {
	id, err := api.ResourceID(id)
	if err != nil {
		return nil, errorMapper.Map(err)
	}
	var slot model.Slot
	if err := s.api.Put(ctx, "/slots/"+id, data, &slot); err != nil {
		return nil, errorMapper.Map(err)
	}
	s.logger.Info("slot updated", "slot_id", slot.ID)
	events.Emit(ctx, s.events, s.logger, events.New(events.SlotUpdated, slot.ID, "", data))
	return &slot, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id, err := api.ResourceID(id)
	if err != nil {
		return errorMapper.Map(err)
	}
	if err := s.api.Delete(ctx, "/slots/"+id); err != nil {
		return errorMapper.Map(err)
	}
	s.logger.Info("slot deleted", "slot_id", id)
	events.Emit(ctx, s.events, s.logger, events.New(events.SlotDeleted, id, "", nil))
	return nil
}
