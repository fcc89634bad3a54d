package apitest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

// AddSlot stores slot as created by creator and returns the stored copy.
// Empty ids and zero capacities are filled in.
func (s *Server) AddSlot(slot model.Slot, creator model.User) model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.MaxParticipants == 0 {
		slot.MaxParticipants = 1
	}
	now := time.Now().UTC()
	slot.CreatedBy = creator.ID
	slot.CreatedAt, slot.UpdatedAt = now, now
	c := creator
	slot.Creator = &c
	refreshSlot(&slot)
	s.slots[slot.ID] = &slot
	return slot
}

// AddBooking stores an active booking of slotID for u.
func (s *Server) AddBooking(slotID string, u model.User) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := model.Booking{
		ID:       uuid.NewString(),
		SlotID:   slotID,
		UserID:   u.ID,
		Status:   model.BookingStatusActive,
		BookedAt: time.Now().UTC(),
		IsActive: true,
	}
	if slot, ok := s.slots[slotID]; ok {
		slot.CurrentParticipants++
		refreshSlot(slot)
	}
	s.bookings[b.ID] = &b
	s.bookingOrder = append(s.bookingOrder, b.ID)
	return b
}

func (s *Server) Slot(id string) (model.Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return model.Slot{}, false
	}
	return *slot, true
}

func (s *Server) Booking(id string) (model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, false
	}
	return *b, true
}

func refreshSlot(slot *model.Slot) {
	slot.AvailableSpots = slot.MaxParticipants - slot.CurrentParticipants
	if slot.AvailableSpots < 0 {
		slot.AvailableSpots = 0
	}
	slot.IsFull = slot.AvailableSpots == 0
}

type page struct {
	skip  int
	limit int
}

func parsePage(q url.Values) (page, string) {
	p := page{limit: 100}
	if raw := q.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return p, "skip must be a non-negative integer"
		}
		p.skip = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 1000 {
			return p, "limit must be between 1 and 1000"
		}
		p.limit = v
	}
	return p, ""
}

func paginate[T any](items []T, p page) []T {
	if p.skip >= len(items) {
		return []T{}
	}
	items = items[p.skip:]
	if len(items) > p.limit {
		items = items[:p.limit]
	}
	return items
}

func parseTimeParam(q url.Values, key string) (*time.Time, bool) {
	raw := q.Get(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request, _ model.User) {
	q := r.URL.Query()
	p, msg := parsePage(q)
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}
	start, ok1 := parseTimeParam(q, "start_date")
	end, ok2 := parseTimeParam(q, "end_date")
	if !ok1 || !ok2 {
		writeDetail(w, http.StatusBadRequest, "Invalid date format")
		return
	}
	availableOnly := q.Get("available_only") == "true"

	s.mu.Lock()
	out := make([]model.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		if availableOnly && (!slot.IsAvailable || slot.IsFull) {
			continue
		}
		if start != nil && slot.StartTime.Before(*start) {
			continue
		}
		if end != nil && slot.StartTime.After(*end) {
			continue
		}
		out = append(out, *slot)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	writeJSON(w, http.StatusOK, paginate(out, p))
}

func (s *Server) getSlot(w http.ResponseWriter, r *http.Request, _ model.User) {
	slot, ok := s.Slot(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Slot not found")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *Server) createSlot(w http.ResponseWriter, r *http.Request, u model.User) {
	var req model.SlotCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeValidation(w, "title", "Field required")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		writeDetail(w, http.StatusBadRequest, "End time must be after start time")
		return
	}
	if req.MaxParticipants < 1 {
		writeDetail(w, http.StatusBadRequest, "max_participants must be at least 1")
		return
	}
	slot := s.AddSlot(model.Slot{
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		IsAvailable:     true,
	}, u)
	writeJSON(w, http.StatusCreated, slot)
}

func (s *Server) updateSlot(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req model.SlotUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[r.PathValue("id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Slot not found")
		return
	}
	next := *slot
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.Description != nil {
		next.Description = req.Description
	}
	if req.StartTime != nil {
		next.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		next.EndTime = *req.EndTime
	}
	if req.MaxParticipants != nil {
		next.MaxParticipants = *req.MaxParticipants
	}
	if req.IsAvailable != nil {
		next.IsAvailable = *req.IsAvailable
	}
	if !next.EndTime.After(next.StartTime) {
		writeDetail(w, http.StatusBadRequest, "End time must be after start time")
		return
	}
	if next.MaxParticipants < next.CurrentParticipants {
		writeDetail(w, http.StatusBadRequest, "max_participants cannot be below current participants")
		return
	}
	next.UpdatedAt = time.Now().UTC()
	refreshSlot(&next)
	*slot = next
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) deleteSlot(w http.ResponseWriter, r *http.Request, _ model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.slots[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Slot not found")
		return
	}
	for _, b := range s.bookings {
		if b.SlotID == id && b.IsActive {
			writeDetail(w, http.StatusBadRequest, "Cannot delete slot with active bookings")
			return
		}
	}
	delete(s.slots, id)
	w.WriteHeader(http.StatusNoContent)
}

// bookingsWhere returns matching bookings, newest first.
func (s *Server) bookingsWhere(keep func(*model.Booking) bool) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0)
	for i := len(s.bookingOrder) - 1; i >= 0; i-- {
		if b := s.bookings[s.bookingOrder[i]]; keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

func (s *Server) myBookings(w http.ResponseWriter, r *http.Request, u model.User) {
	p, msg := parsePage(r.URL.Query())
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}
	out := s.bookingsWhere(func(b *model.Booking) bool { return b.UserID == u.ID })
	writeJSON(w, http.StatusOK, paginate(out, p))
}

func (s *Server) allBookings(w http.ResponseWriter, r *http.Request, _ model.User) {
	p, msg := parsePage(r.URL.Query())
	if msg != "" {
		writeDetail(w, http.StatusBadRequest, msg)
		return
	}
	out := s.bookingsWhere(func(*model.Booking) bool { return true })
	writeJSON(w, http.StatusOK, paginate(out, p))
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request, u model.User) {
	var req model.BookingCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[req.SlotID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Slot not found")
		return
	}
	for _, b := range s.bookings {
		if b.SlotID == slot.ID && b.UserID == u.ID && b.IsActive {
			writeDetail(w, http.StatusConflict, "User already has an active booking for this slot")
			return
		}
	}
	if !slot.IsAvailable || slot.IsFull {
		writeDetail(w, http.StatusBadRequest, "Slot is not available for booking")
		return
	}

	slot.CurrentParticipants++
	refreshSlot(slot)
	snapshot := *slot
	owner := u
	b := model.Booking{
		ID:       uuid.NewString(),
		SlotID:   slot.ID,
		UserID:   u.ID,
		Status:   model.BookingStatusActive,
		Notes:    req.Notes,
		BookedAt: time.Now().UTC(),
		IsActive: true,
	}
	s.bookings[b.ID] = &b
	s.bookingOrder = append(s.bookingOrder, b.ID)

	out := b
	out.Slot = &snapshot
	out.User = &owner
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request, u model.User) {
	b, ok := s.Booking(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Booking not found")
		return
	}
	if b.UserID != u.ID && !u.IsAdmin() {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	if slot, ok := s.Slot(b.SlotID); ok {
		b.Slot = &slot
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request, u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[r.PathValue("id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Booking not found")
		return
	}
	if b.UserID != u.ID && !u.IsAdmin() {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	if !b.IsActive {
		writeDetail(w, http.StatusBadRequest, "Booking is already cancelled")
		return
	}
	now := time.Now().UTC()
	b.Status = model.BookingStatusCancelled
	b.IsActive = false
	b.CancelledAt = &now
	if slot, ok := s.slots[b.SlotID]; ok && slot.CurrentParticipants > 0 {
		slot.CurrentParticipants--
		refreshSlot(slot)
	}
	w.WriteHeader(http.StatusNoContent)
}
