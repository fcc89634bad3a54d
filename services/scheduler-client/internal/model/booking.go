package model

import "time"

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID          string        `json:"id"`
	SlotID      string        `json:"slot_id"`
	UserID      string        `json:"user_id"`
	Status      BookingStatus `json:"status"`
	Notes       *string       `json:"notes,omitempty"`
	BookedAt    time.Time     `json:"booked_at"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	IsActive    bool          `json:"is_active"`
	Slot        *Slot         `json:"slot,omitempty"`
	User        *User         `json:"user,omitempty"`
}

func (b Booking) Cancelled() bool {
	return b.Status == BookingStatusCancelled
}

type BookingCreate struct {
	SlotID string  `json:"slot_id"`
	Notes  *string `json:"notes,omitempty"`
}

type BookingUpdate struct {
	Notes  *string        `json:"notes,omitempty"`
	Status *BookingStatus `json:"status,omitempty"`
}

type BookingFilters struct {
	Skip  *int
	Limit *int
}
