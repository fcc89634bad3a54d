package model

import "time"

type Slot struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         *string   `json:"description,omitempty"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	IsAvailable         bool      `json:"is_available"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	CreatedBy           string    `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	AvailableSpots      int       `json:"available_spots"`
	IsFull              bool      `json:"is_full"`
	Creator             *User     `json:"creator,omitempty"`
}

func (s Slot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// HasCapacity reports whether the server marked the slot bookable.
func (s Slot) HasCapacity() bool {
	return s.IsAvailable && !s.IsFull && s.AvailableSpots > 0
}

type SlotCreate struct {
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants"`
}

// SlotUpdate only carries the fields that are set.
type SlotUpdate struct {
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	MaxParticipants *int       `json:"max_participants,omitempty"`
	IsAvailable     *bool      `json:"is_available,omitempty"`
}

type SlotFilters struct {
	Skip          *int
	Limit         *int
	AvailableOnly *bool
	StartDate     *time.Time
	EndDate       *time.Time
}
