package models

import "time"

type EventStatus string

const (
	EventStatusPending  EventStatus = "PENDING"
	EventStatusAccepted EventStatus = "ACCEPTED"
	EventStatusDeclined EventStatus = "DECLINED"
)

type Club struct {
	ID        string    `json:"id"`
	ClubName  string    `json:"clubName"`
	IsActive  bool      `json:"isActive"`
	Events    []Event   `json:"events,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Event struct {
	ID          string      `json:"id"`
	ClubID      string      `json:"clubId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Status      EventStatus `json:"status"`
	IsActive    bool        `json:"isActive"`
	StartsAt    time.Time   `json:"startsAt"`
	EndsAt      time.Time   `json:"endsAt"`
	CreatedAt   time.Time   `json:"createdAt"`
}
