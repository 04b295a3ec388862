package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"clubhub/client/internal/models"
)

var (
	ErrClubNotFound  = errors.New("club not found")
	ErrEventNotFound = errors.New("event not found")
)

type DirectoryRepository struct {
	mu     sync.RWMutex
	clubs  map[string]models.Club
	events map[string]models.Event
}

func NewDirectoryRepository() *DirectoryRepository {
	return &DirectoryRepository{
		clubs:  make(map[string]models.Club),
		events: make(map[string]models.Event),
	}
}

func (r *DirectoryRepository) CreateClub(_ context.Context, club models.Club) {
	r.mu.Lock()
	defer r.mu.Unlock()
	club.Events = nil
	r.clubs[club.ID] = club
}

func (r *DirectoryRepository) CreateEvent(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clubs[event.ClubID]; !ok {
		return ErrClubNotFound
	}
	r.events[event.ID] = event
	return nil
}

// ListClubs returns clubs by creation time. Inactive ones are skipped
// unless includeInactive is set.
func (r *DirectoryRepository) ListClubs(_ context.Context, includeInactive bool) []models.Club {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Club, 0, len(r.clubs))
	for _, c := range r.clubs {
		if c.IsActive || includeInactive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// GetClub returns the club with its events attached.
func (r *DirectoryRepository) GetClub(_ context.Context, id string, includeInactive bool) (models.Club, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	club, ok := r.clubs[id]
	if !ok || (!club.IsActive && !includeInactive) {
		return models.Club{}, ErrClubNotFound
	}
	for _, e := range r.events {
		if e.ClubID == id && (e.IsActive || includeInactive) {
			club.Events = append(club.Events, e)
		}
	}
	sort.Slice(club.Events, func(i, j int) bool { return club.Events[i].StartsAt.Before(club.Events[j].StartsAt) })
	return club, nil
}

func (r *DirectoryRepository) ListEvents(_ context.Context, includeInactive bool) []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Event, 0, len(r.events))
	for _, e := range r.events {
		if e.IsActive || includeInactive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (r *DirectoryRepository) GetEvent(_ context.Context, id string, includeInactive bool) (models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok || (!event.IsActive && !includeInactive) {
		return models.Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *DirectoryRepository) SetClubActive(_ context.Context, id string, active bool) (models.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	club, ok := r.clubs[id]
	if !ok {
		return models.Club{}, ErrClubNotFound
	}
	club.IsActive = active
	r.clubs[id] = club
	return club, nil
}

func (r *DirectoryRepository) SetEventActive(_ context.Context, id string, active bool) (models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return models.Event{}, ErrEventNotFound
	}
	event.IsActive = active
	r.events[id] = event
	return event, nil
}
