package service

import (
	"context"
	"time"

	"clubhub/client/internal/devserver/repository"
	"clubhub/client/internal/ids"
	"clubhub/client/internal/models"
)

// SeedDirectory fills an empty directory with a few clubs and events.
func SeedDirectory(ctx context.Context, dir *repository.DirectoryRepository, now time.Time) error {
	type seedEvent struct {
		title, location string
		in              time.Duration
		status          models.EventStatus
	}
	seeds := []struct {
		name   string
		active bool
		events []seedEvent
	}{
		{"Robotics Club", true, []seedEvent{
			{"Line follower workshop", "Engineering Lab 2", 72 * time.Hour, models.EventStatusAccepted},
			{"Drone racing night", "Sports Hall", 240 * time.Hour, models.EventStatusPending},
		}},
		{"Debate Society", true, []seedEvent{
			{"Freshman debate open", "Irwin Hall", 48 * time.Hour, models.EventStatusAccepted},
		}},
		{"Photography Club", false, nil},
	}

	for i, seed := range seeds {
		club := models.Club{
			ID:        ids.New(),
			ClubName:  seed.name,
			IsActive:  seed.active,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		dir.CreateClub(ctx, club)

		for _, e := range seed.events {
			start := now.Add(e.in).Truncate(time.Hour)
			if err := dir.CreateEvent(ctx, models.Event{
				ID:        ids.New(),
				ClubID:    club.ID,
				Title:     e.title,
				Location:  e.location,
				Status:    e.status,
				IsActive:  true,
				StartsAt:  start,
				EndsAt:    start.Add(2 * time.Hour),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
