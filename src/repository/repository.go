// Package repository persists users and travel stories. Every story
// operation is keyed by the (owner, story id) pair; a story owned by someone
// else is indistinguishable from one that does not exist.
package repository

import (
	"context"
	"sort"
	"time"

	app "travelstory/src/app"
)

type (
	Users interface {
		// CreateUser fails with app.ErrAlreadyExists when the email is taken.
		CreateUser(ctx context.Context, fullName, email, passwordHash string) (*app.User, error)
		FindUserByEmail(ctx context.Context, email string) (*app.User, error)
		FindUserByID(ctx context.Context, id string) (*app.User, error)
	}

	Stories interface {
		CreateStory(ctx context.Context, owner string, fields app.StoryFields) (*app.TravelStory, error)
		ListStories(ctx context.Context, owner string) ([]app.TravelStory, error)
		GetStory(ctx context.Context, owner, id string) (*app.TravelStory, error)
		UpdateStory(ctx context.Context, owner, id string, fields app.StoryFields) (*app.TravelStory, error)
		SetFavourite(ctx context.Context, owner, id string, favourite bool) (*app.TravelStory, error)
		ToggleFavourite(ctx context.Context, owner, id string) (*app.TravelStory, error)
		// DeleteStory returns the removed record so callers can clean up its image.
		DeleteStory(ctx context.Context, owner, id string) (*app.TravelStory, error)
		SearchStories(ctx context.Context, owner, query string) ([]app.TravelStory, error)
		FilterStoriesByDate(ctx context.Context, owner string, start, end time.Time) ([]app.TravelStory, error)
	}
)

// now is truncated to the millisecond precision of BSON datetimes so both
// stores hand out identical timestamps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// sortFavouritesFirst orders favourites before the rest, newest first
// within each group.
func sortFavouritesFirst(stories []app.TravelStory) {
	sort.SliceStable(stories, func(i, j int) bool {
		if stories[i].IsFavourite != stories[j].IsFavourite {
			return stories[i].IsFavourite
		}
		if !stories[i].CreatedOn.Equal(stories[j].CreatedOn) {
			return stories[i].CreatedOn.After(stories[j].CreatedOn)
		}
		return stories[i].ID.Hex() > stories[j].ID.Hex()
	})
}
