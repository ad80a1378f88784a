package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	app "travelstory/src/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storyFields(title string, visited app.EpochMillis, locations ...string) app.StoryFields {
	return app.StoryFields{
		Title:           title,
		Story:           "A story about " + title,
		VisitedLocation: locations,
		ImageURL:        "http://img.test/images/upload/v1/travel-stories/" + title + ".jpg",
		VisitedDate:     visited,
	}
}

func newUser(t *testing.T, db *InMemoryDB, email string) string {
	t.Helper()
	user, err := db.CreateUser(context.Background(), "Test User", email, "hash")
	require.NoError(t, err)
	return user.ID.Hex()
}

func TestInMemoryDB_Users(t *testing.T) {
	ctx := context.Background()
	db := NewInMemoryDB()

	t.Run("CreateUser", func(t *testing.T) {
		user, err := db.CreateUser(ctx, "Alice", " A@X.com ", "hash")
		require.NoError(t, err)
		assert.False(t, user.ID.IsZero())
		assert.Equal(t, "a@x.com", user.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := db.CreateUser(ctx, "Alice Again", "a@x.com", "hash")
		assert.ErrorIs(t, err, app.ErrAlreadyExists)
		assert.Len(t, db.users, 1)
	})

	t.Run("FindUserByEmail", func(t *testing.T) {
		user, err := db.FindUserByEmail(ctx, "A@x.COM")
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.FullName)

		_, err = db.FindUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, app.ErrNotFound)
	})

	t.Run("FindUserByID", func(t *testing.T) {
		byEmail, err := db.FindUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)

		user, err := db.FindUserByID(ctx, byEmail.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, user.ID)

		_, err = db.FindUserByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, app.ErrNotFound)
	})

	t.Run("concurrent registrations with one email", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make(chan error, 10)
		for n := 0; n < 10; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := db.CreateUser(ctx, "Racer", "race@x.com", "hash")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		created := 0
		for err := range results {
			if err == nil {
				created++
			} else {
				assert.ErrorIs(t, err, app.ErrAlreadyExists)
			}
		}
		assert.Equal(t, 1, created)
	})
}

func TestInMemoryDB_Stories(t *testing.T) {
	ctx := context.Background()
	db := NewInMemoryDB()
	alice := newUser(t, db, "alice@x.com")
	bob := newUser(t, db, "bob@x.com")

	paris, err := db.CreateStory(ctx, alice, storyFields("Paris Trip", 1700000000000, "Paris", "Lyon"))
	require.NoError(t, err)
	rome, err := db.CreateStory(ctx, alice, storyFields("Rome", 1710000000000, "Roma"))
	require.NoError(t, err)
	bobs, err := db.CreateStory(ctx, bob, storyFields("Bob in paris", 1700000000000, "France"))
	require.NoError(t, err)

	t.Run("CreateStory", func(t *testing.T) {
		assert.Equal(t, alice, paris.UserID.Hex())
		assert.False(t, paris.IsFavourite)
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), paris.VisitedDate)
		assert.Equal(t, []string{"Paris", "Lyon"}, paris.VisitedLocation)

		_, err := db.CreateStory(ctx, alice, app.StoryFields{Title: "only title"})
		assert.ErrorIs(t, err, app.ErrInvalidArgument)

		_, err = db.CreateStory(ctx, "000000000000000000000000", storyFields("ghost", 1, "x"))
		assert.ErrorIs(t, err, app.ErrUnauthorized)
	})

	t.Run("owner scoping", func(t *testing.T) {
		_, err := db.GetStory(ctx, bob, paris.ID.Hex())
		assert.ErrorIs(t, err, app.ErrNotFound)

		_, err = db.UpdateStory(ctx, bob, paris.ID.Hex(), storyFields("hijack", 1, "x"))
		assert.ErrorIs(t, err, app.ErrNotFound)

		_, err = db.SetFavourite(ctx, bob, paris.ID.Hex(), true)
		assert.ErrorIs(t, err, app.ErrNotFound)

		_, err = db.DeleteStory(ctx, bob, paris.ID.Hex())
		assert.ErrorIs(t, err, app.ErrNotFound)

		got, err := db.GetStory(ctx, alice, paris.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Paris Trip", got.Title)

		_, err = db.GetStory(ctx, alice, "garbage")
		assert.ErrorIs(t, err, app.ErrNotFound)
	})

	t.Run("favourites sort first", func(t *testing.T) {
		updated, err := db.SetFavourite(ctx, alice, paris.ID.Hex(), true)
		require.NoError(t, err)
		assert.True(t, updated.IsFavourite)

		stories, err := db.ListStories(ctx, alice)
		require.NoError(t, err)
		require.Len(t, stories, 2)
		assert.Equal(t, paris.ID, stories[0].ID)
		assert.Equal(t, rome.ID, stories[1].ID)

		toggled, err := db.ToggleFavourite(ctx, alice, paris.ID.Hex())
		require.NoError(t, err)
		assert.False(t, toggled.IsFavourite)

		toggled, err = db.ToggleFavourite(ctx, alice, rome.ID.Hex())
		require.NoError(t, err)
		assert.True(t, toggled.IsFavourite)

		stories, err = db.ListStories(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, rome.ID, stories[0].ID)
	})

	t.Run("UpdateStory", func(t *testing.T) {
		fields := storyFields("Paris Again", 1690000000000, "Montmartre")
		updated, err := db.UpdateStory(ctx, alice, paris.ID.Hex(), fields)
		require.NoError(t, err)
		assert.Equal(t, "Paris Again", updated.Title)
		assert.Equal(t, []string{"Montmartre"}, updated.VisitedLocation)
		assert.Equal(t, paris.CreatedOn, updated.CreatedOn)
		assert.Equal(t, paris.UserID, updated.UserID)

		_, err = db.UpdateStory(ctx, alice, paris.ID.Hex(), app.StoryFields{})
		assert.ErrorIs(t, err, app.ErrInvalidArgument)
	})

	t.Run("SearchStories", func(t *testing.T) {
		_, err := db.UpdateStory(ctx, alice, paris.ID.Hex(), storyFields("City break", 1700000000000, "PARIS"))
		require.NoError(t, err)

		stories, err := db.SearchStories(ctx, alice, "paris")
		require.NoError(t, err)
		require.Len(t, stories, 1)
		assert.Equal(t, paris.ID, stories[0].ID)

		stories, err = db.SearchStories(ctx, alice, "ROM")
		require.NoError(t, err)
		require.Len(t, stories, 1)
		assert.Equal(t, rome.ID, stories[0].ID)

		stories, err = db.SearchStories(ctx, bob, "paris")
		require.NoError(t, err)
		require.Len(t, stories, 1)
		assert.Equal(t, bobs.ID, stories[0].ID)

		stories, err = db.SearchStories(ctx, alice, ".*")
		require.NoError(t, err)
		assert.Empty(t, stories)
	})

	t.Run("FilterStoriesByDate", func(t *testing.T) {
		start := app.EpochMillis(1700000000000).Time()
		end := app.EpochMillis(1710000000000).Time()

		stories, err := db.FilterStoriesByDate(ctx, alice, start, end)
		require.NoError(t, err)
		assert.Len(t, stories, 2, "bounds are inclusive")

		stories, err = db.FilterStoriesByDate(ctx, alice, start, end.Add(-time.Millisecond))
		require.NoError(t, err)
		require.Len(t, stories, 1)
		assert.Equal(t, paris.ID, stories[0].ID)

		stories, err = db.FilterStoriesByDate(ctx, alice, end, start)
		require.NoError(t, err)
		assert.Empty(t, stories)
	})

	t.Run("DeleteStory", func(t *testing.T) {
		deleted, err := db.DeleteStory(ctx, alice, rome.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, rome.ImageURL, deleted.ImageURL)

		_, err = db.GetStory(ctx, alice, rome.ID.Hex())
		assert.ErrorIs(t, err, app.ErrNotFound)

		_, err = db.DeleteStory(ctx, alice, rome.ID.Hex())
		assert.ErrorIs(t, err, app.ErrNotFound)
	})

	t.Run("returned stories are copies", func(t *testing.T) {
		got, err := db.GetStory(ctx, bob, bobs.ID.Hex())
		require.NoError(t, err)
		got.VisitedLocation[0] = "mutated"

		again, err := db.GetStory(ctx, bob, bobs.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "France", again.VisitedLocation[0])
	})
}

func TestSortFavouritesFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var stories []app.TravelStory
	for n := 0; n < 6; n++ {
		stories = append(stories, app.TravelStory{
			Title:       fmt.Sprint(n),
			IsFavourite: n%2 == 0,
			CreatedOn:   base.Add(time.Duration(n) * time.Hour),
		})
	}

	sortFavouritesFirst(stories)

	var titles []string
	for _, s := range stories {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"4", "2", "0", "5", "3", "1"}, titles)
}
