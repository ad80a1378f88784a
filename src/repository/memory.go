package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	app "travelstory/src/app"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InMemoryDB implements Users and Stories on top of maps guarded by a single
// mutex. It backs tests and local runs without a document store.
type InMemoryDB struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]app.User
	emails  map[string]primitive.ObjectID
	stories map[primitive.ObjectID]app.TravelStory
}

var (
	_ Users   = (*InMemoryDB)(nil)
	_ Stories = (*InMemoryDB)(nil)
)

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{
		users:   make(map[primitive.ObjectID]app.User),
		emails:  make(map[string]primitive.ObjectID),
		stories: make(map[primitive.ObjectID]app.TravelStory),
	}
}

func (i *InMemoryDB) CreateUser(ctx context.Context, fullName, email, passwordHash string) (*app.User, error) {
	email = app.NormalizeEmail(email)

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.emails[email]; ok {
		return nil, fmt.Errorf("user %s: %w", email, app.ErrAlreadyExists)
	}
	user := app.User{
		ID:        primitive.NewObjectID(),
		FullName:  fullName,
		Email:     email,
		Password:  passwordHash,
		CreatedOn: now(),
	}
	i.users[user.ID] = user
	i.emails[email] = user.ID
	return &user, nil
}

func (i *InMemoryDB) FindUserByEmail(ctx context.Context, email string) (*app.User, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	id, ok := i.emails[app.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, app.ErrNotFound)
	}
	user := i.users[id]
	return &user, nil
}

func (i *InMemoryDB) FindUserByID(ctx context.Context, id string) (*app.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, app.ErrNotFound)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	user, ok := i.users[oid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, app.ErrNotFound)
	}
	return &user, nil
}

func (i *InMemoryDB) CreateStory(ctx context.Context, owner string, fields app.StoryFields) (*app.TravelStory, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return nil, fmt.Errorf("owner %s: %w", owner, app.ErrUnauthorized)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.users[ownerID]; !ok {
		return nil, fmt.Errorf("owner %s is not a user: %w", owner, app.ErrUnauthorized)
	}
	story := app.TravelStory{
		ID:        primitive.NewObjectID(),
		UserID:    ownerID,
		CreatedOn: now(),
	}
	applyFields(&story, fields)
	i.stories[story.ID] = story
	return cloneStory(story), nil
}

func (i *InMemoryDB) ListStories(ctx context.Context, owner string) ([]app.TravelStory, error) {
	return i.selectStories(owner, func(app.TravelStory) bool { return true })
}

func (i *InMemoryDB) GetStory(ctx context.Context, owner, id string) (*app.TravelStory, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	story, err := i.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return cloneStory(story), nil
}

func (i *InMemoryDB) UpdateStory(ctx context.Context, owner, id string, fields app.StoryFields) (*app.TravelStory, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	return i.mutate(owner, id, func(s *app.TravelStory) { applyFields(s, fields) })
}

func (i *InMemoryDB) SetFavourite(ctx context.Context, owner, id string, favourite bool) (*app.TravelStory, error) {
	return i.mutate(owner, id, func(s *app.TravelStory) { s.IsFavourite = favourite })
}

func (i *InMemoryDB) ToggleFavourite(ctx context.Context, owner, id string) (*app.TravelStory, error) {
	return i.mutate(owner, id, func(s *app.TravelStory) { s.IsFavourite = !s.IsFavourite })
}

func (i *InMemoryDB) DeleteStory(ctx context.Context, owner, id string) (*app.TravelStory, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	story, err := i.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	delete(i.stories, story.ID)
	return cloneStory(story), nil
}

func (i *InMemoryDB) SearchStories(ctx context.Context, owner, query string) ([]app.TravelStory, error) {
	needle := strings.ToLower(query)
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), needle) }

	return i.selectStories(owner, func(s app.TravelStory) bool {
		if contains(s.Title) || contains(s.Story) {
			return true
		}
		for _, location := range s.VisitedLocation {
			if contains(location) {
				return true
			}
		}
		return false
	})
}

func (i *InMemoryDB) FilterStoriesByDate(ctx context.Context, owner string, start, end time.Time) ([]app.TravelStory, error) {
	return i.selectStories(owner, func(s app.TravelStory) bool {
		return !s.VisitedDate.Before(start) && !s.VisitedDate.After(end)
	})
}

func (i *InMemoryDB) selectStories(owner string, keep func(app.TravelStory) bool) ([]app.TravelStory, error) {
	result := []app.TravelStory{}
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return result, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	for _, story := range i.stories {
		if story.UserID == ownerID && keep(story) {
			result = append(result, *cloneStory(story))
		}
	}
	sortFavouritesFirst(result)
	return result, nil
}

func (i *InMemoryDB) mutate(owner, id string, change func(*app.TravelStory)) (*app.TravelStory, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	story, err := i.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	change(&story)
	i.stories[story.ID] = story
	return cloneStory(story), nil
}

// lookup must be called with the lock held.
func (i *InMemoryDB) lookup(owner, id string) (app.TravelStory, error) {
	notFound := fmt.Errorf("story %s: %w", id, app.ErrNotFound)

	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return app.TravelStory{}, notFound
	}
	storyID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return app.TravelStory{}, notFound
	}
	story, ok := i.stories[storyID]
	if !ok || story.UserID != ownerID {
		return app.TravelStory{}, notFound
	}
	return story, nil
}

func applyFields(story *app.TravelStory, fields app.StoryFields) {
	story.Title = fields.Title
	story.Story = fields.Story
	story.VisitedLocation = append([]string(nil), fields.VisitedLocation...)
	story.ImageURL = fields.ImageURL
	story.VisitedDate = fields.VisitedDate.Time()
}

func cloneStory(story app.TravelStory) *app.TravelStory {
	story.VisitedLocation = append([]string(nil), story.VisitedLocation...)
	return &story
}
