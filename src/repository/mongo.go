package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	app "travelstory/src/app"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection   = "users"
	storiesCollection = "travelstories"
)

// MongoDB implements Users and Stories on a MongoDB database.
type MongoDB struct {
	users   *mongo.Collection
	stories *mongo.Collection
}

var (
	_ Users   = (*MongoDB)(nil)
	_ Stories = (*MongoDB)(nil)
)

// Connect dials the deployment and pings the primary. Callers treat an error
// as fatal at boot.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewMongoDB(db *mongo.Database) *MongoDB {
	return &MongoDB{
		users:   db.Collection(usersCollection),
		stories: db.Collection(storiesCollection),
	}
}

// EnsureIndexes creates the unique email index that closes the
// check-then-insert race on registration, plus the story query indexes.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = m.stories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isFavourite", Value: -1}, {Key: "createdOn", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "visitedDate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create stories indexes: %w", err)
	}
	return nil
}

func (m *MongoDB) CreateUser(ctx context.Context, fullName, email, passwordHash string) (*app.User, error) {
	email = app.NormalizeEmail(email)

	err := m.users.FindOne(ctx, bson.M{"email": email},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return nil, fmt.Errorf("user %s: %w", email, app.ErrAlreadyExists)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}

	user := &app.User{
		ID:        primitive.NewObjectID(),
		FullName:  fullName,
		Email:     email,
		Password:  passwordHash,
		CreatedOn: now(),
	}
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("user %s: %w", email, app.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert user %s: %w", email, err)
	}
	return user, nil
}

func (m *MongoDB) FindUserByEmail(ctx context.Context, email string) (*app.User, error) {
	return m.findUser(ctx, bson.M{"email": app.NormalizeEmail(email)}, email)
}

func (m *MongoDB) FindUserByID(ctx context.Context, id string) (*app.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, app.ErrNotFound)
	}
	return m.findUser(ctx, bson.M{"_id": oid}, id)
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M, key string) (*app.User, error) {
	var user app.User
	if err := m.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", key, app.ErrNotFound)
		}
		return nil, fmt.Errorf("find user %s: %w", key, err)
	}
	return &user, nil
}

func (m *MongoDB) CreateStory(ctx context.Context, owner string, fields app.StoryFields) (*app.TravelStory, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return nil, fmt.Errorf("owner %s: %w", owner, app.ErrUnauthorized)
	}
	if _, err := m.findUser(ctx, bson.M{"_id": ownerID}, owner); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			return nil, fmt.Errorf("owner %s is not a user: %w", owner, app.ErrUnauthorized)
		}
		return nil, err
	}

	story := &app.TravelStory{
		ID:        primitive.NewObjectID(),
		UserID:    ownerID,
		CreatedOn: now(),
	}
	applyFields(story, fields)
	if _, err := m.stories.InsertOne(ctx, story); err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	return story, nil
}

func (m *MongoDB) ListStories(ctx context.Context, owner string) ([]app.TravelStory, error) {
	return m.findStories(ctx, owner, bson.M{})
}

func (m *MongoDB) GetStory(ctx context.Context, owner, id string) (*app.TravelStory, error) {
	filter, ok := storyFilter(owner, id)
	if !ok {
		return nil, fmt.Errorf("story %s: %w", id, app.ErrNotFound)
	}
	var story app.TravelStory
	if err := m.stories.FindOne(ctx, filter).Decode(&story); err != nil {
		return nil, storyError(id, err)
	}
	return &story, nil
}

func (m *MongoDB) UpdateStory(ctx context.Context, owner, id string, fields app.StoryFields) (*app.TravelStory, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	return m.updateStory(ctx, owner, id, bson.M{"$set": bson.M{
		"title":           fields.Title,
		"story":           fields.Story,
		"visitedLocation": fields.VisitedLocation,
		"imageUrl":        fields.ImageURL,
		"visitedDate":     fields.VisitedDate.Time(),
	}})
}

func (m *MongoDB) SetFavourite(ctx context.Context, owner, id string, favourite bool) (*app.TravelStory, error) {
	return m.updateStory(ctx, owner, id, bson.M{"$set": bson.M{"isFavourite": favourite}})
}

func (m *MongoDB) ToggleFavourite(ctx context.Context, owner, id string) (*app.TravelStory, error) {
	toggle := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "isFavourite", Value: bson.D{{Key: "$not", Value: bson.A{"$isFavourite"}}}}}}},
	}
	return m.updateStory(ctx, owner, id, toggle)
}

func (m *MongoDB) DeleteStory(ctx context.Context, owner, id string) (*app.TravelStory, error) {
	filter, ok := storyFilter(owner, id)
	if !ok {
		return nil, fmt.Errorf("story %s: %w", id, app.ErrNotFound)
	}
	var story app.TravelStory
	if err := m.stories.FindOneAndDelete(ctx, filter).Decode(&story); err != nil {
		return nil, storyError(id, err)
	}
	return &story, nil
}

func (m *MongoDB) SearchStories(ctx context.Context, owner, query string) ([]app.TravelStory, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return m.findStories(ctx, owner, bson.M{"$or": bson.A{
		bson.M{"title": pattern},
		bson.M{"story": pattern},
		bson.M{"visitedLocation": pattern},
	}})
}

func (m *MongoDB) FilterStoriesByDate(ctx context.Context, owner string, start, end time.Time) ([]app.TravelStory, error) {
	return m.findStories(ctx, owner, bson.M{"visitedDate": bson.M{"$gte": start, "$lte": end}})
}

func (m *MongoDB) updateStory(ctx context.Context, owner, id string, update interface{}) (*app.TravelStory, error) {
	filter, ok := storyFilter(owner, id)
	if !ok {
		return nil, fmt.Errorf("story %s: %w", id, app.ErrNotFound)
	}
	var story app.TravelStory
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := m.stories.FindOneAndUpdate(ctx, filter, update, opts).Decode(&story); err != nil {
		return nil, storyError(id, err)
	}
	return &story, nil
}

func (m *MongoDB) findStories(ctx context.Context, owner string, filter bson.M) ([]app.TravelStory, error) {
	result := []app.TravelStory{}
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return result, nil
	}
	filter["userId"] = ownerID

	opts := options.Find().SetSort(bson.D{
		{Key: "isFavourite", Value: -1},
		{Key: "createdOn", Value: -1},
		{Key: "_id", Value: -1},
	})
	cursor, err := m.stories.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	if result == nil {
		result = []app.TravelStory{}
	}
	return result, nil
}

func storyFilter(owner, id string) (bson.M, bool) {
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return nil, false
	}
	storyID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": storyID, "userId": ownerID}, true
}

func storyError(id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("story %s: %w", id, app.ErrNotFound)
	}
	return fmt.Errorf("story %s: %w", id, err)
}
