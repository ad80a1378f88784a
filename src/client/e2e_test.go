package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	app "travelstory/src/app"
	"travelstory/src/client"
	cfg "travelstory/src/configuration"
	db "travelstory/src/repository"
	"travelstory/src/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type discardMedia struct{}

func (discardMedia) Upload(context.Context, []byte, string) (string, error) {
	return "http://img.test/images/upload/v1/travel-stories/img.jpg", nil
}

func (discardMedia) Delete(context.Context, string) error { return nil }

func (discardMedia) Resolve(_ context.Context, publicID string) (*url.URL, error) {
	return url.Parse("http://img.test/" + publicID)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := db.NewInMemoryDB()
	router := server.NewRouter(server.Dependencies{
		Users:       store,
		Stories:     store,
		Media:       discardMedia{},
		Credentials: app.NewCredentials("e2e-secret", time.Hour, bcrypt.MinCost),
		Logger:      zap.NewNop(),
		Config: &cfg.Properties{
			Mode: cfg.ModeDevelopment,
			Server: cfg.HttpServerProperties{
				AllowedOrigins: []string{"*"},
				MaxUploadBytes: 1 << 20,
			},
		},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	alice := client.New(srv.URL, client.WithBackoff(time.Millisecond))

	registered, err := alice.CreateAccount(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, "Registration Successful", registered.Message)

	imageURL, err := alice.UploadImage(ctx, "paris.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, err)

	created, err := alice.AddStory(ctx, client.StoryInput{
		Title:           "Paris Trip",
		Story:           "Croissants every morning",
		VisitedLocation: []string{"Paris"},
		ImageURL:        imageURL,
		VisitedDate:     1700000000000,
	})
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), created.VisitedDate.UTC())

	stories, err := alice.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, created.ID, stories[0].ID)
	assert.False(t, stories[0].IsFavourite)

	toggled, err := alice.ToggleFavourite(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.True(t, toggled.IsFavourite)

	found, err := alice.SearchStories(ctx, "paris")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	inRange, err := alice.FilterStoriesByDate(ctx, time.UnixMilli(1700000000000), time.UnixMilli(1700000000000))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)

	bob := client.New(srv.URL, client.WithBackoff(time.Millisecond))
	_, err = bob.CreateAccount(ctx, "Bob", "b@x.com", "secret2")
	require.NoError(t, err)
	_, err = bob.GetStory(ctx, created.ID.Hex())
	assertStatus(t, err, http.StatusNotFound)

	require.NoError(t, alice.DeleteStory(ctx, created.ID.Hex()))
	_, err = alice.GetStory(ctx, created.ID.Hex())
	assertStatus(t, err, http.StatusNotFound)
}

func TestEndToEndAccounts(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := client.New(srv.URL, client.WithBackoff(time.Millisecond))

	_, err := c.CreateAccount(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = c.CreateAccount(ctx, "Alice", "a@x.com", "secret1")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = c.Login(ctx, "a@x.com", "wrong")
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = c.Login(ctx, "nobody@x.com", "secret1")
	assertStatus(t, err, http.StatusBadRequest)

	logged, err := c.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Login Successful", logged.Message)

	profile, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.FullName)

	c.SetToken("")
	_, err = c.ListStories(ctx)
	assertStatus(t, err, http.StatusBadRequest)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	assert.Equal(t, status, apiErr.Status)
}
