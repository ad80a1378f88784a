package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	app "travelstory/src/app"
	db "travelstory/src/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const storyNotFound = "Travel story not found"

type (
	// MediaStore is the image host the handlers talk to.
	MediaStore interface {
		Upload(ctx context.Context, data []byte, mimeType string) (string, error)
		Delete(ctx context.Context, locator string) error
		Resolve(ctx context.Context, publicID string) (*url.URL, error)
	}

	AppHandler struct {
		users          db.Users
		stories        db.Stories
		media          MediaStore
		credentials    *app.Credentials
		logger         *zap.Logger
		errors         errorWriter
		maxUploadBytes int64
	}
)

func NewHandler(deps Dependencies) *AppHandler {
	return &AppHandler{
		users:          deps.Users,
		stories:        deps.Stories,
		media:          deps.Media,
		credentials:    deps.Credentials,
		logger:         deps.Logger,
		errors:         errorWriter{production: deps.Config.IsProduction()},
		maxUploadBytes: deps.Config.Server.MaxUploadBytes,
	}
}

func (a *AppHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "Travel Story Backend is Live")
}

func (a *AppHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *AppHandler) AddStory(c *gin.Context) {
	var request StoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		a.errors.write(c, bindError(err), "")
		return
	}

	story, err := a.stories.CreateStory(c.Request.Context(), owner(c), request.Fields())
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"story": story, "message": "Added Successfully"})
}

func (a *AppHandler) GetAllStories(c *gin.Context) {
	stories, err := a.stories.ListStories(c.Request.Context(), owner(c))
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

func (a *AppHandler) GetStory(c *gin.Context) {
	story, err := a.stories.GetStory(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		a.errors.write(c, err, storyNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": story})
}

func (a *AppHandler) EditStory(c *gin.Context) {
	var request StoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		a.errors.write(c, bindError(err), "")
		return
	}

	story, err := a.stories.UpdateStory(c.Request.Context(), owner(c), c.Param("id"), request.Fields())
	if err != nil {
		a.errors.write(c, err, storyNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": story, "message": "Update Successfully"})
}

// DeleteStory removes the record first and then makes a best effort attempt
// to remove its image. A failed image delete is logged and never undoes the
// record delete.
func (a *AppHandler) DeleteStory(c *gin.Context) {
	story, err := a.stories.DeleteStory(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		a.errors.write(c, err, storyNotFound)
		return
	}

	if story.ImageURL != "" {
		if err := a.media.Delete(c.Request.Context(), story.ImageURL); err != nil {
			a.logger.Warn("failed to delete story image",
				zap.String("story", story.ID.Hex()),
				zap.String("imageUrl", story.ImageURL),
				zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Travel story deleted successfully"})
}

func (a *AppHandler) UpdateFavourite(c *gin.Context) {
	var request FavouriteRequest
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		a.errors.write(c, bindError(err), "")
		return
	}

	var (
		story *app.TravelStory
		err   error
	)
	if request.IsFavourite != nil {
		story, err = a.stories.SetFavourite(c.Request.Context(), owner(c), c.Param("id"), *request.IsFavourite)
	} else {
		story, err = a.stories.ToggleFavourite(c.Request.Context(), owner(c), c.Param("id"))
	}
	if err != nil {
		a.errors.write(c, err, storyNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": story, "message": "Update Successfully"})
}

func (a *AppHandler) SearchStories(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		writeMessage(c, http.StatusNotFound, "query is required")
		return
	}

	stories, err := a.stories.SearchStories(c.Request.Context(), owner(c), query)
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// FilterStories rejects missing or non numeric bounds with 400. A start after
// the end is a valid empty range.
func (a *AppHandler) FilterStories(c *gin.Context) {
	var invalid []string
	start, err := app.ParseEpochMillis(c.Query("startDate"))
	if err != nil {
		invalid = append(invalid, "startDate")
	}
	end, err := app.ParseEpochMillis(c.Query("endDate"))
	if err != nil {
		invalid = append(invalid, "endDate")
	}
	if len(invalid) > 0 {
		a.errors.write(c, app.NewValidationError(invalid...), "")
		return
	}

	stories, err := a.stories.FilterStoriesByDate(c.Request.Context(), owner(c), start.Time(), end.Time())
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}
