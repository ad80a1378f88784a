package server

import (
	"errors"
	"net/http"

	app "travelstory/src/app"

	"github.com/gin-gonic/gin"
)

const genericErrorMessage = "An unexpected error occurred"

// errorWriter turns domain errors into the {error, message} JSON body with the
// matching status code. Upstream and internal failures keep their detail out
// of responses in production.
type errorWriter struct {
	production bool
}

func (w errorWriter) write(c *gin.Context, err error, notFoundMessage string) {
	_ = c.Error(err)
	status, message := w.classify(err, notFoundMessage)
	c.AbortWithStatusJSON(status, gin.H{"error": true, "message": message})
}

func (w errorWriter) classify(err error, notFoundMessage string) (int, string) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, app.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrMissingCredential):
		return http.StatusBadRequest, "Authorization token is required"
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, app.ErrNotFound):
		if notFoundMessage == "" {
			notFoundMessage = "Not found"
		}
		return http.StatusNotFound, notFoundMessage
	case errors.Is(err, app.ErrAlreadyExists):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, app.ErrUnsupportedMediaType):
		return http.StatusBadRequest, "Only images are allowed"
	case errors.Is(err, app.ErrInvalidLocator):
		return http.StatusBadRequest, "Invalid image URL"
	}

	if w.production {
		return http.StatusInternalServerError, genericErrorMessage
	}
	return http.StatusInternalServerError, err.Error()
}

func writeMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": true, "message": message})
}
