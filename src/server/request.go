package server

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	app "travelstory/src/app"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type (
	CreateAccountRequest struct {
		FullName string `json:"fullName" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,max=72"`
	}

	LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	StoryRequest struct {
		Title           string          `json:"title" binding:"required"`
		Story           string          `json:"story" binding:"required"`
		VisitedLocation []string        `json:"visitedLocation" binding:"required,min=1,dive,required"`
		ImageURL        string          `json:"imageUrl" binding:"required"`
		VisitedDate     app.EpochMillis `json:"visitedDate" binding:"required"`
	}

	// FavouriteRequest sets the flag when IsFavourite is present and toggles
	// it otherwise.
	FavouriteRequest struct {
		IsFavourite *bool `json:"isFavourite"`
	}
)

func (r StoryRequest) Fields() app.StoryFields {
	return app.StoryFields{
		Title:           r.Title,
		Story:           r.Story,
		VisitedLocation: r.VisitedLocation,
		ImageURL:        r.ImageURL,
		VisitedDate:     r.VisitedDate,
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their JSON name.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
}

// bindError converts a binding failure into a validation error naming the
// offending fields.
func bindError(err error) error {
	var (
		verrs     validator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		seen := make(map[string]bool)
		for _, fe := range verrs {
			name := fe.Field()
			if i := strings.IndexByte(name, '['); i > 0 {
				name = name[:i]
			}
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
		}
		return app.NewValidationError(fields...)
	case errors.As(err, &typeErr):
		return app.NewValidationError(typeErr.Field)
	case errors.As(err, &syntaxErr):
		return app.NewValidationError("body")
	case errors.Is(err, app.ErrInvalidArgument):
		return err
	}
	return app.NewValidationError("body")
}
