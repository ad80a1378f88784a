package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TravelStory is a single journal entry. UserID is fixed at creation and every
// lookup is made on the (ID, UserID) pair.
type TravelStory struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title           string             `bson:"title" json:"title"`
	Story           string             `bson:"story" json:"story"`
	VisitedLocation []string           `bson:"visitedLocation" json:"visitedLocation"`
	IsFavourite     bool               `bson:"isFavourite" json:"isFavourite"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedOn       time.Time          `bson:"createdOn" json:"createdOn"`
	ImageURL        string             `bson:"imageUrl" json:"imageUrl"`
	VisitedDate     time.Time          `bson:"visitedDate" json:"visitedDate"`
}

// StoryFields holds the user editable part of a story. Create and update
// both replace all of them at once.
type StoryFields struct {
	Title           string
	Story           string
	VisitedLocation []string
	ImageURL        string
	VisitedDate     EpochMillis
}

// Validate reports every missing field by its JSON name.
func (f StoryFields) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(f.Story) == "" {
		missing = append(missing, "story")
	}
	if len(f.VisitedLocation) == 0 {
		missing = append(missing, "visitedLocation")
	}
	if strings.TrimSpace(f.ImageURL) == "" {
		missing = append(missing, "imageUrl")
	}
	if f.VisitedDate == 0 || !f.VisitedDate.inRange() {
		missing = append(missing, "visitedDate")
	}
	if len(missing) > 0 {
		return NewValidationError(missing...)
	}
	return nil
}

// EpochMillis is a point in time sent over the wire as milliseconds since the
// Unix epoch, either as a JSON number or a numeric string.
type EpochMillis int64

func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = 0
		return nil
	}
	var raw json.Number
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = json.Number(strings.TrimSpace(s))
	} else {
		raw = json.Number(data)
	}
	ms, err := ParseEpochMillis(raw.String())
	if err != nil {
		return err
	}
	*e = ms
	return nil
}

// Timestamps outside years 0 through 9999 cannot be encoded as RFC 3339.
var (
	minEpochMillis = EpochMillis(time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxEpochMillis = EpochMillis(time.Date(9999, time.December, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli())
)

// ParseEpochMillis parses a decimal millisecond timestamp.
func ParseEpochMillis(s string) (EpochMillis, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("epoch milliseconds %q: %w", s, ErrInvalidArgument)
	}
	e := EpochMillis(ms)
	if !e.inRange() {
		return 0, fmt.Errorf("epoch milliseconds %q out of range: %w", s, ErrInvalidArgument)
	}
	return e, nil
}

func (e EpochMillis) inRange() bool {
	return e >= minEpochMillis && e <= maxEpochMillis
}

func (e EpochMillis) Time() time.Time {
	return time.UnixMilli(int64(e)).UTC()
}
