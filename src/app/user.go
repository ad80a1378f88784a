package app

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account. The password is only ever held as a bcrypt
// hash and never serialised to clients.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FullName  string             `bson:"fullName" json:"fullName"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	CreatedOn time.Time          `bson:"createdOn" json:"createdOn"`
}

// Profile is the subset of a user returned by the registration and login
// endpoints.
type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (u *User) Profile() Profile {
	return Profile{FullName: u.FullName, Email: u.Email}
}

// NormalizeEmail is applied before every uniqueness check and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
