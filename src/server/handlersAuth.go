package server

import (
	"errors"
	"net/http"
	"strings"

	app "travelstory/src/app"

	"github.com/gin-gonic/gin"
)

const (
	ownerContextKey = "userId"
	bearerPrefix    = "Bearer "
)

// Authorize verifies the bearer token and stores the owner id on the context.
// A missing header answers 400 and a bad token 401; neither reaches a
// repository.
func (a *AppHandler) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			a.errors.write(c, app.ErrMissingCredential, "")
			return
		}

		userID, err := a.credentials.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			a.errors.write(c, err, "")
			return
		}
		c.Set(ownerContextKey, userID)
		c.Next()
	}
}

func owner(c *gin.Context) string {
	return c.GetString(ownerContextKey)
}

func (a *AppHandler) CreateAccount(c *gin.Context) {
	var request CreateAccountRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		a.errors.write(c, bindError(err), "")
		return
	}

	hash, err := a.credentials.HashPassword(request.Password)
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	user, err := a.users.CreateUser(c.Request.Context(), strings.TrimSpace(request.FullName), request.Email, hash)
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	a.respondWithToken(c, user, "Registration Successful")
}

func (a *AppHandler) Login(c *gin.Context) {
	var request LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		a.errors.write(c, bindError(err), "")
		return
	}

	user, err := a.users.FindUserByEmail(c.Request.Context(), request.Email)
	if errors.Is(err, app.ErrNotFound) {
		writeMessage(c, http.StatusBadRequest, "User not found")
		return
	}
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	if !a.credentials.VerifyPassword(request.Password, user.Password) {
		writeMessage(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	a.respondWithToken(c, user, "Login Successful")
}

func (a *AppHandler) GetUser(c *gin.Context) {
	user, err := a.users.FindUserByID(c.Request.Context(), owner(c))
	if errors.Is(err, app.ErrNotFound) {
		writeMessage(c, http.StatusUnauthorized, "User not found")
		return
	}
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Profile(), "message": "success"})
}

func (a *AppHandler) respondWithToken(c *gin.Context, user *app.User, message string) {
	token, err := a.credentials.IssueToken(user.ID.Hex())
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"error":       false,
		"user":        user.Profile(),
		"accessToken": token,
		"message":     message,
	})
}
