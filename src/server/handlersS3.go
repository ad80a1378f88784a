package server

import (
	"fmt"
	"io"
	"net/http"

	app "travelstory/src/app"

	"github.com/gin-gonic/gin"
)

const imageFormField = "image"

func (a *AppHandler) PostImage(c *gin.Context) {
	// Parse the form data, including the uploaded file
	file, header, err := c.Request.FormFile(imageFormField)
	if err != nil {
		writeMessage(c, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	if header.Size > a.maxUploadBytes {
		writeMessage(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Image exceeds the %d byte upload limit", a.maxUploadBytes))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, a.maxUploadBytes+1))
	if err != nil {
		a.errors.write(c, fmt.Errorf("read upload: %w", err), "")
		return
	}
	if int64(len(data)) > a.maxUploadBytes {
		writeMessage(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Image exceeds the %d byte upload limit", a.maxUploadBytes))
		return
	}

	imageURL, err := a.media.Upload(c.Request.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		a.errors.write(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imageUrl": imageURL})
}

func (a *AppHandler) DeleteImage(c *gin.Context) {
	imageURL := c.Query("imageUrl")
	if imageURL == "" {
		writeMessage(c, http.StatusBadRequest, "imageUrl is required")
		return
	}

	if err := a.media.Delete(c.Request.Context(), imageURL); err != nil {
		a.errors.write(c, err, "Image not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

// GetImage serves a locator by redirecting to a short lived presigned URL.
func (a *AppHandler) GetImage(c *gin.Context) {
	publicID, err := app.PublicIDFromLocator(c.Request.URL.Path)
	if err != nil {
		a.errors.write(c, err, "")
		return
	}

	target, err := a.media.Resolve(c.Request.Context(), publicID)
	if err != nil {
		a.errors.write(c, err, "Image not found")
		return
	}
	c.Redirect(http.StatusFound, target.String())
}
