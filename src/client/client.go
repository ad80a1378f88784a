// Package client is a typed HTTP client for the travel story API. Calls are
// retried with exponential backoff on transport failures and 5xx responses
// only; 4xx responses are returned immediately as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	app "travelstory/src/app"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	// MaxAttempts is the total number of tries per call, first one included.
	MaxAttempts = 3

	defaultBackoff = 200 * time.Millisecond
	defaultTimeout = 30 * time.Second
)

// ErrDecode marks a 2xx answer whose body could not be decoded. The request
// already took effect, so it is never retried.
var ErrDecode = errors.New("decode response")

type (
	Client struct {
		baseURL    string
		httpClient *http.Client
		backoff    time.Duration
		logger     *zap.Logger
		token      string
	}

	Option func(*Client)

	// APIError is a non 2xx answer from the server.
	APIError struct {
		Status  int
		Message string
	}

	AuthResponse struct {
		Error       bool        `json:"error"`
		User        app.Profile `json:"user"`
		AccessToken string      `json:"accessToken"`
		Message     string      `json:"message"`
	}

	StoryInput struct {
		Title           string   `json:"title"`
		Story           string   `json:"story"`
		VisitedLocation []string `json:"visitedLocation"`
		ImageURL        string   `json:"imageUrl"`
		VisitedDate     int64    `json:"visitedDate"`
	}

	storyResponse struct {
		Story   app.TravelStory `json:"story"`
		Message string          `json:"message"`
	}

	storiesResponse struct {
		Stories []app.TravelStory `json:"stories"`
	}

	messageResponse struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
)

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) { c.backoff = base }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		backoff:    defaultBackoff,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is the bearer token sent with every call.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) SetToken(token string) {
	c.token = token
}

// CreateAccount registers a user and keeps the returned token.
func (c *Client) CreateAccount(ctx context.Context, fullName, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/create-account", map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	})
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

func (c *Client) GetUser(ctx context.Context) (*app.Profile, error) {
	var resp struct {
		User app.Profile `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/get-user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UploadImage posts the image as the multipart "image" field and returns its
// locator.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	var resp struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := c.do(ctx, http.MethodPost, "/image-upload", buf.Bytes(), writer.FormDataContentType(), &resp); err != nil {
		return "", err
	}
	return resp.ImageURL, nil
}

func (c *Client) DeleteImage(ctx context.Context, imageURL string) error {
	path := "/delete-image?" + url.Values{"imageUrl": {imageURL}}.Encode()
	return c.doJSON(ctx, http.MethodDelete, path, nil, &messageResponse{})
}

func (c *Client) AddStory(ctx context.Context, input StoryInput) (*app.TravelStory, error) {
	return c.story(ctx, http.MethodPost, "/add-travel-story", input)
}

func (c *Client) ListStories(ctx context.Context) ([]app.TravelStory, error) {
	return c.stories(ctx, "/get-travel-stories")
}

func (c *Client) GetStory(ctx context.Context, id string) (*app.TravelStory, error) {
	return c.story(ctx, http.MethodGet, "/get-travel-story/"+url.PathEscape(id), nil)
}

func (c *Client) EditStory(ctx context.Context, id string, input StoryInput) (*app.TravelStory, error) {
	return c.story(ctx, http.MethodPut, "/edit-story/"+url.PathEscape(id), input)
}

func (c *Client) DeleteStory(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/delete-story/"+url.PathEscape(id), nil, &messageResponse{})
}

// SetFavourite sets the flag to the given value.
func (c *Client) SetFavourite(ctx context.Context, id string, favourite bool) (*app.TravelStory, error) {
	return c.story(ctx, http.MethodPut, "/update-is-favourite/"+url.PathEscape(id),
		map[string]bool{"isFavourite": favourite})
}

// ToggleFavourite flips the flag server side.
func (c *Client) ToggleFavourite(ctx context.Context, id string) (*app.TravelStory, error) {
	return c.story(ctx, http.MethodPut, "/update-is-favourite/"+url.PathEscape(id), nil)
}

func (c *Client) SearchStories(ctx context.Context, query string) ([]app.TravelStory, error) {
	return c.stories(ctx, "/search?"+url.Values{"query": {query}}.Encode())
}

func (c *Client) FilterStoriesByDate(ctx context.Context, start, end time.Time) ([]app.TravelStory, error) {
	values := url.Values{
		"startDate": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endDate":   {strconv.FormatInt(end.UnixMilli(), 10)},
	}
	return c.stories(ctx, "/travel-stories/filter?"+values.Encode())
}

func (c *Client) story(ctx context.Context, method, path string, body interface{}) (*app.TravelStory, error) {
	var resp storyResponse
	if err := c.doJSON(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Story, nil
}

func (c *Client) stories(ctx context.Context, path string) ([]app.TravelStory, error) {
	var resp storiesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stories, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = raw
	}
	return c.do(ctx, method, path, payload, "application/json", out)
}

// do sends the request, retrying transport failures and 5xx answers up to
// MaxAttempts times in total.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, out interface{}) error {
	backoff := retry.WithMaxRetries(MaxAttempts-1, retry.NewExponential(c.backoff))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.send(ctx, method, path, payload, contentType, out)

		var apiErr *APIError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
			return err
		case errors.Is(err, ErrDecode):
			return err
		case ctx.Err() != nil:
			return err
		}
		c.logger.Debug("request failed, retrying",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return retry.RetryableError(err)
	})
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg messageResponse
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
