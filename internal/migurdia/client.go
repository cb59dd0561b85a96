package migurdia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Doer executes a single HTTP request. Satisfied by *transport.LimitedClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds content-index configuration.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// addPostRequest is the submission payload for one asset of a post.
type addPostRequest struct {
	OriginalURL  string   `json:"originalUrl"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Tags         []string `json:"tags"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
}

// AddPostResponse is the index's reply. ExitCode zero means the submission
// was accepted and Result carries one entry per submitted asset.
type AddPostResponse struct {
	ExitCode int `json:"exitCode"`
	Result   []struct {
		Result int64 `json:"result"`
	} `json:"result"`
}

// Client is a session-scoped client for the Migurdia content index.
type Client struct {
	httpClient Doer
	baseURL    string
	username   string
	password   string
	sessionID  string
	logger     *slog.Logger
}

func NewClient(httpClient Doer, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		logger:     logger.With("component", "migurdia"),
	}
}

// Login authenticates and stores the session identifier used by AddPost.
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var login struct {
		ExitCode int    `json:"exitCode"`
		Result   string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if login.ExitCode != 0 {
		return fmt.Errorf("login rejected with code %d", login.ExitCode)
	}

	c.sessionID = login.Result
	c.logger.Info("authenticated with content index")
	return nil
}

// AddPost submits one asset's post record and returns the index's assigned
// result identifier for it.
func (c *Client) AddPost(ctx context.Context, originalURL, thumbnailURL string, tags []string, title, description string) (int64, error) {
	payload, err := json.Marshal(addPostRequest{
		OriginalURL:  originalURL,
		ThumbnailURL: thumbnailURL,
		Tags:         tags,
		Title:        title,
		Description:  description,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/addPost", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute post request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("post submission returned status %d", resp.StatusCode)
	}

	var added AddPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return 0, fmt.Errorf("decode post response: %w", err)
	}
	if added.ExitCode != 0 {
		return 0, fmt.Errorf("post rejected with code %d", added.ExitCode)
	}
	if len(added.Result) == 0 {
		return 0, fmt.Errorf("post response carries no result")
	}

	return added.Result[0].Result, nil
}
