package pixiv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pixiv_mirror/internal/domain"
)

const SourceID = "pixiv"

// Doer executes a single HTTP request. Satisfied by *transport.LimitedClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds source configuration.
type Config struct {
	BaseURL      string
	AuthURL      string
	RefreshToken string
}

// Client talks to the app API. Authenticate must be called before any
// listing traversal is started.
type Client struct {
	httpClient   Doer
	baseURL      string
	authURL      string
	refreshToken string
	accessToken  string
	logger       *slog.Logger
}

// NewClient creates an unauthenticated client.
func NewClient(httpClient Doer, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		baseURL:      cfg.BaseURL,
		authURL:      cfg.AuthURL,
		refreshToken: cfg.RefreshToken,
		logger:       logger.With("source", SourceID),
	}
}

// Authenticate exchanges the refresh token for an access token.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth returned status %d", resp.StatusCode)
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return fmt.Errorf("auth response carries no access token")
	}

	c.accessToken = auth.AccessToken
	c.logger.Info("authenticated with source")
	return nil
}

// Illusts starts a lazy traversal over userID's illustration listing. The
// traversal is finite and non-restartable; each page is fetched exactly once.
func (c *Client) Illusts(userID int64) *Traversal {
	cursor := url.Values{}
	cursor.Set("user_id", strconv.FormatInt(userID, 10))

	return &Traversal{
		client: c,
		userID: userID,
		cursor: cursor,
	}
}

// Traversal walks a cursor-based listing one page at a time.
type Traversal struct {
	client *Client
	userID int64
	cursor url.Values
	done   bool
}

// Next fetches and returns the next page of posts in listing order. It
// returns (nil, nil) once the listing is exhausted: a page without entries,
// or a previous page that carried no continuation cursor.
func (t *Traversal) Next(ctx context.Context) ([]domain.Post, error) {
	if t.done {
		return nil, nil
	}

	page, err := t.client.userIllusts(ctx, t.cursor)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page for user %d: %w", t.userID, err)
	}

	if len(page.Illusts) == 0 {
		t.done = true
		return nil, nil
	}

	next, err := parseCursor(page.NextURL)
	if err != nil {
		return nil, fmt.Errorf("parse continuation cursor: %w", err)
	}
	if next == nil {
		t.done = true
	} else {
		t.cursor = next
	}

	posts := make([]domain.Post, 0, len(page.Illusts))
	for _, il := range page.Illusts {
		posts = append(posts, transform(il))
	}
	return posts, nil
}

func (c *Client) userIllusts(ctx context.Context, cursor url.Values) (*IllustsResponse, error) {
	reqURL := fmt.Sprintf("%s/v1/user/illusts?%s", c.baseURL, cursor.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var page IllustsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}

// parseCursor derives the next request's query parameters from a page's
// next_url. A missing next_url means the traversal is complete.
func parseCursor(nextURL string) (url.Values, error) {
	if nextURL == "" {
		return nil, nil
	}
	u, err := url.Parse(nextURL)
	if err != nil {
		return nil, err
	}
	return u.Query(), nil
}

func transform(il Illust) domain.Post {
	post := domain.Post{
		ID:      il.ID,
		Title:   il.Title,
		Caption: il.Caption,
		Author:  il.User.Name,
	}

	for _, tag := range il.Tags {
		post.Tags = append(post.Tags, tag.Name)
	}

	if il.PageCount > 1 {
		for _, page := range il.MetaPages {
			post.AssetURLs = append(post.AssetURLs, page.ImageURLs.Original)
		}
	} else {
		post.AssetURLs = []string{il.MetaSinglePage.OriginalImageURL}
	}

	return post
}
