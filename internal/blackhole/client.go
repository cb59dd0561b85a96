package blackhole

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// Doer executes a single HTTP request. Satisfied by *transport.LimitedClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds blob store configuration.
type Config struct {
	BaseURL       string
	PublicBaseURL string
}

// UploadResponse is the store's reply to a file upload. ExitCode zero means
// the upload was accepted and Result carries the content identifier.
type UploadResponse struct {
	ExitCode int    `json:"exitCode"`
	Result   string `json:"result"`
}

// Client is a session-scoped client for the FileBlackHole blob store.
type Client struct {
	httpClient    Doer
	baseURL       string
	publicBaseURL string
	sessionID     string
	logger        *slog.Logger
}

func NewClient(httpClient Doer, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient:    httpClient,
		baseURL:       cfg.BaseURL,
		publicBaseURL: cfg.PublicBaseURL,
		logger:        logger.With("component", "blackhole"),
	}
}

// CreateSession opens an upload session with the store.
func (c *Client) CreateSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/createSession", nil)
	if err != nil {
		return fmt.Errorf("create session request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session returned status %d", resp.StatusCode)
	}

	var session struct {
		ExitCode int    `json:"exitCode"`
		Result   string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("decode session response: %w", err)
	}
	if session.ExitCode != 0 {
		return fmt.Errorf("session rejected with code %d", session.ExitCode)
	}

	c.sessionID = session.Result
	c.logger.Info("opened blob store session")
	return nil
}

// Upload publishes the file at path and returns its content identifier. A
// non-zero exit code in the reply is an error.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Session-ID", c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	var upload UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if upload.ExitCode != 0 {
		return "", fmt.Errorf("upload rejected with code %d", upload.ExitCode)
	}

	return upload.Result, nil
}

// PublicURL composes the stable public reference for an uploaded content
// identifier.
func (c *Client) PublicURL(code string) string {
	return c.publicBaseURL + "/" + code
}

// Close tears down the session. The store expires sessions server-side, so
// this only forgets the local handle.
func (c *Client) Close() {
	c.sessionID = ""
}
