package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subtide/internal/media"
)

// apiClient is a thin HTTP client for the daemon's API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(bind string) *apiClient {
	base := bind
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) Submit(ctx context.Context, sourceURL string, targetLanguages []string) (string, error) {
	payload := map[string]any{"sourceUrl": sourceURL}
	if len(targetLanguages) > 0 {
		payload["targetLanguages"] = targetLanguages
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/videos", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *apiClient) ListVideos(ctx context.Context) ([]media.Video, error) {
	var videos []media.Video
	if err := c.do(ctx, http.MethodGet, "/api/videos", nil, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func (c *apiClient) GetVideo(ctx context.Context, id string) (*media.Video, error) {
	var video media.Video
	if err := c.do(ctx, http.MethodGet, "/api/videos/"+id, nil, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *apiClient) DeleteVideo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/videos/"+id, nil, nil)
}

func (c *apiClient) CreateTranslation(ctx context.Context, id, lang string) (*media.Translation, error) {
	var translation media.Translation
	err := c.do(ctx, http.MethodPost, "/api/videos/"+id+"/translations",
		map[string]string{"language": lang}, &translation)
	if err != nil {
		return nil, err
	}
	return &translation, nil
}

func (c *apiClient) Health(ctx context.Context) (map[string]any, error) {
	var health map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return health, nil
}
