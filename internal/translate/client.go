// Package translate maps subtitle lists onto translated copies through an
// external machine-translation API. Translation fails as a unit: callers
// never receive a partially translated list.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subtide/internal/logging"
	"subtide/internal/media"
	"subtide/internal/services"
)

// Config carries translation API connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client issues batched translation requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a translation client. A nil logger disables logging.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.WithComponent(logger, "translator"),
	}
}

// apiResponse mirrors the translation endpoint's envelope.
type apiResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// TranslateTexts sends all texts in one request, preserving positional
// order. The response must carry exactly one translation per input.
func (c *Client) TranslateTexts(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "translator", "translate", "api key not configured", nil)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("target", targetLanguage)
	for _, text := range texts {
		params.Add("q", text)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "translator", "translate", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "translator", "translate", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUnavailable, "translator", "translate",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "translator", "translate", "parse response", err)
	}
	if len(parsed.Data.Translations) != len(texts) {
		return nil, services.Wrap(services.ErrUnavailable, "translator", "translate",
			fmt.Sprintf("response size %d does not match request size %d", len(parsed.Data.Translations), len(texts)), nil)
	}

	out := make([]string, len(texts))
	for i, entry := range parsed.Data.Translations {
		out[i] = entry.TranslatedText
	}
	return out, nil
}

// TranslateSubtitles returns a new subtitle list in the target language.
// Timing is preserved and ids are derived from the originals; the input
// list is never modified.
func (c *Client) TranslateSubtitles(ctx context.Context, subtitles []media.Subtitle, targetLanguage string) ([]media.Subtitle, error) {
	texts := make([]string, len(subtitles))
	for i, sub := range subtitles {
		texts[i] = sub.Text
	}

	translated, err := c.TranslateTexts(ctx, texts, targetLanguage)
	if err != nil {
		return nil, err
	}

	out := make([]media.Subtitle, len(subtitles))
	for i, sub := range subtitles {
		out[i] = sub.Translated(translated[i])
	}
	c.logger.Info("subtitles translated",
		logging.Int("count", len(out)),
		logging.String("target", targetLanguage),
	)
	return out, nil
}
