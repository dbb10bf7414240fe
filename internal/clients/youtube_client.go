package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/spacesedan/sportsdigest/internal/models"
)

const YOUTUBE_API_ENDPOINT = "https://www.googleapis.com/youtube/v3/search"

type YouTubeClient struct {
	Client *http.Client
	APIKey string
}

func NewYouTubeClient(apiKey string) *YouTubeClient {
	return &YouTubeClient{
		Client: &http.Client{},
		APIKey: apiKey,
	}
}

// Search queries recent videos for the given term, newest first.
func (y *YouTubeClient) Search(ctx context.Context, query string) (*models.YouTubeSearchResponse, error) {
	if y.APIKey == "" {
		return nil, errors.New("[YouTubeClient] API key is missing")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("maxResults", "10")
	params.Set("key", y.APIKey)
	reqURL := YOUTUBE_API_ENDPOINT + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := y.Client.Do(req)
		if err != nil {
			return nil, err
		}

		switch res.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(res.Body)
			res.Body.Close()
			if err != nil {
				return nil, err
			}
			var response models.YouTubeSearchResponse
			if err := json.Unmarshal(body, &response); err != nil {
				return nil, fmt.Errorf("[YouTubeClient] failed to parse JSON response: %w", err)
			}
			return &response, nil
		case http.StatusForbidden:
			res.Body.Close()
			return nil, errors.New("[YouTubeClient] quota exceeded or key lacks permissions")
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
			slog.Warn("[YouTubeClient] Retriable status, backing off",
				slog.Int("statusCode", res.StatusCode), slog.Int("attempt", attempt))
			lastErr = fmt.Errorf("[YouTubeClient] status %d", res.StatusCode)
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		default:
			res.Body.Close()
			return nil, fmt.Errorf("[YouTubeClient] unexpected status %d", res.StatusCode)
		}
	}
	return nil, fmt.Errorf("[YouTubeClient] failed after max retries: %w", lastErr)
}
