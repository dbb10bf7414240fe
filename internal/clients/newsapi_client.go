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
	"time"

	"github.com/spacesedan/sportsdigest/internal/models"
)

const NEWS_API_ENDPOINT = "https://newsapi.org/v2/everything"

type NewsAPIClient struct {
	Client *http.Client
	APIKey string
}

func NewNewsAPIClient(apiKey string) *NewsAPIClient {
	return &NewsAPIClient{
		Client: &http.Client{},
		APIKey: apiKey,
	}
}

// Everything searches articles matching the query published since from.
func (n *NewsAPIClient) Everything(ctx context.Context, query string, from time.Time) (*models.NewsAPIEverythingResponse, error) {
	if n.APIKey == "" {
		return nil, errors.New("[NewsAPIClient] API key is missing")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from.UTC().Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", "25")
	params.Set("apiKey", n.APIKey)
	reqURL := NEWS_API_ENDPOINT + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := n.Client.Do(req)
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
			var response models.NewsAPIEverythingResponse
			if err := json.Unmarshal(body, &response); err != nil {
				return nil, fmt.Errorf("[NewsAPIClient] failed to parse JSON response: %w", err)
			}
			return &response, nil
		case http.StatusBadRequest:
			res.Body.Close()
			return nil, errors.New("[NewsAPIClient] bad request: check query parameters")
		case http.StatusUnauthorized:
			res.Body.Close()
			return nil, errors.New("[NewsAPIClient] invalid API key, check credentials")
		case http.StatusTooManyRequests, http.StatusInternalServerError:
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
			slog.Warn("[NewsAPIClient] Retriable status, backing off",
				slog.Int("statusCode", res.StatusCode), slog.Int("attempt", attempt))
			lastErr = fmt.Errorf("[NewsAPIClient] status %d", res.StatusCode)
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		default:
			res.Body.Close()
			return nil, fmt.Errorf("[NewsAPIClient] unexpected status %d", res.StatusCode)
		}
	}
	return nil, fmt.Errorf("[NewsAPIClient] failed after max retries: %w", lastErr)
}
