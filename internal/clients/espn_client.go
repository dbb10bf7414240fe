package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spacesedan/sportsdigest/internal/models"
)

const ESPN_API_ENDPOINT = "https://site.api.espn.com/apis/site/v2/sports"

type ESPNClient struct {
	Client  *http.Client
	BaseURL string
}

func NewESPNClient() *ESPNClient {
	return &ESPNClient{
		Client:  &http.Client{},
		BaseURL: ESPN_API_ENDPOINT,
	}
}

// News fetches the public league news feed, e.g. sport "football", league "nfl".
func (e *ESPNClient) News(ctx context.Context, sport, league string) (*models.ESPNNewsResponse, error) {
	reqURL := fmt.Sprintf("%s/%s/%s/news?limit=25", e.BaseURL, sport, league)

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := e.Client.Do(req)
		if err != nil {
			return nil, err
		}

		if res.StatusCode == http.StatusOK {
			body, err := io.ReadAll(res.Body)
			res.Body.Close()
			if err != nil {
				return nil, err
			}
			var response models.ESPNNewsResponse
			if err := json.Unmarshal(body, &response); err != nil {
				return nil, fmt.Errorf("[ESPNClient] failed to parse JSON response: %w", err)
			}
			return &response, nil
		}

		io.Copy(io.Discard, res.Body)
		res.Body.Close()

		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			slog.Warn("[ESPNClient] Retriable status, backing off",
				slog.Int("statusCode", res.StatusCode), slog.Int("attempt", attempt))
			lastErr = fmt.Errorf("[ESPNClient] status %d", res.StatusCode)
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		return nil, fmt.Errorf("[ESPNClient] unexpected status %d", res.StatusCode)
	}
	return nil, fmt.Errorf("[ESPNClient] failed after max retries: %w", lastErr)
}
