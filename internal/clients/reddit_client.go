package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spacesedan/sportsdigest/internal/models"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
)

type RedditClient struct {
	Config *clientcredentials.Config
	Client *http.Client
	mu     sync.Mutex
}

func NewRedditClient(clientID, clientSecret string) *RedditClient {
	oauthConf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     REDDIT_AUTH_URL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &RedditClient{
		Config: oauthConf,
		Client: oauthConf.Client(context.Background()),
	}
}

func (rc *RedditClient) refreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
}

// SearchSubreddit runs a search query against a subreddit, sorted by newest.
func (rc *RedditClient) SearchSubreddit(ctx context.Context, subreddit, query string) (*models.RedditAPIResponse, error) {
	parsedURL, err := url.Parse(fmt.Sprintf("%s/r/%s/search", REDDIT_API_URL, subreddit))
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to parse URL: %w", err)
	}
	queryParams := parsedURL.Query()
	queryParams.Add("q", query)
	queryParams.Add("sort", "new")
	queryParams.Add("restrict_sr", "true")
	queryParams.Add("limit", "25")
	parsedURL.RawQuery = queryParams.Encode()

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", USER_AGENT)

		resp, err := rc.Client.Do(req)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			var parsed models.RedditAPIResponse
			if err := json.Unmarshal(body, &parsed); err != nil {
				return nil, fmt.Errorf("[RedditClient] failed to parse response: %w", err)
			}
			return &parsed, nil
		case http.StatusUnauthorized:
			resp.Body.Close()
			slog.Warn("[RedditClient] Token expired - refreshing and retrying...",
				slog.Int("attempt", attempt))
			rc.refreshClient()
			lastErr = fmt.Errorf("[RedditClient] unauthorized")
		case http.StatusTooManyRequests:
			resp.Body.Close()
			slog.Warn("[RedditClient] 429 Too Many Requests - backing off",
				slog.Int("attempt", attempt))
			lastErr = fmt.Errorf("[RedditClient] rate limited")
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("[RedditClient] unexpected status %d", resp.StatusCode)
		}
	}
	return nil, fmt.Errorf("[RedditClient] max retries reached: %w", lastErr)
}
