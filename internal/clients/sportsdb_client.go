package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spacesedan/sportsdigest/internal/models"
)

const SPORTSDB_API_ENDPOINT = "https://www.thesportsdb.com/api/v1/json"

type SportsDBClient struct {
	Client *http.Client
	APIKey string
}

func NewSportsDBClient(apiKey string) *SportsDBClient {
	return &SportsDBClient{
		Client: &http.Client{},
		APIKey: apiKey,
	}
}

// SearchTeam resolves a team name to its TheSportsDB record.
func (s *SportsDBClient) SearchTeam(ctx context.Context, team string) (*models.SportsDBTeamsResponse, error) {
	reqURL := fmt.Sprintf("%s/%s/searchteams.php?t=%s", SPORTSDB_API_ENDPOINT, s.APIKey, url.QueryEscape(team))

	var response models.SportsDBTeamsResponse
	if err := s.getJSON(ctx, reqURL, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// LastEvents returns the most recent completed events for a team ID.
func (s *SportsDBClient) LastEvents(ctx context.Context, teamID string) (*models.SportsDBEventsResponse, error) {
	reqURL := fmt.Sprintf("%s/%s/eventslast.php?id=%s", SPORTSDB_API_ENDPOINT, s.APIKey, url.QueryEscape(teamID))

	var response models.SportsDBEventsResponse
	if err := s.getJSON(ctx, reqURL, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (s *SportsDBClient) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	res, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return fmt.Errorf("[SportsDBClient] unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("[SportsDBClient] failed to parse JSON response: %w", err)
	}
	return nil
}
