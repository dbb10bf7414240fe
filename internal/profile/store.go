package profile

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spacesedan/sportsdigest/internal/models"
)

// Store is the read-only view of the user profile service this pipeline
// depends on. Profile writes belong to a different system.
type Store interface {
	FavoriteTeams(ctx context.Context, userID string) (models.TeamSet, error)
	InteractionHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
}

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) FavoriteTeams(ctx context.Context, userID string) (models.TeamSet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team_name FROM user_favorite_teams WHERE user_id = $1 ORDER BY team_name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying favorite teams: %w", err)
	}
	defer rows.Close()

	var teams models.TeamSet
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, fmt.Errorf("scanning favorite team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *PgStore) InteractionHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content_type, action
		 FROM user_interactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying interaction history: %w", err)
	}
	defer rows.Close()

	var history []models.Interaction
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ContentType, &in.Action); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		history = append(history, in)
	}
	return history, rows.Err()
}
