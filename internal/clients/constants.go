package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 8 * time.Second
	USER_AGENT      = "sportsdigest-client/1.0 (+https://github.com/spacesedan/sportsdigest)"
)
