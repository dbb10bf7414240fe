package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

const perfLogRetention = 30 * 24 * time.Hour

// PerfEntry is one per-request audit row: what ran, how long it took, and
// which quality tier the response landed on.
type PerfEntry struct {
	Operation      string   `dynamodbav:"operation"`
	UserID         string   `dynamodbav:"user_id"`
	ResponseTimeMS int64    `dynamodbav:"response_time_ms"`
	SourcesUsed    []string `dynamodbav:"sources_used"`
	Success        bool     `dynamodbav:"success"`
	QualityTag     string   `dynamodbav:"quality_tag"`

	Timestamp time.Time `dynamodbav:"-"`
}

type dynamoPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoPerfLogger writes PerfEntries to a DynamoDB table with a TTL
// attribute so old audit rows age out on their own. Logging is strictly
// best effort.
type DynamoPerfLogger struct {
	client dynamoPutter
	table  string
}

func NewDynamoPerfLogger(client dynamoPutter, table string) *DynamoPerfLogger {
	return &DynamoPerfLogger{client: client, table: table}
}

func (l *DynamoPerfLogger) Log(ctx context.Context, entry PerfEntry) {
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		slog.Warn("[PerfLogger] Failed to marshal entry",
			slog.String("operation", entry.Operation),
			slog.String("error", err.Error()))
		return
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	extra, err := attributevalue.MarshalMap(map[string]any{
		"log_id":    uuid.NewString(),
		"timestamp": ts.Format(time.RFC3339),
		"ttl":       ts.Add(perfLogRetention).Unix(),
	})
	if err != nil {
		slog.Warn("[PerfLogger] Failed to marshal entry metadata",
			slog.String("error", err.Error()))
		return
	}
	for k, v := range extra {
		item[k] = v
	}

	if _, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	}); err != nil {
		slog.Warn("[PerfLogger] Failed to write entry",
			slog.String("operation", entry.Operation),
			slog.String("error", err.Error()))
	}
}
