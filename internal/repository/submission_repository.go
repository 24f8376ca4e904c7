package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"GoldPredict/internal/domain/models"
	"GoldPredict/internal/domain/repository"
	pkgkafka "GoldPredict/pkg/kafka"
	applogger "GoldPredict/pkg/logger"
)

// SubmissionsSchema returns the DDL for the submissions table.
func SubmissionsSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.submissions (
			session_id String,
			spx Float64,
			uso Float64,
			slv Float64,
			eurusd Float64,
			outcome LowCardinality(String),
			prediction Float64,
			message String,
			started_at DateTime64(3),
			finished_at DateTime64(3),
			latency_ms UInt32
		) ENGINE = MergeTree ORDER BY (session_id, started_at)`, database),
	}
}

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

// NewClickHouseStorage creates storage for the submissions table of database.
func NewClickHouseStorage(db *sql.DB, database string) *ClickHouseStorage {
	return &ClickHouseStorage{db: db, database: database, table: database + ".submissions"}
}

// SetLogger injects a structured logger.
func (s *ClickHouseStorage) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the database and table when missing.
func (s *ClickHouseStorage) Init(ctx context.Context) error {
	for _, stmt := range SubmissionsSchema(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init submissions schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, r *models.SubmissionRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (session_id, spx, uso, slv, eurusd, outcome, prediction, message, started_at, finished_at, latency_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		r.SessionID,
		r.Values.SPX,
		r.Values.USO,
		r.Values.SLV,
		r.Values.EURUSD,
		r.Outcome,
		r.Prediction,
		r.Message,
		r.StartedAt,
		r.FinishedAt,
		uint32(r.Latency()/time.Millisecond),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert submission error",
				applogger.String("table", s.table),
				applogger.String("session_id", r.SessionID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store submission: %w", err)
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, sessionID string, limit int) ([]*models.SubmissionRecord, error) {
	q := fmt.Sprintf("SELECT session_id, spx, uso, slv, eurusd, outcome, prediction, message, started_at, finished_at FROM %s WHERE session_id = ? ORDER BY started_at DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.SubmissionRecord
	for rows.Next() {
		var r models.SubmissionRecord
		if err := rows.Scan(
			&r.SessionID,
			&r.Values.SPX,
			&r.Values.USO,
			&r.Values.SLV,
			&r.Values.EURUSD,
			&r.Outcome,
			&r.Prediction,
			&r.Message,
			&r.StartedAt,
			&r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the connection pool belongs to the clickhouse client.
func (s *ClickHouseStorage) Close() error {
	return nil
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish keys messages by session id so one visitor's records stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, r *models.SubmissionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.SessionID), r)
}

// Close is a no-op; the producer is shared with the log collector and closed by its owner.
func (p *KafkaPublisher) Close() error {
	return nil
}

var (
	_ repository.Storage   = (*ClickHouseStorage)(nil)
	_ repository.Publisher = (*KafkaPublisher)(nil)
)
