package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// RecommendationRepository stores recommendation audit records in PostgreSQL.
type RecommendationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *pgxpool.Pool, logger *logrus.Logger) *RecommendationRepository {
	return &RecommendationRepository{
		db:  db,
		log: logger,
	}
}

const recordColumns = `id, request_id, request_type, template, mode, score, confidence_level,
	recommendation_count, model, processing_time_ms, created_at`

// SaveRecommendation inserts an audit record. A missing ID is generated.
func (r *RecommendationRepository) SaveRecommendation(ctx context.Context, record *domain.RecommendationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", record.ID, err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO recommendation_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		id,
		record.RequestID,
		record.RequestType,
		record.Template,
		string(record.Mode),
		record.Score,
		string(record.ConfidenceLevel),
		record.RecommendationCount,
		record.Model,
		record.ProcessingTimeMs,
		record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id": record.ID,
			"mode":      record.Mode,
			"error":     err,
		}).Error("Failed to save recommendation record")
		return fmt.Errorf("saving recommendation record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"record_id":       record.ID,
		"mode":            record.Mode,
		"score":           record.Score,
		"recommendations": record.RecommendationCount,
		"processing_time": record.ProcessingTimeMs,
	}).Debug("Recommendation record saved")

	return nil
}

// GetRecommendation loads an audit record by ID.
func (r *RecommendationRepository) GetRecommendation(ctx context.Context, id string) (*domain.RecommendationRecord, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("recommendation record not found: %w", domain.ErrNotFound)
	}

	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM recommendation_records WHERE id = $1`, parsed)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recommendation record not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to get recommendation record")
		return nil, fmt.Errorf("getting recommendation record: %w", err)
	}
	return record, nil
}

// ListRecent returns the newest audit records.
func (r *RecommendationRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.RecommendationRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM recommendation_records
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing recommendation records: %w", err)
	}
	defer rows.Close()

	var records []*domain.RecommendationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recommendation record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendation records: %w", err)
	}
	return records, nil
}

// ModeCounts returns the number of records per recommendation mode since the given time.
func (r *RecommendationRepository) ModeCounts(ctx context.Context, since time.Time) (map[domain.RecommendationMode]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT mode, COUNT(*) FROM recommendation_records
		WHERE created_at >= $1 GROUP BY mode`, since)
	if err != nil {
		return nil, fmt.Errorf("counting recommendation modes: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RecommendationMode]int64)
	for rows.Next() {
		var mode string
		var n int64
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, fmt.Errorf("scanning mode count: %w", err)
		}
		counts[domain.RecommendationMode(mode)] = n
	}
	return counts, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.RecommendationRecord, error) {
	var record domain.RecommendationRecord
	var id uuid.UUID
	var mode, level string

	err := row.Scan(
		&id,
		&record.RequestID,
		&record.RequestType,
		&record.Template,
		&mode,
		&record.Score,
		&level,
		&record.RecommendationCount,
		&record.Model,
		&record.ProcessingTimeMs,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ID = id.String()
	record.Mode = domain.RecommendationMode(mode)
	record.ConfidenceLevel = domain.ConfidenceLevel(level)
	return &record, nil
}
