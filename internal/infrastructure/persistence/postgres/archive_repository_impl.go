package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/lib/pq"
)

// PostgresArchiveRepository реализует repository.ArchiveRepository поверх таблиц архива телеметрии
type PostgresArchiveRepository struct {
	db *sql.DB
}

// NewPostgresArchiveRepository создает новый repository архива
func NewPostgresArchiveRepository(db *sql.DB) *PostgresArchiveRepository {
	return &PostgresArchiveRepository{db: db}
}

// Describe возвращает запись каталога
func (r *PostgresArchiveRepository) Describe(ctx context.Context, key string) (repository.CatalogEntry, error) {
	query := `
		SELECT msid, technical_name, unit, state_codes
		FROM archive_catalog
		WHERE msid = $1
	`

	var (
		entry      repository.CatalogEntry
		name, unit sql.NullString
		codes      pq.StringArray
	)

	err := r.db.QueryRowContext(ctx, query, key).Scan(&entry.Key, &name, &unit, &codes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.CatalogEntry{}, &repository.NotFoundError{Key: key, Source: "archive"}
		}
		return repository.CatalogEntry{}, archiveError("describe", err)
	}

	entry.TechnicalName = name.String
	entry.Unit = unit.String
	entry.StateCodes = []string(codes)
	return entry, nil
}

// Fetch возвращает значения измерения за окно с заданной частотой
func (r *PostgresArchiveRepository) Fetch(
	ctx context.Context,
	key string,
	window valueobject.TimeRange,
	cadence valueobject.Cadence,
) (entity.SampleStream, error) {
	entry, err := r.Describe(ctx, key)
	if err != nil {
		return entity.SampleStream{}, err
	}

	kind := valueobject.NumericLimit
	if entry.IsStateful() {
		kind = valueobject.ExpectedState
	}

	query, err := samplesQuery(cadence)
	if err != nil {
		return entity.SampleStream{}, err
	}

	rows, err := r.db.QueryContext(ctx, query, key, window.Start(), window.End())
	if err != nil {
		return entity.SampleStream{}, archiveError("fetch", err)
	}
	defer rows.Close()

	var samples []entity.Sample
	for rows.Next() {
		var (
			sample entity.Sample
			value  sql.NullFloat64
			state  sql.NullString
		)
		if err := rows.Scan(&sample.Time, &value, &state); err != nil {
			return entity.SampleStream{}, archiveError("fetch", fmt.Errorf("failed to scan sample: %w", err))
		}
		sample.Time = sample.Time.UTC()
		sample.Value = value.Float64
		sample.State = state.String
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return entity.SampleStream{}, archiveError("fetch", fmt.Errorf("rows iteration error: %w", err))
	}

	if len(samples) == 0 {
		return entity.SampleStream{}, &repository.NoDataError{Key: key, Window: window}
	}

	return entity.NewSampleStream(key, kind, samples), nil
}

// samplesQuery возвращает запрос выборки для частоты; для агрегатов состояние берется первым в корзине
func samplesQuery(cadence valueobject.Cadence) (string, error) {
	switch cadence {
	case valueobject.FullResolution, "":
		return `
			SELECT sampled_at, value, state
			FROM archive_samples
			WHERE msid = $1 AND sampled_at BETWEEN $2 AND $3
			ORDER BY sampled_at
		`, nil
	case valueobject.FiveMinute:
		return bucketQuery("date_bin('5 minutes', sampled_at, TIMESTAMPTZ '2000-01-01')"), nil
	case valueobject.Daily:
		return bucketQuery("date_trunc('day', sampled_at)"), nil
	default:
		return "", fmt.Errorf("unsupported archive cadence: %s", cadence)
	}
}

func bucketQuery(bucket string) string {
	return `
		SELECT ` + bucket + ` AS bucket, AVG(value), (ARRAY_AGG(state ORDER BY sampled_at))[1]
		FROM archive_samples
		WHERE msid = $1 AND sampled_at BETWEEN $2 AND $3
		GROUP BY bucket
		ORDER BY bucket
	`
}

func archiveError(op string, err error) error {
	return &repository.CollaboratorIOError{Collaborator: "archive", Op: op, Err: err}
}
