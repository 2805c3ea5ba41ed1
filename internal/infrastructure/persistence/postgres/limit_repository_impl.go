package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	_ "github.com/lib/pq"
)

// PostgresLimitRepository реализует repository.LimitRepository для PostgreSQL
type PostgresLimitRepository struct {
	db *sql.DB
}

// NewPostgresLimitRepository создает новый PostgreSQL repository
func NewPostgresLimitRepository(db *sql.DB) *PostgresLimitRepository {
	return &PostgresLimitRepository{
		db: db,
	}
}

// Ping проверяет доступность базы лимитов
func (r *PostgresLimitRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return ioError("ping", err)
	}
	return nil
}

// CurrentLimit возвращает версию, действующую в момент at
func (r *PostgresLimitRepository) CurrentLimit(
	ctx context.Context,
	identity, setID string,
	at time.Time,
) (*entity.LimitRevision, error) {
	return r.LatestRevision(ctx, identity, setID, repository.EffectiveAt(at))
}

// LatestRevision выбирает версию с наибольшим modversion в границах bound
func (r *PostgresLimitRepository) LatestRevision(
	ctx context.Context,
	identity, setID string,
	bound repository.RevisionBound,
) (*entity.LimitRevision, error) {
	query, args := buildLatestRevisionQuery(identity, setID, bound)

	model, err := ScanLimitRow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, ioError("latest_revision", err)
	}

	rev := ToEntity(model)
	return &rev, nil
}

// History возвращает версии, вступившие в силу внутри окна
func (r *PostgresLimitRepository) History(
	ctx context.Context,
	identity, setID string,
	window valueobject.TimeRange,
) ([]entity.LimitRevision, error) {
	query := `
		SELECT ` + limitColumns + `
		FROM limits AS a
		WHERE a.msid = $1 AND a.setkey = $2 AND a.effective_at BETWEEN $3 AND $4
		ORDER BY a.effective_at ASC, a.modversion ASC
	`

	rows, err := r.db.QueryContext(ctx, query, identity, setID, window.Start(), window.End())
	if err != nil {
		return nil, ioError("history", err)
	}
	defer rows.Close()

	var revisions []entity.LimitRevision
	for rows.Next() {
		model, err := ScanLimitRow(rows)
		if err != nil {
			return nil, ioError("history", fmt.Errorf("failed to scan limit row: %w", err))
		}
		revisions = append(revisions, ToEntity(model))
	}

	if err := rows.Err(); err != nil {
		return nil, ioError("history", fmt.Errorf("rows iteration error: %w", err))
	}

	return revisions, nil
}

// ChangedPairs возвращает пары (msid, setkey) с версиями внутри окна
func (r *PostgresLimitRepository) ChangedPairs(
	ctx context.Context,
	window valueobject.TimeRange,
) ([]entity.LimitChangeKey, error) {
	query := `
		SELECT DISTINCT a.msid, a.setkey
		FROM limits AS a
		WHERE a.effective_at BETWEEN $1 AND $2
		ORDER BY a.msid, a.setkey
	`

	rows, err := r.db.QueryContext(ctx, query, window.Start(), window.End())
	if err != nil {
		return nil, ioError("changed_pairs", err)
	}
	defer rows.Close()

	var pairs []entity.LimitChangeKey
	for rows.Next() {
		var pair entity.LimitChangeKey
		if err := rows.Scan(&pair.MeasurementKey, &pair.SetID); err != nil {
			return nil, ioError("changed_pairs", fmt.Errorf("failed to scan pair: %w", err))
		}
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, ioError("changed_pairs", fmt.Errorf("rows iteration error: %w", err))
	}

	return pairs, nil
}

// buildLatestRevisionQuery строит единственный запрос "последняя версия в границах"
// При равных modversion побеждает более позднее время вступления в силу
func buildLatestRevisionQuery(identity, setID string, bound repository.RevisionBound) (string, []interface{}) {
	conditions := []string{"a.msid = $1", "a.setkey = $2"}
	args := []interface{}{identity, setID}

	if !bound.From.IsZero() {
		op := ">"
		if bound.FromInclusive {
			op = ">="
		}
		args = append(args, bound.From)
		conditions = append(conditions, fmt.Sprintf("a.effective_at %s $%d", op, len(args)))
	}
	if !bound.To.IsZero() {
		op := "<"
		if bound.ToInclusive {
			op = "<="
		}
		args = append(args, bound.To)
		conditions = append(conditions, fmt.Sprintf("a.effective_at %s $%d", op, len(args)))
	}

	query := `
		SELECT ` + limitColumns + `
		FROM limits AS a
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY a.modversion DESC, a.effective_at DESC
		LIMIT 1
	`

	return query, args
}

func ioError(op string, err error) error {
	return &repository.CollaboratorIOError{Collaborator: "limits", Op: op, Err: err}
}
