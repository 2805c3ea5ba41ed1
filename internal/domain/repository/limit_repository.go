package repository

import (
	"context"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// LimitRepository определяет интерфейс хранилища наборов лимитов (Port)
type LimitRepository interface {
	// Ping проверяет доступность хранилища целиком
	Ping(ctx context.Context) error

	// CurrentLimit возвращает версию, действующую в момент at, или nil
	CurrentLimit(ctx context.Context, identity, setID string, at time.Time) (*entity.LimitRevision, error)

	// LatestRevision возвращает версию с наибольшим modification_version в границах bound, или nil
	LatestRevision(ctx context.Context, identity, setID string, bound RevisionBound) (*entity.LimitRevision, error)

	// History возвращает версии, вступившие в силу внутри окна, по возрастанию времени
	History(ctx context.Context, identity, setID string, window valueobject.TimeRange) ([]entity.LimitRevision, error)

	// ChangedPairs возвращает пары (измерение, набор), у которых есть версии внутри окна
	ChangedPairs(ctx context.Context, window valueobject.TimeRange) ([]entity.LimitChangeKey, error)
}
