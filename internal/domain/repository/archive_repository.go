package repository

import (
	"context"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// CatalogEntry описывает измерение в каталоге архива
type CatalogEntry struct {
	Key           string
	TechnicalName string
	Unit          string
	StateCodes    []string
}

// IsStateful проверяет, является ли измерение дискретным (имеет коды состояний)
func (c CatalogEntry) IsStateful() bool {
	return len(c.StateCodes) > 0
}

// ArchiveRepository определяет интерфейс архива телеметрии (Port)
// Реализация будет в Infrastructure слое
type ArchiveRepository interface {
	// Fetch возвращает значения измерения за окно
	// *NotFoundError: измерения нет в каталоге; *NoDataError: нет значений за окно
	Fetch(
		ctx context.Context,
		key string,
		window valueobject.TimeRange,
		cadence valueobject.Cadence,
	) (entity.SampleStream, error)

	// Describe возвращает запись каталога
	Describe(ctx context.Context, key string) (CatalogEntry, error)
}
