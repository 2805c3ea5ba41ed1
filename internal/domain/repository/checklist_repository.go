package repository

import (
	"context"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
)

// ChecklistRepository определяет интерфейс хранения чек-листа измерений
type ChecklistRepository interface {
	Load(ctx context.Context) (entity.Checklist, error)
	Save(ctx context.Context, checklist entity.Checklist) error
}
