package service

import (
	"context"

	"github.com/dreschagin/limit-monitor/internal/domain/repository"
)

// MissingDescription подставляется, если каталог не содержит описания
const MissingDescription = "No description in catalog"

// DescriptionResolver возвращает человекочитаемое описание измерения из каталога архива
type DescriptionResolver struct {
	archive repository.ArchiveRepository
}

// NewDescriptionResolver создает новый DescriptionResolver
func NewDescriptionResolver(archive repository.ArchiveRepository) *DescriptionResolver {
	return &DescriptionResolver{archive: archive}
}

// Describe никогда не возвращает ошибку: при сбое используется MissingDescription
func (d *DescriptionResolver) Describe(ctx context.Context, key string) string {
	if d == nil || d.archive == nil {
		return MissingDescription
	}

	entry, err := d.archive.Describe(ctx, key)
	if err != nil || entry.TechnicalName == "" {
		return MissingDescription
	}

	return entry.TechnicalName
}
