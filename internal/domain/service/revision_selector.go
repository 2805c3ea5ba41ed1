package service

import (
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
)

// SelectLatestRevision выбирает версию с наибольшим modification_version,
// время вступления в силу которой попадает в bound. Возвращает nil, если таких нет
func SelectLatestRevision(revisions []entity.LimitRevision, bound repository.RevisionBound) *entity.LimitRevision {
	var latest *entity.LimitRevision
	for i := range revisions {
		rev := revisions[i]
		if !bound.Admits(rev.EffectiveAt) {
			continue
		}
		if latest == nil ||
			rev.ModificationVersion > latest.ModificationVersion ||
			(rev.ModificationVersion == latest.ModificationVersion && rev.EffectiveAt.After(latest.EffectiveAt)) {
			latest = &rev
		}
	}
	return latest
}
