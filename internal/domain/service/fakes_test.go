package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

var testBase = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hours float64) time.Time {
	return testBase.Add(time.Duration(hours * float64(time.Hour)))
}

func window(fromHours, toHours float64) valueobject.TimeRange {
	return valueobject.MustTimeRange(at(fromHours), at(toHours))
}

func numericStream(key string, points ...[2]float64) entity.SampleStream {
	samples := make([]entity.Sample, 0, len(points))
	for _, p := range points {
		samples = append(samples, entity.Sample{Time: at(p[0]), Value: p[1]})
	}
	return entity.NewSampleStream(key, valueobject.NumericLimit, samples)
}

type memoryArchive struct {
	mu      sync.Mutex
	samples map[string][]entity.Sample
	catalog map[string]repository.CatalogEntry
	errs    map[string]error
	fetches int
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{
		samples: make(map[string][]entity.Sample),
		catalog: make(map[string]repository.CatalogEntry),
		errs:    make(map[string]error),
	}
}

func (a *memoryArchive) put(key, description string, samples ...entity.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples[key] = append(a.samples[key], samples...)
	a.catalog[key] = repository.CatalogEntry{Key: key, TechnicalName: description}
}

func (a *memoryArchive) Fetch(_ context.Context, key string, w valueobject.TimeRange, _ valueobject.Cadence) (entity.SampleStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++

	if err, ok := a.errs[key]; ok {
		return entity.SampleStream{}, err
	}
	if _, ok := a.catalog[key]; !ok {
		return entity.SampleStream{}, &repository.NotFoundError{Key: key, Source: "archive"}
	}

	stream := entity.NewSampleStream(key, valueobject.NumericLimit, a.samples[key]).Within(w)
	if stream.IsEmpty() {
		return entity.SampleStream{}, &repository.NoDataError{Key: key, Window: w}
	}
	return stream, nil
}

func (a *memoryArchive) Describe(_ context.Context, key string) (repository.CatalogEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.catalog[key]
	if !ok {
		return repository.CatalogEntry{}, &repository.NotFoundError{Key: key, Source: "archive"}
	}
	return entry, nil
}

type memoryLimits struct {
	mu        sync.RWMutex
	revisions []entity.LimitRevision
	pingErr   error

	// ошибки LatestRevision по имени измерения
	revisionErrs map[string]error
}

func (l *memoryLimits) add(rev entity.LimitRevision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revisions = append(l.revisions, rev)
}

func (l *memoryLimits) Ping(_ context.Context) error {
	return l.pingErr
}

func (l *memoryLimits) CurrentLimit(ctx context.Context, identity, setID string, t time.Time) (*entity.LimitRevision, error) {
	return l.LatestRevision(ctx, identity, setID, repository.EffectiveAt(t))
}

func (l *memoryLimits) LatestRevision(_ context.Context, identity, setID string, bound repository.RevisionBound) (*entity.LimitRevision, error) {
	if err := l.revisionErrs[identity]; err != nil {
		return nil, err
	}
	return SelectLatestRevision(l.matching(identity, setID), bound), nil
}

func (l *memoryLimits) History(_ context.Context, identity, setID string, w valueobject.TimeRange) ([]entity.LimitRevision, error) {
	var result []entity.LimitRevision
	for _, rev := range l.matching(identity, setID) {
		if w.Contains(rev.EffectiveAt) {
			result = append(result, rev)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EffectiveAt.Before(result[j].EffectiveAt) })
	return result, nil
}

func (l *memoryLimits) ChangedPairs(_ context.Context, w valueobject.TimeRange) ([]entity.LimitChangeKey, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[entity.LimitChangeKey]bool)
	var pairs []entity.LimitChangeKey
	for _, rev := range l.revisions {
		key := entity.LimitChangeKey{MeasurementKey: rev.MeasurementKey, SetID: rev.SetID}
		if w.Contains(rev.EffectiveAt) && !seen[key] {
			seen[key] = true
			pairs = append(pairs, key)
		}
	}
	return pairs, nil
}

func (l *memoryLimits) matching(identity, setID string) []entity.LimitRevision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var result []entity.LimitRevision
	for _, rev := range l.revisions {
		if rev.MeasurementKey == identity && rev.SetID == setID {
			result = append(result, rev)
		}
	}
	return result
}

func highLimit(identity string, version int64, effective time.Time, warningHigh float64) entity.LimitRevision {
	return entity.LimitRevision{
		MeasurementKey:      identity,
		SetID:               entity.DefaultSetID,
		ModificationVersion: version,
		EffectiveAt:         effective,
		Spec: entity.LimitSpec{
			Kind:        valueobject.NumericLimit,
			WarningHigh: entity.Float(warningHigh),
		},
	}
}
