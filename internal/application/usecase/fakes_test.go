package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

var testBase = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hours float64) time.Time {
	return testBase.Add(time.Duration(hours * float64(time.Hour)))
}

func testWindow() valueobject.TimeRange {
	return valueobject.MustTimeRange(at(0), at(10))
}

func testLogger() *logger.Logger {
	return logger.New("error")
}

type memoryArchive struct {
	mu      sync.Mutex
	samples map[string][]entity.Sample
	catalog map[string]repository.CatalogEntry
	errs    map[string]error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{
		samples: make(map[string][]entity.Sample),
		catalog: make(map[string]repository.CatalogEntry),
		errs:    make(map[string]error),
	}
}

func (a *memoryArchive) put(key, description string, values ...float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, v := range values {
		a.samples[key] = append(a.samples[key], entity.Sample{Time: at(float64(i)), Value: v})
	}
	a.catalog[key] = repository.CatalogEntry{Key: key, TechnicalName: description}
}

func (a *memoryArchive) Fetch(_ context.Context, key string, w valueobject.TimeRange, _ valueobject.Cadence) (entity.SampleStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

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
	if err, ok := a.errs[key]; ok {
		return repository.CatalogEntry{}, err
	}
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
	return service.SelectLatestRevision(l.matching(identity, setID), bound), nil
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

func highLimit(identity string, version int64, effective time.Time, cautionHigh float64) entity.LimitRevision {
	return entity.LimitRevision{
		MeasurementKey:      identity,
		SetID:               entity.DefaultSetID,
		ModificationVersion: version,
		EffectiveAt:         effective,
		Spec: entity.LimitSpec{
			Kind:        valueobject.NumericLimit,
			CautionHigh: entity.Float(cautionHigh),
		},
	}
}

type memoryChecklists struct {
	checklist entity.Checklist
	loadErr   error
	saved     entity.Checklist
}

func (c *memoryChecklists) Load(_ context.Context) (entity.Checklist, error) {
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.checklist, nil
}

func (c *memoryChecklists) Save(_ context.Context, checklist entity.Checklist) error {
	c.saved = checklist
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets chan string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte), sets: make(chan string, 16)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, 0)
}

func (c *memoryCache) SetWithTTL(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	select {
	case c.sets <- key:
	default:
	}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, _ string) error {
	return nil
}

func (c *memoryCache) Close() error {
	return nil
}

func (c *memoryCache) waitSet(t *testing.T) string {
	t.Helper()
	select {
	case key := <-c.sets:
		return key
	case <-time.After(2 * time.Second):
		t.Fatalf("cache was not populated")
		return ""
	}
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (s *memoryStorage) PutObject(_ context.Context, key, _ string, body []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return "https://reports.example.com/" + key, nil
}

func (s *memoryStorage) GetObject(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return body, nil
}

type memoryIndex struct {
	mu        sync.Mutex
	entries   map[string]port.ReportIndexEntry
	listErr   error
	lastQuery port.ReportIndexQuery
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{entries: make(map[string]port.ReportIndexEntry)}
}

func (i *memoryIndex) Put(_ context.Context, entry port.ReportIndexEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[entry.DayRange] = entry
	return nil
}

func (i *memoryIndex) Get(_ context.Context, dayRange string) (port.ReportIndexEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.entries[dayRange]
	if !ok {
		return port.ReportIndexEntry{}, port.ErrReportNotIndexed
	}
	return entry, nil
}

func (i *memoryIndex) List(_ context.Context, query port.ReportIndexQuery) (port.ReportIndexPage, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.lastQuery = query
	if i.listErr != nil {
		return port.ReportIndexPage{}, i.listErr
	}
	page := port.ReportIndexPage{}
	for _, entry := range i.entries {
		page.Items = append(page.Items, entry)
	}
	return page, nil
}

type recordingEvents struct {
	mu       sync.Mutex
	subjects []string
	events   []interface{}
}

func (e *recordingEvents) PublishEvent(_ context.Context, subject string, event interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subjects = append(e.subjects, subject)
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEvents) Close() error {
	return nil
}

type recordingNotifier struct {
	summaries []*dto.ReportSummaryDTO
}

func (n *recordingNotifier) BroadcastReport(summary *dto.ReportSummaryDTO) {
	n.summaries = append(n.summaries, summary)
}

func (n *recordingNotifier) ClientCount() int {
	return 0
}

type recordingPublisher struct {
	batches [][]port.MetricDatum
}

func (p *recordingPublisher) PublishBatch(_ context.Context, metrics []port.MetricDatum) error {
	p.batches = append(p.batches, metrics)
	return nil
}

func (p *recordingPublisher) PublishSingle(ctx context.Context, metric port.MetricDatum) error {
	return p.PublishBatch(ctx, []port.MetricDatum{metric})
}

func (p *recordingPublisher) Flush(_ context.Context) error {
	return nil
}

type countingMetrics struct {
	mu         sync.Mutex
	reports    map[string]int
	outcomes   map[string]int
	violations map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		reports:    make(map[string]int),
		outcomes:   make(map[string]int),
		violations: make(map[string]int),
	}
}

func (m *countingMetrics) ObserveReport(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[status]++
}

func (m *countingMetrics) IncMeasurement(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *countingMetrics) AddViolations(category string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations[category] += count
}

// engineFixture собирает ядро поверх in-memory коллабораторов
type engineFixture struct {
	archive    *memoryArchive
	limits     *memoryLimits
	checklists *memoryChecklists
	metrics    *countingMetrics
}

func newEngineFixture() *engineFixture {
	return &engineFixture{
		archive:    newMemoryArchive(),
		limits:     &memoryLimits{},
		checklists: &memoryChecklists{},
		metrics:    newCountingMetrics(),
	}
}

func (f *engineFixture) buildMap(denylist ...string) *BuildViolationMapUseCase {
	deny := make(map[string]struct{})
	for _, key := range denylist {
		deny[key] = struct{}{}
	}

	resolver := service.NewSplitWindowResolver(f.archive, f.limits, service.NewLimitEvaluator(), nil, valueobject.FullResolution)
	return NewBuildViolationMapUseCase(
		f.limits,
		resolver,
		service.NewViolationAggregator(),
		service.NewDescriptionResolver(f.archive),
		f.metrics,
		BuildViolationMapConfig{Workers: 3, Denylist: deny},
		testLogger(),
	)
}

func (f *engineFixture) reporter() *service.LimitChangeReporter {
	return service.NewLimitChangeReporter(f.limits, service.NewDescriptionResolver(f.archive))
}

func measurement(key string) entity.Measurement {
	m, err := entity.NewMeasurement(key, "", "thermal", "", valueobject.NumericLimit)
	if err != nil {
		panic(err)
	}
	return m
}
