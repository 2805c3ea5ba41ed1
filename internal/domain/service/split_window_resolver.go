package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// WindowSegment: часть окна с одним именем для поиска лимитов и одним набором лимитов
type WindowSegment struct {
	Identity string
	SetID    string
	Span     valueobject.TimeRange
	// OpenEnd исключает значения ровно на конце отрезка: момент передачи принадлежит следующему интервалу
	OpenEnd bool
}

// Includes проверяет, относится ли момент t к отрезку
func (s WindowSegment) Includes(t time.Time) bool {
	if !s.Span.Contains(t) {
		return false
	}
	return !(s.OpenEnd && t.Equal(s.Span.End()))
}

// SplitWindowResolver оценивает измерение с учетом смены имени и набора лимитов внутри окна
// Интервалы действия задаются внешней таблицей; между интервалами: мертвая зона
type SplitWindowResolver struct {
	archive   repository.ArchiveRepository
	limits    repository.LimitRepository
	evaluator *LimitEvaluator
	validator *LimitValidator
	validity  entity.ValidityTable
	cadence   valueobject.Cadence
}

// NewSplitWindowResolver создает новый SplitWindowResolver
func NewSplitWindowResolver(
	archive repository.ArchiveRepository,
	limits repository.LimitRepository,
	evaluator *LimitEvaluator,
	validity entity.ValidityTable,
	cadence valueobject.Cadence,
) *SplitWindowResolver {
	if validity == nil {
		validity = entity.ValidityTable{}
	}
	if cadence == "" {
		cadence = valueobject.FullResolution
	}

	return &SplitWindowResolver{
		archive:   archive,
		limits:    limits,
		evaluator: evaluator,
		validator: NewLimitValidator(),
		validity:  validity,
		cadence:   cadence,
	}
}

// Segments разбивает окно на отрезки по интервалам действия измерения
func (r *SplitWindowResolver) Segments(m entity.Measurement, window valueobject.TimeRange) ([]WindowSegment, error) {
	intervals := r.validity.For(m.Key)
	if len(intervals) == 0 {
		return []WindowSegment{{
			Identity: m.LimitIdentity(),
			SetID:    m.LimitSetID(),
			Span:     window,
		}}, nil
	}

	if err := checkAmbiguity(m.Key, intervals, window); err != nil {
		return nil, err
	}

	segments := make([]WindowSegment, 0, len(intervals))
	for i, interval := range intervals {
		span, ok := interval.Clip(window)
		if !ok {
			continue
		}

		setID := interval.SetID
		if setID == "" {
			setID = m.LimitSetID()
		}
		identity := interval.Identity
		if identity == "" {
			identity = m.LimitIdentity()
		}

		openEnd := i+1 < len(intervals) &&
			!interval.EffectiveTo.IsZero() &&
			intervals[i+1].EffectiveFrom.Equal(interval.EffectiveTo)

		segments = append(segments, WindowSegment{
			Identity: identity,
			SetID:    setID,
			Span:     span,
			OpenEnd:  openEnd,
		})
	}

	return segments, nil
}

// Resolve возвращает участки нарушения за окно, склеенные по отрезкам в порядке времени
// Ни один участок не пересекает границу отрезка
func (r *SplitWindowResolver) Resolve(
	ctx context.Context,
	m entity.Measurement,
	window valueobject.TimeRange,
) ([]entity.RawViolationRun, error) {
	segments, err := r.Segments(m, window)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}

	// Имя в архиве не меняется, поэтому значения читаются один раз за все окно
	stream, err := r.archive.Fetch(ctx, m.Key, window, r.cadence)
	if err != nil {
		return nil, err
	}

	var runs []entity.RawViolationRun
	for _, segment := range segments {
		segmentRuns, err := r.evaluateSegment(ctx, m, stream, segment)
		if err != nil {
			return nil, err
		}
		runs = append(runs, segmentRuns...)
	}

	return runs, nil
}

// evaluateSegment дополнительно делит отрезок по версиям лимитов, вступившим в силу внутри него,
// чтобы каждое значение сравнивалось с лимитом, действующим в его момент
func (r *SplitWindowResolver) evaluateSegment(
	ctx context.Context,
	m entity.Measurement,
	stream entity.SampleStream,
	segment WindowSegment,
) ([]entity.RawViolationRun, error) {
	current, err := r.limits.CurrentLimit(ctx, segment.Identity, segment.SetID, segment.Span.Start())
	if err != nil {
		return nil, err
	}

	changes, err := r.limits.History(ctx, segment.Identity, segment.SetID, segment.Span)
	if err != nil {
		return nil, err
	}

	candidates := make([]entity.LimitRevision, 0, len(changes)+1)
	if current != nil {
		candidates = append(candidates, *current)
	}
	candidates = append(candidates, changes...)

	if len(candidates) == 0 {
		return nil, &repository.NotFoundError{Key: segment.Identity, Source: "limits"}
	}

	boundaries := []time.Time{segment.Span.Start()}
	for _, rev := range changes {
		if rev.EffectiveAt.After(segment.Span.Start()) && segment.Includes(rev.EffectiveAt) {
			boundaries = append(boundaries, rev.EffectiveAt)
		}
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].Before(boundaries[j]) })

	pieces, err := r.limitPieces(m, segment, candidates, boundaries)
	if err != nil {
		return nil, err
	}

	var runs []entity.RawViolationRun
	// open: индекс участка, который доходит до последнего значения предыдущего куска
	open := map[valueobject.Category]int{}
	for i, piece := range pieces {
		var next time.Time
		if i+1 < len(pieces) {
			next = pieces[i+1].from
		}

		samples := make([]entity.Sample, 0)
		for _, s := range stream.Samples {
			if !segment.Includes(s.Time) || s.Time.Before(piece.from) {
				continue
			}
			if !next.IsZero() && !s.Time.Before(next) {
				continue
			}
			samples = append(samples, s)
		}
		if len(samples) == 0 {
			continue
		}
		first, last := samples[0].Time, samples[len(samples)-1].Time

		stillOpen := map[valueobject.Category]int{}
		view := entity.SampleStream{Key: stream.Key, Kind: stream.Kind, Samples: samples}
		for _, run := range r.evaluator.Evaluate(view, piece.spec, segment.SetID) {
			run.Identity = segment.Identity

			idx, ok := open[run.Category]
			if ok && run.Start.Equal(first) {
				// Смена версии внутри выхода за границу не разрывает участок; лимит берется из первого
				runs[idx] = mergeRuns(runs[idx], run)
			} else {
				runs = append(runs, run)
				idx = len(runs) - 1
			}
			if run.Stop.Equal(last) {
				stillOpen[run.Category] = idx
			}
		}
		open = stillOpen
	}

	return runs, nil
}

type limitPiece struct {
	from time.Time
	spec entity.LimitSpec
}

// limitPieces выбирает версию лимитов для каждой границы и склеивает соседние куски с одинаковыми порогами
func (r *SplitWindowResolver) limitPieces(
	m entity.Measurement,
	segment WindowSegment,
	candidates []entity.LimitRevision,
	boundaries []time.Time,
) ([]limitPiece, error) {
	var pieces []limitPiece
	for i, from := range boundaries {
		if i > 0 && from.Equal(boundaries[i-1]) {
			continue
		}

		rev := SelectLatestRevision(candidates, repository.EffectiveAt(from))
		if rev == nil {
			continue
		}
		if err := r.validator.Validate(rev); err != nil {
			return nil, fmt.Errorf("invalid limits for %s: %w", m.Key, err)
		}
		if m.Kind != "" && rev.Spec.Kind != m.Kind {
			return nil, &repository.LimitKindMismatchError{
				Key:      m.Key,
				Identity: segment.Identity,
				Want:     m.Kind,
				Got:      rev.Spec.Kind,
			}
		}

		if n := len(pieces); n > 0 && pieces[n-1].spec.Equal(rev.Spec) {
			continue
		}
		pieces = append(pieces, limitPiece{from: from, spec: rev.Spec})
	}
	return pieces, nil
}

func mergeRuns(head, tail entity.RawViolationRun) entity.RawViolationRun {
	merged := head
	merged.Stop = tail.Stop
	merged.Values = append(append([]float64(nil), head.Values...), tail.Values...)
	merged.States = append(append([]string(nil), head.States...), tail.States...)
	if len(merged.Values) == 0 {
		merged.Values = nil
	}
	if len(merged.States) == 0 {
		merged.States = nil
	}
	return merged
}

// checkAmbiguity возвращает ошибку, если два интервала действуют одновременно внутри окна
// Касание (конец одного равен началу следующего) неоднозначностью не считается
func checkAmbiguity(key string, intervals []entity.ValidityInterval, window valueobject.TimeRange) error {
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			a, b := intervals[i], intervals[j]
			if !a.EffectiveTo.IsZero() && !b.EffectiveFrom.Before(a.EffectiveTo) {
				continue
			}

			at := b.EffectiveFrom
			if at.Before(window.Start()) {
				at = window.Start()
			}
			if !window.Contains(at) || !a.Covers(at) || !b.Covers(at) {
				continue
			}

			return &repository.AmbiguousLimitSetError{
				Key:        key,
				At:         at,
				Identities: []string{a.Identity + "/" + a.SetID, b.Identity + "/" + b.SetID},
			}
		}
	}
	return nil
}
