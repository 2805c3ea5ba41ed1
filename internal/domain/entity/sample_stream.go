package entity

import (
	"sort"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// Sample: одно значение измерения (число или метка состояния)
type Sample struct {
	Time  time.Time
	Value float64
	State string
}

// SampleStream: упорядоченный по времени ряд значений одного измерения за интервал
type SampleStream struct {
	Key     string
	Kind    valueobject.LimitKind
	Samples []Sample
}

// NewSampleStream создает ряд и упорядочивает значения по времени
func NewSampleStream(key string, kind valueobject.LimitKind, samples []Sample) SampleStream {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return SampleStream{Key: key, Kind: kind, Samples: sorted}
}

// Len возвращает количество значений
func (s SampleStream) Len() int {
	return len(s.Samples)
}

// IsEmpty проверяет, пуст ли ряд
func (s SampleStream) IsEmpty() bool {
	return len(s.Samples) == 0
}

// Within возвращает подряд значений, попадающих в диапазон (границы включаются)
func (s SampleStream) Within(window valueobject.TimeRange) SampleStream {
	result := make([]Sample, 0, len(s.Samples))
	for _, sample := range s.Samples {
		if window.Contains(sample.Time) {
			result = append(result, sample)
		}
	}
	return SampleStream{Key: s.Key, Kind: s.Kind, Samples: result}
}

// Mean возвращает среднее числовых значений
func (s SampleStream) Mean() (float64, bool) {
	if len(s.Samples) == 0 {
		return 0, false
	}

	var sum float64
	for _, sample := range s.Samples {
		sum += sample.Value
	}
	return sum / float64(len(s.Samples)), true
}
