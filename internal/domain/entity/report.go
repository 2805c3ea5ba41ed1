package entity

import (
	"sort"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/google/uuid"
)

// Report представляет отчет о нарушениях за интервал (Aggregate Root)
type Report struct {
	id           string
	window       valueobject.TimeRange
	violations   ViolationMap
	missing      []string
	checked      []string
	failed       map[string]string
	limitChanges map[LimitChangeKey]LimitChangeRecord
	averagePower *float64
	generatedAt  time.Time
}

// NewReport создает новый отчет (Factory Method)
func NewReport(
	window valueobject.TimeRange,
	violations ViolationMap,
	missing, checked []string,
	failed map[string]string,
	limitChanges map[LimitChangeKey]LimitChangeRecord,
) *Report {
	return ReconstructReport(
		uuid.New().String(),
		window,
		violations,
		missing,
		checked,
		failed,
		limitChanges,
		nil,
		time.Now().UTC(),
	)
}

// ReconstructReport восстанавливает отчет из хранилища
func ReconstructReport(
	id string,
	window valueobject.TimeRange,
	violations ViolationMap,
	missing, checked []string,
	failed map[string]string,
	limitChanges map[LimitChangeKey]LimitChangeRecord,
	averagePower *float64,
	generatedAt time.Time,
) *Report {
	if violations == nil {
		violations = make(ViolationMap)
	}
	if failed == nil {
		failed = make(map[string]string)
	}
	if limitChanges == nil {
		limitChanges = make(map[LimitChangeKey]LimitChangeRecord)
	}

	missing = append([]string(nil), missing...)
	checked = append([]string(nil), checked...)
	sort.Strings(missing)
	sort.Strings(checked)

	return &Report{
		id:           id,
		window:       window,
		violations:   violations,
		missing:      missing,
		checked:      checked,
		failed:       failed,
		limitChanges: limitChanges,
		averagePower: averagePower,
		generatedAt:  generatedAt,
	}
}

// ID возвращает идентификатор отчета
func (r *Report) ID() string {
	return r.id
}

// Window возвращает интервал отчета
func (r *Report) Window() valueobject.TimeRange {
	return r.window
}

// DayRange возвращает метку интервала YYYYDDD-YYYYDDD
func (r *Report) DayRange() string {
	return r.window.DayRange()
}

// Violations возвращает карту нарушений
func (r *Report) Violations() ViolationMap {
	return r.violations
}

// Missing возвращает измерения, отсутствующие в архиве
func (r *Report) Missing() []string {
	return r.missing
}

// Checked возвращает проверенные измерения
func (r *Report) Checked() []string {
	return r.checked
}

// Failed возвращает измерения, проверка которых завершилась ошибкой
func (r *Report) Failed() map[string]string {
	return r.failed
}

// LimitChanges возвращает изменения лимитов за интервал
func (r *Report) LimitChanges() map[LimitChangeKey]LimitChangeRecord {
	return r.limitChanges
}

// AveragePower возвращает среднюю мощность за интервал, если она известна
func (r *Report) AveragePower() (float64, bool) {
	if r.averagePower == nil {
		return 0, false
	}
	return *r.averagePower, true
}

// SetAveragePower устанавливает среднюю мощность
func (r *Report) SetAveragePower(v float64) {
	r.averagePower = &v
}

// GeneratedAt возвращает время формирования отчета
func (r *Report) GeneratedAt() time.Time {
	return r.generatedAt
}

// Domain Methods (бизнес-логика)

// ViolationCount возвращает количество записей о нарушениях по категориям
func (r *Report) ViolationCount() map[valueobject.Category]int {
	counts := make(map[valueobject.Category]int)
	for _, categories := range r.violations {
		for category := range categories {
			counts[category]++
		}
	}
	return counts
}

// HasViolations проверяет, есть ли в отчете нарушения
func (r *Report) HasViolations() bool {
	return len(r.violations) > 0
}
