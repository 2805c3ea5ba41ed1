package dto

import (
	"sort"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// ReportDTO представляет отчет для передачи внешнему рендереру
// Только вложенные map/slice без доменных типов
type ReportDTO struct {
	ID           string                                   `json:"id"`
	DayRange     string                                   `json:"day_range"`
	Start        time.Time                                `json:"start"`
	Stop         time.Time                                `json:"stop"`
	GeneratedAt  time.Time                                `json:"generated_at"`
	Violations   map[string]map[string]ViolationRecordDTO `json:"violations"`
	Missing      []string                                 `json:"missing"`
	Checked      []string                                 `json:"checked"`
	Failed       map[string]string                        `json:"failed,omitempty"`
	LimitChanges []LimitChangeDTO                         `json:"limit_changes"`
	AveragePower *float64                                 `json:"average_power,omitempty"`
}

// ViolationRecordDTO представляет сводную запись о нарушении
type ViolationRecordDTO struct {
	Start              time.Time      `json:"start"`
	Stop               time.Time      `json:"stop"`
	NumExcursions      int            `json:"num_excursions"`
	Extrema            string         `json:"extrema"`
	LimitValue         string         `json:"limit_value"`
	SetID              string         `json:"set_id"`
	TotalDurationHours float64        `json:"total_duration_hours"`
	Description        string         `json:"description"`
	Expectation        string         `json:"expectation"`
	Observed           string         `json:"observed"`
	Excursions         []ExcursionDTO `json:"excursions"`
}

// ExcursionDTO: интервал одного выхода за границу
type ExcursionDTO struct {
	Start time.Time `json:"start"`
	Stop  time.Time `json:"stop"`
}

// LimitChangeDTO представляет изменение набора лимитов
type LimitChangeDTO struct {
	MSID        string            `json:"msid"`
	SetID       string            `json:"set_id"`
	Before      *LimitRevisionDTO `json:"before,omitempty"`
	After       *LimitRevisionDTO `json:"after,omitempty"`
	Description string            `json:"description"`
	Error       string            `json:"error,omitempty"`
}

// LimitRevisionDTO представляет версию набора лимитов
type LimitRevisionDTO struct {
	ModificationVersion int64     `json:"modification_version"`
	EffectiveAt         time.Time `json:"effective_at"`
	Date                string    `json:"date"`
	WarningLow          *float64  `json:"warning_low,omitempty"`
	CautionLow          *float64  `json:"caution_low,omitempty"`
	CautionHigh         *float64  `json:"caution_high,omitempty"`
	WarningHigh         *float64  `json:"warning_high,omitempty"`
	ExpectedState       string    `json:"expected_state,omitempty"`
	DefaultSet          string    `json:"default_set,omitempty"`
	MonitoringEnabled   bool      `json:"monitoring_enabled"`
	SwitchState         string    `json:"switch_state,omitempty"`
	LimitSwitchMSID     string    `json:"limit_switch_msid,omitempty"`
}

// ReportSummaryDTO: краткая сводка отчета (WebSocket, NATS, индекс)
type ReportSummaryDTO struct {
	ID             string         `json:"id"`
	DayRange       string         `json:"day_range"`
	Start          time.Time      `json:"start"`
	Stop           time.Time      `json:"stop"`
	GeneratedAt    time.Time      `json:"generated_at"`
	ViolationCount int            `json:"violation_count"`
	ByCategory     map[string]int `json:"by_category"`
	MissingCount   int            `json:"missing_count"`
	FailedCount    int            `json:"failed_count"`
	CheckedCount   int            `json:"checked_count"`
	ChangeCount    int            `json:"limit_change_count"`
	URL            string         `json:"url,omitempty"`
}

// FromReport конвертирует Domain Entity в DTO
func FromReport(report *entity.Report) *ReportDTO {
	violations := make(map[string]map[string]ViolationRecordDTO, len(report.Violations()))
	for key, categories := range report.Violations() {
		records := make(map[string]ViolationRecordDTO, len(categories))
		for category, record := range categories {
			records[category.String()] = FromViolationRecord(record)
		}
		violations[key] = records
	}

	failed := make(map[string]string, len(report.Failed()))
	for key, reason := range report.Failed() {
		failed[key] = reason
	}

	dto := &ReportDTO{
		ID:           report.ID(),
		DayRange:     report.DayRange(),
		Start:        report.Window().Start(),
		Stop:         report.Window().End(),
		GeneratedAt:  report.GeneratedAt(),
		Violations:   violations,
		Missing:      append([]string{}, report.Missing()...),
		Checked:      append([]string{}, report.Checked()...),
		Failed:       failed,
		LimitChanges: ToLimitChangeDTOs(report.LimitChanges()),
	}

	if power, ok := report.AveragePower(); ok {
		dto.AveragePower = &power
	}

	return dto
}

// FromViolationRecord конвертирует запись о нарушении
func FromViolationRecord(record entity.ViolationRecord) ViolationRecordDTO {
	excursions := make([]ExcursionDTO, 0, len(record.Excursions))
	for _, span := range record.Excursions {
		excursions = append(excursions, ExcursionDTO{Start: span.Start(), Stop: span.End()})
	}

	return ViolationRecordDTO{
		Start:              record.Start,
		Stop:               record.Stop,
		NumExcursions:      record.NumExcursions,
		Extrema:            record.Extrema.String(),
		LimitValue:         record.LimitValue.String(),
		SetID:              record.SetID,
		TotalDurationHours: record.TotalDurationHours,
		Description:        record.Description,
		Expectation:        record.Expectation,
		Observed:           record.Observed,
		Excursions:         excursions,
	}
}

// ToLimitChangeDTOs конвертирует изменения лимитов в отсортированный список
func ToLimitChangeDTOs(changes map[entity.LimitChangeKey]entity.LimitChangeRecord) []LimitChangeDTO {
	dtos := make([]LimitChangeDTO, 0, len(changes))
	for _, change := range changes {
		dtos = append(dtos, LimitChangeDTO{
			MSID:        change.MeasurementKey,
			SetID:       change.SetID,
			Before:      fromRevision(change.Before),
			After:       fromRevision(change.After),
			Description: change.Description,
			Error:       change.Error,
		})
	}

	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].MSID != dtos[j].MSID {
			return dtos[i].MSID < dtos[j].MSID
		}
		return dtos[i].SetID < dtos[j].SetID
	})

	return dtos
}

func fromRevision(rev *entity.LimitRevision) *LimitRevisionDTO {
	if rev == nil {
		return nil
	}

	return &LimitRevisionDTO{
		ModificationVersion: rev.ModificationVersion,
		EffectiveAt:         rev.EffectiveAt,
		Date:                valueobject.FormatMissionTime(rev.EffectiveAt),
		WarningLow:          rev.Spec.WarningLow,
		CautionLow:          rev.Spec.CautionLow,
		CautionHigh:         rev.Spec.CautionHigh,
		WarningHigh:         rev.Spec.WarningHigh,
		ExpectedState:       rev.Spec.ExpectedState,
		DefaultSet:          rev.DefaultSet,
		MonitoringEnabled:   rev.MonitoringEnabled,
		SwitchState:         rev.SwitchState,
		LimitSwitchMSID:     rev.LimitSwitchMSID,
	}
}

// Summary возвращает сводку отчета
func (r *ReportDTO) Summary() *ReportSummaryDTO {
	summary := &ReportSummaryDTO{
		ID:           r.ID,
		DayRange:     r.DayRange,
		Start:        r.Start,
		Stop:         r.Stop,
		GeneratedAt:  r.GeneratedAt,
		ByCategory:   make(map[string]int),
		MissingCount: len(r.Missing),
		FailedCount:  len(r.Failed),
		CheckedCount: len(r.Checked),
		ChangeCount:  len(r.LimitChanges),
	}

	for _, categories := range r.Violations {
		for category := range categories {
			summary.ByCategory[category]++
			summary.ViolationCount++
		}
	}

	return summary
}
