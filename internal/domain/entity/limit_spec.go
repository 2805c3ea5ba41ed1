package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// LimitSpec описывает пороги измерения или ожидаемое состояние
// nil-граница считается отключенной
type LimitSpec struct {
	Kind          valueobject.LimitKind
	WarningLow    *float64
	CautionLow    *float64
	CautionHigh   *float64
	WarningHigh   *float64
	AllowedStates []string
	ExpectedState string
}

// Bound возвращает значение границы для категории
func (s LimitSpec) Bound(category valueobject.Category) *float64 {
	switch category {
	case valueobject.WarningLow:
		return s.WarningLow
	case valueobject.CautionLow:
		return s.CautionLow
	case valueobject.CautionHigh:
		return s.CautionHigh
	case valueobject.WarningHigh:
		return s.WarningHigh
	default:
		return nil
	}
}

// Equal сравнивает пороги и состояния двух спецификаций по значению
func (s LimitSpec) Equal(other LimitSpec) bool {
	if s.Kind != other.Kind || s.ExpectedState != other.ExpectedState {
		return false
	}
	for _, category := range []valueobject.Category{
		valueobject.WarningLow,
		valueobject.CautionLow,
		valueobject.CautionHigh,
		valueobject.WarningHigh,
	} {
		a, b := s.Bound(category), other.Bound(category)
		if (a == nil) != (b == nil) || (a != nil && *a != *b) {
			return false
		}
	}
	if len(s.AllowedStates) != len(other.AllowedStates) {
		return false
	}
	for i := range s.AllowedStates {
		if s.AllowedStates[i] != other.AllowedStates[i] {
			return false
		}
	}
	return true
}

// Validate проверяет порядок warning_low <= caution_low <= caution_high <= warning_high
// среди включенных границ
func (s LimitSpec) Validate() error {
	if err := s.Kind.Validate(); err != nil {
		return err
	}

	if s.Kind == valueobject.ExpectedState {
		if s.ExpectedState == "" {
			return errors.New("expected state is required")
		}
		if len(s.AllowedStates) == 0 {
			return nil
		}
		for _, state := range s.AllowedStates {
			if state == s.ExpectedState {
				return nil
			}
		}
		return fmt.Errorf("expected state %q is not among allowed states", s.ExpectedState)
	}

	ordered := []valueobject.Category{
		valueobject.WarningLow,
		valueobject.CautionLow,
		valueobject.CautionHigh,
		valueobject.WarningHigh,
	}

	var prev *float64
	var prevCategory valueobject.Category
	for _, category := range ordered {
		bound := s.Bound(category)
		if bound == nil {
			continue
		}
		if prev != nil && *prev > *bound {
			return fmt.Errorf("%s (%g) must not exceed %s (%g)", prevCategory, *prev, category, *bound)
		}
		prev = bound
		prevCategory = category
	}

	return nil
}

// LimitRevision: версия набора лимитов, действующая с EffectiveAt
type LimitRevision struct {
	MeasurementKey      string
	SetID               string
	ModificationVersion int64
	EffectiveAt         time.Time
	Spec                LimitSpec

	DefaultSet        string
	MonitoringEnabled bool
	SwitchState       string
	LimitSwitchMSID   string
}

// Float возвращает указатель на значение (для сборки LimitSpec)
func Float(v float64) *float64 {
	return &v
}
