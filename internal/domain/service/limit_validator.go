package service

import (
	"errors"
	"fmt"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
)

// LimitValidator предоставляет сервисы для валидации версий лимитов (Domain Service)
type LimitValidator struct{}

// NewLimitValidator создает новый LimitValidator
func NewLimitValidator() *LimitValidator {
	return &LimitValidator{}
}

// Validate выполняет полную валидацию версии лимитов
func (v *LimitValidator) Validate(rev *entity.LimitRevision) error {
	if rev == nil {
		return errors.New("limit revision cannot be nil")
	}

	if rev.MeasurementKey == "" {
		return errors.New("limit revision measurement is required")
	}

	if rev.EffectiveAt.IsZero() {
		return errors.New("limit revision effective time cannot be zero")
	}

	if rev.ModificationVersion < 0 {
		return errors.New("modification version cannot be negative")
	}

	// Порядок границ и ожидаемое состояние
	if err := rev.Spec.Validate(); err != nil {
		return fmt.Errorf("limit set %s/%s v%d: %w", rev.MeasurementKey, rev.SetID, rev.ModificationVersion, err)
	}

	return nil
}

// ValidateBatch валидирует группу версий
func (v *LimitValidator) ValidateBatch(revisions []entity.LimitRevision) []error {
	var errs []error

	for i := range revisions {
		if err := v.Validate(&revisions[i]); err != nil {
			errs = append(errs, fmt.Errorf("revision %d: %w", i, err))
		}
	}

	return errs
}
