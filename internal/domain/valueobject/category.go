package valueobject

import "errors"

// Category представляет категорию нарушения лимита (Value Object)
type Category string

const (
	WarningLow  Category = "warning_low"
	CautionLow  Category = "caution_low"
	CautionHigh Category = "caution_high"
	WarningHigh Category = "warning_high"
	State       Category = "state"
)

// Validate проверяет валидность категории
func (c Category) Validate() error {
	switch c {
	case WarningLow, CautionLow, CautionHigh, WarningHigh, State:
		return nil
	default:
		return errors.New("invalid violation category")
	}
}

// String возвращает строковое представление категории
func (c Category) String() string {
	return string(c)
}

// IsLow проверяет, относится ли категория к нижним границам
func (c Category) IsLow() bool {
	return c == WarningLow || c == CautionLow
}

// IsHigh проверяет, относится ли категория к верхним границам
func (c Category) IsHigh() bool {
	return c == CautionHigh || c == WarningHigh
}

// AllCategories возвращает список всех категорий в порядке отчета
func AllCategories() []Category {
	return []Category{WarningLow, CautionLow, CautionHigh, WarningHigh, State}
}
