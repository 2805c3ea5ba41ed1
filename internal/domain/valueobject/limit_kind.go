package valueobject

import "errors"

// LimitKind определяет тип проверки измерения
type LimitKind string

const (
	NumericLimit  LimitKind = "limit"
	ExpectedState LimitKind = "expected_state"
)

// Validate проверяет валидность типа проверки
func (k LimitKind) Validate() error {
	switch k {
	case NumericLimit, ExpectedState:
		return nil
	default:
		return errors.New("invalid limit kind")
	}
}

func (k LimitKind) String() string {
	return string(k)
}
