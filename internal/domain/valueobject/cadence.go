package valueobject

import "errors"

// Cadence определяет частоту выборки архива
type Cadence string

const (
	FullResolution Cadence = "full"
	FiveMinute     Cadence = "5min"
	Daily          Cadence = "daily"
)

// Validate проверяет валидность частоты выборки
func (c Cadence) Validate() error {
	switch c {
	case FullResolution, FiveMinute, Daily:
		return nil
	default:
		return errors.New("invalid archive cadence")
	}
}

func (c Cadence) String() string {
	return string(c)
}
